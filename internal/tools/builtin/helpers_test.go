package builtin

import (
	"context"
	"testing"
	"time"

	"courier/internal/assistant/ports"
	"courier/internal/config"
	"courier/internal/store"
)

// fakeSearcher returns a fixed hit list.
type fakeSearcher struct {
	hits []ports.MessageHit
	err  error
}

func (f *fakeSearcher) SearchMessages(_ context.Context, _ string, _ int) ([]ports.MessageHit, error) {
	return f.hits, f.err
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *store.SQLiteStore, u *store.User) {
	t.Helper()
	if err := s.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", u.ID, err)
	}
}

func seedConversation(t *testing.T, s *store.SQLiteStore, conv *store.Conversation, msgs ...*store.Message) {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("seed conversation %s: %v", conv.ID, err)
	}
	for _, msg := range msgs {
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("seed message %s: %v", msg.ID, err)
		}
	}
}

func callFor(userID string, args map[string]any) ports.ToolCall {
	return ports.ToolCall{
		ID:        "t-1",
		Arguments: args,
		Context:   &ports.ToolContext{UserID: userID, RequestID: "req-t"},
	}
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		CandidateLimit: 100,
		TimeWindow:     48 * time.Hour,
		MaxGroups:      5,
		MaxAggregate:   3,
		MinSimilarity:  0.3,
	}
}
