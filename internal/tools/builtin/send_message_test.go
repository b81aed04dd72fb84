package builtin

import (
	"context"
	"testing"
	"time"

	"courier/internal/store"
)

// recordingIndexer remembers indexed messages.
type recordingIndexer struct {
	indexed []*store.Message
}

func (r *recordingIndexer) IndexMessage(_ context.Context, msg *store.Message) {
	r.indexed = append(r.indexed, msg)
}

func TestSendMessageIntoConversation(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, &store.User{ID: "me", Name: "Requester"})
	seedUser(t, s, &store.User{ID: "u2", Name: "Sarah"})
	seedConversation(t, s, &store.Conversation{ID: "c1", Title: "Plans", Participants: []string{"me", "u2"}, CreatedAt: time.Now()})
	indexer := &recordingIndexer{}
	tool := NewSendMessage(s, indexer, nil)

	result, err := tool.Execute(context.Background(), callFor("me", map[string]any{
		"conversation_id": "c1",
		"content":         "running late, be there at 8",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if result.Data["conversation_id"] != "c1" {
		t.Fatalf("conversation_id = %v", result.Data["conversation_id"])
	}

	msgs, err := s.ListMessages(context.Background(), "c1", "me", 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "running late, be there at 8" {
		t.Fatalf("message not persisted: %+v", msgs)
	}
	if msgs[0].SenderName != "Requester" {
		t.Fatalf("sender name = %q", msgs[0].SenderName)
	}
	if len(indexer.indexed) != 1 {
		t.Fatalf("sent message should be indexed")
	}
}

func TestSendMessageToRecipientCreatesDirectConversation(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, &store.User{ID: "me", Name: "Requester"})
	seedUser(t, s, &store.User{ID: "u2", Name: "Sarah"})
	tool := NewSendMessage(s, nil, nil)

	result, err := tool.Execute(context.Background(), callFor("me", map[string]any{
		"recipient_id": "u2",
		"content":      "hi",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}

	conv, err := s.FindDirectConversation(context.Background(), "me", "u2")
	if err != nil {
		t.Fatalf("direct conversation not created: %v", err)
	}
	if result.Data["conversation_id"] != conv.ID {
		t.Fatalf("result points at %v, store has %s", result.Data["conversation_id"], conv.ID)
	}

	// A second send reuses the same conversation.
	if _, err := tool.Execute(context.Background(), callFor("me", map[string]any{
		"recipient_id": "u2",
		"content":      "hello again",
	})); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	msgs, err := s.ListMessages(context.Background(), conv.ID, "me", 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages in the same conversation, got %d", len(msgs))
	}
}

func TestSendMessageForeignConversationDenied(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, &store.User{ID: "me", Name: "Requester"})
	seedUser(t, s, &store.User{ID: "u2", Name: "Sarah"})
	seedUser(t, s, &store.User{ID: "u3", Name: "Eve"})
	seedConversation(t, s, &store.Conversation{ID: "c1", Title: "Private", Participants: []string{"me", "u2"}, CreatedAt: time.Now()})
	tool := NewSendMessage(s, nil, nil)

	result, err := tool.Execute(context.Background(), callFor("u3", map[string]any{
		"conversation_id": "c1",
		"content":         "let me in",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Fatalf("non-participant must not send")
	}
}

func TestResolveConversationByContact(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, &store.User{ID: "me", Name: "Requester"})
	seedUser(t, s, &store.User{ID: "u2", Name: "Sarah", Email: "sarah@example.com"})
	tool := NewConversationResolve(s, nil)

	// First resolution creates the direct conversation.
	result, err := tool.Execute(context.Background(), callFor("me", map[string]any{
		"contact_identifier": "sarah@example.com",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if result.Data["created"] != true {
		t.Fatalf("first resolution should create, got %v", result.Data)
	}
	convID := result.Data["conversation_id"]

	// Second resolution finds the same one.
	result, err = tool.Execute(context.Background(), callFor("me", map[string]any{
		"contact_identifier": "u2",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Data["created"] != false || result.Data["conversation_id"] != convID {
		t.Fatalf("second resolution should reuse %v, got %v", convID, result.Data)
	}
}

func TestResolveConversationUnknownContact(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, &store.User{ID: "me", Name: "Requester"})
	tool := NewConversationResolve(s, nil)

	result, err := tool.Execute(context.Background(), callFor("me", map[string]any{
		"contact_identifier": "nobody@example.com",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Fatalf("unknown contact must fail")
	}
}
