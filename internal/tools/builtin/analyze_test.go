package builtin

import (
	"context"
	"strings"
	"testing"
	"time"

	"courier/internal/llm"
	"courier/internal/store"
)

func TestParseAnalysisStructured(t *testing.T) {
	raw := "ANSWER: The party starts at 7pm.\nCONFIDENCE: 0.9\nRELEVANT_MESSAGES: Sarah, Tom"
	got := parseAnalysis(raw)

	if got.Answer != "The party starts at 7pm." {
		t.Fatalf("answer = %q", got.Answer)
	}
	if got.Confidence != 0.9 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
	if len(got.RelevantMessages) != 2 || got.RelevantMessages[0] != "Sarah" {
		t.Fatalf("relevant = %v", got.RelevantMessages)
	}
}

func TestParseAnalysisFallback(t *testing.T) {
	raw := "I could not find a definite time, but the party seems to be on Saturday."
	got := parseAnalysis(raw)

	if got.Answer != raw {
		t.Fatalf("fallback should keep the raw text, got %q", got.Answer)
	}
	if got.Confidence != 0.7 {
		t.Fatalf("fallback confidence = %v, want 0.7", got.Confidence)
	}
	if len(got.RelevantMessages) != 0 {
		t.Fatalf("fallback relevant = %v", got.RelevantMessages)
	}
}

func TestParseAnalysisMultilineAnswer(t *testing.T) {
	raw := "ANSWER: Sarah is bringing dessert.\nTom is bringing drinks.\nCONFIDENCE: 0.8\nRELEVANT_MESSAGES: none"
	got := parseAnalysis(raw)

	if got.Answer != "Sarah is bringing dessert.\nTom is bringing drinks." {
		t.Fatalf("answer = %q", got.Answer)
	}
	if len(got.RelevantMessages) != 0 {
		t.Fatalf("'none' should yield no relevant messages: %v", got.RelevantMessages)
	}
}

func TestAnalyzeConversationTool(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, &store.User{ID: "me", Name: "Requester"})
	seedUser(t, s, &store.User{ID: "u2", Name: "Sarah"})
	seedConversation(t, s,
		&store.Conversation{ID: "c1", Title: "Birthday planning", Participants: []string{"me", "u2"}, CreatedAt: time.Now()},
		&store.Message{ID: "m1", ConversationID: "c1", SenderID: "u2", SenderName: "Sarah", Content: "the venue is booked for 7pm", SentAt: time.Now()},
	)
	mock := llm.NewMockClient("ANSWER: 7pm\nCONFIDENCE: 0.95\nRELEVANT_MESSAGES: Sarah")
	tool := NewAnalyze(s, mock)

	result, err := tool.Execute(context.Background(), callFor("me", map[string]any{
		"conversation_id": "c1",
		"question":        "what time is the venue booked?",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if result.Data["answer"] != "7pm" {
		t.Fatalf("answer = %v", result.Data["answer"])
	}
	if result.Confidence != 0.95 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
}

func TestAnalyzeNonParticipantLooksLikeNotFound(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, &store.User{ID: "me", Name: "Requester"})
	seedUser(t, s, &store.User{ID: "u2", Name: "Sarah"})
	seedUser(t, s, &store.User{ID: "u3", Name: "Outsider"})
	seedConversation(t, s,
		&store.Conversation{ID: "c1", Title: "Private", Participants: []string{"me", "u2"}, CreatedAt: time.Now()},
		&store.Message{ID: "m1", ConversationID: "c1", SenderID: "me", SenderName: "Requester", Content: "secret", SentAt: time.Now()},
	)
	tool := NewAnalyze(s, llm.NewMockClient())

	result, err := tool.Execute(context.Background(), callFor("u3", map[string]any{
		"conversation_id": "c1",
		"question":        "what is the secret?",
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Fatalf("non-participant must not read the conversation")
	}
}

func TestFormatTranscriptChronological(t *testing.T) {
	now := time.Now()
	// Newest first, as the store returns them.
	msgs := []store.Message{
		{SenderName: "B", Content: "second", SentAt: now},
		{SenderName: "A", Content: "first", SentAt: now.Add(-time.Minute)},
	}
	transcript := formatTranscript(msgs)
	if !strings.Contains(transcript[:len(transcript)/2], "first") {
		t.Fatalf("transcript should start with the oldest message:\n%s", transcript)
	}
}
