package ports

import (
	"context"
	"time"
)

// MessageHit is one ranked result from the semantic search collaborator.
type MessageHit struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
	Similarity     float64   `json:"similarity"`
}

// SemanticSearcher retrieves message history ranked by meaning-similarity
// to a free-text query. The limit bounds the candidate count; the caller
// filters hits down to conversations the user may see.
type SemanticSearcher interface {
	SearchMessages(ctx context.Context, query string, limit int) ([]MessageHit, error)
}

// CompletionClient is the LLM completion collaborator used by the
// analysis and summarization tools. Timeouts are the client's concern.
type CompletionClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
