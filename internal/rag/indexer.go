package rag

import (
	"context"
	"fmt"
	"strconv"

	"courier/internal/shared/logging"
	"courier/internal/store"
)

// Indexer mirrors sent messages into the vector store so the retrieval
// tools can search them. Indexing failures are logged, never surfaced to
// the sender: a message that failed to index still delivered.
type Indexer struct {
	store  VectorStore
	logger logging.Logger
}

// NewIndexer creates an indexer.
func NewIndexer(vs VectorStore, logger logging.Logger) *Indexer {
	return &Indexer{store: vs, logger: logging.OrNop(logger)}
}

// IndexMessage adds one message to the vector index.
func (ix *Indexer) IndexMessage(ctx context.Context, msg *store.Message) {
	if msg == nil || msg.Content == "" {
		return
	}
	doc := Document{
		ID:      msg.ID,
		Content: msg.Content,
		Metadata: map[string]string{
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"sent_at":         strconv.FormatInt(msg.SentAt.UnixMilli(), 10),
		},
	}
	if err := ix.store.Add(ctx, []Document{doc}); err != nil {
		ix.logger.Warn("index message %s: %v", msg.ID, err)
	}
}

// IndexHistory bulk-indexes existing messages; the seed command uses it
// to backfill the index.
func (ix *Indexer) IndexHistory(ctx context.Context, msgs []store.Message) error {
	docs := make([]Document, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		if m.Content == "" {
			continue
		}
		docs = append(docs, Document{
			ID:      m.ID,
			Content: m.Content,
			Metadata: map[string]string{
				"conversation_id": m.ConversationID,
				"sender_id":       m.SenderID,
				"sent_at":         strconv.FormatInt(m.SentAt.UnixMilli(), 10),
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := ix.store.Add(ctx, docs); err != nil {
		return fmt.Errorf("index history: %w", err)
	}
	return nil
}
