package rag

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
)

// RetrieverConfig holds retrieval configuration.
type RetrieverConfig struct {
	TopK          int     // Candidate count per search (default: 100)
	MinSimilarity float32 // Minimum similarity threshold (default: 0.3)
}

// Retriever is the semantic search collaborator: it turns free text into
// ranked message hits. It implements ports.SemanticSearcher.
type Retriever struct {
	config RetrieverConfig
	store  VectorStore
}

// NewRetriever creates a new retriever.
func NewRetriever(config RetrieverConfig, store VectorStore) *Retriever {
	if config.TopK == 0 {
		config.TopK = 100
	}
	if config.MinSimilarity == 0 {
		config.MinSimilarity = 0.3
	}
	return &Retriever{config: config, store: store}
}

// SearchMessages searches indexed message history by meaning-similarity.
func (r *Retriever) SearchMessages(ctx context.Context, query string, limit int) ([]ports.MessageHit, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 || limit > r.config.TopK {
		limit = r.config.TopK
	}

	searchResults, err := r.store.SearchByText(ctx, query, limit, r.config.MinSimilarity)
	if err != nil {
		// Vector search going down does not have to sink the whole
		// request: callers with another way to find messages may keep
		// going on it.
		return nil, courerrors.NewDegradedError(fmt.Errorf("search store: %w", err),
			"Semantic search is temporarily unavailable.", "")
	}

	hits := make([]ports.MessageHit, 0, len(searchResults))
	for _, sr := range searchResults {
		hit := ports.MessageHit{
			MessageID:      sr.Document.ID,
			ConversationID: sr.Document.Metadata["conversation_id"],
			SenderID:       sr.Document.Metadata["sender_id"],
			Content:        sr.Document.Content,
			Similarity:     float64(sr.Similarity),
		}
		if raw, ok := sr.Document.Metadata["sent_at"]; ok {
			if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
				hit.SentAt = time.UnixMilli(millis)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
