package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

func embeddingsHandler(t *testing.T, calls *atomic.Int32, failures []int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		if n <= len(failures) && failures[n-1] != 0 {
			w.WriteHeader(failures[n-1])
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode embeddings request: %v", err)
		}
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Embedding: []float32{0.1, 0.2}, Index: i}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
}

func newTestEmbedder(t *testing.T, baseURL string) *openaiEmbedder {
	t.Helper()
	cache, err := lru.New[string, []float32](16)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	return &openaiEmbedder{
		config:     EmbedderConfig{Model: "test-model", BaseURL: baseURL},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      cache,
		backoff:    time.Millisecond,
	}
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(embeddingsHandler(t, &calls, []int{http.StatusInternalServerError}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed should recover from a 500: %v", err)
	}
	if len(vec) == 0 {
		t.Fatalf("expected an embedding")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 API calls (one failure, one retry), got %d", got)
	}
}

func TestEmbedStopsOnPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(embeddingsHandler(t, &calls, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatalf("Embed should fail on a 401")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("a permanent failure must not be retried, got %d API calls", got)
	}
}

func TestEmbedServesCachedVectors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(embeddingsHandler(t, &calls, nil))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("first embed: %v", err)
	}
	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("second embed: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("repeated text should be served from cache, got %d API calls", got)
	}
}
