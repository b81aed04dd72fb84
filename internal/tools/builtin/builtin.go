// Package builtin holds the tool set the chain executor dispatches to:
// contact lookup, conversation resolution, message reading and sending,
// summarization and single- and multi-conversation analysis. Every tool
// talks to its collaborators through interfaces so tests can swap them.
package builtin

import (
	"context"

	"courier/internal/assistant/ports"
	"courier/internal/config"
	"courier/internal/shared/logging"
	"courier/internal/store"
)

// MessageIndexer receives sent messages for vector indexing. Indexing is
// best-effort; implementations must not fail the send.
type MessageIndexer interface {
	IndexMessage(ctx context.Context, msg *store.Message)
}

// Deps bundles the collaborators shared by the built-in tools.
type Deps struct {
	Store    store.Store
	Searcher ports.SemanticSearcher
	LLM      ports.CompletionClient
	Indexer  MessageIndexer
	Search   config.SearchConfig
	Logger   logging.Logger
}

// RegisterAll constructs every built-in tool and registers it.
func RegisterAll(reg ports.ToolRegistry, deps Deps) {
	logger := logging.OrNop(deps.Logger)
	reg.Register(NewContactLookup(deps.Store, logger))
	reg.Register(NewConversationResolve(deps.Store, logger))
	reg.Register(NewConversationInfo(deps.Store))
	reg.Register(NewGetMessages(deps.Store))
	reg.Register(NewSendMessage(deps.Store, deps.Indexer, logger))
	reg.Register(NewSummarize(deps.Store, deps.LLM))
	reg.Register(NewAnalyze(deps.Store, deps.LLM))
	reg.Register(NewConversationSearch(deps.Store, deps.Searcher, deps.LLM, deps.Search, logger))
}
