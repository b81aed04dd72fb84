package main

import (
	"fmt"
	"os"

	"courier/internal/chain"
	"courier/internal/config"
	"courier/internal/llm"
	"courier/internal/rag"
	"courier/internal/shared/logging"
	"courier/internal/store"
	"courier/internal/toolregistry"
	"courier/internal/tools/builtin"
)

// app holds the wired components for one process.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	registry *toolregistry.Registry
	executor *chain.Executor
	indexer  *rag.Indexer
	logger   logging.Logger
	logFile  *os.File
}

// buildApp constructs the store, collaborators, tool set and executor
// from configuration.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewComponentLogger("courier")
	var logFile *os.File
	if cfg.Log.File != "" {
		logFile, err = os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger = logging.Multi(logger, logging.NewWriterLogger("courier", logFile))
	}

	st, err := store.OpenSQLite(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	embedder, err := rag.NewEmbedder(rag.EmbedderConfig{
		Model:     cfg.Embed.Model,
		APIKey:    cfg.Embed.APIKey,
		BaseURL:   cfg.Embed.BaseURL,
		CacheSize: cfg.Embed.CacheSize,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	vectors, err := rag.NewVectorStore(rag.StoreConfig{
		PersistPath: cfg.Store.VectorPath,
		Collection:  cfg.Store.Collection,
	}, embedder)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("build vector store: %w", err)
	}
	retriever := rag.NewRetriever(rag.RetrieverConfig{
		TopK:          cfg.Search.CandidateLimit,
		MinSimilarity: float32(cfg.Search.MinSimilarity),
	}, vectors)
	indexer := rag.NewIndexer(vectors, logger)

	completions := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	registry := toolregistry.NewRegistry(logger)
	builtin.RegisterAll(registry, builtin.Deps{
		Store:    st,
		Searcher: retriever,
		LLM:      completions,
		Indexer:  indexer,
		Search:   cfg.Search,
		Logger:   logger,
	})

	executor := chain.NewExecutor(registry, chain.NewMapper(),
		chain.WithMaxChainLength(cfg.Chain.MaxLength),
		chain.WithLogger(logger))

	return &app{
		cfg:      cfg,
		store:    st,
		registry: registry,
		executor: executor,
		indexer:  indexer,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store: %v", err)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
