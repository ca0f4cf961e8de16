package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"text2sql/internal/config"
	"text2sql/internal/database"
	"text2sql/internal/indexer"
	"text2sql/internal/llm"
	"text2sql/internal/rag"
	"text2sql/internal/schema"
	"text2sql/internal/service"
	"text2sql/internal/storage"
	"text2sql/internal/vectorstore"
)

// app holds every long-lived handle. It is built once per command and closed on exit.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	targetDB    *sql.DB // nil when no database is configured
	historyDB   *sql.DB
	vectorStore vectorstore.VectorStore
	embedder    *llm.EmbeddingsClient
	chat        *llm.Client

	extractor *schema.Extractor // nil when no database is configured
	pipeline  *indexer.Pipeline
	session   *service.Session

	closers []func() error
}

// appOpener builds the app for a command.
type appOpener func(ctx context.Context) (*app, error)

// openApp loads configuration and constructs every handle.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg

	if dsn := cfg.DatabaseDSN(); dsn != "" {
		db, err := database.Open(ctx, database.Config{DSN: dsn})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.targetDB = db
		a.closers = append(a.closers, db.Close)
		a.extractor = schema.NewExtractor(db, cfg.DBSchema)
		slog.Info("Database connected", "schema", cfg.DBSchema)
	} else {
		slog.Info("No database configured, an existing schema file is required", "path", cfg.SchemaFile)
	}

	historyDB, err := storage.New(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	a.historyDB = historyDB
	a.closers = append(a.closers, historyDB.Close)
	if err := storage.Migrate(historyDB); err != nil {
		return fmt.Errorf("migrate history database: %w", err)
	}
	history := storage.NewHistoryRepo(historyDB)
	slog.Info("History database initialized", "path", cfg.HistoryDBPath)

	switch cfg.VectorBackend {
	case config.VectorBackendMemory:
		a.vectorStore = vectorstore.NewMemoryStore()
	default:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return fmt.Errorf("create Qdrant client: %w", err)
		}
		a.vectorStore = store
		a.closers = append(a.closers, store.Close)
	}
	slog.Info("Vector store ready", "backend", cfg.VectorBackend, "collection", cfg.QdrantCollection)

	a.embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize, cfg.LLMTimeout)
	a.chat = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTimeout)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "embedding_model", cfg.EmbeddingModelName)

	a.pipeline = indexer.NewPipeline(a.embedder, a.vectorStore, cfg.QdrantCollection, indexer.Options{
		VectorSize:    cfg.VectorSize,
		History:       history,
		SkipUnchanged: cfg.ReindexMode == config.ReindexOnChange,
	})

	sessionCfg := service.SessionConfig{
		SchemaFile: cfg.SchemaFile,
		Indexer:    a.pipeline,
		Retriever:  rag.NewRetriever(a.embedder, a.vectorStore, cfg.QdrantCollection),
		Generator:  rag.NewGenerator(a.chat, cfg.LLMModelName, cfg.LLMTemperature),
		History:    history,
		DefaultK:   cfg.RetrievalK,
	}
	// a typed nil *schema.Extractor must not reach the interface field
	if a.extractor != nil {
		sessionCfg.Source = a.extractor
	}
	a.session = service.NewSession(sessionCfg)

	return nil
}

// validateEmbedder checks that the embedding service answers with vectors of the configured size.
func (a *app) validateEmbedder(ctx context.Context) error {
	vecs, err := a.embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		return fmt.Errorf("validate embedding client: %w", err)
	}
	if len(vecs) == 0 {
		return fmt.Errorf("validate embedding client: no vectors returned")
	}
	slog.Info("Embedding client validated", "vector_size", len(vecs[0]))
	return nil
}

// Close releases every handle in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
