package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks text2sql/internal/service Engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"text2sql/internal/contextutil"
	"text2sql/internal/indexer"
	"text2sql/internal/metrics"
	"text2sql/internal/schema"
	"text2sql/internal/storage"
)

// SchemaSource produces schema text from the live database.
type SchemaSource interface {
	ExtractToFile(ctx context.Context, path string) (string, error)
}

// SchemaIndexer replaces the similarity collection with the given schema text.
type SchemaIndexer interface {
	IndexSchema(ctx context.Context, text string) (indexer.Result, error)
}

// SchemaRetriever returns the schema context most relevant to a question.
type SchemaRetriever interface {
	Retrieve(ctx context.Context, question string, k int) (string, error)
}

// QueryGenerator writes SQL for a question given schema context.
type QueryGenerator interface {
	Generate(ctx context.Context, question, schemaContext string) (string, error)
}

// StartState tells whether startup had to extract the schema.
type StartState int

const (
	// StartUnknown means Start has not completed.
	StartUnknown StartState = iota
	// StartCold means the schema file was absent and was extracted from the database.
	StartCold
	// StartWarm means an existing schema file was used as is.
	StartWarm
)

func (s StartState) String() string {
	switch s {
	case StartCold:
		return "cold"
	case StartWarm:
		return "warm"
	default:
		return "unknown"
	}
}

// AskRequest represents a question in the domain layer.
type AskRequest struct {
	Question string
	// K overrides the configured retrieval depth when non-nil.
	K *int
}

// AskResponse carries the generated SQL and the schema context it was written from.
type AskResponse struct {
	SQL           string
	SchemaContext string
	K             int
	Duration      time.Duration
}

// Engine is the session surface used by the HTTP handlers and the CLI.
type Engine interface {
	// Ask answers a question with a generated SQL query.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
	// Reindex re-reads the schema file and rebuilds the collection.
	Reindex(ctx context.Context) (indexer.Result, error)
	// Refresh re-extracts the schema from the database, overwrites the file and rebuilds the collection.
	Refresh(ctx context.Context) (indexer.Result, error)
	// History returns up to limit recent generations, newest first.
	History(ctx context.Context, limit int) ([]storage.Generation, error)
	// State reports how Start prepared the schema.
	State() StartState
}

// SessionConfig holds the collaborators of a Session.
type SessionConfig struct {
	SchemaFile string
	// Source may be nil when an existing schema file is always expected.
	Source    SchemaSource
	Indexer   SchemaIndexer
	Retriever SchemaRetriever
	Generator QueryGenerator
	// History may be nil.
	History  storage.HistoryStore
	DefaultK int
}

// Session ties extraction, indexing, retrieval and generation together.
// It is built once at startup and shared by every front end.
type Session struct {
	cfg SessionConfig

	mu        sync.RWMutex
	state     StartState
	lastIndex indexer.Result
}

var _ Engine = (*Session)(nil)

// NewSession creates a new Session.
func NewSession(cfg SessionConfig) *Session {
	return &Session{cfg: cfg}
}

// Start prepares the schema and indexes it. A missing schema file is extracted
// from the database first; an existing file is used as is. Indexing always runs.
func (s *Session) Start(ctx context.Context) (StartState, error) {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := schema.Exists(s.cfg.SchemaFile)
	if err != nil {
		return StartUnknown, err
	}

	state := StartWarm
	var text string
	if exists {
		text, err = schema.Load(s.cfg.SchemaFile)
		if err != nil {
			return StartUnknown, err
		}
		logger.InfoContext(ctx, "using existing schema file", "path", s.cfg.SchemaFile)
	} else {
		state = StartCold
		text, err = s.extract(ctx)
		if err != nil {
			return StartUnknown, err
		}
	}

	if _, err := s.index(ctx, text); err != nil {
		return StartUnknown, err
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	logger.InfoContext(ctx, "session started", "state", state.String())
	return state, nil
}

// State reports how Start prepared the schema.
func (s *Session) State() StartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastIndex returns the result of the most recent index run.
func (s *Session) LastIndex() indexer.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastIndex
}

// Ask validates the question, retrieves schema context and generates SQL.
// An empty question returns a *ValidationError without calling retrieval or generation.
func (s *Session) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		metrics.ObserveAsk(metrics.OutcomeInvalid)
		logger.WarnContext(ctx, "empty question")
		return AskResponse{}, &ValidationError{
			Field:   "question",
			Message: "cannot be empty",
		}
	}

	k := s.cfg.DefaultK
	if req.K != nil {
		k = *req.K
	}

	start := time.Now()

	schemaContext, err := s.cfg.Retriever.Retrieve(ctx, question, k)
	if err != nil {
		metrics.ObserveAsk(metrics.OutcomeError)
		return AskResponse{}, ExternalError(err, "failed to retrieve schema context")
	}

	sql, err := s.cfg.Generator.Generate(ctx, question, schemaContext)
	if err != nil {
		metrics.ObserveAsk(metrics.OutcomeError)
		return AskResponse{}, ExternalError(err, "failed to generate query")
	}

	resp := AskResponse{
		SQL:           sql,
		SchemaContext: schemaContext,
		K:             k,
		Duration:      time.Since(start),
	}
	metrics.ObserveAsk(metrics.OutcomeOK)
	s.record(ctx, question, resp)

	logger.InfoContext(ctx, "question answered", "k", k, "context_length", len(schemaContext), "sql_length", len(sql))
	return resp, nil
}

// Reindex re-reads the schema file and rebuilds the collection.
func (s *Session) Reindex(ctx context.Context) (indexer.Result, error) {
	text, err := schema.Load(s.cfg.SchemaFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return indexer.Result{}, fmt.Errorf("schema file %s: %w", s.cfg.SchemaFile, ErrNotFound)
		}
		return indexer.Result{}, err
	}
	return s.index(ctx, text)
}

// Refresh re-extracts the schema, overwrites the file and rebuilds the collection.
func (s *Session) Refresh(ctx context.Context) (indexer.Result, error) {
	text, err := s.extract(ctx)
	if err != nil {
		return indexer.Result{}, err
	}
	return s.index(ctx, text)
}

// History returns up to limit recent generations, newest first.
func (s *Session) History(ctx context.Context, limit int) ([]storage.Generation, error) {
	if s.cfg.History == nil {
		return []storage.Generation{}, nil
	}
	gens, err := s.cfg.History.ListGenerations(ctx, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list history")
	}
	return gens, nil
}

func (s *Session) extract(ctx context.Context) (string, error) {
	if s.cfg.Source == nil {
		return "", fmt.Errorf("schema file %s is missing: %w", s.cfg.SchemaFile, ErrNoDatabase)
	}
	text, err := s.cfg.Source.ExtractToFile(ctx, s.cfg.SchemaFile)
	if err != nil {
		return "", ExternalError(err, "failed to extract schema")
	}
	return text, nil
}

func (s *Session) index(ctx context.Context, text string) (indexer.Result, error) {
	res, err := s.cfg.Indexer.IndexSchema(ctx, text)
	if err != nil {
		return indexer.Result{}, ExternalError(err, "failed to index schema")
	}

	s.mu.Lock()
	s.lastIndex = res
	s.mu.Unlock()
	return res, nil
}

func (s *Session) record(ctx context.Context, question string, resp AskResponse) {
	if s.cfg.History == nil {
		return
	}
	gen := &storage.Generation{
		Question:      question,
		SQL:           resp.SQL,
		SchemaContext: resp.SchemaContext,
		K:             resp.K,
		DurationMs:    resp.Duration.Milliseconds(),
	}
	if err := s.cfg.History.RecordGeneration(ctx, gen); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record generation", "error", err)
	}
}
