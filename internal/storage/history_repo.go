package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_store.go -package=mocks text2sql/internal/storage HistoryStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

const defaultListLimit = 20

// HistoryStore defines the interface for index run and generation history.
type HistoryStore interface {
	// RecordIndexRun stores a run, assigning ID and CreatedAt when empty.
	RecordIndexRun(ctx context.Context, run *IndexRun) error
	// LastIndexRun returns the newest non-skipped run for the collection.
	// Returns nil and ErrNotFound if none exists.
	LastIndexRun(ctx context.Context, collection string) (*IndexRun, error)
	// RecordGeneration stores a generated query, assigning ID and CreatedAt when empty.
	RecordGeneration(ctx context.Context, gen *Generation) error
	// ListGenerations returns up to limit generations, newest first.
	ListGenerations(ctx context.Context, limit int) ([]Generation, error)
}

// HistoryRepo provides methods for history operations.
// It implements the HistoryStore interface.
type HistoryRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db, now: time.Now}
}

func (r *HistoryRepo) stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if createdAt.IsZero() {
		*createdAt = r.now().UTC()
	}
}

// RecordIndexRun stores a run.
func (r *HistoryRepo) RecordIndexRun(ctx context.Context, run *IndexRun) error {
	r.stamp(&run.ID, &run.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO index_runs (id, collection, content_hash, chunks, duration_ms, skipped, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Collection, run.ContentHash, run.Chunks, run.Duration.Milliseconds(), run.Skipped, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert index run: %w", err)
	}
	return nil
}

// LastIndexRun returns the newest run that wrote to the collection.
func (r *HistoryRepo) LastIndexRun(ctx context.Context, collection string) (*IndexRun, error) {
	var run IndexRun
	var durationMs, createdAt int64

	err := r.db.QueryRowContext(ctx,
		`SELECT id, collection, content_hash, chunks, duration_ms, skipped, created_at
		 FROM index_runs WHERE collection = ? AND skipped = 0
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		collection,
	).Scan(&run.ID, &run.Collection, &run.ContentHash, &run.Chunks, &durationMs, &run.Skipped, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query index run: %w", err)
	}

	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return &run, nil
}

// RecordGeneration stores a generated query.
func (r *HistoryRepo) RecordGeneration(ctx context.Context, gen *Generation) error {
	r.stamp(&gen.ID, &gen.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO generations (id, question, sql_text, schema_context, k, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		gen.ID, gen.Question, gen.SQL, gen.SchemaContext, gen.K, gen.DurationMs, gen.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}
	return nil
}

// ListGenerations returns up to limit generations, newest first.
// A non-positive limit selects the default of 20.
func (r *HistoryRepo) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, question, sql_text, schema_context, k, duration_ms, created_at
		 FROM generations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	gens := make([]Generation, 0)
	for rows.Next() {
		var g Generation
		var createdAt int64
		if err := rows.Scan(&g.ID, &g.Question, &g.SQL, &g.SchemaContext, &g.K, &g.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		g.CreatedAt = time.Unix(0, createdAt).UTC()
		gens = append(gens, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generations: %w", err)
	}

	return gens, nil
}
