package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"text2sql/internal/contextutil"
	"text2sql/internal/llm"
	"text2sql/internal/metrics"
	"text2sql/internal/storage"
	"text2sql/internal/vectorstore"
)

// Options configures optional Pipeline behavior.
type Options struct {
	// VectorSize is the embedding dimension used when creating the collection.
	VectorSize int
	// History records index runs. May be nil.
	History storage.HistoryStore
	// SkipUnchanged skips re-embedding when the last recorded run indexed
	// identical text and the collection still holds that many entries.
	// Requires History.
	SkipUnchanged bool
}

// Pipeline indexes schema text into a similarity collection.
// Every run replaces the collection contents; runs are serialized.
type Pipeline struct {
	mu          sync.Mutex
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	opts        Options
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(embedder llm.Embedder, vectorStore vectorstore.VectorStore, collection string, opts Options) *Pipeline {
	return &Pipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		opts:        opts,
	}
}

// Collection returns the name of the collection the pipeline writes to.
func (p *Pipeline) Collection() string {
	return p.collection
}

// IndexSchema splits text into table blocks, embeds them in one batch and
// replaces the collection with ids "0".."n-1".
func (p *Pipeline) IndexSchema(ctx context.Context, text string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res, err := p.indexLocked(ctx, text)
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		metrics.ObserveIndexRun(metrics.OutcomeError, 0, res.Duration)
	case res.Skipped:
		metrics.ObserveIndexRun(metrics.OutcomeSkipped, res.Chunks, res.Duration)
	default:
		metrics.ObserveIndexRun(metrics.OutcomeIndexed, res.Chunks, res.Duration)
	}
	if err != nil {
		return res, err
	}

	p.recordRun(ctx, res)
	return res, nil
}

func (p *Pipeline) indexLocked(ctx context.Context, text string) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	chunks := Split(text)
	res := Result{
		ContentHash: ContentHash(text),
		TokenStats:  TokenStatsFor(chunks),
	}

	if p.opts.VectorSize > 0 {
		if err := p.vectorStore.EnsureCollection(ctx, p.collection, p.opts.VectorSize); err != nil {
			return res, fmt.Errorf("failed to ensure collection: %w", err)
		}
	}

	existing, err := p.vectorStore.ListIDs(ctx, p.collection)
	if err != nil {
		return res, fmt.Errorf("failed to list existing ids: %w", err)
	}

	if p.unchanged(ctx, res.ContentHash, len(chunks), len(existing)) {
		res.Chunks = len(chunks)
		res.Skipped = true
		logger.InfoContext(ctx, "schema unchanged, skipping re-index", "collection", p.collection, "chunks", len(chunks))
		return res, nil
	}

	var points []vectorstore.Point
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		embeddings, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return res, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(embeddings) != len(chunks) {
			return res, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
		}

		points = make([]vectorstore.Point, len(chunks))
		for i, c := range chunks {
			points[i] = vectorstore.Point{
				ID:       c.ID(),
				Vec:      embeddings[i],
				Document: c.Text,
			}
		}
	} else {
		logger.WarnContext(ctx, "schema text produced no chunks", "collection", p.collection)
	}

	if err := p.vectorStore.Delete(ctx, p.collection, existing); err != nil {
		return res, fmt.Errorf("failed to clear collection: %w", err)
	}
	res.Deleted = len(existing)

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return res, fmt.Errorf("failed to upsert vectors: %w", err)
	}
	res.Chunks = len(points)

	logger.InfoContext(ctx, "indexed schema",
		"collection", p.collection,
		"chunks", res.Chunks,
		"deleted", res.Deleted,
		"tokens_max", res.TokenStats.Max,
	)
	return res, nil
}

// unchanged reports whether the collection already reflects text with the given hash.
func (p *Pipeline) unchanged(ctx context.Context, hash string, chunks, stored int) bool {
	if !p.opts.SkipUnchanged || p.opts.History == nil {
		return false
	}

	last, err := p.opts.History.LastIndexRun(ctx, p.collection)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to read last index run", "error", err)
		}
		return false
	}
	return last.ContentHash == hash && last.Chunks == chunks && stored == chunks
}

func (p *Pipeline) recordRun(ctx context.Context, res Result) {
	if p.opts.History == nil {
		return
	}

	run := &storage.IndexRun{
		Collection:  p.collection,
		ContentHash: res.ContentHash,
		Chunks:      res.Chunks,
		Duration:    res.Duration,
		Skipped:     res.Skipped,
	}
	if err := p.opts.History.RecordIndexRun(ctx, run); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record index run", "error", err)
	}
}
