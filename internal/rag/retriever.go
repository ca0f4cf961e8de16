package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"text2sql/internal/contextutil"
	"text2sql/internal/llm"
	"text2sql/internal/metrics"
	"text2sql/internal/vectorstore"
)

// Retriever finds the schema blocks most similar to a question.
type Retriever struct {
	embedder    llm.Embedder
	vectorStore vectorstore.VectorStore
	collection  string
}

// NewRetriever creates a new Retriever over the named collection.
func NewRetriever(embedder llm.Embedder, vectorStore vectorstore.VectorStore, collection string) *Retriever {
	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
	}
}

// Retrieve returns up to k schema blocks joined by newlines, most similar first.
// A non-positive k returns "" without touching the store.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) (string, error) {
	blocks, err := r.RetrieveBlocks(ctx, question, k)
	if err != nil {
		return "", err
	}
	return strings.Join(blocks, "\n"), nil
}

// RetrieveBlocks is Retrieve without the final join.
func (r *Retriever) RetrieveBlocks(ctx context.Context, question string, k int) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		metrics.ObserveStage("retrieve", time.Since(start))
	}()

	embeddings, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for question")
	}

	results, err := r.vectorStore.Search(ctx, r.collection, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search schema: %w", err)
	}

	blocks := make([]string, 0, len(results))
	for _, res := range results {
		blocks = append(blocks, res.Document)
	}

	logger.DebugContext(ctx, "retrieved schema blocks", "k", k, "found", len(blocks))
	return blocks, nil
}
