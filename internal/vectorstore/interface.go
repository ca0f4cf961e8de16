package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks text2sql/internal/vectorstore VectorStore

import "context"

// Payload keys stored alongside every point.
const (
	PayloadChunkID  = "chunk_id"
	PayloadDocument = "document"
)

// Point represents a vector point with its source document.
type Point struct {
	ID       string
	Vec      []float32
	Document string
	Meta     map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID  string
	Score    float32
	Document string
	Meta     map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k nearest points, best first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// ListIDs returns the IDs of every point in the collection.
	ListIDs(ctx context.Context, collection string) ([]string, error)

	// CollectionExists reports whether the collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// EnsureCollection creates the collection or validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
}
