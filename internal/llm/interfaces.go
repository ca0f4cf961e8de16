package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks text2sql/internal/llm Embedder,ChatClient

import "context"

// Embedder turns texts into fixed-size vectors, one per input, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatClient sends role-tagged messages and returns the model's reply.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error)
}

var (
	_ Embedder   = (*EmbeddingsClient)(nil)
	_ ChatClient = (*Client)(nil)
)
