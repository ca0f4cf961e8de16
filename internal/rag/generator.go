package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"text2sql/internal/contextutil"
	"text2sql/internal/llm"
	"text2sql/internal/metrics"
)

// systemPrompt is followed by the retrieved schema context.
const systemPrompt = "Generate PostgreSQL SQL using ONLY the schema below.\n" +
	"Return ONLY valid SQL.\n\n" +
	"Do not do unnecessary joins.\n\n\n"

// Generator asks a chat model to write SQL for a question.
type Generator struct {
	chat        llm.ChatClient
	model       string
	temperature float32
}

// NewGenerator creates a new Generator. An empty model uses the client's default.
func NewGenerator(chat llm.ChatClient, model string, temperature float32) *Generator {
	return &Generator{
		chat:        chat,
		model:       model,
		temperature: temperature,
	}
}

// BuildMessages returns the system and user messages sent for a question.
func BuildMessages(question, schemaContext string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt + schemaContext},
		{Role: "user", Content: question},
	}
}

// Generate returns the model's reply with surrounding whitespace removed.
// The reply is not parsed, validated or executed. An empty schemaContext is allowed.
func (g *Generator) Generate(ctx context.Context, question, schemaContext string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	start := time.Now()
	reply, err := g.chat.ChatWithMessages(ctx, BuildMessages(question, schemaContext), llm.ChatParams{
		Model:       g.model,
		Temperature: g.temperature,
	})
	metrics.ObserveStage("generate", time.Since(start))
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate SQL", "error", err)
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	return strings.TrimSpace(reply), nil
}
