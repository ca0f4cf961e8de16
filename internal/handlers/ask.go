package handlers

import (
	"encoding/json"
	"net/http"

	"text2sql/internal/contextutil"
	"text2sql/internal/service"
)

// MaxK caps the retrieval depth a client may request.
const MaxK = 50

// AskHandler handles HTTP requests for SQL generation.
type AskHandler struct {
	engine service.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine service.Engine) *AskHandler {
	return &AskHandler{
		engine: engine,
	}
}

// AskRequest represents the HTTP request payload for SQL generation.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question"`
	// K overrides the configured number of schema blocks. Omit to use the default.
	K *int `json:"k,omitempty"`
}

// AskResponse represents the HTTP response payload for SQL generation.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated SQL, exactly as returned by the model after trimming.
	SQL string `json:"sql"`

	// The schema blocks the SQL was written from.
	SchemaContext string `json:"schema_context"`

	// Number of schema blocks requested.
	K int `json:"k"`

	DurationMs int64 `json:"duration_ms"`
}

// ServeHTTP handles HTTP requests for SQL generation.
//
// swagger:route POST /api/v1/ask askQuestion
//
// # Generate SQL for a question
//
// Retrieves the schema blocks most similar to the question and asks the
// chat model for a PostgreSQL query. The query is never executed.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Generated SQL
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Empty question or invalid k
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding service, chat service or vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.K != nil {
		if *req.K < 0 {
			writeError(w, http.StatusBadRequest, "k must not be negative")
			return
		}
		if *req.K > MaxK {
			capped := MaxK
			req.K = &capped
		}
	}

	resp, err := h.engine.Ask(ctx, service.AskRequest{
		Question: req.Question,
		K:        req.K,
	})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, AskResponse{
		SQL:           resp.SQL,
		SchemaContext: resp.SchemaContext,
		K:             resp.K,
		DurationMs:    resp.Duration.Milliseconds(),
	})
}
