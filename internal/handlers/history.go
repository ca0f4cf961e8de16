package handlers

import (
	"net/http"
	"strconv"

	"text2sql/internal/contextutil"
	"text2sql/internal/service"
	"text2sql/internal/storage"
)

// HistoryHandler lists recent generations.
type HistoryHandler struct {
	engine service.Engine
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(engine service.Engine) *HistoryHandler {
	return &HistoryHandler{engine: engine}
}

// HistoryResponse represents the response from the history endpoint.
//
// swagger:model HistoryResponse
type HistoryResponse struct {
	Generations []storage.Generation `json:"generations"`
}

// ServeHTTP returns up to ?limit= recent generations, newest first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	gens, err := h.engine.History(ctx, limit)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	if gens == nil {
		gens = []storage.Generation{}
	}
	writeJSON(ctx, w, http.StatusOK, HistoryResponse{Generations: gens})
}
