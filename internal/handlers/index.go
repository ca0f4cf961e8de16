package handlers

import (
	"net/http"

	"text2sql/internal/contextutil"
	"text2sql/internal/indexer"
	"text2sql/internal/service"
)

// IndexHandler handles HTTP requests for re-indexing the schema.
type IndexHandler struct {
	engine service.Engine
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(engine service.Engine) *IndexHandler {
	return &IndexHandler{
		engine: engine,
	}
}

// IndexResponse represents the response from the index endpoint.
//
// swagger:model IndexResponse
type IndexResponse struct {
	Status string `json:"status"`
	// Refreshed is true when the schema was re-extracted from the database first.
	Refreshed  bool  `json:"refreshed"`
	DurationMs int64 `json:"duration_ms"`
	indexer.Result
}

// ServeHTTP rebuilds the schema collection and waits for it to finish.
// With ?refresh=true the schema file is re-extracted from the database first.
//
// swagger:route POST /api/index reindexSchema
//
// # Rebuild the schema index
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Index rebuilt
//	  schema:
//	    "$ref": "#/definitions/IndexResponse"
//	'404':
//	  description: Schema file missing
//	'409':
//	  description: Refresh requested without a database
//	'502':
//	  description: Database, embedding service or vector store unavailable
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	refresh := r.URL.Query().Get("refresh") == "true"

	var (
		res indexer.Result
		err error
	)
	if refresh {
		logger.InfoContext(ctx, "schema refresh triggered via API")
		res, err = h.engine.Refresh(ctx)
	} else {
		logger.InfoContext(ctx, "re-indexing triggered via API")
		res, err = h.engine.Reindex(ctx)
	}
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	status := "indexed"
	if res.Skipped {
		status = "unchanged"
	}
	writeJSON(ctx, w, http.StatusOK, IndexResponse{
		Status:     status,
		Refreshed:  refresh,
		DurationMs: res.Duration.Milliseconds(),
		Result:     res,
	})
}
