package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"text2sql/internal/handlers"
	"text2sql/internal/service"
	"text2sql/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine      service.Engine
	VectorStore vectorstore.VectorStore
	Collection  string
	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(Metrics)
	r.Use(CORS)

	page := handlers.NewPageHandler(deps.Engine)
	r.Method(http.MethodGet, "/", page)
	r.Method(http.MethodPost, "/", page)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/v1/ask", handlers.NewAskHandler(deps.Engine))
		r.Method(http.MethodPost, "/index", handlers.NewIndexHandler(deps.Engine))
		r.Method(http.MethodGet, "/history", handlers.NewHistoryHandler(deps.Engine))
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.VectorStore, deps.Engine, deps.Collection))
	})

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return r
}
