package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"text2sql/internal/indexer"
	"text2sql/internal/service"
	"text2sql/internal/service/mocks"
	"text2sql/internal/storage"
	vectorstore_mocks "text2sql/internal/vectorstore/mocks"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockEngine, *vectorstore_mocks.MockVectorStore) {
	t.Helper()
	ctrl := gomock.NewController(t)

	engine := mocks.NewMockEngine(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	router := NewRouter(&Deps{
		Engine:      engine,
		VectorStore: store,
		Collection:  "db_schema",
	})
	return router, engine, store
}

func TestNewRouter(t *testing.T) {
	router, _, _ := newTestRouter(t)

	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func(*mocks.MockEngine, *vectorstore_mocks.MockVectorStore)
		wantStatus int
	}{
		{
			name:   "GET root serves the page",
			method: http.MethodGet,
			path:   "/",
			setup: func(e *mocks.MockEngine, _ *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().State().Return(service.StartWarm)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "POST /api/v1/ask",
			method: http.MethodPost,
			path:   "/api/v1/ask",
			body:   `{"question":"count orders"}`,
			setup: func(e *mocks.MockEngine, _ *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().Ask(gomock.Any(), gomock.Any()).Return(service.AskResponse{SQL: "SELECT count(*) FROM orders;"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/v1/ask bad body",
			method:     http.MethodPost,
			path:       "/api/v1/ask",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /api/v1/ask method not allowed",
			method:     http.MethodGet,
			path:       "/api/v1/ask",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:   "POST /api/index",
			method: http.MethodPost,
			path:   "/api/index",
			setup: func(e *mocks.MockEngine, _ *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().Reindex(gomock.Any()).Return(indexer.Result{Chunks: 2}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "GET /api/history",
			method: http.MethodGet,
			path:   "/api/history",
			setup: func(e *mocks.MockEngine, _ *vectorstore_mocks.MockVectorStore) {
				e.EXPECT().History(gomock.Any(), 0).Return([]storage.Generation{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "GET /api/health",
			method: http.MethodGet,
			path:   "/api/health",
			setup: func(e *mocks.MockEngine, s *vectorstore_mocks.MockVectorStore) {
				s.EXPECT().CollectionExists(gomock.Any(), "db_schema").Return(true, nil)
				e.EXPECT().State().Return(service.StartWarm)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/chat",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, engine, store := newTestRouter(t)
			if tt.setup != nil {
				tt.setup(engine, store)
			}

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, engine, _ := newTestRouter(t)
	engine.EXPECT().State().Return(service.StartWarm)

	// one request so the http counters have a sample
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %v, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "text2sql_http_requests_total") {
		t.Error("GET /metrics should expose text2sql_http_requests_total")
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Router should apply CORS middleware")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Router should set a request id")
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	router, engine, _ := newTestRouter(t)
	engine.EXPECT().Ask(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ service.AskRequest) (service.AskResponse, error) {
			panic("boom")
		})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":"q"}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("panicking handler status = %v, want 500", w.Code)
	}
}
