package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/mock/gomock"

	"text2sql/internal/indexer"
	"text2sql/internal/llm"
	llm_mocks "text2sql/internal/llm/mocks"
	"text2sql/internal/rag"
	"text2sql/internal/schema"
	"text2sql/internal/service"
	"text2sql/internal/storage"
	storage_mocks "text2sql/internal/storage/mocks"
	"text2sql/internal/vectorstore"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const (
	collection = "db_schema"
	vectorSize = 3
	schemaText = "CREATE TABLE customers (\n    id integer,\n    name text\n);\n\nCREATE TABLE orders (\n    id integer,\n    customer_id integer,\n    total numeric\n);\n"
)

// keywordVectors embeds a text by counting a few schema words, so questions land near their tables.
func keywordVectors(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		out[i] = []float32{
			float32(strings.Count(lower, "order")),
			float32(strings.Count(lower, "customer")),
			0.1,
		}
	}
	return out, nil
}

type fixture struct {
	ctrl     *gomock.Controller
	embedder *llm_mocks.MockEmbedder
	chat     *llm_mocks.MockChatClient
	store    *vectorstore.MemoryStore
	file     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	return &fixture{
		ctrl:     ctrl,
		embedder: llm_mocks.NewMockEmbedder(ctrl),
		chat:     llm_mocks.NewMockChatClient(ctrl),
		store:    vectorstore.NewMemoryStore(),
		file:     filepath.Join(t.TempDir(), "db_schema.sql"),
	}
}

func (f *fixture) session(source service.SchemaSource, history storage.HistoryStore) *service.Session {
	return service.NewSession(service.SessionConfig{
		SchemaFile: f.file,
		Source:     source,
		Indexer:    indexer.NewPipeline(f.embedder, f.store, collection, indexer.Options{VectorSize: vectorSize}),
		Retriever:  rag.NewRetriever(f.embedder, f.store, collection),
		Generator:  rag.NewGenerator(f.chat, "qwen2.5:3b", 0),
		History:    history,
		DefaultK:   4,
	})
}

func (f *fixture) ids(t *testing.T) []string {
	t.Helper()
	ids, err := f.store.ListIDs(context.Background(), collection)
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	return ids
}

func catalogMock(t *testing.T) (*schema.Extractor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return schema.NewExtractor(db, "public"), mock
}

func expectCatalog(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}).
			AddRow("customers", "id", "integer").
			AddRow("customers", "name", "text").
			AddRow("orders", "id", "integer").
			AddRow("orders", "customer_id", "integer").
			AddRow("orders", "total", "numeric"))
}

func TestStartState_String(t *testing.T) {
	tests := []struct {
		state service.StartState
		want  string
	}{
		{service.StartCold, "cold"},
		{service.StartWarm, "warm"},
		{service.StartUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("StartState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestSession_Start_Warm(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.file, []byte(schemaText), 0644); err != nil {
		t.Fatalf("write schema file: %v", err)
	}
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(2)).DoAndReturn(keywordVectors)

	// no source: the existing file must be used without touching a database
	session := f.session(nil, nil)

	state, err := session.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if state != service.StartWarm || session.State() != service.StartWarm {
		t.Errorf("Start() state = %v, want warm", state)
	}
	if got := f.ids(t); len(got) != 2 || got[0] != "0" || got[1] != "1" {
		t.Errorf("stored ids = %v, want [0 1]", got)
	}
	if session.LastIndex().Chunks != 2 {
		t.Errorf("LastIndex().Chunks = %d, want 2", session.LastIndex().Chunks)
	}
}

func TestSession_Start_Cold(t *testing.T) {
	f := newFixture(t)
	extractor, mock := catalogMock(t)
	expectCatalog(mock)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(2)).DoAndReturn(keywordVectors)

	session := f.session(extractor, nil)

	state, err := session.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if state != service.StartCold {
		t.Errorf("Start() state = %v, want cold", state)
	}

	written, err := os.ReadFile(f.file)
	if err != nil {
		t.Fatalf("schema file not written: %v", err)
	}
	if string(written) != schemaText {
		t.Errorf("schema file = %q, want %q", written, schemaText)
	}
	if got := f.ids(t); len(got) != 2 {
		t.Errorf("stored ids = %v, want 2 entries", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("catalog expectations: %v", err)
	}
}

func TestSession_Start_ColdWithoutDatabase(t *testing.T) {
	f := newFixture(t)
	session := f.session(nil, nil)

	_, err := session.Start(context.Background())
	if !errors.Is(err, service.ErrNoDatabase) {
		t.Errorf("Start() error = %v, want ErrNoDatabase", err)
	}
	if session.State() != service.StartUnknown {
		t.Errorf("State() = %v after failed start, want unknown", session.State())
	}
}

func TestSession_Start_ExtractFailure(t *testing.T) {
	f := newFixture(t)
	extractor, mock := catalogMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).WillReturnError(errors.New("connection refused"))

	if _, err := f.session(extractor, nil).Start(context.Background()); err == nil {
		t.Fatal("Start() expected error when the catalog query fails")
	}
	if _, err := os.Stat(f.file); !os.IsNotExist(err) {
		t.Error("schema file should not be written when extraction fails")
	}
}

func TestSession_Ask_EmptyQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		f := newFixture(t)
		// embedder and chat mocks have no expectations: any call fails the test
		session := f.session(nil, nil)

		_, err := session.Ask(context.Background(), service.AskRequest{Question: q})

		var validationErr *service.ValidationError
		if !errors.As(err, &validationErr) || validationErr.Field != "question" {
			t.Errorf("Ask(%q) error = %v, want ValidationError on question", q, err)
		}
	}
}

func TestSession_Ask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if err := os.WriteFile(f.file, []byte(schemaText), 0644); err != nil {
		t.Fatalf("write schema file: %v", err)
	}
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(keywordVectors).Times(2)

	history := storage_mocks.NewMockHistoryStore(f.ctrl)
	history.EXPECT().RecordGeneration(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, gen *storage.Generation) error {
			if gen.Question != "total per customer" || gen.SQL != "SELECT 1;" || gen.K != 1 {
				t.Errorf("recorded generation = %+v", gen)
			}
			return nil
		})

	f.chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), llm.ChatParams{Model: "qwen2.5:3b"}).DoAndReturn(
		func(_ context.Context, msgs []llm.Message, _ llm.ChatParams) (string, error) {
			if !strings.Contains(msgs[0].Content, "CREATE TABLE customers") {
				t.Errorf("system message lacks the customers block: %q", msgs[0].Content)
			}
			if strings.Contains(msgs[0].Content, "CREATE TABLE orders") {
				t.Errorf("k=1 should only include one block: %q", msgs[0].Content)
			}
			return "  SELECT 1;\n", nil
		})

	session := f.session(nil, history)
	if _, err := session.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	k := 1
	resp, err := session.Ask(ctx, service.AskRequest{Question: "  total per customer ", K: &k})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.SQL != "SELECT 1;" {
		t.Errorf("Ask() SQL = %q, want trimmed reply", resp.SQL)
	}
	if !strings.HasPrefix(resp.SchemaContext, "CREATE TABLE customers") || resp.K != 1 {
		t.Errorf("Ask() = %+v", resp)
	}
}

func TestSession_Ask_ZeroK(t *testing.T) {
	f := newFixture(t)
	// k=0 skips retrieval, so the embedder is never called
	f.chat.EXPECT().ChatWithMessages(gomock.Any(), rag.BuildMessages("count orders", ""), gomock.Any()).Return("SELECT count(*) FROM orders;", nil)

	k := 0
	resp, err := f.session(nil, nil).Ask(context.Background(), service.AskRequest{Question: "count orders", K: &k})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.SchemaContext != "" {
		t.Errorf("Ask() context = %q, want empty", resp.SchemaContext)
	}
}

func TestSession_Ask_Errors(t *testing.T) {
	t.Run("retrieval fails", func(t *testing.T) {
		f := newFixture(t)
		f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

		_, err := f.session(nil, nil).Ask(context.Background(), service.AskRequest{Question: "count orders"})
		if !errors.Is(err, service.ErrExternalService) || errors.Is(err, service.ErrInvalidInput) {
			t.Errorf("Ask() error = %v, want ErrExternalService", err)
		}
	})

	t.Run("generation fails", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.EnsureCollection(context.Background(), collection, vectorSize)
		f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(keywordVectors)
		f.chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("bad status 500"))

		if _, err := f.session(nil, nil).Ask(context.Background(), service.AskRequest{Question: "count orders"}); err == nil {
			t.Error("Ask() expected error when generation fails")
		}
	})

	t.Run("history failure is not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("SELECT 1;", nil)
		history := storage_mocks.NewMockHistoryStore(f.ctrl)
		history.EXPECT().RecordGeneration(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		k := 0
		resp, err := f.session(nil, history).Ask(context.Background(), service.AskRequest{Question: "q", K: &k})
		if err != nil || resp.SQL != "SELECT 1;" {
			t.Errorf("Ask() = %+v, %v; want success", resp, err)
		}
	})
}

func TestSession_ReindexAndRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	extractor, mock := catalogMock(t)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(keywordVectors).AnyTimes()

	// a stale hand-edited file with one extra table
	stale := schemaText + "\nCREATE TABLE legacy (\n    id integer\n);\n"
	if err := os.WriteFile(f.file, []byte(stale), 0644); err != nil {
		t.Fatalf("write schema file: %v", err)
	}

	session := f.session(extractor, nil)

	res, err := session.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if res.Chunks != 3 {
		t.Errorf("Reindex() chunks = %d, want 3", res.Chunks)
	}

	expectCatalog(mock)
	res, err = session.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Chunks != 2 || res.Deleted != 3 {
		t.Errorf("Refresh() = %+v, want 2 chunks replacing 3", res)
	}
	written, _ := os.ReadFile(f.file)
	if string(written) != schemaText {
		t.Errorf("Refresh() should overwrite the schema file, got %q", written)
	}
	if got := f.ids(t); len(got) != 2 {
		t.Errorf("stored ids = %v, want 2 entries", got)
	}
}

func TestSession_Reindex_MissingFile(t *testing.T) {
	f := newFixture(t)
	if _, err := f.session(nil, nil).Reindex(context.Background()); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Reindex() error = %v, want ErrNotFound for a missing schema file", err)
	}
}

func TestSession_History(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	gens, err := f.session(nil, nil).History(ctx, 10)
	if err != nil || len(gens) != 0 {
		t.Errorf("History() without store = %v, %v; want empty", gens, err)
	}

	history := storage_mocks.NewMockHistoryStore(f.ctrl)
	history.EXPECT().ListGenerations(gomock.Any(), 5).Return([]storage.Generation{{Question: "q"}}, nil)
	gens, err = f.session(nil, history).History(ctx, 5)
	if err != nil || len(gens) != 1 {
		t.Errorf("History() = %v, %v; want one row", gens, err)
	}
}

// llmServer serves the embeddings and chat completions endpoints and records the last chat request.
type llmServer struct {
	*httptest.Server

	mu       sync.Mutex
	lastChat llm.ChatRequest
}

func newLLMServer(t *testing.T, reply string) *llmServer {
	t.Helper()
	s := &llmServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req llm.EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vecs, _ := keywordVectors(r.Context(), req.Input)
		resp := llm.EmbeddingsResponse{Data: make([]llm.EmbeddingData, len(vecs))}
		for i, v := range vecs {
			emb := make([]float64, len(v))
			for j := range v {
				emb[j] = float64(v[j])
			}
			resp.Data[i] = llm.EmbeddingData{Index: i, Embedding: emb}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.lastChat = req
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(llm.ChatResponse{
			Choices: []llm.ChatChoice{{Message: llm.ChatChoiceMessage{Role: "assistant", Content: reply}}},
		})
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *llmServer) chatRequest() llm.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastChat
}

func TestSession_EndToEnd(t *testing.T) {
	ctx := context.Background()
	server := newLLMServer(t, "SELECT c.name, sum(o.total)\nFROM orders o JOIN customers c ON c.id = o.customer_id\nGROUP BY c.name;\n")

	extractor, mock := catalogMock(t)
	expectCatalog(mock)

	embedder := llm.NewEmbeddingsClient(server.URL, "", "nomic-embed-text", vectorSize, 0)
	chat := llm.NewClient(server.URL, "", "qwen2.5:3b", 0)
	store := vectorstore.NewMemoryStore()
	file := filepath.Join(t.TempDir(), "db_schema.sql")

	session := service.NewSession(service.SessionConfig{
		SchemaFile: file,
		Source:     extractor,
		Indexer:    indexer.NewPipeline(embedder, store, collection, indexer.Options{VectorSize: vectorSize}),
		Retriever:  rag.NewRetriever(embedder, store, collection),
		Generator:  rag.NewGenerator(chat, "", 0),
		DefaultK:   2,
	})

	state, err := session.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if state != service.StartCold {
		t.Errorf("Start() state = %v, want cold", state)
	}

	resp, err := session.Ask(ctx, service.AskRequest{Question: "total order amount per customer"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.HasPrefix(resp.SQL, "SELECT c.name") || strings.HasSuffix(resp.SQL, "\n") {
		t.Errorf("Ask() SQL = %q", resp.SQL)
	}
	if resp.K != 2 {
		t.Errorf("Ask() K = %d, want default 2", resp.K)
	}

	req := server.chatRequest()
	if req.Model != "qwen2.5:3b" || req.Temperature != 0 || len(req.Messages) != 2 {
		t.Fatalf("chat request = %+v", req)
	}
	system := req.Messages[0].Content
	if !strings.HasPrefix(system, "Generate PostgreSQL SQL using ONLY the schema below.") {
		t.Errorf("system message = %q", system)
	}
	for _, table := range []string{"CREATE TABLE orders", "CREATE TABLE customers"} {
		if !strings.Contains(system, table) {
			t.Errorf("system message lacks %q", table)
		}
	}
	if req.Messages[1].Role != "user" || req.Messages[1].Content != "total order amount per customer" {
		t.Errorf("user message = %+v", req.Messages[1])
	}

	// a second start finds the file and does not touch the database again
	warm := service.NewSession(service.SessionConfig{
		SchemaFile: file,
		Source:     extractor,
		Indexer:    indexer.NewPipeline(embedder, store, collection, indexer.Options{VectorSize: vectorSize}),
		Retriever:  rag.NewRetriever(embedder, store, collection),
		Generator:  rag.NewGenerator(chat, "", 0),
		DefaultK:   2,
	})
	if state, err := warm.Start(ctx); err != nil || state != service.StartWarm {
		t.Errorf("second Start() = %v, %v; want warm", state, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("catalog expectations: %v", err)
	}
}
