package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/ai/mock"
	"github.com/poiesic/codex/ingestion"
	"github.com/poiesic/codex/rag"
	"github.com/poiesic/codex/search"
	"github.com/poiesic/codex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constitution = "Article 25\nAll citizens are equal before law.\nArticle 26\nNo discrimination in access to public places."

type fixture struct {
	store   *badger.Store
	server  *Server
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := mock.NewMockEmbedder()
	answerer := mock.NewMockAnswerer()
	answerer.AnswerFunc = func(_ context.Context, question, passage string) (ai.Answer, error) {
		return ai.Answer{Text: "equality", Score: 0.9, HasScore: true}, nil
	}

	retriever, err := search.NewRetriever(store, embedder, search.WithAnswerer(answerer))
	require.NoError(t, err)
	synthesizer, err := rag.NewSynthesizer(retriever, store, rag.WithAnswerer(answerer), rag.WithSummarizer(mock.NewMockSummarizer()))
	require.NoError(t, err)
	pipeline, err := ingestion.NewPipeline(store, embedder)
	require.NoError(t, err)

	server, err := New(Config{
		Store:       store,
		Retriever:   retriever,
		Synthesizer: synthesizer,
		Pipeline:    pipeline,
		Version:     "test",
		Database:    DatabaseFileBased,
		AIMode:      AIModeCloud,
	})
	require.NoError(t, err)
	server.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return &fixture{store: store, server: server, handler: server.Handler()}
}

func (f *fixture) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	return f.do(t, http.MethodGet, target, "", "")
}

func (f *fixture) upload(t *testing.T, body map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := f.do(t, http.MethodPost, "/api/documents", "application/json", string(raw))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out createDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return string(out.DocumentID)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[errorBody](t, rec).Error
}

func TestNew_MissingService(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingService)
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	root := decode[rootResponse](t, rec)
	assert.Equal(t, rootResponse{Message: "Legal RAG System API", Version: "test", Status: "running", Mode: "badger"}, root)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.get(t, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[healthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, DatabaseFileBased, health.Database)
	assert.Equal(t, AIModeCloud, health.AIMode)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/nope").Code)
}

func TestCreateDocument(t *testing.T) {
	f := newFixture(t)

	raw := `{"title":"Constitution","category":"Constitutional","year":1973,"text":` + jsonString(constitution) + `}`
	rec := f.do(t, http.MethodPost, "/api/documents", "application/json", raw)
	require.Equal(t, http.StatusCreated, rec.Code)
	out := decode[createDocumentResponse](t, rec)
	assert.Equal(t, "Document uploaded successfully", out.Message)
	assert.Equal(t, "Constitution", out.Title)
	assert.Equal(t, 2, out.Sections)

	t.Run("duplicate", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/documents", "application/json", raw)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, errorOf(t, rec), "duplicate document")
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/documents", "application/json", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/documents", "application/json", `{"text":"Section 1\nx"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty text", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/documents", "application/json", `{"title":"Empty","text":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateDocument_ClientGone(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := `{"title":"Constitution","text":` + jsonString(constitution) + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(raw)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	stats, err := f.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Documents)
	assert.Equal(t, int64(2), stats.Vectors)
}

func TestListDocuments(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string]any{"title": "A", "category": "Civil", "text": "Section 1\nalpha"})
	f.upload(t, map[string]any{"title": "B", "category": "Criminal", "text": "Section 1\nbeta"})
	f.upload(t, map[string]any{"title": "C", "category": "Civil", "text": "Section 1\ngamma"})

	rec := f.get(t, "/api/documents?page=1&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[documentList](t, rec)
	assert.Len(t, list.Documents, 2)
	assert.Equal(t, int64(3), list.Total)
	assert.Equal(t, int64(2), list.Pages)
	assert.Equal(t, "C", list.Documents[0].Title)
	assert.NotContains(t, rec.Body.String(), "full_text")

	list = decode[documentList](t, f.get(t, "/api/documents?page=2&limit=2"))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "A", list.Documents[0].Title)

	list = decode[documentList](t, f.get(t, "/api/documents?category=Civil"))
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, DefaultDocumentLimit, list.Limit)
	assert.Equal(t, 1, list.Page)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/documents?page=0").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/documents?limit=101").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/documents?limit=ten").Code)
}

func TestGetAndDeleteDocument(t *testing.T) {
	f := newFixture(t)
	long := "Section 1\n" + strings.Repeat("x", 250)
	id := f.upload(t, map[string]any{"title": "Long", "text": long})

	rec := f.get(t, "/api/documents/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[documentDetail](t, rec)
	assert.Equal(t, "Long", detail.Title)
	assert.Equal(t, "Legal", detail.Category)
	assert.Equal(t, "Pakistan", detail.Jurisdiction)
	require.Len(t, detail.Sections, 1)
	assert.Equal(t, "Section 1", detail.Sections[0].SectionNumber)
	assert.Equal(t, strings.Repeat("x", 200)+"...", detail.Sections[0].ContentPreview)

	rec = f.do(t, http.MethodDelete, "/api/documents/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Document deleted successfully", decode[messageResponse](t, rec).Message)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/documents/"+id).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/documents/"+id, "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/documents/not-an-id").Code)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string]any{"title": "Constitution", "text": constitution})

	rec := f.get(t, "/api/search?q=citizens&search_type=text")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[searchResponse](t, rec)
	assert.Equal(t, "citizens", out.Query)
	assert.Equal(t, "text", string(out.SearchType))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Article 25", out.Results[0].Label)
	assert.Equal(t, "Constitution", out.Results[0].DocumentTitle)
	assert.Equal(t, 1.0, out.Results[0].Score)

	out = decode[searchResponse](t, f.get(t, "/api/search?q=citizens"))
	assert.Equal(t, "hybrid", string(out.SearchType))

	tests := map[string]string{
		"too short":   "/api/search?q=a",
		"bad mode":    "/api/search?q=citizens&search_type=llm",
		"bad limit":   "/api/search?q=citizens&limit=abc",
		"zero limit":  "/api/search?q=citizens&limit=0",
		"large limit": "/api/search?q=citizens&limit=101",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			rec := f.get(t, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorOf(t, rec), "validation failed")
		})
	}
}

func TestAdvancedSearch(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string]any{"title": "Constitution", "jurisdiction": "Pakistan", "year": 1973, "text": constitution})
	f.upload(t, map[string]any{"title": "Equality Act", "jurisdiction": "United Kingdom", "year": 2010, "text": "Section 4\nProtected characteristics for citizens."})

	rec := f.get(t, "/api/search/advanced?q=citizens&search_type=text&jurisdiction=Pakistan&year_from=1970")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[advancedSearchResponse](t, rec)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Pakistan", out.Results[0].Jurisdiction)
	assert.Equal(t, 1973, out.Results[0].Year)
	assert.Equal(t, search.FiltersApplied{Jurisdiction: "Pakistan", YearRange: "1970-"}, out.FiltersApplied)

	rec = f.get(t, "/api/search/advanced?q=citizens&search_type=text&rerank=true")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode[advancedSearchResponse](t, rec)
	assert.Equal(t, 2, out.Reranked)
	for _, res := range out.Results {
		assert.InDelta(t, 0.95, res.Score, 1e-9)
	}

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/search/advanced?q=citizens&year_from=2001&year_to=2000").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/search/advanced?q=citizens&rerank=maybe").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/search/advanced?q=citizens&year_to=soon").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/search/advanced?q=citizens&limit=0").Code)
}

func TestAsk(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string]any{"title": "Constitution", "text": constitution})

	rec := f.get(t, "/api/rag/ask?question="+url.QueryEscape("are citizens equal?")+"&detailed=true")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[rag.AskResponse](t, rec)
	assert.Equal(t, "AI Answer: equality (Score: 0.90)", out.Answer)
	assert.NotEmpty(t, out.Sources)
	assert.Greater(t, out.Confidence, 0.0)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/rag/ask?question=hi").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/rag/ask?question=what+is+bail&max_context_length=100").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/rag/ask?question=what+is+bail&max_context_length=0").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/rag/ask?question=what+is+bail&detailed=yes").Code)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, map[string]any{"title": "Constitution", "text": constitution})

	rec := f.get(t, "/api/documents/"+id+"/summarize")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[summaryResponse](t, rec)
	assert.Equal(t, id, string(out.DocumentID))
	assert.Equal(t, "Article 25\nAll citizens are equal before law.", out.Summary)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/documents/999/summarize").Code)
}

func TestChat(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/ai/chat", "application/json", `{"message":"can I appeal?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AI Answer: equality (Score: 0.90)", decode[chatResponse](t, rec).Message)

	rec = f.do(t, http.MethodPost, "/api/ai/chat", "application/x-www-form-urlencoded", "message=can+I+appeal%3F")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AI Answer: equality (Score: 0.90)", decode[chatResponse](t, rec).Message)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/ai/chat", "application/json", `{"message":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/ai/chat", "application/json", `{`).Code)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string]any{"title": "Constitution", "text": constitution})
	require.Equal(t, http.StatusOK, f.get(t, "/api/search?q=citizens&search_type=vector").Code)
	require.Equal(t, http.StatusOK, f.get(t, "/api/search?q=citizens&search_type=text").Code)

	rec := f.get(t, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[statsResponse](t, rec)
	assert.Equal(t, int64(1), out.TotalDocuments)
	assert.Equal(t, int64(2), out.TotalSections)
	assert.Equal(t, int64(2), out.VectorCount)
	assert.Equal(t, int64(2), out.TotalQueries)
	assert.Equal(t, int64(1), out.AIQueries)
	require.Len(t, out.RecentDocuments, 1)
	assert.Equal(t, "Constitution", out.RecentDocuments[0].Title)
	assert.Equal(t, "badger", out.Storage)
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	rec := f.get(t, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to get statistics", errorOf(t, rec))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodOptions, "/api/search", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func jsonString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
