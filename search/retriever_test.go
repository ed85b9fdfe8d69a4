package search

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/ai/mock"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
	"github.com/poiesic/codex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts GetDocument calls and can fail AppendQuery.
type countingStore struct {
	storage.DocumentStore
	documentLookups atomic.Int64
	failAppend      bool
}

func (s *countingStore) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	s.documentLookups.Add(1)
	return s.DocumentStore.GetDocument(ctx, id)
}

func (s *countingStore) AppendQuery(ctx context.Context, entry core.QueryLogEntry) error {
	if s.failAppend {
		return errors.New("query log offline")
	}
	return s.DocumentStore.AppendQuery(ctx, entry)
}

type fixture struct {
	store    *countingStore
	embedder *mock.MockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &fixture{
		store:    &countingStore{DocumentStore: store},
		embedder: mock.NewMockEmbedder(),
	}
}

func (f *fixture) retriever(t *testing.T, opts ...Option) *Retriever {
	t.Helper()
	r, err := NewRetriever(f.store, f.embedder, opts...)
	require.NoError(t, err)
	return r
}

// addDocument stores a document and one section per content string, each
// with the given vector.
func (f *fixture) addDocument(t *testing.T, doc core.Document, contents []string, vectors [][]float32) []*core.Section {
	t.Helper()
	ctx := context.Background()
	doc.Fingerprint = core.FingerprintFromContent(doc.Title + doc.FullText)
	created, err := f.store.CreateDocument(ctx, &doc)
	require.NoError(t, err)

	sections := make([]*core.Section, 0, len(contents))
	for i, content := range contents {
		sec, err := f.store.CreateSection(ctx, &core.Section{
			DocumentID: created.ID,
			Label:      "Section " + strconv.Itoa(i+1),
			Title:      "Section Section " + strconv.Itoa(i+1),
			Content:    content,
			Order:      i,
		})
		require.NoError(t, err)
		_, err = f.store.CreateVector(ctx, &core.Vector{SectionID: sec.ID, Components: vectors[i]})
		require.NoError(t, err)
		sections = append(sections, sec)
	}
	return sections
}

// unitAt returns a 2-d unit vector whose cosine with (1, 0) is sim.
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestNewRetriever(t *testing.T) {
	f := newFixture(t)

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(f.store, f.embedder)
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		r, err := NewRetriever(f.store, f.embedder, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, r.logger)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewRetriever(nil, f.embedder)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewRetriever(f.store, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestSearch_ValidationBeforeStoreAccess(t *testing.T) {
	// Any store call on the nil embedded interface would panic.
	r, err := NewRetriever(&countingStore{}, mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  error
	}{
		{name: "short query", query: Query{Text: " a "}, want: core.ErrQueryTooShort},
		{name: "limit too large", query: Query{Text: "bail", Limit: 101}, want: core.ErrLimitOutOfRange},
		{name: "negative limit", query: Query{Text: "bail", Limit: -1}, want: core.ErrLimitOutOfRange},
		{name: "unknown mode", query: Query{Text: "bail", Mode: "fuzzy"}, want: core.ErrInvalidMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Search(ctx, tt.query)
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSearch_VectorThreshold(t *testing.T) {
	f := newFixture(t)
	f.embedder.WithVector("equal rights", []float32{1, 0})
	sections := f.addDocument(t, core.Document{Title: "Constitution", Category: "Constitutional"},
		[]string{"All persons are equal.", "Unrelated text."},
		[][]float32{unitAt(0.9), unitAt(0.05)})

	resp, err := f.retriever(t).Search(context.Background(), Query{Text: "equal rights", Mode: core.ModeVector, Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, sections[0].ID, resp.Results[0].ID)
	assert.InDelta(t, 0.9, resp.Results[0].Score, 1e-4)
	assert.Equal(t, core.ModeVector, resp.Results[0].Mode)
	assert.Equal(t, "Constitution", resp.Results[0].DocumentTitle)
}

func TestSearch_LexicalWinsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.embedder.WithVector("courts", []float32{1, 0})
	sections := f.addDocument(t, core.Document{Title: "Judiciary Act", Category: "Legal"},
		[]string{"The courts are independent."},
		[][]float32{unitAt(0.4)})

	resp, err := f.retriever(t).Search(context.Background(), Query{Text: "courts", Mode: core.ModeHybrid, Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, sections[0].ID, resp.Results[0].ID)
	assert.Equal(t, 1.0, resp.Results[0].Score)
	assert.Equal(t, core.ModeText, resp.Results[0].Mode)
}

func TestSearch_HybridOrdering(t *testing.T) {
	f := newFixture(t)
	f.embedder.WithVector("bail", []float32{1, 0})
	sections := f.addDocument(t, core.Document{Title: "Criminal Procedure", Category: "Criminal"},
		[]string{"Bail may be granted.", "Release on personal bond.", "Arrest without warrant."},
		[][]float32{unitAt(0.2), unitAt(0.8), unitAt(0.5)})

	resp, err := f.retriever(t).Search(context.Background(), Query{Text: "bail", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, []core.ID{sections[0].ID, sections[1].ID, sections[2].ID},
		[]core.ID{resp.Results[0].ID, resp.Results[1].ID, resp.Results[2].ID})
	assert.Equal(t, core.ModeHybrid, resp.Mode)

	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestSearch_LimitAndCategory(t *testing.T) {
	f := newFixture(t)
	f.embedder.WithVector("appeal", []float32{1, 0})
	f.addDocument(t, core.Document{Title: "Civil Procedure", Category: "Civil"},
		[]string{"appeal to the high court", "second appeal"},
		[][]float32{unitAt(0.7), unitAt(0.6)})
	criminal := f.addDocument(t, core.Document{Title: "Criminal Procedure", Category: "Criminal"},
		[]string{"appeal against conviction", "revision"},
		[][]float32{unitAt(0.3), unitAt(0.9)})

	r := f.retriever(t)
	ctx := context.Background()

	resp, err := r.Search(ctx, Query{Text: "appeal", Category: "Criminal", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, criminal[0].ID, resp.Results[0].ID)
	assert.Equal(t, criminal[1].ID, resp.Results[1].ID)
	for _, res := range resp.Results {
		assert.Equal(t, "Criminal", res.Category)
	}

	resp, err = r.Search(ctx, Query{Text: "appeal", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Count())
}

func TestSearch_ExcerptAndMemoizedDocuments(t *testing.T) {
	f := newFixture(t)
	long := "tenancy " + strings.Repeat("x", 400)
	f.embedder.WithVector("tenancy", []float32{1, 0})
	f.addDocument(t, core.Document{Title: "Rent Act", Category: "Civil"},
		[]string{long, "tenancy ends", "tenancy begins"},
		[][]float32{unitAt(0.9), unitAt(0.8), unitAt(0.7)})

	resp, err := f.retriever(t).Search(context.Background(), Query{Text: "tenancy", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	excerpt := []rune(resp.Results[0].Excerpt)
	assert.Len(t, excerpt, ExcerptLength+3)
	assert.Equal(t, "...", string(excerpt[ExcerptLength:]))
	assert.Equal(t, "tenancy ends", resp.Results[1].Excerpt)

	assert.Equal(t, int64(1), f.store.documentLookups.Load())
}

func TestSearch_QueryLogBestEffort(t *testing.T) {
	f := newFixture(t)
	f.addDocument(t, core.Document{Title: "Act", Category: "Legal"}, []string{"contract terms"}, [][]float32{unitAt(0.1)})
	ctx := context.Background()

	_, err := f.retriever(t).Search(ctx, Query{Text: "contract", Mode: core.ModeVector})
	require.NoError(t, err)
	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Queries)
	assert.Equal(t, int64(1), stats.AIQueries)

	f.store.failAppend = true
	resp, err := f.retriever(t).Search(ctx, Query{Text: "contract", Mode: core.ModeText})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestSearch_EmbeddingFailureSkipsVectorPhase(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, ai.ErrUnavailable
	}
	f.addDocument(t, core.Document{Title: "Act", Category: "Legal"}, []string{"contract terms"}, [][]float32{{1, 0}})

	resp, err := f.retriever(t).Search(context.Background(), Query{Text: "contract"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, core.ModeText, resp.Results[0].Mode)
}

func TestSearch_WithFallbackEmbedder(t *testing.T) {
	f := newFixture(t)
	embedder := ai.NewFallbackEmbedder(nil, 2)
	query := "inheritance"
	f.addDocument(t, core.Document{Title: "Succession Act", Category: "Family"},
		[]string{"distribution of estates"}, [][]float32{ai.HashEmbedding(query, 2)})

	r, err := NewRetriever(f.store, embedder)
	require.NoError(t, err)
	resp, err := r.Search(context.Background(), Query{Text: query, Mode: core.ModeVector})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-6)
	assert.Equal(t, int64(1), embedder.Fallbacks())
}

func TestFuse(t *testing.T) {
	candidates := []core.SearchResult{
		{ID: "a", Score: 1.0, Mode: core.ModeText},
		{ID: "b", Score: 1.0, Mode: core.ModeText},
		{ID: "a", Score: 0.4, Mode: core.ModeVector},
		{ID: "c", Score: 0.7, Mode: core.ModeVector},
		{ID: "d", Score: 0.2, Mode: core.ModeVector},
	}

	results := fuse(candidates, 3)
	require.Len(t, results, 3)
	assert.Equal(t, core.ID("a"), results[0].ID)
	assert.Equal(t, core.ModeText, results[0].Mode)
	assert.Equal(t, core.ID("b"), results[1].ID)
	assert.Equal(t, core.ID("c"), results[2].ID)

	seen := map[core.ID]bool{}
	for _, res := range fuse(candidates, 10) {
		assert.False(t, seen[res.ID], "duplicate %s", res.ID)
		seen[res.ID] = true
	}
	assert.Empty(t, fuse(nil, 5))
}

type monitorRecorder struct {
	noopMonitor
	started  bool
	lexical  int
	kept     int
	finished int
}

func (m *monitorRecorder) Start(_ string, _ core.SearchMode)             { m.started = true }
func (m *monitorRecorder) AfterLexicalSearch(hits int, _ time.Duration)   { m.lexical = hits }
func (m *monitorRecorder) AfterVectorSearch(_, kept int, _ time.Duration) { m.kept = kept }
func (m *monitorRecorder) Finish(results []core.SearchResult)             { m.finished = len(results) }

func TestSearchWithMonitor(t *testing.T) {
	f := newFixture(t)
	f.embedder.WithVector("bail", []float32{1, 0})
	f.addDocument(t, core.Document{Title: "Act", Category: "Legal"},
		[]string{"bail granted", "custody"}, [][]float32{unitAt(0.9), unitAt(0.8)})

	mon := &monitorRecorder{}
	_, err := f.retriever(t).SearchWithMonitor(context.Background(), Query{Text: "bail"}, mon)
	require.NoError(t, err)
	assert.True(t, mon.started)
	assert.Equal(t, 1, mon.lexical)
	assert.Equal(t, 2, mon.kept)
	assert.Equal(t, 2, mon.finished)
}
