package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/ai/mock"
	"github.com/poiesic/codex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJurisdictions(t *testing.T, f *fixture) (pk1973, pk2010, uk1998 []*core.Section) {
	t.Helper()
	f.embedder.WithVector("rights", []float32{1, 0})
	pk1973 = f.addDocument(t, core.Document{
		Title: "Constitution", Category: "Constitutional", Jurisdiction: "Pakistan", Year: 1973,
		Description: strings.Repeat("d", 250),
	}, []string{"fundamental rights"}, [][]float32{unitAt(0.1)})
	pk2010 = f.addDocument(t, core.Document{
		Title: "Eighteenth Amendment", Category: "Constitutional", Jurisdiction: "Pakistan", Year: 2010,
	}, []string{"provincial rights"}, [][]float32{unitAt(0.1)})
	uk1998 = f.addDocument(t, core.Document{
		Title: "Human Rights Act", Category: "Constitutional", Jurisdiction: "United Kingdom", Year: 1998,
	}, []string{"convention rights"}, [][]float32{unitAt(0.1)})
	return
}

func TestAdvancedSearch_Filters(t *testing.T) {
	f := newFixture(t)
	pk1973, pk2010, uk1998 := seedJurisdictions(t, f)
	r := f.retriever(t)
	ctx := context.Background()

	t.Run("jurisdiction", func(t *testing.T) {
		resp, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights"}, Jurisdiction: "Pakistan"})
		require.NoError(t, err)
		require.Len(t, resp.Results, 2)
		for _, res := range resp.Results {
			assert.Equal(t, "Pakistan", res.Jurisdiction)
		}
		assert.Equal(t, FiltersApplied{Jurisdiction: "Pakistan"}, resp.Filters)
	})

	t.Run("year range", func(t *testing.T) {
		resp, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights"}, YearFrom: 1990, YearTo: 2000})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, uk1998[0].ID, resp.Results[0].ID)
		assert.Equal(t, 1998, resp.Results[0].Year)
		assert.Equal(t, "1990-2000", resp.Filters.YearRange)
	})

	t.Run("open ended year", func(t *testing.T) {
		resp, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights", Category: "Constitutional"}, YearFrom: 2000})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, pk2010[0].ID, resp.Results[0].ID)
		assert.Equal(t, "2000-", resp.Filters.YearRange)
		assert.Equal(t, "Constitutional", resp.Filters.Category)
	})

	t.Run("description annotation", func(t *testing.T) {
		resp, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "fundamental"}, YearTo: 1980})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, pk1973[0].ID, resp.Results[0].ID)
		assert.Len(t, resp.Results[0].DocumentDescription, DescriptionLength)
		assert.Equal(t, "-1980", resp.Filters.YearRange)
	})

	t.Run("inverted year range", func(t *testing.T) {
		_, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights"}, YearFrom: 2001, YearTo: 2000})
		assert.ErrorIs(t, err, core.ErrInvalidYearRange)
	})

	t.Run("limit applies after filtering", func(t *testing.T) {
		resp, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights", Limit: 1}, Jurisdiction: "Pakistan"})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, pk1973[0].ID, resp.Results[0].ID)
	})

	t.Run("maximum limit", func(t *testing.T) {
		resp, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights", Limit: core.MaxLimit}})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 3)
	})
}

func TestAdvancedSearch_Rerank(t *testing.T) {
	f := newFixture(t)
	pk1973, pk2010, uk1998 := seedJurisdictions(t, f)

	answerer := mock.NewMockAnswerer()
	answerer.AnswerFunc = func(ctx context.Context, question, passage string) (ai.Answer, error) {
		switch {
		case strings.Contains(passage, "convention"):
			return ai.Answer{Text: "convention", Score: 0.9, HasScore: true}, nil
		case strings.Contains(passage, "provincial"):
			return ai.Answer{}, errors.New("model loading")
		default:
			return ai.Answer{Text: "fundamental"}, nil
		}
	}
	r := f.retriever(t, WithAnswerer(answerer))

	resp, err := r.AdvancedSearch(context.Background(), AdvancedQuery{Query: Query{Text: "rights", Mode: core.ModeText}, Rerank: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	require.Len(t, resp.Reranked, 3)
	assert.Equal(t, 3, answerer.CallCount())

	byID := map[core.ID]RerankOutcome{}
	for _, o := range resp.Reranked {
		byID[o.SectionID] = o
	}
	assert.Equal(t, RerankScored, byID[uk1998[0].ID].Status)
	assert.InDelta(t, 0.95, byID[uk1998[0].ID].FinalScore(), 1e-9)
	assert.Equal(t, RerankKept, byID[pk2010[0].ID].Status)
	assert.Error(t, byID[pk2010[0].ID].Err)
	assert.Equal(t, 1.0, byID[pk2010[0].ID].FinalScore())
	assert.Equal(t, RerankKept, byID[pk1973[0].ID].Status)
	assert.ErrorIs(t, byID[pk1973[0].ID].Err, errNoScore)

	// Kept results retain 1.0 and outrank the rescored one.
	assert.Equal(t, uk1998[0].ID, resp.Results[2].ID)
	assert.InDelta(t, 0.95, resp.Results[2].Score, 1e-9)
}

func TestAdvancedSearch_RerankTopAndNoAnswerer(t *testing.T) {
	f := newFixture(t)
	seedJurisdictions(t, f)
	ctx := context.Background()

	answerer := mock.NewMockAnswerer()
	r := f.retriever(t, WithAnswerer(answerer))
	resp, err := r.AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights", Mode: core.ModeText}, Rerank: true, RerankTop: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Reranked, 2)
	assert.Equal(t, 2, answerer.CallCount())

	resp, err = f.retriever(t).AdvancedSearch(ctx, AdvancedQuery{Query: Query{Text: "rights"}, Rerank: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Reranked)
}

func TestAdvancedSearch_RerankUsesSectionContent(t *testing.T) {
	f := newFixture(t)
	long := "rights " + strings.Repeat("w", 400)
	f.addDocument(t, core.Document{Title: "Act", Category: "Statute"}, []string{long}, [][]float32{unitAt(0.1)})

	var passages []string
	answerer := mock.NewMockAnswerer()
	answerer.AnswerFunc = func(ctx context.Context, question, passage string) (ai.Answer, error) {
		passages = append(passages, passage)
		return ai.Answer{Text: "rights", Score: 0.5, HasScore: true}, nil
	}
	r := f.retriever(t, WithAnswerer(answerer))

	resp, err := r.AdvancedSearch(context.Background(), AdvancedQuery{Query: Query{Text: "rights", Mode: core.ModeText}, Rerank: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Less(t, len(resp.Results[0].Excerpt), len(long))
	assert.Equal(t, []string{long}, passages)
}

func TestYearRange(t *testing.T) {
	assert.Equal(t, "", yearRange(0, 0))
	assert.Equal(t, "1990-", yearRange(1990, 0))
	assert.Equal(t, "-2000", yearRange(0, 2000))
	assert.Equal(t, "1990-2000", yearRange(1990, 2000))
}
