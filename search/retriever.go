package search

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
	"github.com/poiesic/codex/vector"
)

const (
	// DefaultLimit is used when a query leaves Limit unset.
	DefaultLimit = 20

	// DefaultMinSimilarity is the cosine similarity a vector candidate
	// must exceed to be kept.
	DefaultMinSimilarity = 0.15

	// MinCandidatePool is the smallest number of stored vectors scored per query.
	MinCandidatePool = 200

	// ExcerptLength is the number of content runes kept in a result.
	ExcerptLength = 300

	unknownTitle    = "Unknown"
	unknownCategory = "Legal"
)

// Query is a basic search request.
type Query struct {
	Text     string
	Mode     core.SearchMode // empty means hybrid
	Category string          // empty matches every category
	Limit    int             // zero means DefaultLimit
}

// Response is the outcome of a basic search.
type Response struct {
	Query   string
	Mode    core.SearchMode
	Results []core.SearchResult
}

// Count returns the number of results.
func (r *Response) Count() int {
	return len(r.Results)
}

// Retriever executes hybrid searches against a DocumentStore.
type Retriever struct {
	store         storage.DocumentStore
	embedder      ai.Embedder
	answerer      ai.QuestionAnswerer
	minSimilarity float64
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithAnswerer enables reranking in AdvancedSearch.
func WithAnswerer(answerer ai.QuestionAnswerer) Option {
	return func(r *Retriever) error {
		r.answerer = answerer
		return nil
	}
}

// WithMinSimilarity overrides DefaultMinSimilarity.
func WithMinSimilarity(threshold float64) Option {
	return func(r *Retriever) error {
		r.minSimilarity = threshold
		return nil
	}
}

// NewRetriever creates a retriever. The embedder is normally an
// ai.FallbackEmbedder so the vector phase always has a query vector.
func NewRetriever(store storage.DocumentStore, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		store:         store,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// Search runs a basic search.
func (r *Retriever) Search(ctx context.Context, q Query) (*Response, error) {
	return r.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor runs a basic search, reporting each phase to monitor.
func (r *Retriever) SearchWithMonitor(ctx context.Context, q Query, monitor SearchMonitor) (*Response, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	q = normalize(q)
	if err := core.ValidateQuery(q.Text, q.Mode, q.Limit); err != nil {
		return nil, err
	}
	return r.search(ctx, q, monitor)
}

// search runs an already validated query. Limits above core.MaxLimit are
// allowed so advanced search can widen its candidate set.
func (r *Retriever) search(ctx context.Context, q Query, monitor SearchMonitor) (*Response, error) {
	monitor.Start(q.Text, q.Mode)

	docs := newDocumentCache(r.store)
	var candidates []core.SearchResult

	if q.Mode.UsesText() {
		hits, err := r.lexical(ctx, q, docs, monitor)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, hits...)
	}

	if q.Mode.UsesVector() {
		hits, err := r.semantic(ctx, q, docs, monitor)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, hits...)
	}

	results := fuse(candidates, q.Limit)

	entry := core.QueryLogEntry{
		Query:       q.Text,
		Mode:        q.Mode,
		ResultCount: len(results),
		Timestamp:   time.Now().UTC(),
	}
	if err := r.store.AppendQuery(ctx, entry); err != nil {
		r.logger.Warn("failed to log query", "query", q.Text, "err", err)
	}

	monitor.Finish(results)
	return &Response{Query: q.Text, Mode: q.Mode, Results: results}, nil
}

func normalize(q Query) Query {
	q.Text = strings.TrimSpace(q.Text)
	if q.Mode == "" {
		q.Mode = core.ModeHybrid
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// lexical fetches up to 2*limit text index hits, each scored 1.0.
func (r *Retriever) lexical(ctx context.Context, q Query, docs *documentCache, monitor SearchMonitor) ([]core.SearchResult, error) {
	start := time.Now()
	sections, err := r.store.SearchSections(ctx, q.Text, q.Category, 2*q.Limit)
	if err != nil {
		r.logger.Error("error running lexical search", "query", q.Text, "err", err)
		return nil, err
	}
	monitor.AfterLexicalSearch(len(sections), time.Since(start))

	hits := make([]core.SearchResult, 0, len(sections))
	for _, sec := range sections {
		doc, err := docs.get(ctx, sec.DocumentID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, newResult(sec, doc, 1.0, core.ModeText))
	}
	return hits, nil
}

// semantic scores a bounded pool of stored vectors against the query
// embedding and keeps the best limit candidates above the threshold.
func (r *Retriever) semantic(ctx context.Context, q Query, docs *documentCache, monitor SearchMonitor) ([]core.SearchResult, error) {
	start := time.Now()
	embedding, err := r.embedder.EmbedText(ctx, q.Text)
	if err != nil {
		r.logger.Warn("query embedding failed, skipping vector phase", "err", err)
		return nil, nil
	}
	monitor.AfterEmbedding(len(embedding), time.Since(start))

	start = time.Now()
	pool := max(MinCandidatePool, 3*q.Limit)
	stored, err := r.store.ScanVectors(ctx, pool)
	if err != nil {
		r.logger.Error("error scanning vectors", "err", err)
		return nil, err
	}

	type scored struct {
		vec   *core.Vector
		score float64
	}
	matches := make([]scored, 0)
	for _, vec := range stored {
		sim := vector.Cosine(embedding, vec.Components)
		if sim > r.minSimilarity {
			matches = append(matches, scored{vec: vec, score: sim})
		}
	}
	slices.SortStableFunc(matches, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	hits := make([]core.SearchResult, 0, min(len(matches), q.Limit))
	for _, m := range matches {
		if len(hits) >= q.Limit {
			break
		}
		sec, err := r.store.GetSection(ctx, m.vec.SectionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		doc, err := docs.get(ctx, sec.DocumentID)
		if err != nil {
			return nil, err
		}
		if q.Category != "" && (doc == nil || doc.Category != q.Category) {
			continue
		}
		hits = append(hits, newResult(sec, doc, m.score, core.ModeVector))
	}
	monitor.AfterVectorSearch(len(stored), len(hits), time.Since(start))
	return hits, nil
}

// fuse stably sorts candidates by score, keeps the first entry per
// section and truncates to limit.
func fuse(candidates []core.SearchResult, limit int) []core.SearchResult {
	slices.SortStableFunc(candidates, func(a, b core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	seen := make(map[core.ID]bool, len(candidates))
	results := make([]core.SearchResult, 0, min(len(candidates), limit))
	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		results = append(results, c)
		if len(results) == limit {
			break
		}
	}
	return results
}

func newResult(sec *core.Section, doc *core.Document, score float64, mode core.SearchMode) core.SearchResult {
	res := core.SearchResult{
		ID:            sec.ID,
		DocumentID:    sec.DocumentID,
		Label:         sec.Label,
		Title:         sec.Title,
		Excerpt:       core.Truncate(sec.Content, ExcerptLength),
		DocumentTitle: unknownTitle,
		Category:      unknownCategory,
		Score:         score,
		Mode:          mode,
	}
	if doc != nil {
		res.DocumentTitle = doc.Title
		res.Category = doc.Category
	}
	return res
}

// documentCache memoizes document lookups for a single request.
// A missing document is cached as nil.
type documentCache struct {
	store storage.DocumentRepository
	docs  map[core.ID]*core.Document
}

func newDocumentCache(store storage.DocumentRepository) *documentCache {
	return &documentCache{store: store, docs: make(map[core.ID]*core.Document)}
}

func (c *documentCache) get(ctx context.Context, id core.ID) (*core.Document, error) {
	if doc, ok := c.docs[id]; ok {
		return doc, nil
	}
	doc, err := c.store.GetDocument(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		doc, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.docs[id] = doc
	return doc, nil
}
