package search

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/core"
)

const (
	// DefaultRerankTop is the number of leading results reranked when
	// AdvancedQuery.RerankTop is unset.
	DefaultRerankTop = 10

	// DescriptionLength is the number of description runes kept in
	// advanced results.
	DescriptionLength = 200
)

// AdvancedQuery is a search request with document metadata filters.
type AdvancedQuery struct {
	Query
	Jurisdiction string // empty matches every jurisdiction
	YearFrom     int    // zero means unbounded
	YearTo       int    // zero means unbounded
	Rerank       bool
	RerankTop    int // zero means DefaultRerankTop
}

// FiltersApplied echoes the filters of an advanced search.
type FiltersApplied struct {
	Category     string `json:"category,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	YearRange    string `json:"year_range,omitempty"`
}

// AdvancedResponse is the outcome of an advanced search.
type AdvancedResponse struct {
	Response
	Filters  FiltersApplied
	Reranked []RerankOutcome
}

// RerankStatus tells whether a rerank attempt produced a score.
type RerankStatus int

const (
	// RerankScored means the answerer scored the result.
	RerankScored RerankStatus = iota
	// RerankKept means the attempt failed and the prior score was kept.
	RerankKept
)

// RerankOutcome records the rerank attempt for one result.
type RerankOutcome struct {
	SectionID  core.ID
	Status     RerankStatus
	PriorScore float64
	QAScore    float64 // valid when Status is RerankScored
	Err        error   // set when Status is RerankKept
}

// FinalScore is the score the result carries after reranking.
func (o RerankOutcome) FinalScore() float64 {
	if o.Status == RerankScored {
		return (o.PriorScore + o.QAScore) / 2
	}
	return o.PriorScore
}

// errNoScore marks an answer that came back without a confidence score.
var errNoScore = errors.New("answer has no score")

// AdvancedSearch runs a base search with twice the limit, drops results
// whose document fails the jurisdiction or year filters, annotates the
// survivors and optionally reranks the leading ones.
func (r *Retriever) AdvancedSearch(ctx context.Context, q AdvancedQuery) (*AdvancedResponse, error) {
	return r.AdvancedSearchWithMonitor(ctx, q, nil)
}

// AdvancedSearchWithMonitor is AdvancedSearch reporting to monitor.
func (r *Retriever) AdvancedSearchWithMonitor(ctx context.Context, q AdvancedQuery, monitor SearchMonitor) (*AdvancedResponse, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	base := normalize(q.Query)
	if err := core.ValidateQuery(base.Text, base.Mode, base.Limit); err != nil {
		return nil, err
	}
	if err := core.ValidateYearRange(q.YearFrom, q.YearTo); err != nil {
		return nil, err
	}
	limit := base.Limit
	base.Limit = 2 * limit

	resp, err := r.search(ctx, base, monitor)
	if err != nil {
		return nil, err
	}

	docs := newDocumentCache(r.store)
	filtered := make([]core.SearchResult, 0, len(resp.Results))
	for _, res := range resp.Results {
		doc, err := docs.get(ctx, res.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		if q.Jurisdiction != "" && doc.Jurisdiction != q.Jurisdiction {
			continue
		}
		if q.YearFrom != 0 && doc.Year < q.YearFrom {
			continue
		}
		if q.YearTo != 0 && doc.Year > q.YearTo {
			continue
		}
		res.Jurisdiction = doc.Jurisdiction
		res.Year = doc.Year
		res.DocumentDescription = core.Prefix(doc.Description, DescriptionLength)
		filtered = append(filtered, res)
	}

	var outcomes []RerankOutcome
	if q.Rerank && r.answerer != nil && len(filtered) > 0 {
		top := q.RerankTop
		if top <= 0 {
			top = DefaultRerankTop
		}
		outcomes = r.rerank(ctx, base.Text, filtered[:min(top, len(filtered))])
		monitor.Reranked(outcomes)
		slices.SortStableFunc(filtered, func(a, b core.SearchResult) int {
			return cmp.Compare(b.Score, a.Score)
		})
	}

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return &AdvancedResponse{
		Response: Response{Query: base.Text, Mode: base.Mode, Results: filtered},
		Filters: FiltersApplied{
			Category:     q.Category,
			Jurisdiction: q.Jurisdiction,
			YearRange:    yearRange(q.YearFrom, q.YearTo),
		},
		Reranked: outcomes,
	}, nil
}

// rerank asks the answerer to score each result against its full section
// content, in place. Failures keep the prior score and are reported in the
// outcome.
func (r *Retriever) rerank(ctx context.Context, question string, results []core.SearchResult) []RerankOutcome {
	outcomes := make([]RerankOutcome, len(results))
	for i := range results {
		res := &results[i]
		outcome := RerankOutcome{SectionID: res.ID, PriorScore: res.Score}

		var answer ai.Answer
		sec, err := r.store.GetSection(ctx, res.ID)
		if err == nil {
			answer, err = r.answerer.Answer(ctx, question, sec.Content)
		}
		if err == nil && !answer.HasScore {
			err = errNoScore
		}
		if err != nil {
			outcome.Status = RerankKept
			outcome.Err = err
			r.logger.Warn("rerank failed, keeping prior score", "section_id", res.ID, "err", err)
		} else {
			outcome.Status = RerankScored
			outcome.QAScore = answer.Score
		}
		res.Score = outcome.FinalScore()
		outcomes[i] = outcome
	}
	return outcomes
}

// yearRange formats "from-to" with empty sides for unset bounds, or ""
// when neither bound is set.
func yearRange(from, to int) string {
	if from == 0 && to == 0 {
		return ""
	}
	var s string
	if from != 0 {
		s = strconv.Itoa(from)
	}
	s += "-"
	if to != 0 {
		s += strconv.Itoa(to)
	}
	return s
}
