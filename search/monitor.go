package search

import (
	"time"

	"github.com/poiesic/codex/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, mode core.SearchMode)
	AfterLexicalSearch(hits int, elapsed time.Duration)
	AfterEmbedding(dimensions int, elapsed time.Duration)
	AfterVectorSearch(scanned, kept int, elapsed time.Duration)
	Reranked(outcomes []RerankOutcome)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.SearchMode)                  {}
func (n *noopMonitor) AfterLexicalSearch(_ int, _ time.Duration)          {}
func (n *noopMonitor) AfterEmbedding(_ int, _ time.Duration)              {}
func (n *noopMonitor) AfterVectorSearch(_, _ int, _ time.Duration)        {}
func (n *noopMonitor) Reranked(_ []RerankOutcome)                         {}
func (n *noopMonitor) Finish(_ []core.SearchResult)                       {}
