package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/search"
	"github.com/poiesic/codex/storage"
)

const (
	// DefaultMaxContext is the context budget in characters.
	DefaultMaxContext = 2000

	// SearchLimit is the number of sections retrieved per question.
	SearchLimit = 5

	// SummaryInputLength bounds the text sent for summarization.
	SummaryInputLength = 3000

	// SummaryFallbackLength is the prefix returned when summarization fails.
	SummaryFallbackLength = 200

	// ChatContext is the passage used for context-free chat.
	ChatContext = "General legal context."

	neutralConfidence = 0.5
)

// Fixed answer texts.
const (
	NoResultsAnswer    = "No relevant documents found."
	MissingTokenAnswer = "AI Token missing. Please set HF_TOKEN in environment."
	NoAnswer           = "I couldn't generate an answer from the provided context."
	ServiceUnavailable = "Service unavailable."
)

// Searcher runs a basic search. *search.Retriever satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

// AskRequest is a question to answer from stored sections.
type AskRequest struct {
	Question   string
	Detailed   bool // prefix each context part with its document and section
	MaxContext int  // zero means DefaultMaxContext
}

// AskResponse carries an answer and the sections it was drawn from.
type AskResponse struct {
	Question   string              `json:"question"`
	Answer     string              `json:"answer"`
	Sources    []core.SearchResult `json:"sources"`
	Confidence float64             `json:"confidence"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Synthesizer builds answers from retrieval results.
type Synthesizer struct {
	searcher   Searcher
	documents  storage.DocumentRepository
	answerer   ai.QuestionAnswerer
	summarizer ai.Summarizer
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// WithAnswerer sets the question-answering service. Without one every
// answer reports the missing credential.
func WithAnswerer(answerer ai.QuestionAnswerer) Option {
	return func(s *Synthesizer) {
		s.answerer = answerer
	}
}

// WithSummarizer sets the summarization service.
func WithSummarizer(summarizer ai.Summarizer) Option {
	return func(s *Synthesizer) {
		s.summarizer = summarizer
	}
}

// WithClock overrides the response timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSynthesizer creates a synthesizer that retrieves with searcher and
// reads documents from documents.
func NewSynthesizer(searcher Searcher, documents storage.DocumentRepository, opts ...Option) (*Synthesizer, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if documents == nil {
		return nil, ErrDocumentsRequired
	}
	s := &Synthesizer{
		searcher:  searcher,
		documents: documents,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "rag")
	return s, nil
}

// Ask answers req.Question from the top hybrid search results.
// Only validation and search failures are returned as errors.
func (s *Synthesizer) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	budget := req.MaxContext
	if budget == 0 {
		budget = DefaultMaxContext
	}
	if err := core.ValidateQuestion(question, budget); err != nil {
		return nil, err
	}

	found, err := s.searcher.Search(ctx, search.Query{Text: question, Mode: core.ModeHybrid, Limit: SearchLimit})
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	resp := &AskResponse{
		Question:  question,
		Sources:   []core.SearchResult{},
		Timestamp: s.now().UTC(),
	}
	if len(found.Results) == 0 {
		resp.Answer = NoResultsAnswer
		return resp, nil
	}

	passage, sources := buildContext(found.Results, budget, req.Detailed)
	resp.Sources = sources
	resp.Confidence = confidence(found.Results)
	resp.Answer = s.answer(ctx, question, passage)

	s.logger.Debug("answered question",
		"results", len(found.Results),
		"sources", len(sources),
		"context_chars", utf8.RuneCountInString(passage))
	return resp, nil
}

// buildContext joins result excerpts in rank order. A part that would
// overflow the remaining budget is skipped and later, shorter parts may
// still fit.
func buildContext(results []core.SearchResult, budget int, detailed bool) (string, []core.SearchResult) {
	var (
		parts   []string
		sources []core.SearchResult
		used    int
	)
	for _, r := range results {
		part := r.Excerpt
		if detailed {
			part = fmt.Sprintf("[%s, %s]: %s", r.DocumentTitle, r.Label, r.Excerpt)
		}
		n := utf8.RuneCountInString(part)
		if used+n > budget {
			continue
		}
		parts = append(parts, part)
		sources = append(sources, r)
		used += n
	}
	if sources == nil {
		sources = []core.SearchResult{}
	}
	return strings.Join(parts, "\n\n"), sources
}

// confidence is the top retrieval score clamped to [0, 1], whether or not
// that result fit the context budget.
func confidence(results []core.SearchResult) float64 {
	if len(results) == 0 {
		return neutralConfidence
	}
	return min(max(results[0].Score, 0), 1)
}

// answer maps the answerer outcome to display text.
func (s *Synthesizer) answer(ctx context.Context, question, passage string) string {
	if s.answerer == nil {
		return MissingTokenAnswer
	}
	ans, err := s.answerer.Answer(ctx, question, passage)
	if err == nil {
		score := 0.0
		if ans.HasScore {
			score = ans.Score
		}
		return fmt.Sprintf("AI Answer: %s (Score: %.2f)", ans.Text, score)
	}

	var perr *ai.ProviderError
	switch {
	case errors.Is(err, ai.ErrNoCredential):
		return MissingTokenAnswer
	case errors.As(err, &perr):
		s.logger.Warn("provider reported an error", "err", perr.Message)
		return "AI Error: " + perr.Message
	default:
		s.logger.Warn("question answering failed", "err", err)
		return NoAnswer
	}
}

// Summarize condenses the stored document id. It returns
// storage.ErrNotFound for an unknown document and otherwise always
// produces a summary, falling back to a prefix of the text.
func (s *Synthesizer) Summarize(ctx context.Context, id core.ID) (string, error) {
	doc, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	text := core.Prefix(doc.FullText, SummaryInputLength)
	if s.summarizer == nil {
		return fallbackSummary(text), nil
	}

	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil && !errors.Is(err, ai.ErrNoCredential) {
			s.logger.Warn("summarization failed", "document", id, "err", err)
		}
		return fallbackSummary(text), nil
	}
	return summary, nil
}

func fallbackSummary(text string) string {
	return core.Prefix(text, SummaryFallbackLength) + "..."
}

// Chat answers message against ChatContext. It never fails.
func (s *Synthesizer) Chat(ctx context.Context, message string) string {
	if ctx.Err() != nil {
		return ServiceUnavailable
	}
	return s.answer(ctx, strings.TrimSpace(message), ChatContext)
}
