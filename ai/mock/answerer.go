package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/codex/ai"
)

// MockAnswerer is a test double for ai.QuestionAnswerer.
type MockAnswerer struct {
	// AnswerFunc is called by Answer if set.
	// If nil, the first line of the passage is returned with score 0.5.
	AnswerFunc func(ctx context.Context, question, passage string) (ai.Answer, error)

	mu        sync.Mutex
	callCount int
}

// NewMockAnswerer creates a mock answerer with default behavior.
func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

// Answer implements ai.QuestionAnswerer.
func (m *MockAnswerer) Answer(ctx context.Context, question, passage string) (ai.Answer, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.AnswerFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, question, passage)
	}
	first, _, _ := strings.Cut(passage, "\n")
	return ai.Answer{Text: strings.TrimSpace(first), Score: 0.5, HasScore: true}, nil
}

// CallCount returns the number of times Answer was called.
func (m *MockAnswerer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, the first sentence of the text is returned.
	SummarizeFunc func(ctx context.Context, text string) (string, error)
}

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize implements ai.Summarizer.
func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text)
	}
	if i := strings.Index(text, "."); i >= 0 {
		return text[:i+1], nil
	}
	return text, nil
}
