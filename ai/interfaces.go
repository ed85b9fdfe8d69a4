package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the remote call fails; callers that must always
	// obtain a vector wrap the embedder in a FallbackEmbedder.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Answer is the output of an extractive question-answering call.
type Answer struct {
	Text string

	// Score is the model's confidence in [0, 1]. Valid only when HasScore is set.
	Score    float64
	HasScore bool
}

// QuestionAnswerer answers a question against a supplied passage.
// Implementations must be thread-safe for concurrent use.
type QuestionAnswerer interface {
	// Answer returns ErrNoCredential when no credential is configured and a
	// *ProviderError when the service reported an error in its body.
	Answer(ctx context.Context, question, passage string) (Answer, error)
}

// Summarizer condenses text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Answerer returns the question-answering service.
	Answerer() QuestionAnswerer

	// Summarizer returns the summarization service.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
