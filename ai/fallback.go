package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
)

// HashEmbedding derives a deterministic n-length vector from text.
//
// The SHA-256 hex digest is read two characters at a time and each byte b
// maps to b/255*2-1. Positions past the digest are zero.
func HashEmbedding(text string, n int) []float32 {
	if n <= 0 {
		return []float32{}
	}
	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])

	out := make([]float32, n)
	for i := 0; i+2 <= len(digest) && i/2 < n; i += 2 {
		b, _ := strconv.ParseUint(digest[i:i+2], 16, 8)
		out[i/2] = float32(float64(b)/255.0*2 - 1)
	}
	return out
}

// FallbackEmbedder wraps a remote Embedder and never fails. Any remote
// error is replaced by HashEmbedding of the same text.
type FallbackEmbedder struct {
	remote     Embedder
	dimensions int
	fallbacks  atomic.Int64
	logger     *slog.Logger
}

var _ Embedder = (*FallbackEmbedder)(nil)

// FallbackOption configures a FallbackEmbedder.
type FallbackOption func(*FallbackEmbedder)

// WithFallbackLogger sets the logger. Nil falls back to slog.Default().
func WithFallbackLogger(logger *slog.Logger) FallbackOption {
	return func(f *FallbackEmbedder) {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
	}
}

// NewFallbackEmbedder returns an embedder that tries remote first.
// A nil remote means every call uses the hash fallback.
func NewFallbackEmbedder(remote Embedder, dimensions int, opts ...FallbackOption) *FallbackEmbedder {
	f := &FallbackEmbedder{
		remote:     remote,
		dimensions: dimensions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fallback-embedder")
	return f
}

// Embed returns the remote vector, or the hash vector when the remote call
// fails or returns a vector whose length is not the configured dimensions.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) []float32 {
	if f.remote != nil {
		vec, err := f.remote.EmbedText(ctx, text)
		if err == nil && len(vec) == f.dimensions {
			return vec
		}
		if err == nil {
			err = fmt.Errorf("%w: got %d dimensions, want %d", ErrMalformedResponse, len(vec), f.dimensions)
		}
		f.logger.Info("using fallback hashing for embedding", "err", err)
	}
	f.fallbacks.Add(1)
	return HashEmbedding(text, f.dimensions)
}

// EmbedText implements Embedder. The returned error is always nil.
func (f *FallbackEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.Embed(ctx, text), nil
}

// Dimensions returns the fallback vector length.
func (f *FallbackEmbedder) Dimensions() int {
	return f.dimensions
}

// Fallbacks returns how many calls were served by the hash fallback.
func (f *FallbackEmbedder) Fallbacks() int64 {
	return f.fallbacks.Load()
}
