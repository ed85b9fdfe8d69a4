package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/poiesic/codex/ai"
)

// Embedder calls a feature-extraction model.
type Embedder struct {
	client *Client
	url    string
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder returns an Embedder posting to url.
func NewEmbedder(client *Client, url string) *Embedder {
	return &Embedder{client: client, url: url}
}

// EmbedText sends text as a one-element batch, which selects the
// feature-extraction pipeline rather than sentence similarity.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var raw json.RawMessage
	if err := e.client.post(ctx, e.url, []string{text}, &raw); err != nil {
		return nil, err
	}
	return decodeEmbedding(raw)
}

// decodeEmbedding accepts either a flat array of floats or a batch holding
// one such array. The first element decides: if it is itself an array the
// body is a batch. A flat array of length one is therefore read as flat.
func decodeEmbedding(raw []byte) ([]float32, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ai.ErrMalformedResponse)
	}

	target := raw
	if first := bytes.TrimSpace(elems[0]); len(first) > 0 && first[0] == '[' {
		target = first
	}

	var vec []float32
	if err := json.Unmarshal(target, &vec); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ai.ErrMalformedResponse)
	}
	return vec, nil
}
