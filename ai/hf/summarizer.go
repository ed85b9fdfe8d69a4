package hf

import (
	"context"

	"github.com/poiesic/codex/ai"
)

type summary struct {
	SummaryText *string `json:"summary_text"`
}

// Summarizer calls a summarization model.
type Summarizer struct {
	client *Client
	url    string
}

var _ ai.Summarizer = (*Summarizer)(nil)

// NewSummarizer returns a Summarizer posting to url.
func NewSummarizer(client *Client, url string) *Summarizer {
	return &Summarizer{client: client, url: url}
}

// Summarize returns the first summary_text of the response.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	var resp []summary
	if err := s.client.post(ctx, s.url, text, &resp); err != nil {
		return "", err
	}
	if len(resp) == 0 || resp[0].SummaryText == nil {
		return "", ai.ErrMalformedResponse
	}
	return *resp[0].SummaryText, nil
}
