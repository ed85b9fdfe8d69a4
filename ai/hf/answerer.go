package hf

import (
	"context"

	"github.com/poiesic/codex/ai"
)

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaResponse struct {
	Answer *string  `json:"answer"`
	Score  *float64 `json:"score"`
	Error  string   `json:"error"`
}

// Answerer calls an extractive question-answering model.
type Answerer struct {
	client *Client
	url    string
}

var _ ai.QuestionAnswerer = (*Answerer)(nil)

// NewAnswerer returns an Answerer posting to url.
func NewAnswerer(client *Client, url string) *Answerer {
	return &Answerer{client: client, url: url}
}

// Answer extracts an answer span for question from passage.
func (a *Answerer) Answer(ctx context.Context, question, passage string) (ai.Answer, error) {
	var resp qaResponse
	if err := a.client.post(ctx, a.url, qaInputs{Question: question, Context: passage}, &resp); err != nil {
		return ai.Answer{}, err
	}
	if resp.Answer == nil {
		if resp.Error != "" {
			return ai.Answer{}, &ai.ProviderError{Message: resp.Error}
		}
		return ai.Answer{}, ai.ErrMalformedResponse
	}

	out := ai.Answer{Text: *resp.Answer}
	if resp.Score != nil {
		out.Score = *resp.Score
		out.HasScore = true
	}
	return out, nil
}
