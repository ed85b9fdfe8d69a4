// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/codex/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxAttempts bounds re-generation when the model returns unparseable JSON.
const maxAttempts = 3

// Answerer implements ai.QuestionAnswerer and ai.Summarizer on a chat model.
type Answerer struct {
	client llms.Model
	logger *slog.Logger
}

// answerJSON is the structure the model is asked to produce.
type answerJSON struct {
	Answer string   `json:"answer"`
	Score  *float64 `json:"score"`
	Error  string   `json:"error"`
}

// newAnswerer is an internal constructor that returns the concrete type.
func newAnswerer(config *ai.Config) (*Answerer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token(config)),
		openai.WithModel(config.AnswerModel),
		openai.WithHTTPClient(httpClient(config)),
	)
	if err != nil {
		return nil, err
	}

	return &Answerer{
		client: client,
		logger: slog.Default().With("component", "openai-answerer"),
	}, nil
}

// NewAnswerer creates a question answerer using the provided configuration.
func NewAnswerer(config *ai.Config) (ai.QuestionAnswerer, error) {
	return newAnswerer(config)
}

// Answer asks the model to extract an answer from passage and rate its confidence.
func (a *Answerer) Answer(ctx context.Context, question, passage string) (ai.Answer, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, answerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildAnswerPrompt(question, passage)),
	}

	var (
		result  answerJSON
		lastErr error
	)
	for attempt := range maxAttempts {
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return ai.Answer{}, fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
		}
		if len(response.Choices) < 1 {
			return ai.Answer{}, ai.ErrMalformedResponse
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			a.logger.Warn("error parsing answer response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return ai.Answer{}, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, lastErr)
	}

	if result.Error != "" && result.Answer == "" {
		return ai.Answer{}, &ai.ProviderError{Message: result.Error}
	}
	out := ai.Answer{Text: strings.TrimSpace(result.Answer)}
	if result.Score != nil {
		out.Score = min(1, max(0, *result.Score))
		out.HasScore = true
	}
	return out, nil
}

// Summarize asks the model for a short plain-text summary.
func (a *Answerer) Summarize(ctx context.Context, text string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, summarySystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}
	response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		a.logger.Error("failed to summarize", "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}
	if len(response.Choices) < 1 || strings.TrimSpace(response.Choices[0].Content) == "" {
		return "", ai.ErrMalformedResponse
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
