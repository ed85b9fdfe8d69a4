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

package ai

import (
	"errors"
	"strings"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
)

// Hosted inference endpoints used when no override is configured.
const (
	DefaultEmbeddingURL     = "https://router.huggingface.co/hf-inference/models/sentence-transformers/all-MiniLM-L6-v2"
	DefaultQuestionURL      = "https://router.huggingface.co/hf-inference/models/deepset/roberta-base-squad2"
	DefaultSummarizationURL = "https://router.huggingface.co/hf-inference/models/facebook/bart-large-cnn"
)

// Config holds configuration for AI service providers.
// It is built once at startup and passed to every provider constructor.
type Config struct {
	// Provider selects the backend: "huggingface" or "openai".
	Provider string

	// Token is the bearer credential. An empty token disables remote calls
	// for the huggingface provider.
	Token string

	// EmbeddingURL, QuestionURL and SummarizationURL are the hosted
	// inference endpoints used by the huggingface provider.
	EmbeddingURL     string
	QuestionURL      string
	SummarizationURL string

	// Host is the base URL of an OpenAI-compatible server.
	// Example: "http://localhost:11434/v1"
	Host string

	// EmbeddingModel and AnswerModel are used by the openai provider.
	EmbeddingModel string
	AnswerModel    string

	// Dimensions is the embedding length N. Default: 384
	Dimensions int

	// Timeout bounds each outbound provider call. Default: 30s
	Timeout time.Duration

	// RequestsPerSecond limits outbound provider calls; zero disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter bucket size. Default: 1
	Burst int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the provider backend.
func WithProvider(name string) ConfigOption {
	return func(c *Config) {
		c.Provider = name
	}
}

// WithToken sets the bearer credential.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithEmbeddingURL overrides the hosted embedding endpoint.
func WithEmbeddingURL(url string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingURL = url
	}
}

// WithQuestionURL overrides the hosted question-answering endpoint.
func WithQuestionURL(url string) ConfigOption {
	return func(c *Config) {
		c.QuestionURL = url
	}
}

// WithSummarizationURL overrides the hosted summarization endpoint.
func WithSummarizationURL(url string) ConfigOption {
	return func(c *Config) {
		c.SummarizationURL = url
	}
}

// WithHost sets the OpenAI-compatible server URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAnswerModel sets the chat model used to answer questions.
func WithAnswerModel(model string) ConfigOption {
	return func(c *Config) {
		c.AnswerModel = model
	}
}

// WithDimensions sets the embedding length.
func WithDimensions(n int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = n
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRateLimit limits outbound calls to rps requests per second.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// DefaultConfig returns a Config for the hosted Hugging Face inference API
// without a credential.
func DefaultConfig() *Config {
	return &Config{
		Provider:         ProviderHuggingFace,
		EmbeddingURL:     DefaultEmbeddingURL,
		QuestionURL:      DefaultQuestionURL,
		SummarizationURL: DefaultSummarizationURL,
		Host:             "http://localhost:11434/v1",
		EmbeddingModel:   "all-minilm",
		AnswerModel:      "qwen2.5:3b",
		Dimensions:       384,
		Timeout:          30 * time.Second,
		Burst:            1,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithToken(os.Getenv("HF_TOKEN")),
//	    WithTimeout(20*time.Second),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// HasCredential reports whether remote calls can be attempted.
// The openai provider targets local servers and needs only a host.
func (c *Config) HasCredential() bool {
	if c.Provider == ProviderOpenAI {
		return c.Host != ""
	}
	return c.Token != ""
}

// Mode names the embedding mode reported by health checks.
func (c *Config) Mode() string {
	if c.HasCredential() {
		return "cloud_inference"
	}
	return "fallback_hashing"
}

// Normalize ensures the configuration is in a canonical form.
// It lowercases the provider name and adds the /v1 suffix to the
// OpenAI-compatible host when missing.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderHuggingFace
	}
	c.Token = strings.TrimSpace(c.Token)
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.Burst < 1 {
		c.Burst = 1
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderHuggingFace:
		if c.EmbeddingURL == "" {
			return errors.New("ai config: EmbeddingURL is required")
		}
		if c.QuestionURL == "" {
			return errors.New("ai config: QuestionURL is required")
		}
		if c.SummarizationURL == "" {
			return errors.New("ai config: SummarizationURL is required")
		}
	case ProviderOpenAI:
		if c.Host == "" {
			return errors.New("ai config: Host is required")
		}
		if c.EmbeddingModel == "" {
			return errors.New("ai config: EmbeddingModel is required")
		}
		if c.AnswerModel == "" {
			return errors.New("ai config: AnswerModel is required")
		}
	default:
		return errors.New("ai config: Provider must be huggingface or openai")
	}
	if c.Dimensions < 1 {
		return errors.New("ai config: Dimensions must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	return nil
}
