package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderHuggingFace, cfg.Provider)
	assert.Equal(t, DefaultEmbeddingURL, cfg.EmbeddingURL)
	assert.Equal(t, DefaultQuestionURL, cfg.QuestionURL)
	assert.Equal(t, DefaultSummarizationURL, cfg.SummarizationURL)
	assert.Equal(t, 384, cfg.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.Token)
	assert.False(t, cfg.HasCredential())
	assert.Equal(t, "fallback_hashing", cfg.Mode())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with token", func(t *testing.T) {
		cfg := NewConfig(WithToken("hf_abc"))
		assert.True(t, cfg.HasCredential())
		assert.Equal(t, "cloud_inference", cfg.Mode())
	})

	t.Run("with endpoints", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingURL("http://embed"),
			WithQuestionURL("http://qa"),
			WithSummarizationURL("http://sum"),
		)
		assert.Equal(t, "http://embed", cfg.EmbeddingURL)
		assert.Equal(t, "http://qa", cfg.QuestionURL)
		assert.Equal(t, "http://sum", cfg.SummarizationURL)
	})

	t.Run("openai provider needs only a host", func(t *testing.T) {
		cfg := NewConfig(WithProvider(ProviderOpenAI), WithHost("http://localhost:8080"))
		assert.True(t, cfg.HasCredential())
	})

	t.Run("with rate limit", func(t *testing.T) {
		cfg := NewConfig(WithRateLimit(2, 4), WithTimeout(time.Second), WithDimensions(768))
		assert.Equal(t, 2.0, cfg.RequestsPerSecond)
		assert.Equal(t, 4, cfg.Burst)
		assert.Equal(t, time.Second, cfg.Timeout)
		assert.Equal(t, 768, cfg.Dimensions)
	})
}

func TestConfigNormalize(t *testing.T) {
	cfg := &Config{Provider: " OpenAI ", Host: "http://localhost:11434/", Token: " tok "}
	cfg.Normalize()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 1, cfg.Burst)

	empty := &Config{}
	empty.Normalize()
	assert.Equal(t, ProviderHuggingFace, empty.Provider)
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	tests := []struct {
		name string
		opt  ConfigOption
	}{
		{name: "unknown provider", opt: WithProvider("bedrock")},
		{name: "missing embedding url", opt: WithEmbeddingURL("")},
		{name: "missing question url", opt: WithQuestionURL("")},
		{name: "zero dimensions", opt: WithDimensions(0)},
		{name: "zero timeout", opt: WithTimeout(0)},
		{name: "negative rate", opt: WithRateLimit(-1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewConfig(tt.opt).Validate())
		})
	}

	t.Run("openai requires models", func(t *testing.T) {
		cfg := NewConfig(WithProvider(ProviderOpenAI), WithAnswerModel(""))
		assert.ErrorContains(t, cfg.Validate(), "AnswerModel")
	})
}
