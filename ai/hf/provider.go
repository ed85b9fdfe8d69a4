package hf

import (
	"log/slog"

	"github.com/poiesic/codex/ai"
)

// Provider implements ai.AIProvider over the hosted inference API.
type Provider struct {
	client     *Client
	embedder   *Embedder
	answerer   *Answerer
	summarizer *Summarizer
	logger     *slog.Logger
}

// NewProvider validates cfg and builds the three services on one shared client.
func NewProvider(cfg *ai.Config, opts ...ClientOption) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := NewClient(cfg, opts...)
	if !client.HasToken() {
		client.logger.Warn("HF token not set, AI features will use fallbacks")
	}
	return &Provider{
		client:     client,
		embedder:   NewEmbedder(client, cfg.EmbeddingURL),
		answerer:   NewAnswerer(client, cfg.QuestionURL),
		summarizer: NewSummarizer(client, cfg.SummarizationURL),
		logger:     client.logger,
	}, nil
}

func (p *Provider) Embedder() ai.Embedder         { return p.embedder }
func (p *Provider) Answerer() ai.QuestionAnswerer { return p.answerer }
func (p *Provider) Summarizer() ai.Summarizer     { return p.summarizer }

// Close releases idle connections.
func (p *Provider) Close() error {
	p.logger.Debug("closing hf provider")
	p.client.http.CloseIdleConnections()
	return nil
}
