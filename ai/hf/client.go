// Package hf implements the ai interfaces against the hosted Hugging Face
// inference API.
//
// Every request is a JSON POST carrying a bearer token and the body
// {"inputs": ..., "options": {"wait_for_model": true}} so cold models are
// loaded instead of rejected. Calls are bounded by the configured timeout
// and, optionally, a token-bucket rate limiter. Nothing is retried.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/poiesic/codex/ai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of a failed response is logged.
const maxErrorBody = 512

type request struct {
	Inputs  any     `json:"inputs"`
	Options options `json:"options"`
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Client performs authenticated inference calls.
type Client struct {
	http    *http.Client
	token   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is
// overwritten by the configured call timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a Client from cfg. cfg must already be validated.
func NewClient(cfg *ai.Config, opts ...ClientOption) *Client {
	c := &Client{
		http:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		token:  cfg.Token,
		logger: slog.Default(),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = cfg.Timeout
	c.logger = c.logger.With("component", "hf-client")
	return c
}

// HasToken reports whether a credential is configured.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// post sends inputs to url and decodes a 200 response body into out.
func (c *Client) post(ctx context.Context, url string, inputs any, out any) error {
	if c.token == "" {
		return ai.ErrNoCredential
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
		}
	}

	body, err := json.Marshal(request{Inputs: inputs, Options: options{WaitForModel: true}})
	if err != nil {
		return fmt.Errorf("hf: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("inference connection error", "url", url, "err", err)
		return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("inference api error", "url", url, "status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("%w: status %d", ai.ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	return nil
}
