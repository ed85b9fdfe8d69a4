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

// Package codex assembles the retrieval system: a document store, an AI
// provider with hash fallback, the hybrid retriever, answer synthesis and
// the ingestion pipeline.
package codex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/ai/hf"
	"github.com/poiesic/codex/ai/openai"
	"github.com/poiesic/codex/api"
	"github.com/poiesic/codex/ingestion"
	"github.com/poiesic/codex/rag"
	"github.com/poiesic/codex/search"
	"github.com/poiesic/codex/storage"
	"github.com/poiesic/codex/storage/badger"
	"github.com/poiesic/codex/storage/mongo"
	"github.com/poiesic/codex/storage/postgres"
	"github.com/poiesic/codex/storage/redis"
)

// Version is reported by the API banner.
const Version = "1.0.0"

// DefaultMongoDatabase is used when Options.MongoDatabase is empty.
const DefaultMongoDatabase = "legal_rag"

// Options selects the store and provider at startup.
type Options struct {
	// DataDir is the badger directory. Empty means an in-memory store.
	DataDir string

	// MongoURL or PostgresDSN selects a networked store. When the store
	// cannot be reached the badger store is used instead.
	MongoURL      string
	MongoDatabase string
	PostgresDSN   string

	// RedisURL mirrors the query log into a capped redis list.
	RedisURL string

	// AI configures the provider. Nil means ai.DefaultConfig().
	AI *ai.Config

	// ConnectTimeout bounds each networked store connection. Default: 5s
	ConnectTimeout time.Duration

	// MinSimilarity overrides the vector search threshold when non-zero.
	MinSimilarity float64

	Logger *slog.Logger
}

// System holds the assembled services.
type System struct {
	Store       storage.DocumentStore
	Provider    ai.AIProvider
	Embedder    *ai.FallbackEmbedder
	Retriever   *search.Retriever
	Synthesizer *rag.Synthesizer
	Pipeline    *ingestion.Pipeline

	// Database is api.DatabaseConnected for a networked store and
	// api.DatabaseFileBased for badger.
	Database string
	AIMode   string

	logger *slog.Logger
}

// Open builds a System from opts.
func Open(ctx context.Context, opts Options) (*System, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.AI
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring ai provider: %w", err)
	}

	store, database, err := openStore(ctx, opts, logger)
	if err != nil {
		provider.Close()
		return nil, err
	}

	sys, err := assemble(store, provider, cfg, opts, logger)
	if err != nil {
		store.Close()
		provider.Close()
		return nil, err
	}
	sys.Database = database
	return sys, nil
}

func newProvider(cfg *ai.Config, logger *slog.Logger) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Provider == ai.ProviderOpenAI {
		return openai.NewProvider(cfg)
	}
	return hf.NewProvider(cfg, hf.WithLogger(logger))
}

// openStore tries the configured networked store and falls back to
// badger on disk, then to badger in memory.
func openStore(ctx context.Context, opts Options, logger *slog.Logger) (storage.DocumentStore, string, error) {
	store, err := openNetworked(ctx, opts, logger)
	database := api.DatabaseConnected
	if store == nil {
		if err != nil {
			logger.Warn("database unavailable, using file-based storage", "err", err)
		}
		database = api.DatabaseFileBased
		store, err = openBadger(opts.DataDir, logger)
		if err != nil {
			return nil, "", err
		}
	}

	if opts.RedisURL == "" {
		return store, database, nil
	}
	rctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	mirrored, err := redis.Connect(rctx, opts.RedisURL, store, redis.WithLogger(logger))
	if err != nil {
		logger.Warn("redis unavailable, query log mirror disabled", "err", err)
		return store, database, nil
	}
	return mirrored, database, nil
}

// openNetworked returns a nil store when no networked store is configured.
func openNetworked(ctx context.Context, opts Options, logger *slog.Logger) (storage.DocumentStore, error) {
	switch {
	case opts.MongoURL != "":
		name := opts.MongoDatabase
		if name == "" {
			name = DefaultMongoDatabase
		}
		store, err := mongo.Open(ctx, opts.MongoURL, name,
			mongo.WithLogger(logger), mongo.WithConnectTimeout(opts.ConnectTimeout))
		if err != nil {
			return nil, err
		}
		return store, nil
	case opts.PostgresDSN != "":
		pctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
		store, err := postgres.Open(pctx, opts.PostgresDSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, nil
}

func openBadger(dir string, logger *slog.Logger) (storage.DocumentStore, error) {
	if dir == "" {
		return badger.Open("", true, badger.WithLogger(logger))
	}
	store, err := badger.Open(dir, false, badger.WithLogger(logger))
	if err == nil {
		return store, nil
	}
	logger.Warn("cannot open data directory, using in-memory storage", "path", dir, "err", err)
	mem, memErr := badger.Open("", true, badger.WithLogger(logger))
	if memErr != nil {
		return nil, errors.Join(err, memErr)
	}
	return mem, nil
}

func assemble(store storage.DocumentStore, provider ai.AIProvider, cfg *ai.Config, opts Options, logger *slog.Logger) (*System, error) {
	embedder := ai.NewFallbackEmbedder(provider.Embedder(), cfg.Dimensions, ai.WithFallbackLogger(logger))

	searchOpts := []search.Option{search.WithLogger(logger)}
	if cfg.HasCredential() {
		searchOpts = append(searchOpts, search.WithAnswerer(provider.Answerer()))
	}
	if opts.MinSimilarity != 0 {
		searchOpts = append(searchOpts, search.WithMinSimilarity(opts.MinSimilarity))
	}
	retriever, err := search.NewRetriever(store, embedder, searchOpts...)
	if err != nil {
		return nil, err
	}

	synthesizer, err := rag.NewSynthesizer(retriever, store,
		rag.WithLogger(logger),
		rag.WithAnswerer(provider.Answerer()),
		rag.WithSummarizer(provider.Summarizer()))
	if err != nil {
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(store, embedder, ingestion.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &System{
		Store:       store,
		Provider:    provider,
		Embedder:    embedder,
		Retriever:   retriever,
		Synthesizer: synthesizer,
		Pipeline:    pipeline,
		AIMode:      cfg.Mode(),
		logger:      logger,
	}, nil
}

// NewImporter returns a bulk importer feeding the system pipeline.
func (s *System) NewImporter(opts ...ingestion.ImporterOption) (*ingestion.Importer, error) {
	return ingestion.NewImporter(s.Pipeline, append([]ingestion.ImporterOption{ingestion.WithImporterLogger(s.logger)}, opts...)...)
}

// NewAPIServer returns an HTTP server over the system services.
func (s *System) NewAPIServer(corsOrigin string) (*api.Server, error) {
	return api.New(api.Config{
		Store:       s.Store,
		Retriever:   s.Retriever,
		Synthesizer: s.Synthesizer,
		Pipeline:    s.Pipeline,
		Version:     Version,
		Database:    s.Database,
		AIMode:      s.AIMode,
		CORSOrigin:  corsOrigin,
		Logger:      s.logger,
	})
}

// Close releases the provider and the store.
func (s *System) Close() error {
	if err := s.Provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}
