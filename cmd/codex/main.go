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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/codex"
	"github.com/poiesic/codex/ai"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "codex",
		Usage:   "Hybrid search and question answering over legal documents",
		Version: codex.Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Path to the BadgerDB data directory",
				Value:   "codex-data",
				EnvVars: []string{"CODEX_DATA_DIR"},
			},
			&cli.BoolFlag{
				Name:  "in-memory",
				Usage: "Keep all data in memory",
			},
			&cli.StringFlag{
				Name:    "mongo-url",
				Usage:   "MongoDB connection string",
				EnvVars: []string{"MONGO_URL"},
			},
			&cli.StringFlag{
				Name:    "mongo-db",
				Usage:   "MongoDB database name",
				Value:   codex.DefaultMongoDatabase,
				EnvVars: []string{"MONGO_DB"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "PostgreSQL connection string (requires pgvector)",
				EnvVars: []string{"POSTGRES_DSN"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the query log mirror",
				EnvVars: []string{"REDIS_URL"},
			},
			&cli.StringFlag{
				Name:    "ai-provider",
				Usage:   "AI provider (huggingface, openai)",
				Value:   ai.ProviderHuggingFace,
				EnvVars: []string{"AI_PROVIDER"},
			},
			&cli.StringFlag{
				Name:    "hf-token",
				Usage:   "Hugging Face inference token",
				EnvVars: []string{"HF_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "openai-host",
				Usage:   "OpenAI-compatible host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"OPENAI_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name for the openai provider",
				Value:   "all-minilm",
				EnvVars: []string{"EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "answer-model",
				Usage:   "Answer model name for the openai provider",
				Value:   "qwen2.5:3b",
				EnvVars: []string{"ANSWER_MODEL"},
			},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Embedding dimensions",
				Value: 384,
			},
			&cli.DurationFlag{
				Name:  "ai-timeout",
				Usage: "Timeout for each AI request",
				Value: 30 * time.Second,
			},
		},
		Before:   setupLogger,
		Commands: commands(),
	}
}

func aiConfig(c *cli.Context) *ai.Config {
	cfg := ai.NewConfig(
		ai.WithProvider(c.String("ai-provider")),
		ai.WithToken(c.String("hf-token")),
		ai.WithHost(c.String("openai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAnswerModel(c.String("answer-model")),
		ai.WithDimensions(c.Int("dimensions")),
		ai.WithTimeout(c.Duration("ai-timeout")),
	)
	cfg.Normalize()
	return cfg
}

func openSystem(c *cli.Context) (*codex.System, error) {
	dataDir := c.String("data-dir")
	if c.Bool("in-memory") {
		dataDir = ""
	}
	sys, err := codex.Open(c.Context, codex.Options{
		DataDir:       dataDir,
		MongoURL:      c.String("mongo-url"),
		MongoDatabase: c.String("mongo-db"),
		PostgresDSN:   c.String("postgres-dsn"),
		RedisURL:      c.String("redis-url"),
		AI:            aiConfig(c),
		Logger:        slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open system: %w", err)
	}
	return sys, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "text":
		handler = slog.NewTextHandler(c.App.ErrWriter, opts)
	case "json":
		handler = slog.NewJSONHandler(c.App.ErrWriter, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", format)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
