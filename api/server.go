// Package api exposes search, question answering and document management
// over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/codex/ingestion"
	"github.com/poiesic/codex/mid"
	"github.com/poiesic/codex/rag"
	"github.com/poiesic/codex/search"
	"github.com/poiesic/codex/storage"
)

// Health values reported by /api/health.
const (
	DatabaseConnected = "connected"
	DatabaseFileBased = "file-based"

	AIModeCloud    = "cloud_inference"
	AIModeFallback = "fallback_hashing"
)

// Config wires the server to its services.
type Config struct {
	Store       storage.DocumentStore
	Retriever   *search.Retriever
	Synthesizer *rag.Synthesizer
	Pipeline    *ingestion.Pipeline

	Version    string
	Database   string // DatabaseConnected or DatabaseFileBased
	AIMode     string // AIModeCloud or AIModeFallback
	CORSOrigin string // empty means "*"
	Logger     *slog.Logger
}

// Server handles API requests.
type Server struct {
	store       storage.DocumentStore
	retriever   *search.Retriever
	synthesizer *rag.Synthesizer
	pipeline    *ingestion.Pipeline

	version  string
	database string
	aiMode   string
	origin   string
	now      func() time.Time
	logger   *slog.Logger
}

// ErrMissingService is returned by New when a required service is nil.
var ErrMissingService = errors.New("api: missing service")

// New validates cfg and returns a server.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Retriever == nil || cfg.Synthesizer == nil || cfg.Pipeline == nil {
		return nil, ErrMissingService
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:       cfg.Store,
		retriever:   cfg.Retriever,
		synthesizer: cfg.Synthesizer,
		pipeline:    cfg.Pipeline,
		version:     cfg.Version,
		database:    cfg.Database,
		aiMode:      cfg.AIMode,
		origin:      cfg.CORSOrigin,
		now:         time.Now,
		logger:      logger.With("component", "api"),
	}
	if s.database == "" {
		s.database = DatabaseConnected
	}
	if s.aiMode == "" {
		s.aiMode = AIModeFallback
	}
	if s.origin == "" {
		s.origin = "*"
	}
	return s, nil
}

// Routes returns the bare route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/search/advanced", s.handleAdvancedSearch)
	mux.HandleFunc("GET /api/rag/ask", s.handleAsk)
	mux.HandleFunc("POST /api/ai/chat", s.handleChat)

	mux.HandleFunc("POST /api/documents", s.handleCreateDocument)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("GET /api/documents/{id}/summarize", s.handleSummarize)
	return mux
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return mid.Chain(s.Routes(),
		mid.Recover(s.logger),
		mid.RequestID(),
		mid.Logger(s.logger),
		mid.CORS(s.origin),
		mid.OTel("codex-api"),
	)
}
