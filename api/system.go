package api

import (
	"net/http"
	"time"

	"github.com/poiesic/codex/storage"
)

// RecentDocuments is the number of documents listed by /api/stats.
const RecentDocuments = 5

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Mode    string `json:"mode"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	AIMode    string    `json:"ai_mode"`
}

type statsResponse struct {
	TotalDocuments  int64          `json:"total_documents"`
	TotalSections   int64          `json:"total_sections"`
	TotalQueries    int64          `json:"total_queries"`
	VectorCount     int64          `json:"vector_count"`
	AIQueries       int64          `json:"ai_queries"`
	RecentDocuments []documentJSON `json:"recent_documents"`
	Storage         string         `json:"storage"`
	Timestamp       time.Time      `json:"timestamp"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Legal RAG System API",
		Version: s.version,
		Status:  "running",
		Mode:    s.store.Kind(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC(),
		Database:  s.database,
		AIMode:    s.aiMode,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, "failed to get statistics", err)
		return
	}
	recent, _, err := s.store.ListDocuments(r.Context(), storage.DocumentFilter{Limit: RecentDocuments})
	if err != nil {
		s.writeError(w, r, "failed to get statistics", err)
		return
	}

	out := statsResponse{
		TotalDocuments:  stats.Documents,
		TotalSections:   stats.Sections,
		TotalQueries:    stats.Queries,
		VectorCount:     stats.Vectors,
		AIQueries:       stats.AIQueries,
		RecentDocuments: make([]documentJSON, 0, len(recent)),
		Storage:         s.store.Kind(),
		Timestamp:       s.now().UTC(),
	}
	for _, doc := range recent {
		out.RecentDocuments = append(out.RecentDocuments, newDocumentJSON(doc))
	}
	writeJSON(w, http.StatusOK, out)
}
