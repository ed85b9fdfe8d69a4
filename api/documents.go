package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/ingestion"
	"github.com/poiesic/codex/storage"
)

// Paging bounds for the document list.
const (
	DefaultDocumentLimit = 10
	PreviewLength        = 200
	maxBodyBytes         = 32 << 20
)

type documentJSON struct {
	ID           core.ID   `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Jurisdiction string    `json:"jurisdiction"`
	Year         int       `json:"year"`
	Description  string    `json:"description"`
	SourceName   string    `json:"original_filename,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type sectionPreview struct {
	ID             core.ID `json:"id"`
	SectionNumber  string  `json:"section_number"`
	Title          string  `json:"title"`
	ContentPreview string  `json:"content_preview"`
}

type documentDetail struct {
	documentJSON
	FullText string           `json:"full_text"`
	Sections []sectionPreview `json:"sections"`
}

type documentList struct {
	Documents []documentJSON `json:"documents"`
	Page      int            `json:"page"`
	Limit     int            `json:"limit"`
	Total     int64          `json:"total"`
	Pages     int64          `json:"pages"`
}

type createDocumentRequest struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	Jurisdiction string `json:"jurisdiction"`
	Year         int    `json:"year"`
	Description  string `json:"description"`
	Text         string `json:"text"`
}

type createDocumentResponse struct {
	Message    string  `json:"message"`
	DocumentID core.ID `json:"document_id"`
	Title      string  `json:"title"`
	Sections   int     `json:"sections"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type summaryResponse struct {
	DocumentID core.ID `json:"document_id"`
	Summary    string  `json:"summary"`
}

func newDocumentJSON(doc *core.Document) documentJSON {
	return documentJSON{
		ID:           doc.ID,
		Title:        doc.Title,
		Category:     doc.Category,
		Jurisdiction: doc.Jurisdiction,
		Year:         doc.Year,
		Description:  doc.Description,
		SourceName:   doc.SourceName,
		CreatedAt:    doc.CreatedAt,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "upload failed", err)
		return
	}
	res, err := s.pipeline.Ingest(serviceContext(r), ingestion.Request{
		Title:        req.Title,
		Category:     req.Category,
		Jurisdiction: req.Jurisdiction,
		Year:         req.Year,
		Description:  req.Description,
		Text:         req.Text,
	})
	if err != nil {
		s.writeError(w, r, "upload failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, createDocumentResponse{
		Message:    "Document uploaded successfully",
		DocumentID: res.Document.ID,
		Title:      res.Document.Title,
		Sections:   res.Sections,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err == nil && page < 1 {
		err = badRequest("page must be at least 1")
	}
	if err != nil {
		s.writeError(w, r, "failed to list documents", err)
		return
	}
	limit, err := intParam(r, "limit", DefaultDocumentLimit)
	if err == nil {
		err = core.ValidateLimit(limit)
	}
	if err != nil {
		s.writeError(w, r, "failed to list documents", err)
		return
	}

	docs, total, err := s.store.ListDocuments(r.Context(), storage.DocumentFilter{
		Category: r.URL.Query().Get("category"),
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		s.writeError(w, r, "failed to list documents", err)
		return
	}

	out := documentList{
		Documents: make([]documentJSON, 0, len(docs)),
		Page:      page,
		Limit:     limit,
		Total:     total,
		Pages:     (total + int64(limit) - 1) / int64(limit),
	}
	for _, doc := range docs {
		out.Documents = append(out.Documents, newDocumentJSON(doc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := core.ID(r.PathValue("id"))
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "failed to get document", err)
		return
	}
	sections, err := s.store.ListSections(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "failed to get document", err)
		return
	}

	out := documentDetail{
		documentJSON: newDocumentJSON(doc),
		FullText:     doc.FullText,
		Sections:     make([]sectionPreview, 0, len(sections)),
	}
	for _, sec := range sections {
		out.Sections = append(out.Sections, sectionPreview{
			ID:             sec.ID,
			SectionNumber:  sec.Label,
			Title:          sec.Title,
			ContentPreview: core.Truncate(sec.Content, PreviewLength),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDocument(r.Context(), core.ID(r.PathValue("id"))); err != nil {
		s.writeError(w, r, "failed to delete document", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Document deleted successfully"})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	id := core.ID(r.PathValue("id"))
	summary, err := s.synthesizer.Summarize(serviceContext(r), id)
	if err != nil {
		s.writeError(w, r, "summarization failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{DocumentID: id, Summary: summary})
}
