package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/segment"
	"github.com/poiesic/codex/storage"
)

// Defaults applied to fields left empty by the caller.
const (
	DefaultCategory     = "Legal"
	DefaultJurisdiction = "Pakistan"
)

// Request is a document waiting to be ingested.
type Request struct {
	Title        string
	Category     string
	Jurisdiction string
	Year         int
	Description  string
	Text         string
	SourceName   string // original file name, used as the title when Title is empty
}

// Result describes a stored document.
type Result struct {
	Document *core.Document
	Sections int
}

// Pipeline orchestrates the ingestion of documents.
type Pipeline struct {
	store  storage.DocumentStore
	proc   processor
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for the default year.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		p.now = now
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline. Pass an
// *ai.FallbackEmbedder to guarantee every section receives a vector.
func NewPipeline(store storage.DocumentStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	proc, err := newEmbeddingProcessor(store, embedder, p.logger)
	if err != nil {
		return nil, err
	}
	p.proc = proc
	return p, nil
}

// Ingest stores req as a document, segments it and embeds each section.
// Returns storage.ErrDuplicateDocument when identical text was already
// ingested and a core.ErrValidation error for missing title or text.
//
// Cancellation of ctx is not propagated: once called, ingestion runs to
// completion. Provider calls stay bounded by their own timeouts.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	doc := p.document(req)
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	drafts := segment.Split(doc.FullText)
	if len(drafts) == 0 {
		return nil, ErrNoSections
	}

	if existing, err := p.store.FindDocumentByFingerprint(ctx, doc.Fingerprint); err == nil {
		p.logger.Info("skipping duplicate document", "title", doc.Title, "existing", existing.ID)
		return nil, fmt.Errorf("%w: matches %s", storage.ErrDuplicateDocument, existing.ID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	stored, err := p.store.CreateDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	n, err := p.proc.process(ctx, stored, drafts)
	if err != nil {
		p.rollback(stored.ID, err)
		return nil, err
	}

	p.logger.Info("ingested document", "id", stored.ID, "title", stored.Title, "sections", n)
	return &Result{Document: stored, Sections: n}, nil
}

func (p *Pipeline) document(req Request) *core.Document {
	text := strings.TrimSpace(req.Text)
	doc := &core.Document{
		Title:        strings.TrimSpace(req.Title),
		Category:     strings.TrimSpace(req.Category),
		Jurisdiction: strings.TrimSpace(req.Jurisdiction),
		Year:         req.Year,
		Description:  req.Description,
		FullText:     text,
		Fingerprint:  core.FingerprintFromContent(text),
		SourceName:   req.SourceName,
	}
	if doc.Title == "" && req.SourceName != "" {
		doc.Title = titleFromName(req.SourceName)
	}
	if doc.Category == "" {
		doc.Category = DefaultCategory
	}
	if doc.Jurisdiction == "" {
		doc.Jurisdiction = DefaultJurisdiction
	}
	if doc.Year == 0 {
		doc.Year = p.now().Year()
	}
	return doc
}

// rollback removes a partially ingested document. It runs on a fresh
// context so a cancelled request still cleans up.
func (p *Pipeline) rollback(id core.ID, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.store.DeleteDocument(ctx, id); err != nil {
		p.logger.Error("rollback failed", "id", id, "cause", cause, "err", err)
		return
	}
	p.logger.Warn("rolled back partially ingested document", "id", id, "err", cause)
}

func titleFromName(name string) string {
	name = name[strings.LastIndexAny(name, `/\`)+1:]
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
