package storage

import (
	"context"

	"github.com/poiesic/codex/core"
)

// DocumentFilter selects a page of documents.
type DocumentFilter struct {
	Category string // empty matches every category
	Offset   int
	Limit    int // zero means no limit
}

// DocumentRepository provides operations for managing documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// CreateDocument stores doc, assigning its ID and CreatedAt when unset.
	// Returns ErrDuplicateDocument if a document with the same fingerprint exists.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// FindDocumentByFingerprint retrieves the document with the given fingerprint.
	// Returns ErrNotFound if no document matches.
	FindDocumentByFingerprint(ctx context.Context, fp core.Fingerprint) (*core.Document, error)

	// ListDocuments returns a page of documents, newest first, and the total
	// number of documents matching the filter.
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*core.Document, int64, error)

	// DeleteDocument removes a document together with all of its sections
	// and vectors. Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error
}

// SectionRepository provides operations for managing sections.
type SectionRepository interface {
	// CreateSection stores sec, assigning its ID and CreatedAt when unset.
	// Returns ErrNotFound if the owning document doesn't exist.
	CreateSection(ctx context.Context, sec *core.Section) (*core.Section, error)

	// GetSection retrieves a single section by ID.
	// Returns ErrNotFound if the section doesn't exist.
	GetSection(ctx context.Context, id core.ID) (*core.Section, error)

	// ListSections returns a document's sections ordered by Order.
	ListSections(ctx context.Context, documentID core.ID) ([]*core.Section, error)

	// SearchSections runs a lexical full-text search over section content.
	// A section matches when it contains any query term. When category is
	// non-empty only sections of documents in that category are returned.
	// Returns up to limit sections, best match first.
	SearchSections(ctx context.Context, query, category string, limit int) ([]*core.Section, error)
}

// VectorRepository provides operations for managing section embeddings.
type VectorRepository interface {
	// CreateVector stores vec, assigning its ID and CreatedAt when unset.
	// Returns ErrDuplicateKey if the section already has a vector.
	CreateVector(ctx context.Context, vec *core.Vector) (*core.Vector, error)

	// GetVector retrieves a single vector by ID.
	// Returns ErrNotFound if the vector doesn't exist.
	GetVector(ctx context.Context, id core.ID) (*core.Vector, error)

	// GetVectorBySection retrieves the vector owned by a section.
	// Returns ErrNotFound if the section has no vector.
	GetVectorBySection(ctx context.Context, sectionID core.ID) (*core.Vector, error)

	// ScanVectors returns up to limit stored vectors in insertion order.
	// It bounds the candidate pool scored by vector search.
	ScanVectors(ctx context.Context, limit int) ([]*core.Vector, error)
}

// QueryLogRepository records executed searches.
type QueryLogRepository interface {
	// AppendQuery appends an entry. Entries are never read back by retrieval.
	AppendQuery(ctx context.Context, entry core.QueryLogEntry) error
}

// DocumentStore is the single storage capability the rest of the system
// depends on. One implementation is selected at startup.
type DocumentStore interface {
	DocumentRepository
	SectionRepository
	VectorRepository
	QueryLogRepository

	// Stats returns collection counts.
	Stats(ctx context.Context) (core.StoreStats, error)

	// Kind names the implementation, e.g. "badger" or "mongo".
	Kind() string

	// Close closes the storage backend and releases resources.
	Close() error
}
