package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is an opaque identifier minted by the storage backend that owns the record.
type ID string

// String returns the identifier as a plain string.
func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool { return id == "" }

// Fingerprint is a content hash of a document's full text.
// Two documents with identical text share a fingerprint.
type Fingerprint uint64

// FingerprintFromContent hashes text with BLAKE2b into a 64-bit fingerprint.
func FingerprintFromContent(text string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}

// SearchMode selects which retrieval phases run for a query.
type SearchMode string

const (
	// ModeText runs only the lexical phase.
	ModeText SearchMode = "text"
	// ModeVector runs only the vector similarity phase.
	ModeVector SearchMode = "vector"
	// ModeHybrid runs both phases and fuses the results.
	ModeHybrid SearchMode = "hybrid"
)

// Valid reports whether m is one of the known modes.
func (m SearchMode) Valid() bool {
	switch m {
	case ModeText, ModeVector, ModeHybrid:
		return true
	}
	return false
}

// UsesText reports whether the lexical phase runs in this mode.
func (m SearchMode) UsesText() bool { return m == ModeText || m == ModeHybrid }

// UsesVector reports whether the vector phase runs in this mode.
func (m SearchMode) UsesVector() bool { return m == ModeVector || m == ModeHybrid }

// Document is an ingested legal text.
type Document struct {
	ID           ID
	Title        string
	Category     string
	Jurisdiction string
	Year         int
	Description  string
	FullText     string
	Fingerprint  Fingerprint
	SourceName   string // original file name, empty for text submissions
	CreatedAt    time.Time
}

// Section is one "Section"/"Article" block of a Document.
// Sections are never updated in place.
type Section struct {
	ID         ID
	DocumentID ID
	Label      string
	Title      string
	Content    string
	Order      int // zero-based position within the document
	CreatedAt  time.Time
}

// Vector is the embedding of exactly one Section.
type Vector struct {
	ID         ID
	SectionID  ID
	DocumentID ID // denormalized for cascade deletes
	Components []float32
	CreatedAt  time.Time
}

// QueryLogEntry records one executed search. Entries are append-only.
type QueryLogEntry struct {
	Query       string
	Mode        SearchMode
	ResultCount int
	Timestamp   time.Time
}

// SectionDraft is a segmenter output waiting to be persisted.
type SectionDraft struct {
	Label   string
	Title   string
	Content string
	Order   int
}

// SearchResult is a ranked retrieval hit. It is never persisted.
type SearchResult struct {
	ID            ID         `json:"id"` // section identifier
	DocumentID    ID         `json:"document_id"`
	Label         string     `json:"section_number"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"content"`
	DocumentTitle string     `json:"law_title"`
	Category      string     `json:"category"`
	Score         float64    `json:"score"`
	Mode          SearchMode `json:"search_type"`

	// Populated by advanced search only.
	Jurisdiction        string `json:"jurisdiction,omitempty"`
	Year                int    `json:"year,omitempty"`
	DocumentDescription string `json:"document_description,omitempty"`
}

// StoreStats holds collection counts reported by a store.
type StoreStats struct {
	Documents int64
	Sections  int64
	Vectors   int64
	Queries   int64
	AIQueries int64 // queries run in vector mode
}
