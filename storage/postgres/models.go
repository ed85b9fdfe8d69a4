package postgres

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/codex/core"
)

// documentModel represents the documents table.
type documentModel struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Title        string
	Category     string `gorm:"index"`
	Jurisdiction string
	Year         int
	Description  string
	FullText     string
	Fingerprint  int64  `gorm:"uniqueIndex"`
	SourceName   string
	CreatedAt    time.Time `gorm:"index"`
}

// TableName overrides the table name.
func (documentModel) TableName() string {
	return "documents"
}

// sectionModel represents the sections table. A GIN index over
// to_tsvector(content) backs lexical search.
type sectionModel struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	DocumentID string `gorm:"type:uuid;index"`
	Label      string
	Title      string
	Content    string
	Position   int
	CreatedAt  time.Time
}

// TableName overrides the table name.
func (sectionModel) TableName() string {
	return "sections"
}

// vectorModel represents the vectors table.
type vectorModel struct {
	ID         string          `gorm:"primaryKey;type:uuid"`
	SectionID  string          `gorm:"type:uuid;uniqueIndex"`
	DocumentID string          `gorm:"type:uuid;index"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	CreatedAt  time.Time       `gorm:"index"`
}

// TableName overrides the table name.
func (vectorModel) TableName() string {
	return "vectors"
}

// queryModel represents the query_log table.
type queryModel struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Query       string
	Mode        string `gorm:"index"`
	ResultCount int
	Timestamp   time.Time
}

// TableName overrides the table name.
func (queryModel) TableName() string {
	return "query_log"
}

func newDocumentModel(doc *core.Document) documentModel {
	return documentModel{
		Title:        doc.Title,
		Category:     doc.Category,
		Jurisdiction: doc.Jurisdiction,
		Year:         doc.Year,
		Description:  doc.Description,
		FullText:     doc.FullText,
		Fingerprint:  int64(doc.Fingerprint),
		SourceName:   doc.SourceName,
		CreatedAt:    doc.CreatedAt,
	}
}

func (m documentModel) toCore() *core.Document {
	return &core.Document{
		ID:           core.ID(m.ID),
		Title:        m.Title,
		Category:     m.Category,
		Jurisdiction: m.Jurisdiction,
		Year:         m.Year,
		Description:  m.Description,
		FullText:     m.FullText,
		Fingerprint:  core.Fingerprint(uint64(m.Fingerprint)),
		SourceName:   m.SourceName,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func (m sectionModel) toCore() *core.Section {
	return &core.Section{
		ID:         core.ID(m.ID),
		DocumentID: core.ID(m.DocumentID),
		Label:      m.Label,
		Title:      m.Title,
		Content:    m.Content,
		Order:      m.Position,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func (m vectorModel) toCore() *core.Vector {
	return &core.Vector{
		ID:         core.ID(m.ID),
		SectionID:  core.ID(m.SectionID),
		DocumentID: core.ID(m.DocumentID),
		Components: m.Embedding.Slice(),
		CreatedAt:  m.CreatedAt.UTC(),
	}
}
