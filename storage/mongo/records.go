package mongo

import (
	"time"

	"github.com/poiesic/codex/core"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	documentsCollection = "documents"
	sectionsCollection  = "sections"
	vectorsCollection   = "vectors"
	queriesCollection   = "queries"
)

type documentRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Category     string             `bson:"category"`
	Jurisdiction string             `bson:"jurisdiction"`
	Year         int                `bson:"year"`
	Description  string             `bson:"description,omitempty"`
	FullText     string             `bson:"full_text"`
	Fingerprint  int64              `bson:"fingerprint"`
	SourceName   string             `bson:"source_name,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

// sectionRecord carries the owning document's category so lexical search
// can filter without a join.
type sectionRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DocumentID primitive.ObjectID `bson:"document_id"`
	Category   string             `bson:"category"`
	Label      string             `bson:"label"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	Order      int                `bson:"order"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type vectorRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SectionID  primitive.ObjectID `bson:"section_id"`
	DocumentID primitive.ObjectID `bson:"document_id"`
	Components []float32          `bson:"components"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type queryRecord struct {
	Query       string    `bson:"query"`
	Mode        string    `bson:"mode"`
	ResultCount int       `bson:"result_count"`
	Timestamp   time.Time `bson:"timestamp"`
}

// parseID converts a hex ObjectID. IDs minted elsewhere fail.
func parseID(id core.ID) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	return oid, err == nil
}

func formatID(oid primitive.ObjectID) core.ID {
	return core.ID(oid.Hex())
}

func newDocumentRecord(doc *core.Document) documentRecord {
	return documentRecord{
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

func (r documentRecord) toCore() *core.Document {
	return &core.Document{
		ID:           formatID(r.ID),
		Title:        r.Title,
		Category:     r.Category,
		Jurisdiction: r.Jurisdiction,
		Year:         r.Year,
		Description:  r.Description,
		FullText:     r.FullText,
		Fingerprint:  core.Fingerprint(uint64(r.Fingerprint)),
		SourceName:   r.SourceName,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (r sectionRecord) toCore() *core.Section {
	return &core.Section{
		ID:         formatID(r.ID),
		DocumentID: formatID(r.DocumentID),
		Label:      r.Label,
		Title:      r.Title,
		Content:    r.Content,
		Order:      r.Order,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (r vectorRecord) toCore() *core.Vector {
	return &core.Vector{
		ID:         formatID(r.ID),
		SectionID:  formatID(r.SectionID),
		DocumentID: formatID(r.DocumentID),
		Components: r.Components,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}
