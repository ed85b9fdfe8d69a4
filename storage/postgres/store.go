// Package postgres implements storage.DocumentStore on PostgreSQL through
// gorm. Embeddings are stored in a pgvector column and lexical search
// ranks matches with ts_rank over an english tsvector.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KindName identifies this backend in stats and health output.
const KindName = "postgres"

const tsConfig = "english"

// Store implements storage.DocumentStore for PostgreSQL.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ storage.DocumentStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open connects to dsn, enables the vector extension and migrates the
// schema. Connection failures wrap storage.ErrUnavailable.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "postgres-store")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	s.db = db

	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	s.logger.Info("connected")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	if err := db.AutoMigrate(&documentModel{}, &sectionModel{}, &vectorModel{}, &queryModel{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	ftsIndex := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS sections_content_fts ON sections USING GIN (to_tsvector('%s', content))", tsConfig)
	if err := db.Exec(ftsIndex).Error; err != nil {
		return fmt.Errorf("failed to create text index: %w", err)
	}
	return nil
}

// Kind implements storage.DocumentStore.
func (s *Store) Kind() string {
	return KindName
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func validID(id core.ID) bool {
	return uuid.Validate(string(id)) == nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func now(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// CreateDocument implements storage.DocumentRepository.
func (s *Store) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc == nil {
		return nil, core.ErrInvalidDocument
	}
	m := newDocumentModel(doc)
	m.ID = uuid.NewString()
	m.CreatedAt = now(m.CreatedAt)

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrDuplicateDocument
		}
		return nil, err
	}
	return m.toCore(), nil
}

// GetDocument implements storage.DocumentRepository.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	var m documentModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err)
	}
	return m.toCore(), nil
}

// FindDocumentByFingerprint implements storage.DocumentRepository.
func (s *Store) FindDocumentByFingerprint(ctx context.Context, fp core.Fingerprint) (*core.Document, error) {
	var m documentModel
	if err := s.db.WithContext(ctx).First(&m, "fingerprint = ?", int64(fp)).Error; err != nil {
		return nil, notFound(err)
	}
	return m.toCore(), nil
}

// ListDocuments implements storage.DocumentRepository.
func (s *Store) ListDocuments(ctx context.Context, filter storage.DocumentFilter) ([]*core.Document, int64, error) {
	q := s.db.WithContext(ctx).Model(&documentModel{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	var models []documentModel
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(filter.Offset).Limit(limit).Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	docs := make([]*core.Document, len(models))
	for i, m := range models {
		docs[i] = m.toCore()
	}
	return docs, total, nil
}

// DeleteDocument implements storage.DocumentRepository.
func (s *Store) DeleteDocument(ctx context.Context, id core.ID) error {
	if !validID(id) {
		return storage.ErrNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", string(id)).Delete(&vectorModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", string(id)).Delete(&sectionModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", string(id)).Delete(&documentModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// CreateSection implements storage.SectionRepository.
func (s *Store) CreateSection(ctx context.Context, sec *core.Section) (*core.Section, error) {
	if sec == nil {
		return nil, storage.ErrInvalidQuery
	}
	if !validID(sec.DocumentID) {
		return nil, storage.ErrNotFound
	}
	m := sectionModel{
		ID:         uuid.NewString(),
		DocumentID: string(sec.DocumentID),
		Label:      sec.Label,
		Title:      sec.Title,
		Content:    sec.Content,
		Position:   sec.Order,
		CreatedAt:  now(sec.CreatedAt),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&documentModel{}).Where("id = ?", m.DocumentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrNotFound
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return m.toCore(), nil
}

// GetSection implements storage.SectionRepository.
func (s *Store) GetSection(ctx context.Context, id core.ID) (*core.Section, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	var m sectionModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err)
	}
	return m.toCore(), nil
}

// ListSections implements storage.SectionRepository.
func (s *Store) ListSections(ctx context.Context, documentID core.ID) ([]*core.Section, error) {
	if !validID(documentID) {
		return nil, nil
	}
	var models []sectionModel
	err := s.db.WithContext(ctx).Where("document_id = ?", string(documentID)).
		Order("position").Find(&models).Error
	if err != nil {
		return nil, err
	}
	return sectionsToCore(models), nil
}

// SearchSections implements storage.SectionRepository. Query tokens are
// OR-ed into a tsquery and matches are ranked by ts_rank.
func (s *Store) SearchSections(ctx context.Context, query, category string, limit int) ([]*core.Section, error) {
	tsq := orQuery(query)
	if tsq == "" || limit <= 0 {
		return nil, nil
	}
	vectorExpr := fmt.Sprintf("to_tsvector('%s', sections.content)", tsConfig)
	queryExpr := fmt.Sprintf("to_tsquery('%s', ?)", tsConfig)

	q := s.db.WithContext(ctx).Model(&sectionModel{}).
		Select("sections.*, ts_rank("+vectorExpr+", "+queryExpr+") AS rank", tsq).
		Where(vectorExpr+" @@ "+queryExpr, tsq)
	if category != "" {
		q = q.Joins("JOIN documents ON documents.id = sections.document_id").
			Where("documents.category = ?", category)
	}

	var models []sectionModel
	if err := q.Order("rank DESC").Order("sections.id").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return sectionsToCore(models), nil
}

// orQuery builds "a | b | c" from the query tokens, keeping only letters
// and digits so the result is always a valid tsquery.
func orQuery(query string) string {
	var terms []string
	for _, tok := range core.UniqueTokens(query) {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, tok)
		if cleaned != "" {
			terms = append(terms, cleaned)
		}
	}
	return strings.Join(terms, " | ")
}

func sectionsToCore(models []sectionModel) []*core.Section {
	sections := make([]*core.Section, len(models))
	for i, m := range models {
		sections[i] = m.toCore()
	}
	return sections
}

// CreateVector implements storage.VectorRepository.
func (s *Store) CreateVector(ctx context.Context, vec *core.Vector) (*core.Vector, error) {
	if vec == nil {
		return nil, storage.ErrInvalidQuery
	}
	if !validID(vec.SectionID) {
		return nil, storage.ErrNotFound
	}
	var sec sectionModel
	if err := s.db.WithContext(ctx).Select("id", "document_id").First(&sec, "id = ?", string(vec.SectionID)).Error; err != nil {
		return nil, notFound(err)
	}

	m := vectorModel{
		ID:         uuid.NewString(),
		SectionID:  sec.ID,
		DocumentID: sec.DocumentID,
		Embedding:  pgvector.NewVector(vec.Components),
		CreatedAt:  now(vec.CreatedAt),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, err
	}
	return m.toCore(), nil
}

// GetVector implements storage.VectorRepository.
func (s *Store) GetVector(ctx context.Context, id core.ID) (*core.Vector, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	return s.findVector(ctx, "id = ?", string(id))
}

// GetVectorBySection implements storage.VectorRepository.
func (s *Store) GetVectorBySection(ctx context.Context, sectionID core.ID) (*core.Vector, error) {
	if !validID(sectionID) {
		return nil, storage.ErrNotFound
	}
	return s.findVector(ctx, "section_id = ?", string(sectionID))
}

func (s *Store) findVector(ctx context.Context, cond string, arg any) (*core.Vector, error) {
	var m vectorModel
	if err := s.db.WithContext(ctx).First(&m, cond, arg).Error; err != nil {
		return nil, notFound(err)
	}
	return m.toCore(), nil
}

// ScanVectors implements storage.VectorRepository.
func (s *Store) ScanVectors(ctx context.Context, limit int) ([]*core.Vector, error) {
	if limit <= 0 {
		limit = -1
	}
	var models []vectorModel
	err := s.db.WithContext(ctx).Order("created_at").Order("id").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	vectors := make([]*core.Vector, len(models))
	for i, m := range models {
		vectors[i] = m.toCore()
	}
	return vectors, nil
}

// AppendQuery implements storage.QueryLogRepository.
func (s *Store) AppendQuery(ctx context.Context, entry core.QueryLogEntry) error {
	m := queryModel{
		Query:       entry.Query,
		Mode:        string(entry.Mode),
		ResultCount: entry.ResultCount,
		Timestamp:   now(entry.Timestamp),
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// Stats implements storage.DocumentStore.
func (s *Store) Stats(ctx context.Context) (core.StoreStats, error) {
	var stats core.StoreStats
	db := s.db.WithContext(ctx)
	counts := []struct {
		q   *gorm.DB
		dst *int64
	}{
		{db.Model(&documentModel{}), &stats.Documents},
		{db.Model(&sectionModel{}), &stats.Sections},
		{db.Model(&vectorModel{}), &stats.Vectors},
		{db.Model(&queryModel{}), &stats.Queries},
		{db.Model(&queryModel{}).Where("mode = ?", string(core.ModeVector)), &stats.AIQueries},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dst).Error; err != nil {
			return stats, err
		}
	}
	return stats, nil
}
