// Package mongo implements storage.DocumentStore on MongoDB.
//
// Sections carry a text index on their content, and lexical search uses
// $text with textScore ranking. Vectors live in their own collection with
// a unique index on section_id. Cascading deletes remove vectors, then
// sections, then the document, so an interrupted delete leaves the
// document visible and safe to retry.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// KindName identifies this backend in stats and health output.
const KindName = "mongo"

const defaultConnectTimeout = 5 * time.Second

// Store implements storage.DocumentStore for MongoDB.
type Store struct {
	client    *mongo.Client
	documents *mongo.Collection
	sections  *mongo.Collection
	vectors   *mongo.Collection
	queries   *mongo.Collection
	logger    *slog.Logger
	timeout   time.Duration
}

var _ storage.DocumentStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithConnectTimeout bounds server selection and the initial ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Open connects to uri, verifies the server answers and ensures indexes.
// Connection failures wrap storage.ErrUnavailable.
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	s := &Store{timeout: defaultConnectTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "mongo-store")

	clientOpts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(s.timeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	db := client.Database(database)
	s.client = client
	s.documents = db.Collection(documentsCollection)
	s.sections = db.Collection(sectionsCollection)
	s.vectors = db.Collection(vectorsCollection)
	s.queries = db.Collection(queriesCollection)

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	s.logger.Info("connected", "database", database)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.documents, []mongo.IndexModel{
			{Keys: bson.D{{Key: "fingerprint", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
		{s.sections, []mongo.IndexModel{
			{Keys: bson.D{{Key: "content", Value: "text"}}},
			{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "order", Value: 1}}},
		}},
		{s.vectors, []mongo.IndexModel{
			{Keys: bson.D{{Key: "section_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "document_id", Value: 1}}},
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// Kind implements storage.DocumentStore.
func (s *Store) Kind() string {
	return KindName
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CreateDocument implements storage.DocumentRepository.
func (s *Store) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc == nil {
		return nil, core.ErrInvalidDocument
	}
	rec := newDocumentRecord(doc)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ID = primitive.NewObjectID()

	if _, err := s.documents.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateDocument
		}
		return nil, err
	}
	return rec.toCore(), nil
}

// GetDocument implements storage.DocumentRepository.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.findDocument(ctx, bson.M{"_id": oid})
}

// FindDocumentByFingerprint implements storage.DocumentRepository.
func (s *Store) FindDocumentByFingerprint(ctx context.Context, fp core.Fingerprint) (*core.Document, error) {
	return s.findDocument(ctx, bson.M{"fingerprint": int64(fp)})
}

func (s *Store) findDocument(ctx context.Context, filter bson.M) (*core.Document, error) {
	var rec documentRecord
	if err := s.documents.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return rec.toCore(), nil
}

// ListDocuments implements storage.DocumentRepository.
func (s *Store) ListDocuments(ctx context.Context, filter storage.DocumentFilter) ([]*core.Document, int64, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	total, err := s.documents.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cursor, err := s.documents.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	var recs []documentRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, 0, err
	}

	docs := make([]*core.Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, rec.toCore())
	}
	return docs, total, nil
}

// DeleteDocument implements storage.DocumentRepository.
func (s *Store) DeleteDocument(ctx context.Context, id core.ID) error {
	oid, ok := parseID(id)
	if !ok {
		return storage.ErrNotFound
	}
	if n, err := s.documents.CountDocuments(ctx, bson.M{"_id": oid}); err != nil {
		return err
	} else if n == 0 {
		return storage.ErrNotFound
	}

	byDocument := bson.M{"document_id": oid}
	if _, err := s.vectors.DeleteMany(ctx, byDocument); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	if _, err := s.sections.DeleteMany(ctx, byDocument); err != nil {
		return fmt.Errorf("deleting sections: %w", err)
	}
	if _, err := s.documents.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	s.logger.Debug("deleted document", "document_id", id)
	return nil
}

// CreateSection implements storage.SectionRepository.
func (s *Store) CreateSection(ctx context.Context, sec *core.Section) (*core.Section, error) {
	if sec == nil {
		return nil, storage.ErrInvalidQuery
	}
	docID, ok := parseID(sec.DocumentID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	var owner documentRecord
	err := s.documents.FindOne(ctx, bson.M{"_id": docID},
		options.FindOne().SetProjection(bson.M{"category": 1})).Decode(&owner)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	rec := sectionRecord{
		ID:         primitive.NewObjectID(),
		DocumentID: docID,
		Category:   owner.Category,
		Label:      sec.Label,
		Title:      sec.Title,
		Content:    sec.Content,
		Order:      sec.Order,
		CreatedAt:  sec.CreatedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := s.sections.InsertOne(ctx, rec); err != nil {
		return nil, err
	}
	return rec.toCore(), nil
}

// GetSection implements storage.SectionRepository.
func (s *Store) GetSection(ctx context.Context, id core.ID) (*core.Section, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	var rec sectionRecord
	if err := s.sections.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return rec.toCore(), nil
}

// ListSections implements storage.SectionRepository.
func (s *Store) ListSections(ctx context.Context, documentID core.ID) ([]*core.Section, error) {
	oid, ok := parseID(documentID)
	if !ok {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	return s.findSections(ctx, bson.M{"document_id": oid}, opts)
}

// SearchSections implements storage.SectionRepository using $text, which
// matches any of the query terms and ranks by textScore.
func (s *Store) SearchSections(ctx context.Context, query, category string, limit int) ([]*core.Section, error) {
	if len(core.Tokenize(query)) == 0 || limit <= 0 {
		return nil, nil
	}
	filter := bson.M{"$text": bson.M{"$search": query}}
	if category != "" {
		filter["category"] = category
	}
	score := bson.M{"score": bson.M{"$meta": "textScore"}}
	opts := options.Find().
		SetProjection(score).
		SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return s.findSections(ctx, filter, opts)
}

func (s *Store) findSections(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*core.Section, error) {
	cursor, err := s.sections.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var recs []sectionRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	sections := make([]*core.Section, 0, len(recs))
	for _, rec := range recs {
		sections = append(sections, rec.toCore())
	}
	return sections, nil
}

// CreateVector implements storage.VectorRepository.
func (s *Store) CreateVector(ctx context.Context, vec *core.Vector) (*core.Vector, error) {
	if vec == nil {
		return nil, storage.ErrInvalidQuery
	}
	secID, ok := parseID(vec.SectionID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	var owner sectionRecord
	err := s.sections.FindOne(ctx, bson.M{"_id": secID},
		options.FindOne().SetProjection(bson.M{"document_id": 1})).Decode(&owner)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	rec := vectorRecord{
		ID:         primitive.NewObjectID(),
		SectionID:  secID,
		DocumentID: owner.DocumentID,
		Components: vec.Components,
		CreatedAt:  vec.CreatedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := s.vectors.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, err
	}
	return rec.toCore(), nil
}

// GetVector implements storage.VectorRepository.
func (s *Store) GetVector(ctx context.Context, id core.ID) (*core.Vector, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.findVector(ctx, bson.M{"_id": oid})
}

// GetVectorBySection implements storage.VectorRepository.
func (s *Store) GetVectorBySection(ctx context.Context, sectionID core.ID) (*core.Vector, error) {
	oid, ok := parseID(sectionID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.findVector(ctx, bson.M{"section_id": oid})
}

func (s *Store) findVector(ctx context.Context, filter bson.M) (*core.Vector, error) {
	var rec vectorRecord
	if err := s.vectors.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return rec.toCore(), nil
}

// ScanVectors implements storage.VectorRepository.
func (s *Store) ScanVectors(ctx context.Context, limit int) ([]*core.Vector, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.vectors.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var vectors []*core.Vector
	for cursor.Next(ctx) {
		var rec vectorRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		vectors = append(vectors, rec.toCore())
	}
	return vectors, cursor.Err()
}

// AppendQuery implements storage.QueryLogRepository.
func (s *Store) AppendQuery(ctx context.Context, entry core.QueryLogEntry) error {
	rec := queryRecord{
		Query:       entry.Query,
		Mode:        string(entry.Mode),
		ResultCount: entry.ResultCount,
		Timestamp:   entry.Timestamp,
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := s.queries.InsertOne(ctx, rec)
	return err
}

// Stats implements storage.DocumentStore.
func (s *Store) Stats(ctx context.Context) (core.StoreStats, error) {
	var stats core.StoreStats
	counts := []struct {
		coll   *mongo.Collection
		filter bson.M
		dst    *int64
	}{
		{s.documents, bson.M{}, &stats.Documents},
		{s.sections, bson.M{}, &stats.Sections},
		{s.vectors, bson.M{}, &stats.Vectors},
		{s.queries, bson.M{}, &stats.Queries},
		{s.queries, bson.M{"mode": string(core.ModeVector)}, &stats.AIQueries},
	}
	for _, c := range counts {
		n, err := c.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return stats, err
		}
		*c.dst = n
	}
	return stats, nil
}
