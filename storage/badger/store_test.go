package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addDocument(t *testing.T, store *Store, title, category string, sections ...string) (*core.Document, []*core.Section) {
	t.Helper()
	ctx := context.Background()
	full := title
	for _, s := range sections {
		full += "\n" + s
	}
	doc, err := store.CreateDocument(ctx, &core.Document{
		Title:       title,
		Category:    category,
		FullText:    full,
		Fingerprint: core.FingerprintFromContent(full),
	})
	require.NoError(t, err)

	var created []*core.Section
	for i, content := range sections {
		sec, err := store.CreateSection(ctx, &core.Section{
			DocumentID: doc.ID,
			Label:      fmt.Sprintf("Section %d", i+1),
			Title:      fmt.Sprintf("Section Section %d", i+1),
			Content:    content,
			Order:      i,
		})
		require.NoError(t, err)
		created = append(created, sec)
	}
	return doc, created
}

func TestCreateAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, _ := addDocument(t, store, "Constitution", "Constitutional")
	assert.False(t, doc.ID.IsZero())
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Constitution", got.Title)
	assert.Equal(t, "Constitutional", got.Category)

	byFp, err := store.FindDocumentByFingerprint(ctx, doc.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, byFp.ID)
}

func TestGetDocument_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "999")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetDocument(ctx, "not-a-number")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.FindDocumentByFingerprint(ctx, 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateDocument_DuplicateFingerprint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &core.Document{Title: "Act", FullText: "Section 1", Fingerprint: core.FingerprintFromContent("Section 1")}
	_, err := store.CreateDocument(ctx, doc)
	require.NoError(t, err)

	_, err = store.CreateDocument(ctx, doc)
	assert.ErrorIs(t, err, storage.ErrDuplicateDocument)
}

func TestListDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, _ := addDocument(t, store, "Penal Code", "Criminal")
	second, _ := addDocument(t, store, "Contract Act", "Civil")
	third, _ := addDocument(t, store, "Criminal Procedure", "Criminal")

	docs, total, err := store.ListDocuments(ctx, storage.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, docs, 3)
	assert.Equal(t, []core.ID{third.ID, second.ID, first.ID}, []core.ID{docs[0].ID, docs[1].ID, docs[2].ID})

	docs, total, err = store.ListDocuments(ctx, storage.DocumentFilter{Category: "Criminal", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, docs, 1)
	assert.Equal(t, third.ID, docs[0].ID)

	docs, _, err = store.ListDocuments(ctx, storage.DocumentFilter{Category: "Criminal", Offset: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, first.ID, docs[0].ID)
}

func TestListSections_Ordered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, _ := addDocument(t, store, "Act", "Legal", "one", "two", "three")

	sections, err := store.ListSections(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	for i, sec := range sections {
		assert.Equal(t, i, sec.Order)
		assert.Equal(t, doc.ID, sec.DocumentID)
	}
	assert.Equal(t, "two", sections[1].Content)
}

func TestCreateSection_UnknownDocument(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateSection(context.Background(), &core.Section{DocumentID: "42", Content: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearchSections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, secs := addDocument(t, store, "Constitution", "Constitutional",
		"All citizens are equal before law.",
		"The courts shall be independent of the executive.",
		"Courts may grant bail to citizens.",
	)
	_, other := addDocument(t, store, "Bail Act", "Criminal", "Bail may be granted by courts.")

	t.Run("ranks by matching terms", func(t *testing.T) {
		results, err := store.SearchSections(ctx, "courts citizens", "", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, secs[2].ID, results[0].ID)
		assert.Len(t, results, 4)
	})

	t.Run("category filter", func(t *testing.T) {
		results, err := store.SearchSections(ctx, "bail", "Criminal", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, other[0].ID, results[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := store.SearchSections(ctx, "courts", "", 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("stop words only", func(t *testing.T) {
		results, err := store.SearchSections(ctx, "the of", "", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("case insensitive", func(t *testing.T) {
		results, err := store.SearchSections(ctx, "EXECUTIVE", "", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, secs[1].ID, results[0].ID)
	})
}

func TestVectors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, secs := addDocument(t, store, "Act", "Legal", "one", "two")

	vec, err := store.CreateVector(ctx, &core.Vector{SectionID: secs[0].ID, Components: []float32{0.1, 0.2}})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, vec.DocumentID)

	_, err = store.CreateVector(ctx, &core.Vector{SectionID: secs[0].ID, Components: []float32{0.3}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.CreateVector(ctx, &core.Vector{SectionID: secs[1].ID, Components: []float32{0.4, 0.5}})
	require.NoError(t, err)

	got, err := store.GetVectorBySection(ctx, secs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, got.Components)

	byID, err := store.GetVector(ctx, vec.ID)
	require.NoError(t, err)
	assert.Equal(t, secs[0].ID, byID.SectionID)

	all, err := store.ScanVectors(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := store.ScanVectors(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, vec.ID, one[0].ID)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, secs := addDocument(t, store, "Act", "Legal", "rights of citizens", "duties of citizens", "powers of courts")
	keep, keepSecs := addDocument(t, store, "Other", "Legal", "citizens elsewhere")
	for _, sec := range append(secs, keepSecs...) {
		_, err := store.CreateVector(ctx, &core.Vector{SectionID: sec.ID, Components: []float32{1, 0}})
		require.NoError(t, err)
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StoreStats{Documents: 2, Sections: 4, Vectors: 4}, stats)

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))

	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	for _, sec := range secs {
		_, err = store.GetSection(ctx, sec.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.GetVectorBySection(ctx, sec.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	_, err = store.FindDocumentByFingerprint(ctx, doc.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Documents)
	assert.Equal(t, int64(1), stats.Sections)
	assert.Equal(t, int64(1), stats.Vectors)

	results, err := store.SearchSections(ctx, "citizens", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, keep.ID, results[0].DocumentID)

	assert.ErrorIs(t, store.DeleteDocument(ctx, doc.ID), storage.ErrNotFound)
}

func TestQueryLogAndStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, mode := range []core.SearchMode{core.ModeText, core.ModeVector, core.ModeHybrid, core.ModeVector} {
		require.NoError(t, store.AppendQuery(ctx, core.QueryLogEntry{Query: "bail", Mode: mode}))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Queries)
	assert.Equal(t, int64(2), stats.AIQueries)
	assert.Equal(t, "badger", store.Kind())
}

func TestConcurrentAppendQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AppendQuery(ctx, core.QueryLogEntry{Query: fmt.Sprintf("q%d", i), Mode: core.ModeText}))
		}()
	}
	wg.Wait()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stats.Queries)
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir, false)
	require.NoError(t, err)
	doc, _ := addDocument(t, store, "Act", "Legal", "persisted text")
	require.NoError(t, store.Close())

	reopened, err := Open(dir, false)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Act", got.Title)

	next, _ := addDocument(t, reopened, "Second", "Legal")
	assert.NotEqual(t, doc.ID, next.ID)
}
