package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/codex/ai"
	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
)

// embeddingProcessor writes each section and then its vector.
// Sections are embedded one at a time.
type embeddingProcessor struct {
	store    storage.DocumentStore
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(store storage.DocumentStore, embedder ai.Embedder, logger *slog.Logger) (processor, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		store:    store,
		embedder: embedder,
		logger:   logger.With("processor", "embeddings"),
	}, nil
}

// process stores and embeds the drafts in order.
func (ep *embeddingProcessor) process(ctx context.Context, doc *core.Document, drafts []core.SectionDraft) (int, error) {
	ep.logger.Debug("processing sections for embeddings", "document", doc.ID, "sections", len(drafts))

	for i, draft := range drafts {
		sec, err := ep.store.CreateSection(ctx, &core.Section{
			DocumentID: doc.ID,
			Label:      draft.Label,
			Title:      draft.Title,
			Content:    draft.Content,
			Order:      draft.Order,
		})
		if err != nil {
			return i, fmt.Errorf("storing section %q: %w", draft.Label, err)
		}

		components, err := ep.embedder.EmbedText(ctx, draft.Content)
		if err != nil {
			return i, fmt.Errorf("embedding section %q: %w", draft.Label, err)
		}

		if _, err := ep.store.CreateVector(ctx, &core.Vector{
			SectionID:  sec.ID,
			DocumentID: doc.ID,
			Components: components,
		}); err != nil {
			return i, fmt.Errorf("storing vector for section %q: %w", draft.Label, err)
		}
	}

	return len(drafts), nil
}
