package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a document store is not provided.
	ErrStoreRequired = errors.New("document store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrPipelineRequired is returned when an importer has no pipeline.
	ErrPipelineRequired = errors.New("pipeline required")

	// ErrNoSections is returned when the text segments into nothing.
	ErrNoSections = errors.New("document produced no sections")
)
