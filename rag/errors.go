package rag

import "errors"

var (
	// ErrSearcherRequired is returned when a synthesizer has no searcher.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrDocumentsRequired is returned when a synthesizer has no document repository.
	ErrDocumentsRequired = errors.New("document repository required")
)
