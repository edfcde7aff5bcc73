package rag

import (
	"errors"
	"fmt"
)

// Sentinel errors for the indexing and query pipelines.
var (
	// ErrEmptyContent is returned when a document has no indexable text.
	ErrEmptyContent = errors.New("document content is empty")

	// ErrNoRelevantChunks is returned when retrieval finds nothing above
	// the relevance threshold.
	ErrNoRelevantChunks = errors.New("no relevant chunks found")

	// ErrGeneratorNotReady is returned when the generation backend is
	// unreachable or unconfigured.
	ErrGeneratorNotReady = errors.New("generator is not ready")
)

// IndexingFailedError reports a failed indexing attempt. The same message
// is recorded on the document row, so callers and later readers see the
// identical failure.
type IndexingFailedError struct {
	DocumentID string
	Message    string
	Err        error
}

func (e *IndexingFailedError) Error() string {
	return fmt.Sprintf("indexing document %s failed: %s", e.DocumentID, e.Message)
}

func (e *IndexingFailedError) Unwrap() error {
	return e.Err
}

// GenerationError wraps a failure from the generation backend, keeping it
// distinguishable from retrieval failures.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate answer: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
