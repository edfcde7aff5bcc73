package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound is returned when a collection ID or name does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when creating a collection whose name is already taken.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrDocumentNotFound is returned when a document ID does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

// DimensionMismatchError is returned when a vector's length does not match
// the store's pinned dimension. Nothing has been written when it is raised.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
