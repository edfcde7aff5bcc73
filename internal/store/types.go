// Package store provides durable vector storage and retrieval using SQLite.
package store

import "time"

// DocumentStatus tracks a document through the indexing pipeline.
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusIndexing DocumentStatus = "indexing"
	StatusIndexed  DocumentStatus = "indexed"
	StatusError    DocumentStatus = "error"
)

// Collection is a named group of documents and their vectors.
// DocumentCount and TotalChunks are computed by aggregation on every read,
// never stored, so they cannot drift from the underlying rows.
type Collection struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	DocumentCount int       `json:"document_count"`
	TotalChunks   int       `json:"total_chunks"`
}

// Document is a single indexed (or indexing) text within a collection.
type Document struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collection_id"`
	Title        string         `json:"title"`
	Status       DocumentStatus `json:"status"`
	ChunkCount   int            `json:"chunk_count"`
	IndexedAt    *time.Time     `json:"indexed_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	SourcePath   string         `json:"source_path,omitempty"` // Set when ingested from a file
	ContentHash  string         `json:"content_hash,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// DocumentInput carries the caller-supplied fields for a new document.
type DocumentInput struct {
	CollectionID string `json:"collection_id"`
	Title        string `json:"title"`
	SourcePath   string `json:"source_path,omitempty"`
	ContentHash  string `json:"content_hash,omitempty"`
}

// StoredVector is one embedded chunk persisted for retrieval.
type StoredVector struct {
	ID           string            `json:"id"`
	CollectionID string            `json:"collection_id"`
	DocumentID   string            `json:"document_id"`
	ChunkIndex   int               `json:"chunk_index"`
	Content      string            `json:"content"`
	Vector       []float64         `json:"vector"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SearchResult pairs a stored vector with its similarity to the query.
type SearchResult struct {
	Vector     StoredVector `json:"vector"`
	Similarity float64      `json:"similarity"`
}

// CollectionStats summarizes document states within a collection.
type CollectionStats struct {
	CollectionID   string `json:"collection_id"`
	CollectionName string `json:"collection_name"`
	DocumentCount  int    `json:"document_count"`
	IndexedCount   int    `json:"indexed_count"`
	PendingCount   int    `json:"pending_count"`
	ErrorCount     int    `json:"error_count"`
	TotalChunks    int    `json:"total_chunks"`
}
