// Package rag orchestrates document indexing and retrieval over the
// vector store.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/recall-dev/recall/internal/chunker"
	"github.com/recall-dev/recall/internal/embeddings"
	"github.com/recall-dev/recall/internal/store"
)

// Phase identifies a step of the indexing pipeline.
type Phase string

const (
	PhaseChunking  Phase = "chunking"
	PhaseEmbedding Phase = "embedding"
	PhaseStoring   Phase = "storing"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

// Progress reports indexing progress for a single document. CurrentChunk
// never decreases within one indexing attempt.
type Progress struct {
	DocumentID   string
	CurrentChunk int
	TotalChunks  int
	Phase        Phase
}

// ProgressFunc is called to report progress during indexing.
type ProgressFunc func(Progress)

// SourceChunk is one retrieved chunk with its provenance.
type SourceChunk struct {
	Content       string  `json:"content"`
	Relevance     float64 `json:"relevance"`
	ChunkIndex    int     `json:"chunk_index"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
}

// Manager runs the chunk-embed-store pipeline and serves retrieval. It
// depends on the narrow Chunker and Embedder interfaces so the pipeline
// is testable with fakes.
type Manager struct {
	store    store.Store
	chunker  chunker.Chunker
	embedder embeddings.Embedder
}

// NewManager creates a Manager.
func NewManager(st store.Store, ch chunker.Chunker, emb embeddings.Embedder) *Manager {
	return &Manager{
		store:    st,
		chunker:  ch,
		embedder: emb,
	}
}

// CreateCollection creates a named collection.
func (m *Manager) CreateCollection(name, description string) (*store.Collection, error) {
	return m.store.CreateCollection(name, description)
}

// GetCollection returns a collection by ID.
func (m *Manager) GetCollection(id string) (*store.Collection, error) {
	return m.store.GetCollection(id)
}

// GetCollectionByName returns a collection by its unique name.
func (m *Manager) GetCollectionByName(name string) (*store.Collection, error) {
	return m.store.GetCollectionByName(name)
}

// ListCollections returns all collections.
func (m *Manager) ListCollections() ([]store.Collection, error) {
	return m.store.GetCollections()
}

// DeleteCollection removes a collection and everything under it.
func (m *Manager) DeleteCollection(id string) error {
	return m.store.DeleteCollection(id)
}

// GetDocument returns a document by ID.
func (m *Manager) GetDocument(id string) (*store.Document, error) {
	return m.store.GetDocument(id)
}

// GetDocuments returns all documents in a collection.
func (m *Manager) GetDocuments(collectionID string) ([]store.Document, error) {
	return m.store.GetDocuments(collectionID)
}

// DeleteDocument removes a document and its vectors.
func (m *Manager) DeleteDocument(collectionID, documentID string) error {
	return m.store.DeleteDocument(collectionID, documentID)
}

// GetCollectionStats returns per-status document counts for a collection.
func (m *Manager) GetCollectionStats(collectionID string) (*store.CollectionStats, error) {
	return m.store.GetCollectionStats(collectionID)
}

// IsFullyIndexed reports whether every document in the collection has
// reached the Indexed state.
func (m *Manager) IsFullyIndexed(collectionID string) (bool, error) {
	stats, err := m.store.GetCollectionStats(collectionID)
	if err != nil {
		return false, err
	}
	return stats.IndexedCount == stats.DocumentCount, nil
}

// IndexDocument chunks, embeds, and stores content as a new document in
// the collection. The document moves Pending -> Indexing -> Indexed, or
// to Error with the failure message recorded on the row. Empty content
// fails before any row is created.
func (m *Manager) IndexDocument(ctx context.Context, collectionID, title, content string, metadata map[string]string, onProgress ProgressFunc) (*store.Document, error) {
	input := store.DocumentInput{
		CollectionID: collectionID,
		Title:        title,
	}
	return m.IndexDocumentFromInput(ctx, input, content, metadata, onProgress)
}

// IndexDocumentFromInput is IndexDocument with caller-supplied source
// fields, used by file ingestion to record the path and content hash.
func (m *Manager) IndexDocumentFromInput(ctx context.Context, input store.DocumentInput, content string, metadata map[string]string, onProgress ProgressFunc) (*store.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	doc, err := m.store.AddDocument(input)
	if err != nil {
		return nil, fmt.Errorf("failed to add document: %w", err)
	}

	return m.runPipeline(ctx, doc, content, metadata, onProgress)
}

// ReindexDocument deletes a document's vectors and runs a fresh indexing
// attempt with the given content, keeping the document's title and
// source fields. The old document row is replaced.
func (m *Manager) ReindexDocument(ctx context.Context, collectionID, documentID, content string, metadata map[string]string, onProgress ProgressFunc) (*store.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	old, err := m.store.GetDocument(documentID)
	if err != nil {
		return nil, err
	}

	if err := m.store.DeleteDocument(collectionID, documentID); err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}

	input := store.DocumentInput{
		CollectionID: collectionID,
		Title:        old.Title,
		SourcePath:   old.SourcePath,
		ContentHash:  old.ContentHash,
	}
	return m.IndexDocumentFromInput(ctx, input, content, metadata, onProgress)
}

// runPipeline drives one document through chunking, embedding, and
// storage. Cancellation is checked before each step and between chunks;
// any failure past document creation marks the document Error so it is
// never left in Indexing.
func (m *Manager) runPipeline(ctx context.Context, doc *store.Document, content string, metadata map[string]string, onProgress ProgressFunc) (*store.Document, error) {
	fail := func(message string, cause error, current, total int) (*store.Document, error) {
		if err := m.store.MarkDocumentError(doc.ID, message); err != nil {
			log.Warn("Failed to record document error", "document", doc.ID, "error", err)
		}
		report(onProgress, Progress{DocumentID: doc.ID, CurrentChunk: current, TotalChunks: total, Phase: PhaseFailed})
		return nil, &IndexingFailedError{DocumentID: doc.ID, Message: message, Err: cause}
	}

	if err := m.store.UpdateDocumentStatus(doc.ID, store.StatusIndexing); err != nil {
		return fail(fmt.Sprintf("failed to update status: %v", err), err, 0, 0)
	}

	if err := ctx.Err(); err != nil {
		return fail("indexing cancelled", err, 0, 0)
	}

	report(onProgress, Progress{DocumentID: doc.ID, Phase: PhaseChunking})

	chunks := m.chunker.Chunk(content, metadata)
	if len(chunks) == 0 {
		return fail("no chunks produced from content", nil, 0, 0)
	}

	vectors := make([]store.StoredVector, 0, len(chunks))
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return fail("indexing cancelled", err, i, len(chunks))
		}

		emb, err := m.embedder.Embed(ctx, ch.Content)
		if err != nil {
			return fail(fmt.Sprintf("failed to embed chunk %d: %v", ch.Index, err), err, i, len(chunks))
		}

		vectors = append(vectors, store.StoredVector{
			CollectionID: doc.CollectionID,
			DocumentID:   doc.ID,
			ChunkIndex:   ch.Index,
			Content:      ch.Content,
			Vector:       emb.Vector,
			Metadata:     ch.Metadata,
		})

		report(onProgress, Progress{DocumentID: doc.ID, CurrentChunk: i + 1, TotalChunks: len(chunks), Phase: PhaseEmbedding})
	}

	if err := ctx.Err(); err != nil {
		return fail("indexing cancelled", err, len(chunks), len(chunks))
	}

	report(onProgress, Progress{DocumentID: doc.ID, CurrentChunk: len(chunks), TotalChunks: len(chunks), Phase: PhaseStoring})

	if err := m.store.StoreVectors(vectors); err != nil {
		return fail(fmt.Sprintf("failed to store vectors: %v", err), err, len(chunks), len(chunks))
	}

	if err := m.store.MarkDocumentIndexed(doc.ID, len(chunks)); err != nil {
		return fail(fmt.Sprintf("failed to mark document indexed: %v", err), err, len(chunks), len(chunks))
	}

	report(onProgress, Progress{DocumentID: doc.ID, CurrentChunk: len(chunks), TotalChunks: len(chunks), Phase: PhaseComplete})

	log.Debug("Indexed document", "document", doc.ID, "title", doc.Title, "chunks", len(chunks))

	indexed, err := m.store.GetDocument(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload document: %w", err)
	}
	return indexed, nil
}

// Search embeds the query and returns the most relevant chunks from the
// collection, most relevant first, with document titles attached.
func (m *Manager) Search(ctx context.Context, query, collectionID string, topK int, minRelevance float64) ([]SourceChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	log.Debug("Generating query embedding", "query", truncate(query, 50))
	emb, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if topK <= 0 {
		topK = 5
	}

	results, err := m.store.Search(emb.Vector, collectionID, topK, minRelevance)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	// Resolve document titles once per document
	titles := make(map[string]string)
	sources := make([]SourceChunk, 0, len(results))
	for _, r := range results {
		title, ok := titles[r.Vector.DocumentID]
		if !ok {
			if doc, err := m.store.GetDocument(r.Vector.DocumentID); err == nil {
				title = doc.Title
			}
			titles[r.Vector.DocumentID] = title
		}

		sources = append(sources, SourceChunk{
			Content:       r.Vector.Content,
			Relevance:     r.Similarity,
			ChunkIndex:    r.Vector.ChunkIndex,
			DocumentID:    r.Vector.DocumentID,
			DocumentTitle: title,
		})
	}

	log.Debug("Search complete", "results", len(sources))
	return sources, nil
}

// report invokes the progress callback when one is set.
func report(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

// truncate shortens a string for display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
