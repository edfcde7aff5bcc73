package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/recall-dev/recall/internal/vector"
)

const metaKeyDimensions = "vector_dimensions"

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db         *sql.DB
	mu         sync.RWMutex
	dimensions int
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if necessary) a SQLite store at the given path.
// The first open pins the vector dimension for the lifetime of the store
// file; later opens must pass the same value, or 0 to adopt the persisted
// one.
func Open(dbPath string, dimensions int) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with foreign keys enabled
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize schema
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.resolveDimensions(dimensions); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Opened SQLite store", "path", dbPath, "dimensions", s.dimensions)

	return s, nil
}

// resolveDimensions pins the vector dimension on first open and validates it
// on subsequent opens.
func (s *SQLiteStore) resolveDimensions(requested int) error {
	var value string
	err := s.db.QueryRow("SELECT value FROM engine_meta WHERE key = ?", metaKeyDimensions).Scan(&value)
	if err == sql.ErrNoRows {
		if requested <= 0 {
			return fmt.Errorf("vector dimensions must be positive for a new store, got %d", requested)
		}
		if _, err := s.db.Exec("INSERT INTO engine_meta (key, value) VALUES (?, ?)", metaKeyDimensions, strconv.Itoa(requested)); err != nil {
			return fmt.Errorf("failed to persist vector dimensions: %w", err)
		}
		s.dimensions = requested
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read vector dimensions: %w", err)
	}

	stored, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("corrupt vector dimensions %q: %w", value, err)
	}
	if requested > 0 && requested != stored {
		return fmt.Errorf("store holds %d-dimensional vectors, requested %d", stored, requested)
	}
	s.dimensions = stored
	return nil
}

// Dimensions returns the pinned vector dimension.
func (s *SQLiteStore) Dimensions() int {
	return s.dimensions
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateCollection creates a new named collection.
func (s *SQLiteStore) CreateCollection(name, description string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err := s.db.QueryRow("SELECT id FROM collections WHERE name = ?", name).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check collection name: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO collections (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339, now)
	return &Collection{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

const collectionSelect = `
	SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM documents d WHERE d.collection_id = c.id),
		(SELECT COUNT(*) FROM vectors v WHERE v.collection_id = c.id)
	FROM collections c
`

// GetCollection retrieves a collection by ID. Document and chunk counts are
// aggregated at read time.
func (s *SQLiteStore) GetCollection(id string) (*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanCollection(s.db.QueryRow(collectionSelect+"WHERE c.id = ?", id))
}

// GetCollectionByName retrieves a collection by its unique name.
func (s *SQLiteStore) GetCollectionByName(name string) (*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanCollection(s.db.QueryRow(collectionSelect+"WHERE c.name = ?", name))
}

func scanCollection(row *sql.Row) (*Collection, error) {
	var c Collection
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.Name, &c.Description, &createdAt, &updatedAt, &c.DocumentCount, &c.TotalChunks)
	if err == sql.ErrNoRows {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// GetCollections returns all collections ordered by name.
func (s *SQLiteStore) GetCollections() ([]Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(collectionSelect + "ORDER BY c.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		var createdAt, updatedAt string

		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &createdAt, &updatedAt, &c.DocumentCount, &c.TotalChunks); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}

		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		collections = append(collections, c)
	}

	return collections, rows.Err()
}

// DeleteCollection deletes a collection; its documents and vectors cascade.
func (s *SQLiteStore) DeleteCollection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

// TouchCollection updates the collection's updated_at timestamp.
func (s *SQLiteStore) TouchCollection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec("UPDATE collections SET updated_at = ? WHERE id = ?", now, id)
	if err != nil {
		return fmt.Errorf("failed to update collection timestamp: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

// AddDocument creates a document row with status pending.
func (s *SQLiteStore) AddDocument(input DocumentInput) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRow("SELECT 1 FROM collections WHERE id = ?", input.CollectionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO documents (id, collection_id, title, status, chunk_count, source_path, content_hash, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
	`, id, input.CollectionID, input.Title, string(StatusPending), input.SourcePath, input.ContentHash, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add document: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339, now)
	return &Document{
		ID:           id,
		CollectionID: input.CollectionID,
		Title:        input.Title,
		Status:       StatusPending,
		SourcePath:   input.SourcePath,
		ContentHash:  input.ContentHash,
		CreatedAt:    createdAt,
	}, nil
}

const documentSelect = `
	SELECT id, collection_id, title, status, chunk_count, indexed_at, error_message, source_path, content_hash, created_at
	FROM documents
`

func scanDocument(scan func(dest ...any) error) (*Document, error) {
	var d Document
	var status string
	var indexedAt sql.NullString
	var createdAt string

	if err := scan(
		&d.ID, &d.CollectionID, &d.Title, &status, &d.ChunkCount,
		&indexedAt, &d.ErrorMessage, &d.SourcePath, &d.ContentHash, &createdAt,
	); err != nil {
		return nil, err
	}

	d.Status = DocumentStatus(status)
	if indexedAt.Valid {
		t, _ := time.Parse(time.RFC3339, indexedAt.String)
		d.IndexedAt = &t
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &d, nil
}

// GetDocument retrieves a document by ID.
func (s *SQLiteStore) GetDocument(id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(documentSelect+"WHERE id = ?", id)
	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// GetDocumentBySourcePath retrieves the document ingested from a source file.
func (s *SQLiteStore) GetDocumentBySourcePath(collectionID, sourcePath string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(documentSelect+"WHERE collection_id = ? AND source_path = ?", collectionID, sourcePath)
	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by source path: %w", err)
	}
	return doc, nil
}

// GetDocuments returns all documents in a collection in insertion order.
// A missing collection yields an empty list, matching what a cascade delete
// leaves behind.
func (s *SQLiteStore) GetDocuments(collectionID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(documentSelect+"WHERE collection_id = ? ORDER BY rowid", collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

// UpdateDocumentStatus sets a document's status.
func (s *SQLiteStore) UpdateDocumentStatus(id string, status DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("UPDATE documents SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// MarkDocumentIndexed transitions a document to indexed with its final chunk count.
func (s *SQLiteStore) MarkDocumentIndexed(id string, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(`
		UPDATE documents SET status = ?, chunk_count = ?, indexed_at = ?, error_message = ''
		WHERE id = ?
	`, string(StatusIndexed), chunkCount, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// MarkDocumentError transitions a document to error with a message.
func (s *SQLiteStore) MarkDocumentError(id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE documents SET status = ?, error_message = ?
		WHERE id = ?
	`, string(StatusError), message, id)
	if err != nil {
		return fmt.Errorf("failed to mark document errored: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// DeleteDocument deletes a document; its vectors cascade.
func (s *SQLiteStore) DeleteDocument(collectionID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM documents WHERE id = ? AND collection_id = ?", documentID, collectionID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// StoreVector persists a single vector. Validation happens before any write.
func (s *SQLiteStore) StoreVector(v StoredVector) error {
	return s.StoreVectors([]StoredVector{v})
}

// StoreVectors persists a batch of vectors in a single transaction. If any
// element fails validation or insertion, the whole batch is rolled back.
func (s *SQLiteStore) StoreVectors(batch []StoredVector) error {
	if len(batch) == 0 {
		return nil
	}

	// Validate every vector before touching the database.
	for _, v := range batch {
		if len(v.Vector) != s.dimensions {
			return &DimensionMismatchError{Expected: s.dimensions, Got: len(v.Vector)}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, v := range batch {
		id := v.ID
		if id == "" {
			id = uuid.NewString()
		}

		var metadata any
		if len(v.Metadata) > 0 {
			data, err := json.Marshal(v.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata for vector %d: %w", i, err)
			}
			metadata = string(data)
		}

		_, err = tx.Exec(`
			INSERT INTO vectors (id, collection_id, document_id, chunk_index, content, vector, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, v.CollectionID, v.DocumentID, v.ChunkIndex, v.Content, serializeVector(v.Vector), metadata, now)
		if err != nil {
			return fmt.Errorf("failed to insert vector %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Search scans the collection's vectors, computes cosine similarity against
// the query, filters by minSimilarity, and returns the topK best matches in
// descending order. Equal similarities preserve insertion order.
func (s *SQLiteStore) Search(queryVector []float64, collectionID string, topK int, minSimilarity float64) ([]SearchResult, error) {
	if len(queryVector) != s.dimensions {
		return nil, &DimensionMismatchError{Expected: s.dimensions, Got: len(queryVector)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRow("SELECT 1 FROM collections WHERE id = ?", collectionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, collection_id, document_id, chunk_index, content, vector, metadata, created_at
		FROM vectors WHERE collection_id = ? ORDER BY rowid
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		v, err := scanStoredVector(rows)
		if err != nil {
			return nil, err
		}

		similarity := vector.CosineSimilarity(queryVector, v.Vector)
		if similarity < minSimilarity {
			continue
		}

		results = append(results, SearchResult{Vector: *v, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}

	// Candidates arrive in insertion order; the stable sort keeps that
	// order for equal similarities.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func scanStoredVector(rows *sql.Rows) (*StoredVector, error) {
	var v StoredVector
	var blob []byte
	var metadata sql.NullString
	var createdAt string

	if err := rows.Scan(
		&v.ID, &v.CollectionID, &v.DocumentID, &v.ChunkIndex,
		&v.Content, &blob, &metadata, &createdAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan vector: %w", err)
	}

	vec, err := deserializeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vector %s: %w", v.ID, err)
	}
	v.Vector = vec

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &v.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for vector %s: %w", v.ID, err)
		}
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &v, nil
}

// GetCollectionStats returns document status counts for a collection.
func (s *SQLiteStore) GetCollectionStats(collectionID string) (*CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats CollectionStats
	stats.CollectionID = collectionID

	err := s.db.QueryRow("SELECT name FROM collections WHERE id = ?", collectionID).Scan(&stats.CollectionName)
	if err == sql.ErrNoRows {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection name: %w", err)
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'indexed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('pending', 'indexing') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)
		FROM documents WHERE collection_id = ?
	`, collectionID).Scan(&stats.DocumentCount, &stats.IndexedCount, &stats.PendingCount, &stats.ErrorCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get document stats: %w", err)
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM vectors WHERE collection_id = ?", collectionID).Scan(&stats.TotalChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk count: %w", err)
	}

	return &stats, nil
}

// serializeVector converts a float64 slice to little-endian bytes.
// The encoding is bit-exact so vectors round-trip with no precision loss.
func serializeVector(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// deserializeVector decodes a vector blob written by serializeVector.
func deserializeVector(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("corrupt vector blob: %d bytes", len(blob))
	}
	vec := make([]float64, len(blob)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vec, nil
}
