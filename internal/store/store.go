package store

// Store defines the interface for vector storage operations.
type Store interface {
	// Collection management
	CreateCollection(name, description string) (*Collection, error)
	GetCollection(id string) (*Collection, error)
	GetCollectionByName(name string) (*Collection, error)
	GetCollections() ([]Collection, error)
	DeleteCollection(id string) error
	TouchCollection(id string) error

	// Document operations
	AddDocument(input DocumentInput) (*Document, error)
	GetDocument(id string) (*Document, error)
	GetDocumentBySourcePath(collectionID, sourcePath string) (*Document, error)
	GetDocuments(collectionID string) ([]Document, error)
	UpdateDocumentStatus(id string, status DocumentStatus) error
	MarkDocumentIndexed(id string, chunkCount int) error
	MarkDocumentError(id string, message string) error
	DeleteDocument(collectionID, documentID string) error

	// Vector operations
	StoreVector(v StoredVector) error
	StoreVectors(batch []StoredVector) error
	Search(queryVector []float64, collectionID string, topK int, minSimilarity float64) ([]SearchResult, error)

	// Stats
	GetCollectionStats(collectionID string) (*CollectionStats, error)

	// Maintenance
	Dimensions() int
	Close() error
}
