// Package embeddings converts text into fixed-dimension numeric vectors.
//
// The Engine routes each text to a per-language sentence model when one
// is registered, and falls back to averaging word-level vectors when the
// sentence model is missing or fails. Remote models (Ollama, OpenAI) and
// the local word-vector model all sit behind the same small interfaces.
package embeddings

import (
	"context"
	"fmt"
)

// Embedding is the result of embedding one text.
type Embedding struct {
	Text     string    `json:"text"`
	Vector   []float64 `json:"vector"`
	Language string    `json:"language"`
}

// SentenceModel embeds whole texts. EmbedQuery exists so models with
// asymmetric task prefixes (nomic-style) can treat queries differently
// from documents.
type SentenceModel interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
	Name() string
}

// WordModel provides vectors for individual words.
type WordModel interface {
	Vector(word string) ([]float64, bool)
	Dimensions() int
}

// Embedder is the capability the indexing and query pipelines consume.
type Embedder interface {
	Embed(ctx context.Context, text string) (*Embedding, error)
	EmbedQuery(ctx context.Context, text string) (*Embedding, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error)
	Dimensions() int
}

// TextTooLongError is returned when a text exceeds the engine's
// character limit.
type TextTooLongError struct {
	Length int
	Limit  int
}

func (e *TextTooLongError) Error() string {
	return fmt.Sprintf("text too long: %d characters exceeds limit of %d", e.Length, e.Limit)
}

// BatchTooLargeError is returned when a batch exceeds the engine's
// batch limit.
type BatchTooLargeError struct {
	Size  int
	Limit int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch too large: %d texts exceeds limit of %d", e.Size, e.Limit)
}

// EmbeddingFailedError is returned when every fallback for a text is
// exhausted.
type EmbeddingFailedError struct {
	Language string
	Reason   string
}

func (e *EmbeddingFailedError) Error() string {
	return fmt.Sprintf("embedding failed for language %q: %s", e.Language, e.Reason)
}

// modelDimensions maps known embedding models to their vector dimensions.
var modelDimensions = map[string]int{
	// Ollama models
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,

	// OpenAI models
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// GetModelDimensions returns the known dimensions for a model, or 0 if unknown.
func GetModelDimensions(model string) int {
	return modelDimensions[model]
}
