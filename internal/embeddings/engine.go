package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/recall-dev/recall/internal/vector"
)

// Config controls engine limits and language handling.
type Config struct {
	// MaxTextLength is the per-text character limit.
	MaxTextLength int
	// MaxBatchSize is the per-batch text limit.
	MaxBatchSize int
	// DefaultLanguage is the pinned language when AutoDetect is off and
	// the fallback when detection fails or no model covers the detected
	// language.
	DefaultLanguage string
	// AutoDetect enables dominant-language detection per text.
	AutoDetect bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxTextLength:   8192,
		MaxBatchSize:    64,
		DefaultLanguage: "en",
		AutoDetect:      true,
	}
}

// Engine converts text into vectors, routing each text to the models
// registered for its language.
type Engine struct {
	cfg Config

	mu             sync.RWMutex
	sentenceModels map[string]SentenceModel
	wordModels     map[string]WordModel
	dims           int
}

// NewEngine creates an engine with no models registered. Zero config
// fields fall back to DefaultConfig values.
func NewEngine(cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = defaults.MaxTextLength
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaults.MaxBatchSize
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = defaults.DefaultLanguage
	}

	return &Engine{
		cfg:            cfg,
		sentenceModels: make(map[string]SentenceModel),
		wordModels:     make(map[string]WordModel),
	}
}

// RegisterSentenceModel routes texts in the given ISO 639-1 language to
// the model. The first registered model pins the engine's dimensions.
func (e *Engine) RegisterSentenceModel(language string, m SentenceModel) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sentenceModels[language] = m
	if e.dims == 0 {
		e.dims = m.Dimensions()
	}
	log.Debug("registered sentence model", "language", language, "model", m.Name(), "dimensions", m.Dimensions())
}

// RegisterWordModel registers a word-vector fallback for a language.
func (e *Engine) RegisterWordModel(language string, m WordModel) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wordModels[language] = m
	if e.dims == 0 {
		e.dims = m.Dimensions()
	}
	log.Debug("registered word model", "language", language, "dimensions", m.Dimensions())
}

// Dimensions returns the dimensions pinned by the first registered
// model, or 0 when no model is registered.
func (e *Engine) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// Embed converts a document text into an embedding.
func (e *Engine) Embed(ctx context.Context, text string) (*Embedding, error) {
	return e.embed(ctx, text, false)
}

// EmbedQuery converts a query text into an embedding. Sentence models
// may apply a query-specific task prefix.
func (e *Engine) EmbedQuery(ctx context.Context, text string) (*Embedding, error) {
	return e.embed(ctx, text, true)
}

// EmbedBatch embeds texts in order. A failure on any text fails the
// whole batch.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > e.cfg.MaxBatchSize {
		return nil, &BatchTooLargeError{Size: len(texts), Limit: e.cfg.MaxBatchSize}
	}

	results := make([]*Embedding, 0, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.embed(ctx, text, false)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results = append(results, emb)
	}
	return results, nil
}

func (e *Engine) embed(ctx context.Context, text string, query bool) (*Embedding, error) {
	length := len([]rune(text))
	if length > e.cfg.MaxTextLength {
		return nil, &TextTooLongError{Length: length, Limit: e.cfg.MaxTextLength}
	}

	lang := e.resolveLanguage(text)

	e.mu.RLock()
	sentence := e.sentenceModels[lang]
	words := e.wordModels[lang]
	e.mu.RUnlock()

	// A language with no coverage at all falls back to the default
	// language before giving up.
	if sentence == nil && words == nil && lang != e.cfg.DefaultLanguage {
		lang = e.cfg.DefaultLanguage
		e.mu.RLock()
		sentence = e.sentenceModels[lang]
		words = e.wordModels[lang]
		e.mu.RUnlock()
	}

	if sentence != nil {
		var vec []float64
		var err error
		if query {
			vec, err = sentence.EmbedQuery(ctx, text)
		} else {
			vec, err = sentence.Embed(ctx, text)
		}
		if err == nil {
			return &Embedding{Text: text, Vector: vec, Language: lang}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Debug("sentence model failed, trying word vectors", "language", lang, "model", sentence.Name(), "error", err)
	}

	if words == nil {
		return nil, &EmbeddingFailedError{Language: lang, Reason: "no usable model registered"}
	}

	vec, err := e.averageWordVectors(words, text)
	if err != nil {
		return nil, &EmbeddingFailedError{Language: lang, Reason: err.Error()}
	}
	return &Embedding{Text: text, Vector: vec, Language: lang}, nil
}

// averageWordVectors embeds text as the mean of its known word vectors.
// Tokens without a vector are skipped; if none match, the whole trimmed
// text is tried as a single token.
func (e *Engine) averageWordVectors(words WordModel, text string) ([]float64, error) {
	var vecs [][]float64
	for _, token := range tokenize(text) {
		if v, ok := words.Vector(token); ok {
			vecs = append(vecs, v)
		}
	}

	if len(vecs) == 0 {
		whole := strings.ToLower(strings.TrimSpace(text))
		if v, ok := words.Vector(whole); ok {
			vecs = append(vecs, v)
		}
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no word vectors matched")
	}

	return vector.AverageVectors(vecs)
}

func (e *Engine) resolveLanguage(text string) string {
	if !e.cfg.AutoDetect {
		return e.cfg.DefaultLanguage
	}
	if lang, ok := DetectLanguage(text); ok {
		return lang
	}
	return e.cfg.DefaultLanguage
}
