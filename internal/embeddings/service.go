package embeddings

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/recall-dev/recall/internal/config"
)

// NewFromConfig builds an embedding engine from the configuration. The
// configured provider becomes the sentence model for the configured
// language; a word-vector file, when set, is registered as the offline
// fallback for the same language.
func NewFromConfig(cfg *config.Config) (*Engine, error) {
	engine := NewEngine(Config{
		MaxTextLength:   cfg.Embeddings.MaxTextLength,
		MaxBatchSize:    cfg.Embeddings.MaxBatchSize,
		DefaultLanguage: cfg.Embeddings.Language,
		AutoDetect:      cfg.Embeddings.AutoDetect,
	})

	lang := cfg.Embeddings.Language
	if lang == "" {
		lang = config.DefaultLanguage
	}

	switch cfg.Embeddings.Provider {
	case "ollama":
		engine.RegisterSentenceModel(lang, NewOllamaModel(
			cfg.Embeddings.Ollama.URL,
			cfg.Embeddings.Ollama.Model,
		))
	case "openai":
		m, err := NewOpenAIModel(
			cfg.Embeddings.OpenAI.APIKey,
			cfg.Embeddings.OpenAI.Model,
			cfg.Embeddings.OpenAI.BaseURL,
			cfg.Embeddings.OpenAI.Dimensions,
		)
		if err != nil {
			return nil, err
		}
		engine.RegisterSentenceModel(lang, m)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embeddings.Provider)
	}

	if cfg.Embeddings.WordVectors != "" {
		words, err := LoadWordVectors(cfg.Embeddings.WordVectors)
		if err != nil {
			return nil, fmt.Errorf("failed to load word vectors: %w", err)
		}
		engine.RegisterWordModel(lang, words)
		log.Debug("loaded word vectors", "path", cfg.Embeddings.WordVectors, "words", words.Size())
	}

	return engine, nil
}

// ModelName returns the configured embedding model name for display.
func ModelName(cfg *config.Config) string {
	switch cfg.Embeddings.Provider {
	case "openai":
		return cfg.Embeddings.OpenAI.Model
	default:
		return cfg.Embeddings.Ollama.Model
	}
}
