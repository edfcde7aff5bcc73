package config

import (
	"os"
	"path/filepath"
)

// Default configuration values
const (
	// Embedding defaults
	DefaultEmbeddingProvider = "ollama"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultOllamaEmbedModel  = "nomic-embed-text"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"
	DefaultLanguage          = "en"
	DefaultMaxTextLength     = 8192
	DefaultMaxBatchSize      = 64

	// Chunking defaults
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	DefaultMinChunkSize = 50

	// Query defaults
	DefaultTopK         = 5
	DefaultMinRelevance = 0.0
	DefaultMaxTokens    = 1024
	DefaultTemperature  = 0.7

	// LLM defaults
	DefaultLLMProvider    = "ollama"
	DefaultOllamaLLMModel = "llama3.2"
	DefaultOpenAILLMModel = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-20241022"

	// Ingest defaults
	DefaultMaxFileSize     = 1 << 20 // 1MB
	DefaultMaxFileCount    = 10000
	DefaultWatchDebounceMs = 500

	// Database
	DefaultDBFileName = "recall.db"
)

// DefaultIngestExtensions returns the file extensions ingested by default.
func DefaultIngestExtensions() []string {
	return []string{
		".txt",
		".md",
		".markdown",
		".rst",
		".org",
		".adoc",
		".tex",
		".html",
		".htm",
		".csv",
		".json",
		".yaml",
		".yml",
		".xml",
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/recall"
	}
	return filepath.Join(home, ".config", "recall")
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/recall"
	}
	return filepath.Join(home, ".local", "share", "recall")
}

// DefaultDatabasePath returns the default database file path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultDataDir(), DefaultDBFileName)
}
