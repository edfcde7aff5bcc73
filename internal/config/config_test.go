package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)

	// Embeddings defaults
	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embeddings.Provider)
	assert.Equal(t, DefaultLanguage, cfg.Embeddings.Language)
	assert.True(t, cfg.Embeddings.AutoDetect)
	assert.Equal(t, DefaultMaxTextLength, cfg.Embeddings.MaxTextLength)
	assert.Equal(t, DefaultMaxBatchSize, cfg.Embeddings.MaxBatchSize)
	assert.Equal(t, DefaultOllamaURL, cfg.Embeddings.Ollama.URL)
	assert.Equal(t, DefaultOllamaEmbedModel, cfg.Embeddings.Ollama.Model)
	assert.Equal(t, DefaultOpenAIEmbedModel, cfg.Embeddings.OpenAI.Model)

	// Chunking defaults
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, DefaultMinChunkSize, cfg.Chunking.MinChunkSize)
	assert.True(t, cfg.Chunking.RespectSentences)

	// Query defaults
	assert.Equal(t, DefaultTopK, cfg.Query.TopK)
	assert.Equal(t, 0.0, cfg.Query.MinRelevance)
	assert.Equal(t, DefaultMaxTokens, cfg.Query.MaxTokens)
	assert.Equal(t, 0.7, cfg.Query.Temperature)

	// LLM defaults
	assert.Equal(t, DefaultLLMProvider, cfg.LLM.Provider)
	assert.Equal(t, DefaultOllamaLLMModel, cfg.LLM.Ollama.Model)
	assert.Equal(t, DefaultOpenAILLMModel, cfg.LLM.OpenAI.Model)
	assert.Equal(t, DefaultAnthropicModel, cfg.LLM.Anthropic.Model)

	// Ingest defaults
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Ingest.MaxFileSize)
	assert.Equal(t, DefaultMaxFileCount, cfg.Ingest.MaxFileCount)
	assert.Equal(t, DefaultWatchDebounceMs, cfg.Ingest.DebounceMs)
	assert.NotEmpty(t, cfg.Ingest.Extensions)
}

func TestDefaultIngestExtensions(t *testing.T) {
	exts := DefaultIngestExtensions()

	assert.NotEmpty(t, exts)

	// Check for common document formats
	expectedExts := []string{
		".txt",
		".md",
		".rst",
		".html",
		".csv",
		".yaml",
	}

	for _, expected := range expectedExts {
		assert.Contains(t, exts, expected, "Expected extension %s not found", expected)
	}
}

func TestDefaultPaths(t *testing.T) {
	configDir := DefaultConfigDir()
	dataDir := DefaultDataDir()
	dbPath := DefaultDatabasePath()

	assert.NotEmpty(t, configDir)
	assert.NotEmpty(t, dataDir)
	assert.NotEmpty(t, dbPath)

	// Should contain "recall"
	assert.Contains(t, configDir, "recall")
	assert.Contains(t, dataDir, "recall")
	assert.Contains(t, dbPath, "recall.db")
}

func TestLoadWithConfigFile(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  path: /custom/path/recall.db
embeddings:
  provider: openai
  language: de
  auto_detect: false
  ollama:
    url: http://custom:11434
    model: custom-model
  openai:
    model: text-embedding-3-large
    base_url: https://custom-api.example.com
chunking:
  chunk_size: 1000
  chunk_overlap: 100
  respect_sentences: false
query:
  top_k: 8
  min_relevance: 0.25
llm:
  provider: anthropic
  anthropic:
    model: claude-3-opus-20240229
ingest:
  max_file_size: 2097152
  extensions:
    - ".txt"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Load the config
	err = Load(configPath)
	require.NoError(t, err)

	loadedCfg := Get()

	// Verify loaded values
	assert.Equal(t, "/custom/path/recall.db", loadedCfg.Database.Path)
	assert.Equal(t, "openai", loadedCfg.Embeddings.Provider)
	assert.Equal(t, "de", loadedCfg.Embeddings.Language)
	assert.False(t, loadedCfg.Embeddings.AutoDetect)
	assert.Equal(t, "http://custom:11434", loadedCfg.Embeddings.Ollama.URL)
	assert.Equal(t, "custom-model", loadedCfg.Embeddings.Ollama.Model)
	assert.Equal(t, "text-embedding-3-large", loadedCfg.Embeddings.OpenAI.Model)
	assert.Equal(t, "https://custom-api.example.com", loadedCfg.Embeddings.OpenAI.BaseURL)
	assert.Equal(t, 1000, loadedCfg.Chunking.ChunkSize)
	assert.Equal(t, 100, loadedCfg.Chunking.ChunkOverlap)
	assert.False(t, loadedCfg.Chunking.RespectSentences)
	assert.Equal(t, 8, loadedCfg.Query.TopK)
	assert.Equal(t, 0.25, loadedCfg.Query.MinRelevance)
	assert.Equal(t, "anthropic", loadedCfg.LLM.Provider)
	assert.Equal(t, "claude-3-opus-20240229", loadedCfg.LLM.Anthropic.Model)
	assert.Equal(t, int64(2097152), loadedCfg.Ingest.MaxFileSize)
	assert.Equal(t, []string{".txt"}, loadedCfg.Ingest.Extensions)

	// Unset sections keep defaults
	assert.Equal(t, DefaultMinChunkSize, loadedCfg.Chunking.MinChunkSize)
	assert.Equal(t, DefaultMaxTokens, loadedCfg.Query.MaxTokens)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Set environment variables
	t.Setenv("RECALL_EMBEDDINGS_PROVIDER", "openai")
	t.Setenv("RECALL_LLM_PROVIDER", "anthropic")
	t.Setenv("OPENAI_API_KEY", "test-api-key")
	t.Setenv("ANTHROPIC_API_KEY", "test-anthropic-key")

	// Load without a config file
	err := Load("")
	require.NoError(t, err)

	loadedCfg := Get()

	// Verify environment variables are loaded
	assert.Equal(t, "openai", loadedCfg.Embeddings.Provider)
	assert.Equal(t, "anthropic", loadedCfg.LLM.Provider)
	assert.Equal(t, "test-api-key", loadedCfg.Embeddings.OpenAI.APIKey)
	assert.Equal(t, "test-api-key", loadedCfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "test-anthropic-key", loadedCfg.LLM.Anthropic.APIKey)
}

func TestLoadMissingConfigFile(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Load with non-existent config file - should not error, just use defaults
	err := Load("")
	require.NoError(t, err)

	loadedCfg := Get()

	// Should have default values
	assert.Equal(t, DefaultEmbeddingProvider, loadedCfg.Embeddings.Provider)
	assert.Equal(t, DefaultLLMProvider, loadedCfg.LLM.Provider)
	assert.Equal(t, DefaultTopK, loadedCfg.Query.TopK)
}

func TestGet(t *testing.T) {
	// Reset global config
	cfg = nil

	// First call should return default config
	c1 := Get()
	assert.NotNil(t, c1)

	// Subsequent call should return same instance
	c2 := Get()
	assert.Same(t, c1, c2)
}

func TestGlobalConfigPath(t *testing.T) {
	path := GlobalConfigPath()
	assert.Contains(t, path, "recall")
	assert.Contains(t, path, "config.yaml")
}
