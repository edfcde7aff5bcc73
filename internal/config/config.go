// Package config handles configuration loading and validation for recall.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config represents the complete recall configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Query      QueryConfig      `mapstructure:"query"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EmbeddingsConfig configures the embedding engine.
type EmbeddingsConfig struct {
	Provider      string            `mapstructure:"provider"`
	Language      string            `mapstructure:"language"`
	AutoDetect    bool              `mapstructure:"auto_detect"`
	MaxTextLength int               `mapstructure:"max_text_length"`
	MaxBatchSize  int               `mapstructure:"max_batch_size"`
	WordVectors   string            `mapstructure:"word_vectors"`
	Ollama        OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI        OpenAIEmbedConfig `mapstructure:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ChunkingConfig configures how documents are split before embedding.
type ChunkingConfig struct {
	ChunkSize        int  `mapstructure:"chunk_size"`
	ChunkOverlap     int  `mapstructure:"chunk_overlap"`
	MinChunkSize     int  `mapstructure:"min_chunk_size"`
	RespectSentences bool `mapstructure:"respect_sentences"`
}

// QueryConfig configures retrieval and answer generation.
type QueryConfig struct {
	TopK         int     `mapstructure:"top_k"`
	MinRelevance float64 `mapstructure:"min_relevance"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature"`
}

// LLMConfig configures the LLM backend for answer generation.
type LLMConfig struct {
	Provider  string          `mapstructure:"provider"`
	Ollama    OllamaLLMConfig `mapstructure:"ollama"`
	OpenAI    OpenAILLMConfig `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OllamaLLMConfig configures Ollama LLM.
type OllamaLLMConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAILLMConfig configures OpenAI LLM.
type OpenAILLMConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// AnthropicConfig configures Anthropic LLM.
type AnthropicConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// IngestConfig configures file ingestion and watching.
type IngestConfig struct {
	MaxFileSize    int64    `mapstructure:"max_file_size"`
	MaxFileCount   int      `mapstructure:"max_file_count"`
	Extensions     []string `mapstructure:"extensions"`
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
	DebounceMs     int      `mapstructure:"debounce_ms"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: DefaultDatabasePath(),
		},
		Embeddings: EmbeddingsConfig{
			Provider:      DefaultEmbeddingProvider,
			Language:      DefaultLanguage,
			AutoDetect:    true,
			MaxTextLength: DefaultMaxTextLength,
			MaxBatchSize:  DefaultMaxBatchSize,
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		Chunking: ChunkingConfig{
			ChunkSize:        DefaultChunkSize,
			ChunkOverlap:     DefaultChunkOverlap,
			MinChunkSize:     DefaultMinChunkSize,
			RespectSentences: true,
		},
		Query: QueryConfig{
			TopK:         DefaultTopK,
			MinRelevance: DefaultMinRelevance,
			MaxTokens:    DefaultMaxTokens,
			Temperature:  DefaultTemperature,
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
			Ollama: OllamaLLMConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaLLMModel,
			},
			OpenAI: OpenAILLMConfig{
				Model: DefaultOpenAILLMModel,
			},
			Anthropic: AnthropicConfig{
				Model: DefaultAnthropicModel,
			},
		},
		Ingest: IngestConfig{
			MaxFileSize:  DefaultMaxFileSize,
			MaxFileCount: DefaultMaxFileCount,
			Extensions:   DefaultIngestExtensions(),
			DebounceMs:   DefaultWatchDebounceMs,
		},
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	// Set defaults
	setDefaults()

	// Set config file if specified
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")

		// Also check for .recallrc.yaml in current directory and parents
		if rcPath := findRCFile(); rcPath != "" {
			viper.SetConfigFile(rcPath)
		}
	}

	// Environment variables
	viper.SetEnvPrefix("RECALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	// Unmarshal into config struct
	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	// Load API keys from environment if not in config
	loadAPIKeysFromEnv()

	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	// Database
	viper.SetDefault("database.path", DefaultDatabasePath())

	// Embeddings
	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.language", DefaultLanguage)
	viper.SetDefault("embeddings.auto_detect", true)
	viper.SetDefault("embeddings.max_text_length", DefaultMaxTextLength)
	viper.SetDefault("embeddings.max_batch_size", DefaultMaxBatchSize)
	viper.SetDefault("embeddings.word_vectors", "")
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	// Chunking
	viper.SetDefault("chunking.chunk_size", DefaultChunkSize)
	viper.SetDefault("chunking.chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("chunking.min_chunk_size", DefaultMinChunkSize)
	viper.SetDefault("chunking.respect_sentences", true)

	// Query
	viper.SetDefault("query.top_k", DefaultTopK)
	viper.SetDefault("query.min_relevance", DefaultMinRelevance)
	viper.SetDefault("query.max_tokens", DefaultMaxTokens)
	viper.SetDefault("query.temperature", DefaultTemperature)

	// LLM
	viper.SetDefault("llm.provider", DefaultLLMProvider)
	viper.SetDefault("llm.ollama.url", DefaultOllamaURL)
	viper.SetDefault("llm.ollama.model", DefaultOllamaLLMModel)
	viper.SetDefault("llm.openai.model", DefaultOpenAILLMModel)
	viper.SetDefault("llm.anthropic.model", DefaultAnthropicModel)

	// Ingest
	viper.SetDefault("ingest.max_file_size", DefaultMaxFileSize)
	viper.SetDefault("ingest.max_file_count", DefaultMaxFileCount)
	viper.SetDefault("ingest.extensions", DefaultIngestExtensions())
	viper.SetDefault("ingest.ignore_patterns", []string{})
	viper.SetDefault("ingest.debounce_ms", DefaultWatchDebounceMs)
}

// findRCFile searches for .recallrc.yaml starting from current directory.
func findRCFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		rcPath := filepath.Join(dir, ".recallrc.yaml")
		if _, err := os.Stat(rcPath); err == nil {
			return rcPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// loadAPIKeysFromEnv loads API keys from environment variables if not already set.
func loadAPIKeysFromEnv() {
	// OpenAI API key
	if cfg.Embeddings.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embeddings.OpenAI.APIKey = key
		}
	}
	if cfg.LLM.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.LLM.OpenAI.APIKey = key
		}
	}

	// Anthropic API key
	if cfg.LLM.Anthropic.APIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.LLM.Anthropic.APIKey = key
		}
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
