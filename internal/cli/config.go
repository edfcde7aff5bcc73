package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  recall config

  # Show config file paths
  recall config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configShowPath {
		fmt.Println(ui.SectionTitle.Render("Configuration Paths"))
		fmt.Println()
		fmt.Printf("Global config: %s\n", config.GlobalConfigPath())
		fmt.Printf("Local config:  .recallrc.yaml (searched from cwd upward)\n")
		fmt.Printf("Active config: %s\n", config.ConfigFilePath())
		fmt.Printf("Database:      %s\n", config.Get().Database.Path)
		return nil
	}

	// Show current configuration
	cfg := config.Get()

	fmt.Println(ui.SectionTitle.Render("Current Configuration"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Embeddings:"))
	fmt.Printf("  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  Language: %s (auto-detect: %t)\n", cfg.Embeddings.Language, cfg.Embeddings.AutoDetect)
	fmt.Printf("  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Printf("  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	if cfg.Embeddings.WordVectors != "" {
		fmt.Printf("  Word Vectors: %s\n", cfg.Embeddings.WordVectors)
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("LLM:"))
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Ollama URL: %s\n", cfg.LLM.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.LLM.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.LLM.OpenAI.Model)
	fmt.Printf("  Anthropic Model: %s\n", cfg.LLM.Anthropic.Model)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Chunking:"))
	fmt.Printf("  Chunk Size: %d\n", cfg.Chunking.ChunkSize)
	fmt.Printf("  Chunk Overlap: %d\n", cfg.Chunking.ChunkOverlap)
	fmt.Printf("  Min Chunk Size: %d\n", cfg.Chunking.MinChunkSize)
	fmt.Printf("  Respect Sentences: %t\n", cfg.Chunking.RespectSentences)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Query:"))
	fmt.Printf("  Top K: %d\n", cfg.Query.TopK)
	fmt.Printf("  Min Relevance: %.2f\n", cfg.Query.MinRelevance)
	fmt.Printf("  Max Tokens: %d\n", cfg.Query.MaxTokens)
	fmt.Printf("  Temperature: %.2f\n", cfg.Query.Temperature)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Ingest:"))
	fmt.Printf("  Max File Size: %d bytes\n", cfg.Ingest.MaxFileSize)
	fmt.Printf("  Max File Count: %d\n", cfg.Ingest.MaxFileCount)
	fmt.Printf("  Extensions: %s\n", strings.Join(cfg.Ingest.Extensions, " "))
	fmt.Printf("  Watch Debounce: %dms\n", cfg.Ingest.DebounceMs)
	if len(cfg.Ingest.IgnorePatterns) > 0 {
		fmt.Printf("  Ignore Patterns: %d configured\n", len(cfg.Ingest.IgnorePatterns))
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("Database:"))
	fmt.Printf("  Path: %s\n", cfg.Database.Path)

	return nil
}
