// Package cli implements the command-line interface for recall.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recall-dev/recall/internal/chunker"
	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/embeddings"
	"github.com/recall-dev/recall/internal/rag"
	"github.com/recall-dev/recall/internal/store"
	"github.com/recall-dev/recall/internal/ui"
)

var (
	// Version information set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Local retrieval-augmented answers over your documents",
	Long: `recall is a local-first RAG engine for your documents.

It ingests files into collections, embeds them using local models (Ollama)
or cloud providers (OpenAI), stores vectors in SQLite, and answers
questions grounded in the retrieved passages.

Examples:
  # Ingest a directory of notes
  recall add --dir ./docs --collection handbook

  # Find relevant passages
  recall search "vacation policy" --collection handbook

  # Ask a question and get a cited answer
  recall ask "how do I request time off?" --collection handbook

  # Keep a collection in sync with a directory
  recall watch ./docs --collection handbook`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging based on debug flag
		if debug {
			ui.SetDebug(true)
			log.Debug("Debug logging enabled")
		}

		// Load configuration
		if err := config.Load(cfgFile); err != nil {
			log.Warn("Failed to load config", "error", err)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize UI styles and logger
	ui.InitLogger()

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .recallrc.yaml, then $HOME/.config/recall/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Bind flags to viper
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recall %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// openManager opens the vector store and wires the indexing pipeline to it.
// The caller owns the returned store and must close it.
func openManager(cfg *config.Config) (*store.SQLiteStore, *rag.Manager, error) {
	engine, err := embeddings.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}

	st, err := store.Open(cfg.Database.Path, engine.Dimensions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	ch := chunker.NewTextChunker(chunker.Options{
		TargetChunkSize:  cfg.Chunking.ChunkSize,
		ChunkOverlap:     cfg.Chunking.ChunkOverlap,
		MinChunkSize:     cfg.Chunking.MinChunkSize,
		RespectSentences: cfg.Chunking.RespectSentences,
	})

	return st, rag.NewManager(st, ch, engine), nil
}

// resolveCollection finds the collection a command should operate on.
// An empty name falls back to the only existing collection and errors
// when none or several exist.
func resolveCollection(manager *rag.Manager, name string) (*store.Collection, error) {
	if name != "" {
		col, err := manager.GetCollectionByName(name)
		if err != nil {
			return nil, fmt.Errorf("collection %q not found (see 'recall collection list')", name)
		}
		return col, nil
	}

	cols, err := manager.ListCollections()
	if err != nil {
		return nil, err
	}

	switch len(cols) {
	case 0:
		return nil, fmt.Errorf("no collections exist yet; create one with 'recall add' or 'recall collection create'")
	case 1:
		return &cols[0], nil
	default:
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		return nil, fmt.Errorf("several collections exist, pick one with --collection: %s", strings.Join(names, ", "))
	}
}
