package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/embeddings"
	"github.com/recall-dev/recall/internal/ingest"
	"github.com/recall-dev/recall/internal/ui"
	"github.com/recall-dev/recall/internal/watcher"
)

var (
	watchCollection string
	watchNoInitial  bool
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and keep its collection in sync",
	Long: `Watch a directory for file changes and automatically re-ingest modified files.

This command first performs an initial sync of the directory into the
collection (unless --no-initial is specified), then watches for changes
and updates the collection in real time. Deleted files are removed from
the collection.

Examples:
  # Watch current directory
  recall watch

  # Watch a specific directory into a named collection
  recall watch ./docs --collection handbook

  # Skip initial sync (assumes already ingested)
  recall watch --no-initial`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatchCmd,
}

func init() {
	watchCmd.Flags().StringVarP(&watchCollection, "collection", "C", "", "collection to sync into (defaults to the directory name)")
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial", false, "skip initial sync")
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	// Resolve absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Check path exists and is a directory
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	cfg := config.Get()

	collectionName := watchCollection
	if collectionName == "" {
		collectionName = filepath.Base(absPath)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	st, manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ing := ingest.New(st, manager, cfg)

	// Perform initial sync unless --no-initial is set
	if !watchNoInitial {
		fmt.Println(ui.Header.Render("Initial Sync"))
		fmt.Printf("Path: %s\n", absPath)
		fmt.Printf("Provider: %s (%s)\n\n", cfg.Embeddings.Provider, embeddings.ModelName(cfg))

		stopSpinner := make(chan struct{})
		spinnerDone := make(chan struct{})
		go showSpinner("Ingesting files", stopSpinner, spinnerDone)

		_, err = ing.Ingest(ctx, ingest.Options{
			CollectionName: collectionName,
			Path:           absPath,
			Prune:          true,
		})

		close(stopSpinner)
		<-spinnerDone

		if err != nil {
			if ctx.Err() != nil {
				return nil // User cancelled
			}
			return fmt.Errorf("initial sync failed: %w", err)
		}

		p := ing.Progress()
		fmt.Printf("Initial sync complete: %d files ingested, %d unchanged, %d chunks\n\n",
			p.ProcessedFiles, p.SkippedFiles, p.TotalChunks)
	}

	// Create watcher
	w, err := watcher.New(
		absPath,
		collectionName,
		ing,
		cfg,
		watcher.WithEventCallback(func(event, path string) {
			log.Debug("File event", "event", event, "path", path)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Start watching
	fmt.Println(ui.Header.Render("Watching for Changes"))
	fmt.Printf("Directory: %s\n", absPath)
	fmt.Printf("Collection: %s\n", collectionName)
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
