package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/embeddings"
	"github.com/recall-dev/recall/internal/ingest"
	"github.com/recall-dev/recall/internal/rag"
	"github.com/recall-dev/recall/internal/store"
	"github.com/recall-dev/recall/internal/ui"
)

var (
	addCollection string
	addDir        string
	addStdin      bool
	addTitle      string
	addForce      bool
	addPrune      bool
	addDryRun     bool
	addExtensions []string
	addIgnore     []string
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add [files...]",
	Short: "Add documents to a collection",
	Long: `Add documents to a collection for semantic search and Q&A.

Documents can come from named files, from stdin, or from a directory.
Directory ingestion tracks content hashes: unchanged files are skipped
on re-ingestion, and --prune removes documents whose source file has
disappeared. Files added by name or stdin are one-off snapshots.

Examples:
  # Add individual files
  recall add notes.md meeting.txt --collection work

  # Pipe content in
  cat report.txt | recall add --stdin --title "Q3 Report"

  # Ingest a whole directory
  recall add --dir ./docs --collection handbook

  # Re-ingest everything and drop documents for deleted files
  recall add --dir ./docs --collection handbook --force --prune

  # Preview what a directory ingest would pick up
  recall add --dir ./docs --dry-run`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addCollection, "collection", "C", "", "collection to add into (defaults to the directory name, or 'default')")
	addCmd.Flags().StringVarP(&addDir, "dir", "d", "", "ingest all eligible files under this directory")
	addCmd.Flags().BoolVar(&addStdin, "stdin", false, "read document content from stdin")
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "document title (single file or stdin only)")
	addCmd.Flags().BoolVarP(&addForce, "force", "f", false, "re-index files even if unchanged")
	addCmd.Flags().BoolVar(&addPrune, "prune", false, "remove documents whose source file no longer exists (with --dir)")
	addCmd.Flags().BoolVar(&addDryRun, "dry-run", false, "preview without ingesting (with --dir)")
	addCmd.Flags().StringSliceVarP(&addExtensions, "ext", "e", nil, "file extensions to include (e.g., .md, .txt)")
	addCmd.Flags().StringSliceVarP(&addIgnore, "ignore", "i", nil, "additional patterns to ignore")
}

func runAdd(cmd *cobra.Command, args []string) error {
	modes := 0
	if len(args) > 0 {
		modes++
	}
	if addDir != "" {
		modes++
	}
	if addStdin {
		modes++
	}
	if modes == 0 {
		return fmt.Errorf("nothing to add: pass files, --stdin, or --dir")
	}
	if modes > 1 {
		return fmt.Errorf("pass files, --stdin, or --dir, not a combination")
	}

	if addDir != "" {
		return runAddDir(addDir)
	}
	return runAddFiles(args)
}

// runAddDir ingests a whole directory through the ingest pipeline.
func runAddDir(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", absPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	cfg := config.Get()

	collectionName := addCollection
	if collectionName == "" {
		collectionName = filepath.Base(absPath)
	}

	log.Debug("Starting ingest",
		"path", absPath,
		"collection", collectionName,
		"force", addForce,
		"prune", addPrune,
	)

	// Dry run mode - just show what would be ingested
	if addDryRun {
		return runAddDryRun(absPath, cfg)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	st, manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ing := ingest.New(st, manager, cfg)

	fmt.Println(ui.Header.Render("Ingesting into " + collectionName))
	fmt.Printf("Path: %s\n", absPath)
	fmt.Printf("Provider: %s (%s)\n", cfg.Embeddings.Provider, embeddings.ModelName(cfg))
	fmt.Println()

	startTime := time.Now()
	lastUpdate := time.Now()

	opts := ingest.Options{
		CollectionName: collectionName,
		Path:           absPath,
		Extensions:     addExtensions,
		IgnorePatterns: addIgnore,
		Force:          addForce,
		Prune:          addPrune,
		OnProgress: func(p ingest.Progress) {
			// Throttle updates to every 100ms
			if time.Since(lastUpdate) < 100*time.Millisecond {
				return
			}
			lastUpdate = time.Now()

			// Clear line and print progress
			fmt.Printf("\r\033[K")
			if p.TotalFiles > 0 {
				handled := p.ProcessedFiles + p.SkippedFiles
				pct := float64(handled) / float64(p.TotalFiles) * 100
				fmt.Printf("Progress: %d/%d files (%.0f%%) | Chunks: %d | %s",
					handled, p.TotalFiles, pct, p.TotalChunks,
					truncatePath(p.CurrentFile, 40))
			}
		},
	}

	_, err = ing.Ingest(ctx, opts)

	// Clear progress line
	fmt.Printf("\r\033[K")

	if err != nil {
		if ctx.Err() != nil {
			fmt.Println(ui.Warning.Render("Ingest cancelled"))
			return nil
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	// Show final stats
	duration := time.Since(startTime).Round(time.Millisecond)
	p := ing.Progress()

	fmt.Println(ui.Success.Render("Ingest complete!"))
	fmt.Println()
	fmt.Printf("  Files:    %d indexed, %d unchanged\n", p.ProcessedFiles, p.SkippedFiles)
	if p.PrunedFiles > 0 {
		fmt.Printf("  Pruned:   %d\n", p.PrunedFiles)
	}
	fmt.Printf("  Chunks:   %d\n", p.TotalChunks)
	if p.Errors > 0 {
		fmt.Printf("  Errors:   %d\n", p.Errors)
	}
	fmt.Printf("  Duration: %s\n", duration)

	return nil
}

// runAddDryRun shows what a directory ingest would pick up without ingesting.
func runAddDryRun(path string, cfg *config.Config) error {
	fmt.Println(ui.Header.Render("Dry Run - Preview"))
	fmt.Printf("Path: %s\n\n", path)

	walker, err := ingest.NewFileWalker(ingest.WalkOptions{
		Root:           path,
		MaxFileSize:    cfg.Ingest.MaxFileSize,
		MaxFileCount:   cfg.Ingest.MaxFileCount,
		IgnorePatterns: append(cfg.Ingest.IgnorePatterns, addIgnore...),
		UseGitignore:   true,
		Extensions:     pickExtensions(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to create file walker: %w", err)
	}

	var files []ingest.FileInfo
	err = walker.Walk(func(fi ingest.FileInfo) error {
		files = append(files, fi)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	stats := walker.Stats()

	// Group files by extension
	byExt := make(map[string]int)
	var totalSize int64
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.RelPath))
		if ext == "" {
			ext = "(none)"
		}
		byExt[ext]++
		totalSize += f.Size
	}

	fmt.Println("Files to ingest:")
	for ext, count := range byExt {
		fmt.Printf("  %-15s %d\n", ext+":", count)
	}
	fmt.Println()
	fmt.Printf("Total files:   %d\n", len(files))
	fmt.Printf("Total size:    %s\n", formatBytes(totalSize))
	fmt.Printf("Skipped:       %d files, %d directories\n", stats.FilesSkipped, stats.DirsSkipped)

	if len(files) > 0 {
		fmt.Println("\nFirst 10 files:")
		for i, f := range files {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(files)-10)
				break
			}
			fmt.Printf("  %s (%s)\n", f.RelPath, formatBytes(f.Size))
		}
	}

	return nil
}

// pickExtensions returns the explicit --ext list, falling back to the
// configured ingest extensions.
func pickExtensions(cfg *config.Config) []string {
	if len(addExtensions) > 0 {
		return addExtensions
	}
	return cfg.Ingest.Extensions
}

// runAddFiles indexes named files or stdin as one-off documents.
func runAddFiles(args []string) error {
	cfg := config.Get()

	collectionName := addCollection
	if collectionName == "" {
		collectionName = "default"
	}

	if addTitle != "" && len(args) > 1 {
		return fmt.Errorf("--title only applies to a single file")
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	st, manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	col, err := manager.GetCollectionByName(collectionName)
	if errors.Is(err, store.ErrCollectionNotFound) {
		col, err = manager.CreateCollection(collectionName, "")
	}
	if err != nil {
		return fmt.Errorf("failed to open collection %q: %w", collectionName, err)
	}

	if addStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}

		title := addTitle
		if title == "" {
			title = "stdin"
		}

		if err := indexOne(ctx, manager, col, title, string(data)); err != nil {
			return err
		}
	} else {
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			title := addTitle
			if title == "" {
				title = filepath.Base(path)
			}

			if err := indexOne(ctx, manager, col, title, string(data)); err != nil {
				if ctx.Err() != nil {
					fmt.Println(ui.Warning.Render("Indexing cancelled"))
					return nil
				}
				return err
			}
		}
	}

	if ctx.Err() != nil {
		fmt.Println(ui.Warning.Render("Indexing cancelled"))
	}
	return nil
}

// indexOne runs a single document through the indexing pipeline with a
// progress line on stdout.
func indexOne(ctx context.Context, manager *rag.Manager, col *store.Collection, title, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%s: no content to add", title)
	}

	lastUpdate := time.Now()

	doc, err := manager.IndexDocument(ctx, col.ID, title, content, nil, func(p rag.Progress) {
		if time.Since(lastUpdate) < 100*time.Millisecond {
			return
		}
		lastUpdate = time.Now()

		fmt.Printf("\r\033[K")
		if p.TotalChunks > 0 {
			fmt.Printf("Indexing %s: chunk %d/%d", title, p.CurrentChunk, p.TotalChunks)
		}
	})

	fmt.Printf("\r\033[K")

	if err != nil {
		return fmt.Errorf("failed to index %s: %w", title, err)
	}

	fmt.Printf("%s Added %s (%d chunks)\n", ui.Success.Render("✓"), ui.Bold.Render(title), doc.ChunkCount)
	return nil
}

// truncatePath shortens a path for display.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

// formatBytes formats bytes as human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
