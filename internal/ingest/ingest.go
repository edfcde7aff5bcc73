package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/rag"
	"github.com/recall-dev/recall/internal/store"
)

// Ingestor drives bulk file ingestion through the indexing pipeline.
type Ingestor struct {
	store   store.Store
	manager *rag.Manager
	cfg     *config.Config

	// Progress tracking
	progress Progress
	mu       sync.Mutex
}

// New creates a new Ingestor.
func New(st store.Store, manager *rag.Manager, cfg *config.Config) *Ingestor {
	return &Ingestor{
		store:   st,
		manager: manager,
		cfg:     cfg,
	}
}

// Ingest walks the directory and indexes every eligible file into the
// collection, creating the collection when it does not exist. Files whose
// content hash matches the stored document are skipped unless Force is
// set; changed files are re-indexed from scratch.
func (ing *Ingestor) Ingest(ctx context.Context, opts Options) (*store.Collection, error) {
	// Resolve path
	absPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	// Check path exists
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	name := opts.CollectionName
	if name == "" {
		name = filepath.Base(absPath)
	}

	col, err := ing.getOrCreateCollection(name)
	if err != nil {
		return nil, err
	}

	// Initialize progress
	ing.mu.Lock()
	ing.progress = Progress{
		StartTime: time.Now(),
	}
	ing.mu.Unlock()

	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = ing.cfg.Ingest.Extensions
	}

	ignorePatterns := append([]string{}, ing.cfg.Ingest.IgnorePatterns...)
	ignorePatterns = append(ignorePatterns, opts.IgnorePatterns...)

	// Create file walker
	walker, err := NewFileWalker(WalkOptions{
		Root:           absPath,
		MaxFileSize:    ing.cfg.Ingest.MaxFileSize,
		MaxFileCount:   ing.cfg.Ingest.MaxFileCount,
		IgnorePatterns: ignorePatterns,
		UseGitignore:   true,
		Extensions:     extensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file walker: %w", err)
	}

	// First pass: collect files and count
	var files []FileInfo
	err = walker.Walk(func(fi FileInfo) error {
		files = append(files, fi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	ing.mu.Lock()
	ing.progress.TotalFiles = len(files)
	ing.mu.Unlock()

	log.Info("Found files to ingest", "count", len(files))

	// Process files
	seen := make(map[string]bool, len(files))
	for _, fi := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		seen[fi.RelPath] = true

		ing.mu.Lock()
		ing.progress.CurrentFile = fi.RelPath
		ing.mu.Unlock()

		if err := ing.ingestFile(ctx, col, fi, opts.Force); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Warn("Failed to ingest file", "path", fi.RelPath, "error", err)
			ing.mu.Lock()
			ing.progress.Errors++
			ing.mu.Unlock()
			continue
		}

		ing.mu.Lock()
		if opts.OnProgress != nil {
			opts.OnProgress(ing.progress)
		}
		ing.mu.Unlock()
	}

	// Remove documents whose source file vanished
	if opts.Prune {
		if err := ing.prune(col, seen); err != nil {
			log.Warn("Failed to prune removed files", "error", err)
		}
	}

	// Update collection timestamp
	if err := ing.store.TouchCollection(col.ID); err != nil {
		log.Warn("Failed to update collection timestamp", "error", err)
	}

	// Get final stats
	stats, err := ing.store.GetCollectionStats(col.ID)
	if err == nil {
		log.Info("Ingest complete",
			"collection", col.Name,
			"documents", stats.DocumentCount,
			"chunks", stats.TotalChunks,
			"duration", time.Since(ing.progress.StartTime).Round(time.Millisecond),
		)
	}

	return col, nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (ing *Ingestor) getOrCreateCollection(name string) (*store.Collection, error) {
	col, err := ing.store.GetCollectionByName(name)
	if err == nil {
		return col, nil
	}
	if !errors.Is(err, store.ErrCollectionNotFound) {
		return nil, fmt.Errorf("failed to check for existing collection: %w", err)
	}

	log.Info("Creating new collection", "name", name)
	col, err = ing.store.CreateCollection(name, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return col, nil
}

// ingestFile indexes a single file, replacing a stale document when the
// content hash changed.
func (ing *Ingestor) ingestFile(ctx context.Context, col *store.Collection, fi FileInfo, force bool) error {
	existing, err := ing.store.GetDocumentBySourcePath(col.ID, fi.RelPath)
	if err != nil && !errors.Is(err, store.ErrDocumentNotFound) {
		return fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil && !force && existing.ContentHash == fi.Hash && existing.Status == store.StatusIndexed {
		log.Debug("File unchanged, skipping", "path", fi.RelPath)
		ing.mu.Lock()
		ing.progress.SkippedFiles++
		ing.mu.Unlock()
		return nil
	}

	// Read file content
	content, err := os.ReadFile(fi.Path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if strings.TrimSpace(string(content)) == "" {
		log.Debug("File has no indexable text, skipping", "path", fi.RelPath)
		ing.mu.Lock()
		ing.progress.SkippedFiles++
		ing.mu.Unlock()
		return nil
	}

	if existing != nil {
		if err := ing.store.DeleteDocument(col.ID, existing.ID); err != nil {
			return fmt.Errorf("failed to replace document: %w", err)
		}
	}

	doc, err := ing.manager.IndexDocumentFromInput(ctx, store.DocumentInput{
		CollectionID: col.ID,
		Title:        fi.RelPath,
		SourcePath:   fi.RelPath,
		ContentHash:  fi.Hash,
	}, string(content), map[string]string{"source_path": fi.RelPath}, nil)
	if err != nil {
		return err
	}

	ing.mu.Lock()
	ing.progress.ProcessedFiles++
	ing.progress.TotalChunks += doc.ChunkCount
	ing.mu.Unlock()

	log.Debug("Ingested file", "path", fi.RelPath, "chunks", doc.ChunkCount)
	return nil
}

// prune deletes documents whose source file was not seen in this run.
func (ing *Ingestor) prune(col *store.Collection, seen map[string]bool) error {
	docs, err := ing.store.GetDocuments(col.ID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		if doc.SourcePath == "" || seen[doc.SourcePath] {
			continue
		}

		log.Info("Pruning document for removed file", "path", doc.SourcePath)
		if err := ing.store.DeleteDocument(col.ID, doc.ID); err != nil {
			log.Warn("Failed to prune document", "path", doc.SourcePath, "error", err)
			continue
		}

		ing.mu.Lock()
		ing.progress.PrunedFiles++
		ing.mu.Unlock()
	}

	return nil
}

// Progress returns the current ingestion progress.
func (ing *Ingestor) Progress() Progress {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.progress
}

// IngestFile ingests a single file below root into the collection.
// A document whose content hash is unchanged is left alone, so spurious
// watch events cost no embedding calls. Used by watch mode.
func (ing *Ingestor) IngestFile(ctx context.Context, collectionName, root, filePath string) error {
	col, err := ing.getOrCreateCollection(collectionName)
	if err != nil {
		return err
	}

	// Calculate relative path
	relPath, err := filepath.Rel(root, filePath)
	if err != nil {
		return fmt.Errorf("failed to get relative path: %w", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if isBinaryContent(content) {
		log.Debug("File is binary, skipping", "path", relPath)
		return nil
	}

	fi := FileInfo{
		Path:    filePath,
		RelPath: relPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hash:    HashContent(content),
	}

	return ing.ingestFile(ctx, col, fi, false)
}

// RemoveFile deletes the document ingested from relPath, if any.
func (ing *Ingestor) RemoveFile(collectionName, relPath string) error {
	col, err := ing.store.GetCollectionByName(collectionName)
	if err != nil {
		return err
	}

	doc, err := ing.store.GetDocumentBySourcePath(col.ID, relPath)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil
		}
		return err
	}

	log.Debug("Removing document for deleted file", "path", relPath)
	return ing.store.DeleteDocument(col.ID, doc.ID)
}
