// Package watcher provides file system watching with automatic re-ingestion.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/ingest"
)

// Watcher watches a directory for file changes and keeps a collection
// in sync: created and modified files are re-ingested, removed files
// have their documents deleted.
type Watcher struct {
	root       string
	collection string
	ingestor   *ingest.Ingestor
	cfg        *config.Config
	extSet     map[string]bool

	// debounce holds pending file events to batch process
	debounce     map[string]fsnotify.Op
	debounceMu   sync.Mutex
	debounceTime time.Duration

	// callback for status updates
	onEvent func(event string, path string)
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceTime sets the debounce duration for batching events.
func WithDebounceTime(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceTime = d
	}
}

// WithEventCallback sets a callback for file events.
func WithEventCallback(fn func(event string, path string)) Option {
	return func(w *Watcher) {
		w.onEvent = fn
	}
}

// New creates a new file watcher for the given root and collection.
func New(root string, collection string, ing *ingest.Ingestor, cfg *config.Config, opts ...Option) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	extSet := make(map[string]bool, len(cfg.Ingest.Extensions))
	for _, ext := range cfg.Ingest.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[strings.ToLower(ext)] = true
	}

	w := &Watcher{
		root:         absRoot,
		collection:   collection,
		ingestor:     ing,
		cfg:          cfg,
		extSet:       extSet,
		debounce:     make(map[string]fsnotify.Op),
		debounceTime: time.Duration(config.DefaultWatchDebounceMs) * time.Millisecond,
		onEvent:      func(string, string) {}, // noop default
	}

	if cfg.Ingest.DebounceMs > 0 {
		w.debounceTime = time.Duration(cfg.Ingest.DebounceMs) * time.Millisecond
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins watching for file changes. Blocks until context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Add all directories recursively
	if err := w.addDirectories(watcher); err != nil {
		return err
	}

	log.Info("Watching for file changes", "root", w.root, "collection", w.collection)

	// Start debounce processor
	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, watcher)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// addDirectories recursively adds all directories to the watcher.
func (w *Watcher) addDirectories(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if !d.IsDir() {
			return nil
		}

		// Skip hidden directories and common ignores
		name := d.Name()
		if strings.HasPrefix(name, ".") && name != "." {
			return filepath.SkipDir
		}
		if w.shouldSkipDir(name) {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			log.Debug("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// shouldSkipDir returns true if directory should not be watched.
func (w *Watcher) shouldSkipDir(name string) bool {
	skipDirs := []string{
		"node_modules", "vendor", "dist", "build", "out", "target",
		".git", ".idea", ".vscode", "__pycache__",
	}
	for _, skip := range skipDirs {
		if name == skip {
			return true
		}
	}
	return false
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event, watcher *fsnotify.Watcher) {
	path := event.Name

	// Get relative path
	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		relPath = path
	}

	// Skip hidden files
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	// For new directories, add to watcher
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.shouldSkipDir(filepath.Base(path)) {
				watcher.Add(path)
				log.Debug("Added directory to watch", "path", relPath)
			}
			return
		}
	}

	// Skip directories for file operations
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return
	}

	// Skip files the ingestor would not accept
	if !w.isIngestableFile(path) {
		return
	}

	// Add to debounce queue
	w.debounceMu.Lock()
	w.debounce[path] = event.Op
	w.debounceMu.Unlock()
}

// isIngestableFile checks if a file should be ingested. Removed files
// cannot be stat'd, so only the extension is checked for them.
func (w *Watcher) isIngestableFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !w.extSet[ext] {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		// File already gone; let the delete handler deal with it.
		return true
	}
	if w.cfg.Ingest.MaxFileSize > 0 && info.Size() > w.cfg.Ingest.MaxFileSize {
		return false
	}

	return true
}

// Collection returns the collection name this watcher feeds.
func (w *Watcher) Collection() string {
	return w.collection
}

// processDebounced processes debounced file events periodically.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushDebounced(ctx)
		}
	}
}

// flushDebounced processes all pending debounced events.
func (w *Watcher) flushDebounced(ctx context.Context) {
	w.debounceMu.Lock()
	if len(w.debounce) == 0 {
		w.debounceMu.Unlock()
		return
	}

	// Copy and clear the map
	events := make(map[string]fsnotify.Op)
	for k, v := range w.debounce {
		events[k] = v
	}
	w.debounce = make(map[string]fsnotify.Op)
	w.debounceMu.Unlock()

	// Process each event
	for path, op := range events {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath, _ := filepath.Rel(w.root, path)

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			// File was deleted or renamed away
			if err := w.ingestor.RemoveFile(w.collection, relPath); err != nil {
				log.Error("Failed to remove document", "path", relPath, "error", err)
			} else {
				w.onEvent("delete", relPath)
				log.Info("Removed from collection", "file", relPath)
			}
		} else if op.Has(fsnotify.Create) || op.Has(fsnotify.Write) {
			// File was created or modified
			if err := w.ingestor.IngestFile(ctx, w.collection, w.root, path); err != nil {
				log.Error("Failed to ingest file", "path", relPath, "error", err)
			} else {
				w.onEvent("ingest", relPath)
				log.Info("Ingested", "file", relPath)
			}
		}
	}
}
