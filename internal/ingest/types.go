// Package ingest walks directories and feeds eligible files through the
// indexing pipeline, skipping files whose content is unchanged.
package ingest

import "time"

// FileInfo represents metadata about a file found during a walk.
type FileInfo struct {
	Path    string    // Absolute path to the file
	RelPath string    // Path relative to the root
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
	Hash    string    // xxhash of file contents
}

// WalkOptions configures the file walker.
type WalkOptions struct {
	// Root is the directory to start walking from.
	Root string

	// MaxFileSize is the maximum file size to process (in bytes).
	MaxFileSize int64

	// MaxFileCount is the maximum number of files to process.
	MaxFileCount int

	// IgnorePatterns are additional patterns to ignore (gitignore syntax).
	IgnorePatterns []string

	// IncludeHidden includes hidden files and directories.
	IncludeHidden bool

	// UseGitignore respects a .gitignore file at the root.
	UseGitignore bool

	// Extensions limits to specific file extensions (e.g., ".md", ".txt").
	// Empty means all text files.
	Extensions []string
}

// DefaultWalkOptions returns sensible defaults for walking.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		MaxFileSize:  1024 * 1024, // 1MB
		MaxFileCount: 10000,
		UseGitignore: true,
	}
}

// WalkStats contains statistics from a directory walk.
type WalkStats struct {
	FilesFound   int   // Total files found
	FilesSkipped int   // Files skipped due to size/pattern/etc
	DirsSkipped  int   // Directories skipped
	TotalBytes   int64 // Total bytes of files found
	SkippedBytes int64 // Total bytes of skipped files
}

// Progress tracks bulk ingestion progress.
type Progress struct {
	TotalFiles     int
	ProcessedFiles int
	SkippedFiles   int
	PrunedFiles    int
	TotalChunks    int
	Errors         int
	StartTime      time.Time
	CurrentFile    string
}

// ProgressFunc is called to report progress during ingestion.
type ProgressFunc func(Progress)

// Options configures a bulk ingestion run.
type Options struct {
	// CollectionName is the collection to ingest into. Defaults to the
	// base name of Path.
	CollectionName string

	// Path is the directory to ingest.
	Path string

	// Extensions limits to specific file extensions. Defaults to the
	// configured ingest extensions.
	Extensions []string

	// IgnorePatterns are additional patterns to ignore.
	IgnorePatterns []string

	// Force re-indexes files even if their content hash is unchanged.
	Force bool

	// Prune deletes documents whose source file no longer exists.
	Prune bool

	// OnProgress is called to report progress.
	OnProgress ProgressFunc
}
