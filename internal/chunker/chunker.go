// Package chunker splits document text into overlapping, size-bounded
// chunks for embedding and retrieval.
package chunker

import "strings"

// Chunk is a bounded contiguous span of a document's text. Offsets are
// rune offsets into the source, and Content is always the exact source
// slice between them.
type Chunk struct {
	Content     string            `json:"content"`
	Index       int               `json:"index"`
	StartOffset int               `json:"start_offset"`
	EndOffset   int               `json:"end_offset"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Options configures chunking behavior.
type Options struct {
	// TargetChunkSize is the approximate chunk budget in runes. A chunk
	// may overshoot by up to one sentence in sentence mode.
	TargetChunkSize int
	// ChunkOverlap is how many runes from the tail of a chunk seed the
	// next one.
	ChunkOverlap int
	// RespectSentences enables sentence-boundary chunking with a
	// character-window fallback.
	RespectSentences bool
	// MinChunkSize is the smallest chunk emitted standalone; a shorter
	// trailing chunk merges into its predecessor.
	MinChunkSize int
}

// DefaultOptions returns the default chunking configuration.
func DefaultOptions() Options {
	return Options{
		TargetChunkSize:  500,
		ChunkOverlap:     50,
		RespectSentences: true,
		MinChunkSize:     50,
	}
}

// Chunker splits text into ordered chunks.
type Chunker interface {
	Chunk(text string, metadata map[string]string) []Chunk
	EstimateChunkCount(text string) int
}

// TextChunker is the default Chunker implementation.
type TextChunker struct {
	opts Options
}

// NewTextChunker creates a chunker, filling zero option fields from
// DefaultOptions. RespectSentences defaults to true only when the whole
// Options value is zero.
func NewTextChunker(opts Options) *TextChunker {
	defaults := DefaultOptions()
	if opts == (Options{}) {
		opts = defaults
	}
	if opts.TargetChunkSize <= 0 {
		opts.TargetChunkSize = defaults.TargetChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = defaults.ChunkOverlap
	}
	if opts.MinChunkSize < 0 {
		opts.MinChunkSize = defaults.MinChunkSize
	}
	return &TextChunker{opts: opts}
}

// Options returns the effective configuration.
func (c *TextChunker) Options() Options {
	return c.opts
}

// Chunk splits text into ordered chunks. Deterministic for a fixed
// configuration and input: empty or whitespace-only text yields no
// chunks, any other text yields at least one.
func (c *TextChunker) Chunk(text string, metadata map[string]string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)

	var chunks []Chunk
	if c.opts.RespectSentences {
		chunks = c.chunkBySentences(runes)
	}
	if chunks == nil {
		chunks = c.chunkByWindow(runes)
	}

	chunks = c.mergeShortTail(runes, chunks)

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Metadata = metadata
	}
	return chunks
}

// chunkBySentences accumulates sentence spans into chunks. A chunk is
// flushed after the sentence that pushes it past TargetChunkSize, and
// the next chunk starts ChunkOverlap runes before the flush point so
// cross-boundary context survives retrieval. Returns nil when fewer
// than two sentence boundaries exist, handing off to the window
// algorithm.
func (c *TextChunker) chunkBySentences(runes []rune) []Chunk {
	spans := sentenceSpans(runes)
	if len(spans) < 2 {
		return nil
	}

	var chunks []Chunk
	start := 0
	lastEnd := 0

	for _, s := range spans {
		end := s.end
		if end-start > c.opts.TargetChunkSize {
			chunks = append(chunks, c.newChunk(runes, start, end))
			lastEnd = end

			next := end - c.opts.ChunkOverlap
			if next <= start {
				next = start + 1
			}
			start = next
		}
	}

	// Trailing content beyond the last flush. A leftover that is pure
	// overlap carries nothing new and is dropped.
	n := len(runes)
	if n > lastEnd && start < n {
		chunks = append(chunks, c.newChunk(runes, start, n))
	}
	return chunks
}

// chunkByWindow slides a fixed-size window with a stride of size minus
// overlap, clamped to one so progress holds even when overlap >= size.
func (c *TextChunker) chunkByWindow(runes []rune) []Chunk {
	size := c.opts.TargetChunkSize
	stride := size - c.opts.ChunkOverlap
	if stride < 1 {
		stride = 1
	}

	n := len(runes)
	var chunks []Chunk
	for start := 0; start < n; start += stride {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, c.newChunk(runes, start, end))
		if end >= n {
			break
		}
	}
	return chunks
}

// mergeShortTail folds a trailing chunk shorter than MinChunkSize into
// its predecessor by extending the predecessor's span. The only chunk of
// a document is always kept whole.
func (c *TextChunker) mergeShortTail(runes []rune, chunks []Chunk) []Chunk {
	if len(chunks) < 2 {
		return chunks
	}

	tail := chunks[len(chunks)-1]
	if tail.EndOffset-tail.StartOffset >= c.opts.MinChunkSize {
		return chunks
	}

	prev := chunks[len(chunks)-2]
	merged := c.newChunk(runes, prev.StartOffset, tail.EndOffset)
	chunks[len(chunks)-2] = merged
	return chunks[:len(chunks)-1]
}

func (c *TextChunker) newChunk(runes []rune, start, end int) Chunk {
	return Chunk{
		Content:     string(runes[start:end]),
		StartOffset: start,
		EndOffset:   end,
	}
}

// EstimateChunkCount predicts how many chunks text will produce without
// chunking it. Always at least 1.
func (c *TextChunker) EstimateChunkCount(text string) int {
	stride := c.opts.TargetChunkSize - c.opts.ChunkOverlap
	if stride < 1 {
		stride = 1
	}

	n := len([]rune(text))
	count := (n + stride - 1) / stride
	if count < 1 {
		count = 1
	}
	return count
}

// Stats summarizes chunk content lengths for diagnostics.
type Stats struct {
	Count       int `json:"count"`
	MinLength   int `json:"min_length"`
	MaxLength   int `json:"max_length"`
	AvgLength   int `json:"avg_length"`
	TotalLength int `json:"total_length"`
}

// ChunkingStats reports count, min, max, average, and total content
// length over a set of chunks.
func ChunkingStats(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{Count: len(chunks)}
	stats.MinLength = len([]rune(chunks[0].Content))
	for _, ch := range chunks {
		l := len([]rune(ch.Content))
		if l < stats.MinLength {
			stats.MinLength = l
		}
		if l > stats.MaxLength {
			stats.MaxLength = l
		}
		stats.TotalLength += l
	}
	stats.AvgLength = stats.TotalLength / stats.Count
	return stats
}
