package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEmptyInput(t *testing.T) {
	c := NewTextChunker(DefaultOptions())

	assert.Nil(t, c.Chunk("", nil))
	assert.Nil(t, c.Chunk("   \n\t  ", nil))
}

func TestChunkShortInput(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  500,
		ChunkOverlap:     50,
		RespectSentences: true,
		MinChunkSize:     50,
	})

	// Shorter than MinChunkSize still yields a single chunk.
	chunks := c.Chunk("Hi.", nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hi.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 3, chunks[0].EndOffset)
}

func TestChunkSentenceOverlap(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  50,
		ChunkOverlap:     10,
		RespectSentences: true,
		MinChunkSize:     10,
	})

	// Three 30-rune sentences: budget 50 holds one full sentence, the
	// second pushes past it.
	s1 := strings.Repeat("x", 28) + ". "
	s2 := strings.Repeat("y", 28) + ". "
	s3 := strings.Repeat("z", 28) + ". "
	text := s1 + s2 + s3

	chunks := c.Chunk(text, nil)
	require.Len(t, chunks, 2)

	// First chunk holds the first two sentences.
	assert.Equal(t, s1+s2, chunks[0].Content)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 60, chunks[0].EndOffset)

	// Second chunk begins with the 10-rune tail of the first.
	tail := chunks[0].Content[len(chunks[0].Content)-10:]
	assert.True(t, strings.HasPrefix(chunks[1].Content, tail))
	assert.Equal(t, 50, chunks[1].StartOffset)
	assert.Equal(t, 90, chunks[1].EndOffset)
}

func TestChunkOffsetsMatchSource(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  40,
		ChunkOverlap:     8,
		RespectSentences: true,
		MinChunkSize:     5,
	})

	text := "One sentence here. Another follows it. And a third one comes after. Then a fourth."
	runes := []rune(text)

	chunks := c.Chunk(text, nil)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.Equal(t, string(runes[ch.StartOffset:ch.EndOffset]), ch.Content)
	}
}

func TestChunkUnicodeOffsets(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  20,
		ChunkOverlap:     4,
		RespectSentences: true,
		MinChunkSize:     3,
	})

	text := "Šī ir pirmā rinda. Šeit nāk otrā daļa. Un trešā beidzas šeit."
	runes := []rune(text)

	chunks := c.Chunk(text, nil)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.Equal(t, string(runes[ch.StartOffset:ch.EndOffset]), ch.Content)
	}
}

func TestChunkWindowFallback(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  50,
		ChunkOverlap:     10,
		RespectSentences: true,
		MinChunkSize:     5,
	})

	// No sentence boundaries at all: window algorithm takes over with
	// stride 40.
	text := strings.Repeat("a", 120)
	chunks := c.Chunk(text, nil)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 50, chunks[0].EndOffset)
	assert.Equal(t, 40, chunks[1].StartOffset)
	assert.Equal(t, 90, chunks[1].EndOffset)
	assert.Equal(t, 80, chunks[2].StartOffset)
	assert.Equal(t, 120, chunks[2].EndOffset)
}

func TestChunkWindowDisabledSentences(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  50,
		ChunkOverlap:     0,
		RespectSentences: false,
		MinChunkSize:     20,
	})

	// 110 runes: windows [0,50) [50,100) [100,110); the 10-rune tail is
	// under MinChunkSize and merges into the middle chunk.
	text := strings.Repeat("b", 110)
	chunks := c.Chunk(text, nil)
	require.Len(t, chunks, 2)

	assert.Equal(t, 50, chunks[1].StartOffset)
	assert.Equal(t, 110, chunks[1].EndOffset)
	assert.Len(t, chunks[1].Content, 60)
}

func TestChunkOverlapLargerThanSize(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  10,
		ChunkOverlap:     20,
		RespectSentences: false,
		MinChunkSize:     1,
	})

	// Stride clamps to 1; chunking must terminate and cover the text.
	text := strings.Repeat("c", 15)
	chunks := c.Chunk(text, nil)
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	assert.Equal(t, 15, last.EndOffset)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].StartOffset, chunks[i-1].StartOffset)
	}
}

func TestChunkMetadata(t *testing.T) {
	c := NewTextChunker(DefaultOptions())

	meta := map[string]string{"source": "notes.txt"}
	chunks := c.Chunk("A short note.", meta)
	require.Len(t, chunks, 1)
	assert.Equal(t, "notes.txt", chunks[0].Metadata["source"])
}

func TestChunkIndicesSequential(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  30,
		ChunkOverlap:     5,
		RespectSentences: false,
		MinChunkSize:     5,
	})

	chunks := c.Chunk(strings.Repeat("d", 200), nil)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestEstimateChunkCount(t *testing.T) {
	c := NewTextChunker(Options{
		TargetChunkSize:  50,
		ChunkOverlap:     10,
		RespectSentences: true,
		MinChunkSize:     10,
	})

	// Stride 40: 100 runes estimate to ceil(100/40) = 3.
	assert.Equal(t, 3, c.EstimateChunkCount(strings.Repeat("e", 100)))
	assert.Equal(t, 1, c.EstimateChunkCount("short"))
	assert.Equal(t, 1, c.EstimateChunkCount(""))
}

func TestChunkingStats(t *testing.T) {
	chunks := []Chunk{
		{Content: strings.Repeat("a", 10)},
		{Content: strings.Repeat("b", 30)},
		{Content: strings.Repeat("c", 20)},
	}

	stats := ChunkingStats(chunks)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 10, stats.MinLength)
	assert.Equal(t, 30, stats.MaxLength)
	assert.Equal(t, 20, stats.AvgLength)
	assert.Equal(t, 60, stats.TotalLength)
}

func TestChunkingStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, ChunkingStats(nil))
}

func TestSentenceSpans(t *testing.T) {
	t.Run("covers whole input", func(t *testing.T) {
		text := "First one. Second one! Third one?"
		spans := sentenceSpans([]rune(text))
		require.Len(t, spans, 3)

		assert.Equal(t, 0, spans[0].start)
		assert.Equal(t, len([]rune(text)), spans[len(spans)-1].end)
		for i := 1; i < len(spans); i++ {
			assert.Equal(t, spans[i-1].end, spans[i].start)
		}
	})

	t.Run("decimal point is not a boundary", func(t *testing.T) {
		spans := sentenceSpans([]rune("Pi is 3.14 roughly. Tau is larger."))
		assert.Len(t, spans, 2)
	})

	t.Run("closing quote belongs to the sentence", func(t *testing.T) {
		text := `He said "stop." Then left.`
		spans := sentenceSpans([]rune(text))
		require.Len(t, spans, 2)
		assert.Contains(t, string([]rune(text)[spans[0].start:spans[0].end]), `"stop."`)
	})

	t.Run("blank line is a boundary", func(t *testing.T) {
		spans := sentenceSpans([]rune("a heading without terminator\n\nbody text"))
		assert.Len(t, spans, 2)
	})

	t.Run("residue without terminator becomes final span", func(t *testing.T) {
		spans := sentenceSpans([]rune("Complete sentence. trailing fragment"))
		require.Len(t, spans, 2)
	})

	t.Run("no boundaries yields single span", func(t *testing.T) {
		spans := sentenceSpans([]rune("no terminators anywhere here"))
		assert.Len(t, spans, 1)
	})
}
