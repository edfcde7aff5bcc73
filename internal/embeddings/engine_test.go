package embeddings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSentenceModel is a deterministic in-process sentence model.
type fakeSentenceModel struct {
	dims       int
	err        error
	calls      int
	queryCalls int
}

func (f *fakeSentenceModel) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return fakeVector(text, f.dims), nil
}

func (f *fakeSentenceModel) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return fakeVector(text, f.dims), nil
}

func (f *fakeSentenceModel) Dimensions() int { return f.dims }
func (f *fakeSentenceModel) Name() string    { return "fake-sentence" }

var _ SentenceModel = (*fakeSentenceModel)(nil)

// fakeVector creates a deterministic embedding from text content.
func fakeVector(text string, dims int) []float64 {
	hash := 0
	for _, c := range text {
		hash = hash*31 + int(c)
	}
	vec := make([]float64, dims)
	for i := range vec {
		vec[i] = float64((hash+i)%100) / 100.0
	}
	return vec
}

func pinnedConfig() Config {
	return Config{
		MaxTextLength:   8192,
		MaxBatchSize:    64,
		DefaultLanguage: "en",
		AutoDetect:      false,
	}
}

func TestEngineEmbedWithSentenceModel(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	model := &fakeSentenceModel{dims: 8}
	engine.RegisterSentenceModel("en", model)

	emb, err := engine.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, "hello world", emb.Text)
	assert.Equal(t, "en", emb.Language)
	assert.Len(t, emb.Vector, 8)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, 0, model.queryCalls)
}

func TestEngineEmbedQueryUsesQueryPath(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	model := &fakeSentenceModel{dims: 8}
	engine.RegisterSentenceModel("en", model)

	_, err := engine.EmbedQuery(context.Background(), "a question")
	require.NoError(t, err)

	assert.Equal(t, 0, model.calls)
	assert.Equal(t, 1, model.queryCalls)
}

func TestEngineTextTooLong(t *testing.T) {
	cfg := pinnedConfig()
	cfg.MaxTextLength = 10
	engine := NewEngine(cfg)
	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 4})

	_, err := engine.Embed(context.Background(), "this text is well over ten characters")
	require.Error(t, err)

	var tooLong *TextTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 10, tooLong.Limit)
	assert.Greater(t, tooLong.Length, 10)
}

func TestEngineBatchTooLarge(t *testing.T) {
	cfg := pinnedConfig()
	cfg.MaxBatchSize = 2
	engine := NewEngine(cfg)
	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 4})

	_, err := engine.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)

	var tooLarge *BatchTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 3, tooLarge.Size)
	assert.Equal(t, 2, tooLarge.Limit)
}

func TestEngineBatchOrderPreserved(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 8})

	texts := []string{"first", "second", "third"}
	embs, err := engine.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embs, 3)

	for i, emb := range embs {
		assert.Equal(t, texts[i], emb.Text)
		assert.Equal(t, fakeVector(texts[i], 8), emb.Vector)
	}
}

func TestEngineBatchEmpty(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 8})

	embs, err := engine.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embs)
}

func TestEngineBatchCancellation(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 8})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.EmbedBatch(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineWordFallback(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 2, err: fmt.Errorf("model offline")})

	words := NewStaticWordModel(2)
	require.NoError(t, words.Add("hello", []float64{1, 0}))
	require.NoError(t, words.Add("world", []float64{0, 1}))
	engine.RegisterWordModel("en", words)

	emb, err := engine.Embed(context.Background(), "Hello world")
	require.NoError(t, err)

	// Mean of the two word vectors; the unknown token is skipped.
	assert.Equal(t, []float64{0.5, 0.5}, emb.Vector)
}

func TestEngineWordFallbackSkipsUnknownTokens(t *testing.T) {
	engine := NewEngine(pinnedConfig())

	words := NewStaticWordModel(2)
	require.NoError(t, words.Add("known", []float64{1, 1}))
	engine.RegisterWordModel("en", words)

	emb, err := engine.Embed(context.Background(), "known mystery tokens")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, emb.Vector)
}

func TestEngineWholeTextToken(t *testing.T) {
	engine := NewEngine(pinnedConfig())

	words := NewStaticWordModel(2)
	require.NoError(t, words.Add("new york", []float64{0.2, 0.8}))
	engine.RegisterWordModel("en", words)

	// No individual token matches, but the whole trimmed text does.
	emb, err := engine.Embed(context.Background(), "  New York  ")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.8}, emb.Vector)
}

func TestEngineEmbeddingFailed(t *testing.T) {
	engine := NewEngine(pinnedConfig())

	words := NewStaticWordModel(2)
	require.NoError(t, words.Add("unrelated", []float64{1, 0}))
	engine.RegisterWordModel("en", words)

	_, err := engine.Embed(context.Background(), "completely different text")
	require.Error(t, err)

	var failed *EmbeddingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "en", failed.Language)
}

func TestEngineNoModels(t *testing.T) {
	engine := NewEngine(pinnedConfig())

	_, err := engine.Embed(context.Background(), "anything")
	var failed *EmbeddingFailedError
	require.ErrorAs(t, err, &failed)
}

func TestEngineCancellationSkipsWordFallback(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 2, err: context.Canceled})

	words := NewStaticWordModel(2)
	require.NoError(t, words.Add("anything", []float64{1, 0}))
	engine.RegisterWordModel("en", words)

	// Cancellation from the model surfaces directly instead of being
	// papered over by the fallback.
	_, err := engine.Embed(context.Background(), "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineDefaultLanguageFallback(t *testing.T) {
	cfg := pinnedConfig()
	cfg.AutoDetect = true
	engine := NewEngine(cfg)
	model := &fakeSentenceModel{dims: 4}
	engine.RegisterSentenceModel("en", model)

	// Clearly Spanish text detects as "es"; with no Spanish model the
	// engine falls back to the default language instead of failing.
	text := "La biblioteca estaba llena de libros antiguos y el bibliotecario " +
		"conocía la historia de cada uno de ellos con mucho detalle."
	emb, err := engine.Embed(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "en", emb.Language)
	assert.Equal(t, 1, model.calls)
}

func TestEngineDimensionsPinnedByFirstModel(t *testing.T) {
	engine := NewEngine(pinnedConfig())
	assert.Equal(t, 0, engine.Dimensions())

	engine.RegisterSentenceModel("en", &fakeSentenceModel{dims: 16})
	assert.Equal(t, 16, engine.Dimensions())

	engine.RegisterWordModel("de", NewStaticWordModel(32))
	assert.Equal(t, 16, engine.Dimensions())
}

func TestDetectLanguage(t *testing.T) {
	t.Run("clear English text", func(t *testing.T) {
		lang, ok := DetectLanguage("The weather service issued a storm warning for the entire coastal region this evening.")
		require.True(t, ok)
		assert.Equal(t, "en", lang)
	})

	t.Run("gibberish is unreliable", func(t *testing.T) {
		_, ok := DetectLanguage("zzz")
		assert.False(t, ok)
	})
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		text     string
		expected []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"don't stop", []string{"don't", "stop"}},
		{"über café", []string{"über", "café"}},
		{"123 456", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenize(tt.text))
		})
	}
}

func TestStaticWordModel(t *testing.T) {
	m := NewStaticWordModel(3)

	require.NoError(t, m.Add("Word", []float64{1, 2, 3}))

	// Lookup is lowercase.
	v, ok := m.Vector("word")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, v)

	_, ok = m.Vector("missing")
	assert.False(t, ok)

	err := m.Add("bad", []float64{1, 2})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestLoadWordVectors(t *testing.T) {
	t.Run("with header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.txt")
		content := "2 3\nhello 0.1 0.2 0.3\nworld 0.4 0.5 0.6\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		m, err := LoadWordVectors(path)
		require.NoError(t, err)

		assert.Equal(t, 3, m.Dimensions())
		assert.Equal(t, 2, m.Size())

		v, ok := m.Vector("hello")
		require.True(t, ok)
		assert.Equal(t, []float64{0.1, 0.2, 0.3}, v)
	})

	t.Run("without header infers dimensions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.txt")
		content := "alpha 1.0 2.0\nbeta 3.0 4.0\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		m, err := LoadWordVectors(path)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Dimensions())
	})

	t.Run("malformed line errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.txt")
		content := "alpha 1.0 2.0\nbeta not-a-number 4.0\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := LoadWordVectors(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "malformed")
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadWordVectors(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("empty file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.txt")
		require.NoError(t, os.WriteFile(path, []byte(""), 0644))

		_, err := LoadWordVectors(path)
		assert.Error(t, err)
	})
}
