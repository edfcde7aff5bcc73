package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-dev/recall/internal/llm"
	"github.com/recall-dev/recall/internal/store"
)

// mockGenerator implements llm.Generator for testing.
type mockGenerator struct {
	ready     bool
	answer    string
	err       error
	tokens    []string
	streamErr error         // delivered after all tokens
	block     chan struct{} // when set, the stream waits before finishing

	lastPrompt string
	lastOpts   llm.GenerateOptions
}

func (g *mockGenerator) IsReady(ctx context.Context) bool {
	return g.ready
}

func (g *mockGenerator) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	g.lastPrompt = prompt
	g.lastOpts = opts
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *mockGenerator) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions) (<-chan string, <-chan error) {
	g.lastPrompt = prompt
	g.lastOpts = opts

	contentCh := make(chan string, len(g.tokens)+1)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		for _, tok := range g.tokens {
			contentCh <- tok
		}
		if g.block != nil {
			<-g.block
		}
		if g.streamErr != nil {
			errCh <- g.streamErr
		}
	}()

	return contentCh, errCh
}

func (g *mockGenerator) Name() string {
	return "mock"
}

// Verify mockGenerator implements llm.Generator
var _ llm.Generator = (*mockGenerator)(nil)

// newTestQueryEngine builds a QueryEngine over a collection holding two
// indexed documents with known relevance to the fixed query vector.
func newTestQueryEngine(t *testing.T, gen llm.Generator) (*QueryEngine, *store.Collection) {
	t.Helper()

	emb := &mockEmbedder{
		dimensions: 4,
		vectors: map[string][]float64{
			"alpha content": {1, 0, 0, 0},
			"beta content":  {0.6, 0.8, 0, 0},
		},
		queryVector: []float64{1, 0, 0, 0},
	}
	m, _ := newTestManager(t, lineChunker{}, emb)
	col := newTestCollection(t, m)

	_, err := m.IndexDocument(context.Background(), col.ID, "Alpha Doc", "alpha content", nil, nil)
	require.NoError(t, err)
	_, err = m.IndexDocument(context.Background(), col.ID, "Beta Doc", "beta content", nil, nil)
	require.NoError(t, err)

	return NewQueryEngine(m, gen), col
}

// newEmptyQueryEngine builds a QueryEngine over an empty collection.
func newEmptyQueryEngine(t *testing.T, gen llm.Generator) (*QueryEngine, *store.Collection) {
	t.Helper()

	emb := &mockEmbedder{dimensions: 4, queryVector: []float64{1, 0, 0, 0}}
	m, _ := newTestManager(t, lineChunker{}, emb)
	col := newTestCollection(t, m)

	return NewQueryEngine(m, gen), col
}

func TestQuery(t *testing.T) {
	gen := &mockGenerator{ready: true, answer: "Alpha is described in [1]."}
	q, col := newTestQueryEngine(t, gen)

	result, err := q.Query(context.Background(), "what is alpha?", col.ID, DefaultQueryOptions())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Alpha is described in [1].", result.Answer)
	assert.Equal(t, 2, result.RetrievedCount)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "Alpha Doc", result.Sources[0].DocumentTitle)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))

	// Prompt carries system prompt, cited context in relevance order, and
	// the question
	assert.Contains(t, gen.lastPrompt, "You are a helpful assistant")
	assert.Contains(t, gen.lastPrompt, "Source [1]: Alpha Doc")
	assert.Contains(t, gen.lastPrompt, "Source [2]: Beta Doc")
	assert.Contains(t, gen.lastPrompt, "Question: what is alpha?")
	assert.Less(t,
		strings.Index(gen.lastPrompt, "alpha content"),
		strings.Index(gen.lastPrompt, "beta content"))

	// Generation options pass through
	assert.Equal(t, 0.7, gen.lastOpts.Temperature)
	assert.Equal(t, 1024, gen.lastOpts.MaxTokens)
}

func TestQueryGeneratorNotReady(t *testing.T) {
	gen := &mockGenerator{ready: false}
	q, col := newTestQueryEngine(t, gen)

	result, err := q.Query(context.Background(), "what is alpha?", col.ID, DefaultQueryOptions())
	assert.ErrorIs(t, err, ErrGeneratorNotReady)
	assert.Nil(t, result)

	// Readiness is checked before any retrieval work
	assert.Empty(t, gen.lastPrompt)
}

func TestQueryNoRelevantChunks(t *testing.T) {
	t.Run("empty collection", func(t *testing.T) {
		gen := &mockGenerator{ready: true, answer: "should never be used"}
		q, col := newEmptyQueryEngine(t, gen)

		result, err := q.Query(context.Background(), "anything", col.ID, DefaultQueryOptions())
		assert.ErrorIs(t, err, ErrNoRelevantChunks)
		assert.Nil(t, result)
		assert.Empty(t, gen.lastPrompt)
	})

	t.Run("threshold filters everything", func(t *testing.T) {
		gen := &mockGenerator{ready: true, answer: "should never be used"}
		q, col := newTestQueryEngine(t, gen)

		opts := DefaultQueryOptions()
		opts.MinRelevance = 1.5
		result, err := q.Query(context.Background(), "anything", col.ID, opts)
		assert.ErrorIs(t, err, ErrNoRelevantChunks)
		assert.Nil(t, result)
	})
}

func TestQueryGenerationError(t *testing.T) {
	cause := errors.New("backend exploded")
	gen := &mockGenerator{ready: true, err: cause}
	q, col := newTestQueryEngine(t, gen)

	result, err := q.Query(context.Background(), "what is alpha?", col.ID, DefaultQueryOptions())
	require.Error(t, err)
	assert.Nil(t, result)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, cause)
}

func TestQueryCustomSystemPrompt(t *testing.T) {
	gen := &mockGenerator{ready: true, answer: "ok"}
	q, col := newTestQueryEngine(t, gen)

	opts := DefaultQueryOptions()
	opts.SystemPrompt = "Answer in pirate speak."
	_, err := q.Query(context.Background(), "what is alpha?", col.ID, opts)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gen.lastPrompt, "Answer in pirate speak."))
	assert.NotContains(t, gen.lastPrompt, "You are a helpful assistant")
}

func TestQueryWithoutCitations(t *testing.T) {
	gen := &mockGenerator{ready: true, answer: "ok"}
	q, col := newTestQueryEngine(t, gen)

	opts := DefaultQueryOptions()
	opts.IncludeCitations = false
	_, err := q.Query(context.Background(), "what is alpha?", col.ID, opts)
	require.NoError(t, err)

	assert.Contains(t, gen.lastPrompt, "--- Source [1] ---")
	assert.NotContains(t, gen.lastPrompt, "Alpha Doc")
}

func TestQueryStream(t *testing.T) {
	gen := &mockGenerator{ready: true, tokens: []string{"Alpha ", "is ", "first."}}
	q, col := newTestQueryEngine(t, gen)

	events, errCh := q.QueryStream(context.Background(), "what is alpha?", col.ID, DefaultQueryOptions())

	var received []StreamEvent
	for ev := range events {
		received = append(received, ev)
	}
	require.NoError(t, <-errCh)

	// Sources first, then each token, then the terminal Complete
	require.Len(t, received, 5)
	assert.Equal(t, EventSources, received[0].Type)
	require.Len(t, received[0].Sources, 2)
	assert.Equal(t, "Alpha Doc", received[0].Sources[0].DocumentTitle)

	var streamed strings.Builder
	for _, ev := range received[1:4] {
		assert.Equal(t, EventToken, ev.Type)
		streamed.WriteString(ev.Token)
	}
	assert.Equal(t, "Alpha is first.", streamed.String())

	complete := received[4]
	assert.Equal(t, EventComplete, complete.Type)
	require.NotNil(t, complete.Result)
	assert.Equal(t, "Alpha is first.", complete.Result.Answer)
	assert.Equal(t, 2, complete.Result.RetrievedCount)
	assert.InDelta(t, 0.8, complete.Result.Confidence, 1e-9)
}

func TestQueryStreamErrorAfterTokens(t *testing.T) {
	cause := errors.New("connection reset")
	gen := &mockGenerator{ready: true, tokens: []string{"partial "}, streamErr: cause}
	q, col := newTestQueryEngine(t, gen)

	events, errCh := q.QueryStream(context.Background(), "what is alpha?", col.ID, DefaultQueryOptions())

	var received []StreamEvent
	for ev := range events {
		received = append(received, ev)
	}

	// The failure surfaces on the error channel, never as a silent
	// truncation
	err := <-errCh
	require.Error(t, err)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, cause)

	for _, ev := range received {
		assert.NotEqual(t, EventComplete, ev.Type)
	}
}

func TestQueryStreamNotReady(t *testing.T) {
	gen := &mockGenerator{ready: false}
	q, col := newTestQueryEngine(t, gen)

	events, errCh := q.QueryStream(context.Background(), "what is alpha?", col.ID, DefaultQueryOptions())

	var received []StreamEvent
	for ev := range events {
		received = append(received, ev)
	}
	assert.Empty(t, received)
	assert.ErrorIs(t, <-errCh, ErrGeneratorNotReady)
}

func TestQueryStreamNoRelevantChunks(t *testing.T) {
	gen := &mockGenerator{ready: true}
	q, col := newEmptyQueryEngine(t, gen)

	events, errCh := q.QueryStream(context.Background(), "anything", col.ID, DefaultQueryOptions())

	var received []StreamEvent
	for ev := range events {
		received = append(received, ev)
	}
	assert.Empty(t, received)
	assert.ErrorIs(t, <-errCh, ErrNoRelevantChunks)
}

func TestQueryStreamCancellation(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	gen := &mockGenerator{ready: true, block: block}
	q, col := newTestQueryEngine(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	events, errCh := q.QueryStream(ctx, "what is alpha?", col.ID, DefaultQueryOptions())

	// Sources arrive, then the stream stalls and we cancel
	first := <-events
	assert.Equal(t, EventSources, first.Type)
	cancel()

	for range events {
	}
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestDefaultQueryOptions(t *testing.T) {
	opts := DefaultQueryOptions()

	assert.Equal(t, 5, opts.TopK)
	assert.Equal(t, 0.0, opts.MinRelevance)
	assert.Equal(t, 1024, opts.MaxTokens)
	assert.Equal(t, 0.7, opts.Temperature)
	assert.True(t, opts.IncludeCitations)
	assert.Empty(t, opts.SystemPrompt)
}

func TestBuildContext(t *testing.T) {
	sources := []SourceChunk{
		{Content: "first chunk", DocumentTitle: "Doc One", Relevance: 0.9},
		{Content: "second chunk", DocumentTitle: "Doc Two", Relevance: 0.5},
	}

	withCitations := buildContext(sources, true)
	assert.Contains(t, withCitations, "Source [1]: Doc One (90% match)")
	assert.Contains(t, withCitations, "Source [2]: Doc Two (50% match)")
	assert.Contains(t, withCitations, "first chunk")
	assert.Contains(t, withCitations, "second chunk")

	plain := buildContext(sources, false)
	assert.Contains(t, plain, "--- Source [1] ---")
	assert.NotContains(t, plain, "Doc One")
}

func TestMeanRelevance(t *testing.T) {
	assert.Equal(t, 0.0, meanRelevance(nil))

	sources := []SourceChunk{{Relevance: 0.9}, {Relevance: 0.5}, {Relevance: 0.7}}
	assert.InDelta(t, 0.7, meanRelevance(sources), 1e-9)
}
