package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recall-dev/recall/internal/llm"
)

// QueryOptions configures retrieval and answer generation.
type QueryOptions struct {
	// TopK is the maximum number of chunks to retrieve.
	TopK int

	// MinRelevance filters chunks below this similarity score.
	MinRelevance float64

	// SystemPrompt overrides the built-in system prompt.
	SystemPrompt string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls creativity (0-1).
	Temperature float64

	// IncludeCitations adds document titles and [N] markers to the
	// context block.
	IncludeCitations bool
}

// DefaultQueryOptions returns sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		TopK:             5,
		MinRelevance:     0.0,
		MaxTokens:        1024,
		Temperature:      0.7,
		IncludeCitations: true,
	}
}

// QueryResult contains the generated answer and its sources.
type QueryResult struct {
	Answer           string        `json:"answer"`
	Sources          []SourceChunk `json:"sources"`
	Confidence       float64       `json:"confidence"`
	RetrievedCount   int           `json:"retrieved_count"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

// StreamEventType identifies a streaming query event.
type StreamEventType string

const (
	// EventSources carries the retrieved chunks, sent once before any token.
	EventSources StreamEventType = "sources"
	// EventToken carries one answer fragment.
	EventToken StreamEventType = "token"
	// EventComplete carries the final result and ends the stream.
	EventComplete StreamEventType = "complete"
)

// StreamEvent is one event from a streaming query.
type StreamEvent struct {
	Type    StreamEventType
	Token   string
	Sources []SourceChunk
	Result  *QueryResult
}

// QueryEngine answers questions by retrieving relevant chunks and
// handing them, with the question, to a text generator. It never
// branches on the concrete backend.
type QueryEngine struct {
	manager   *Manager
	generator llm.Generator
}

// NewQueryEngine creates a QueryEngine.
func NewQueryEngine(manager *Manager, generator llm.Generator) *QueryEngine {
	return &QueryEngine{
		manager:   manager,
		generator: generator,
	}
}

// Query retrieves context for the question and generates an answer.
// An unreachable backend fails with ErrGeneratorNotReady before any
// retrieval work; an empty retrieval fails with ErrNoRelevantChunks
// rather than producing an unsupported answer.
func (q *QueryEngine) Query(ctx context.Context, question, collectionID string, opts QueryOptions) (*QueryResult, error) {
	start := time.Now()

	if !q.generator.IsReady(ctx) {
		return nil, ErrGeneratorNotReady
	}

	sources, err := q.manager.Search(ctx, question, collectionID, opts.TopK, opts.MinRelevance)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	if len(sources) == 0 {
		return nil, ErrNoRelevantChunks
	}

	prompt := buildPrompt(question, sources, opts)

	log.Debug("Generating answer", "backend", q.generator.Name(), "sources", len(sources))
	answer, err := q.generator.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	return &QueryResult{
		Answer:           answer,
		Sources:          sources,
		Confidence:       meanRelevance(sources),
		RetrievedCount:   len(sources),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// QueryStream is Query with incremental output. The event channel
// carries one Sources event, then Token events as fragments arrive, then
// a terminal Complete event with the accumulated result. A failure at
// any point surfaces on the error channel, including after tokens have
// been forwarded.
func (q *QueryEngine) QueryStream(ctx context.Context, question, collectionID string, opts QueryOptions) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errCh)

		start := time.Now()

		if !q.generator.IsReady(ctx) {
			errCh <- ErrGeneratorNotReady
			return
		}

		sources, err := q.manager.Search(ctx, question, collectionID, opts.TopK, opts.MinRelevance)
		if err != nil {
			errCh <- fmt.Errorf("failed to retrieve context: %w", err)
			return
		}
		if len(sources) == 0 {
			errCh <- ErrNoRelevantChunks
			return
		}

		events <- StreamEvent{Type: EventSources, Sources: sources}

		prompt := buildPrompt(question, sources, opts)

		contentCh, genErrCh := q.generator.GenerateStream(ctx, prompt, llm.GenerateOptions{
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})

		var answer strings.Builder
		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case token, ok := <-contentCh:
				if !ok {
					if err := <-genErrCh; err != nil {
						errCh <- &GenerationError{Err: err}
						return
					}
					events <- StreamEvent{Type: EventComplete, Result: &QueryResult{
						Answer:           answer.String(),
						Sources:          sources,
						Confidence:       meanRelevance(sources),
						RetrievedCount:   len(sources),
						ProcessingTimeMs: time.Since(start).Milliseconds(),
					}}
					return
				}

				answer.WriteString(token)
				select {
				case events <- StreamEvent{Type: EventToken, Token: token}:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
	}()

	return events, errCh
}

// buildPrompt composes system prompt, retrieved context, and question
// into the single prompt string handed to the generator.
func buildPrompt(question string, sources []SourceChunk, opts QueryOptions) string {
	system := opts.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	return fmt.Sprintf("%s\n\n%s\nQuestion: %s", system, buildContext(sources, opts.IncludeCitations), question)
}

// buildContext creates the context block from retrieved chunks, most
// relevant first.
func buildContext(sources []SourceChunk, includeCitations bool) string {
	var sb strings.Builder

	sb.WriteString("Here is the relevant context:\n\n")

	for i, s := range sources {
		if includeCitations {
			sb.WriteString(fmt.Sprintf("--- Source [%d]: %s (%.0f%% match) ---\n", i+1, s.DocumentTitle, s.Relevance*100))
		} else {
			sb.WriteString(fmt.Sprintf("--- Source [%d] ---\n", i+1))
		}
		sb.WriteString(s.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// meanRelevance averages chunk relevance as a rough confidence signal
// for the answer.
func meanRelevance(sources []SourceChunk) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sources {
		sum += s.Relevance
	}
	return sum / float64(len(sources))
}

// Default system prompt for answer generation.
const defaultSystemPrompt = `You are a helpful assistant that answers questions using the provided context.

Your role is to:
1. Read the provided context carefully
2. Answer the question accurately based only on the context
3. Cite sources using [N] notation when referencing specific passages
4. Be concise but thorough
5. If the context does not contain enough information to answer, say so

Format your answer in markdown when appropriate.`
