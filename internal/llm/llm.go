// Package llm provides text-generation backends for answering queries.
package llm

import (
	"context"
	"fmt"

	"github.com/recall-dev/recall/internal/config"
)

// Provider represents a generation backend type.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// GenerateOptions configures a generation request.
type GenerateOptions struct {
	// Temperature controls randomness (0-1).
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int
}

// DefaultGenerateOptions returns sensible defaults.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// Generator is the narrow capability the query engine delegates to. Callers
// never branch on which concrete backend answers.
type Generator interface {
	// IsReady reports whether the backend can serve generation requests.
	IsReady(ctx context.Context) bool

	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream produces a streaming completion. The content channel
	// closes when generation finishes; a failure is reported on the error
	// channel before both close.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan string, <-chan error)

	// Name returns the backend's model name.
	Name() string
}

// NewGenerator creates a generation backend based on the configuration.
func NewGenerator(cfg *config.Config) (Generator, error) {
	switch Provider(cfg.LLM.Provider) {
	case ProviderOllama:
		return NewOllamaGenerator(
			cfg.LLM.Ollama.URL,
			cfg.LLM.Ollama.Model,
		), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(
			cfg.LLM.OpenAI.APIKey,
			cfg.LLM.OpenAI.Model,
			cfg.LLM.OpenAI.BaseURL,
		)
	case ProviderAnthropic:
		return NewAnthropicGenerator(
			cfg.LLM.Anthropic.APIKey,
			cfg.LLM.Anthropic.Model,
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
