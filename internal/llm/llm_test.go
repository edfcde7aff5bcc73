package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-dev/recall/internal/config"
)

// TestNewGenerator tests the factory function.
func TestNewGenerator(t *testing.T) {
	t.Run("creates Ollama generator", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "ollama",
				Ollama: config.OllamaLLMConfig{
					URL:   "http://localhost:11434",
					Model: "llama3.2",
				},
			},
		}

		gen, err := NewGenerator(cfg)
		require.NoError(t, err)
		assert.Equal(t, "llama3.2", gen.Name())
	})

	t.Run("creates OpenAI generator", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "openai",
				OpenAI: config.OpenAILLMConfig{
					APIKey: "sk-test",
					Model:  "gpt-4o-mini",
				},
			},
		}

		gen, err := NewGenerator(cfg)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", gen.Name())
	})

	t.Run("creates Anthropic generator", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "anthropic",
				Anthropic: config.AnthropicConfig{
					APIKey: "sk-ant-test",
					Model:  "claude-3-5-haiku-20241022",
				},
			},
		}

		gen, err := NewGenerator(cfg)
		require.NoError(t, err)
		assert.Equal(t, "claude-3-5-haiku-20241022", gen.Name())
	})

	t.Run("returns error for unsupported provider", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "unsupported",
			},
		}

		_, err := NewGenerator(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}

// TestNewOllamaGenerator tests Ollama backend creation.
func TestNewOllamaGenerator(t *testing.T) {
	t.Run("with default URL", func(t *testing.T) {
		gen := NewOllamaGenerator("", "llama3.2")
		assert.Equal(t, "http://localhost:11434", gen.baseURL)
		assert.Equal(t, "llama3.2", gen.model)
	})

	t.Run("with custom URL", func(t *testing.T) {
		gen := NewOllamaGenerator("http://custom:8080/", "mistral")
		assert.Equal(t, "http://custom:8080", gen.baseURL)
	})
}

// TestNewOpenAIGenerator tests OpenAI backend creation.
func TestNewOpenAIGenerator(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewOpenAIGenerator("", "gpt-4o-mini", "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("with valid API key", func(t *testing.T) {
		gen, err := NewOpenAIGenerator("sk-test", "gpt-4o-mini", "")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", gen.model)
		assert.True(t, gen.IsReady(context.Background()))
	})
}

// TestNewAnthropicGenerator tests Anthropic backend creation.
func TestNewAnthropicGenerator(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewAnthropicGenerator("", "claude-3-5-haiku-20241022")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("with valid API key", func(t *testing.T) {
		gen, err := NewAnthropicGenerator("sk-ant-test", "claude-3-5-haiku-20241022")
		require.NoError(t, err)
		assert.Equal(t, "claude-3-5-haiku-20241022", gen.model)
		assert.True(t, gen.IsReady(context.Background()))
	})
}

// mockOllamaServer creates a test server that simulates Ollama's chat API.
func mockOllamaServer(t *testing.T, response string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var req ollamaChatRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)

		resp := ollamaChatResponse{
			Message: ollamaMessage{
				Role:    "assistant",
				Content: response,
			},
			Done: true,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

// TestOllamaGenerate tests Ollama completion.
func TestOllamaGenerate(t *testing.T) {
	server := mockOllamaServer(t, "Hello! How can I help you?")
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "llama3.2")

	response, err := gen.Generate(context.Background(), "Hello", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", response)
}

// TestOllamaGenerateError tests error handling.
func TestOllamaGenerateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not found"))
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "llama3.2")

	_, err := gen.Generate(context.Background(), "test", DefaultGenerateOptions())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

// TestOllamaGenerateStream tests streamed Ollama completion.
func TestOllamaGenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		enc := json.NewEncoder(w)
		enc.Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "Hel"}})
		enc.Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "lo"}})
		enc.Encode(ollamaChatResponse{Done: true})
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "llama3.2")

	contentCh, errCh := gen.GenerateStream(context.Background(), "say hello", DefaultGenerateOptions())

	var got strings.Builder
	for token := range contentCh {
		got.WriteString(token)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Hello", got.String())
}

// TestOllamaIsReady tests the readiness probe.
func TestOllamaIsReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	gen := NewOllamaGenerator(server.URL, "llama3.2")
	assert.True(t, gen.IsReady(context.Background()))

	server.Close()
	assert.False(t, gen.IsReady(context.Background()))
}

// TestAnthropicGenerate tests Anthropic completion against a mock server.
func TestAnthropicGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		resp := anthropicResponse{
			Type:    "message",
			Role:    "assistant",
			Content: []anthropicContent{{Type: "text", Text: "The answer is 42."}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gen, err := NewAnthropicGenerator("sk-ant-test", "claude-3-5-haiku-20241022")
	require.NoError(t, err)
	gen.baseURL = server.URL

	response, err := gen.Generate(context.Background(), "what is the answer?", DefaultGenerateOptions())
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", response)
}

// TestAnthropicGenerateStream tests SSE decoding of a streamed completion.
func TestAnthropicGenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\n")
		fmt.Fprint(w, "data: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\" world\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\n")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	gen, err := NewAnthropicGenerator("sk-ant-test", "claude-3-5-haiku-20241022")
	require.NoError(t, err)
	gen.baseURL = server.URL

	contentCh, errCh := gen.GenerateStream(context.Background(), "say hello", DefaultGenerateOptions())

	var got strings.Builder
	for token := range contentCh {
		got.WriteString(token)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Hello world", got.String())
}

// TestAnthropicGenerateError tests error handling.
func TestAnthropicGenerateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"authentication_error"}}`))
	}))
	defer server.Close()

	gen, err := NewAnthropicGenerator("sk-ant-bad", "claude-3-5-haiku-20241022")
	require.NoError(t, err)
	gen.baseURL = server.URL

	_, err = gen.Generate(context.Background(), "test", DefaultGenerateOptions())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

// TestDefaultGenerateOptions tests default options.
func TestDefaultGenerateOptions(t *testing.T) {
	opts := DefaultGenerateOptions()
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 1024, opts.MaxTokens)
}

// TestProviderConstants tests provider constants.
func TestProviderConstants(t *testing.T) {
	assert.Equal(t, Provider("ollama"), ProviderOllama)
	assert.Equal(t, Provider("openai"), ProviderOpenAI)
	assert.Equal(t, Provider("anthropic"), ProviderAnthropic)
}
