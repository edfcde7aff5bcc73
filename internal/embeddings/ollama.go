package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Task prefixes for models trained with asymmetric document/query inputs.
var taskPrefixes = map[string]struct {
	document string
	query    string
}{
	"nomic-embed-text": {
		document: "search_document: ",
		query:    "search_query: ",
	},
	"mxbai-embed-large": {
		document: "",
		query:    "Represent this sentence for searching relevant passages: ",
	},
}

// OllamaModel is a sentence model backed by a local Ollama server.
type OllamaModel struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// ollamaEmbedRequest is the request body for the Ollama embed API.
type ollamaEmbedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive,omitempty"`
	Truncate  bool     `json:"truncate,omitempty"`
}

// ollamaEmbedResponse is the response from the Ollama embed API.
type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewOllamaModel creates an Ollama-backed sentence model.
func NewOllamaModel(baseURL, model string) *OllamaModel {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	dimensions := GetModelDimensions(model)
	if dimensions == 0 {
		// Corrected from the first response when the model is unknown.
		dimensions = 768
		log.Debug("unknown model dimensions, defaulting", "model", model, "dimensions", dimensions)
	}

	return &OllamaModel{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Embed generates an embedding for document text.
func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float64, error) {
	return m.embedOne(ctx, m.applyPrefix(text, false))
}

// EmbedQuery generates an embedding for query text.
func (m *OllamaModel) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return m.embedOne(ctx, m.applyPrefix(text, true))
}

// Dimensions returns the embedding dimensions.
func (m *OllamaModel) Dimensions() int {
	return m.dimensions
}

// Name returns the model name.
func (m *OllamaModel) Name() string {
	return m.model
}

// applyPrefix applies the appropriate task prefix for the model.
func (m *OllamaModel) applyPrefix(text string, isQuery bool) string {
	prefixes, ok := taskPrefixes[m.model]
	if !ok {
		return text
	}

	if isQuery {
		return prefixes.query + text
	}
	return prefixes.document + text
}

func (m *OllamaModel) embedOne(ctx context.Context, text string) ([]float64, error) {
	embeddings, err := m.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// embedTexts performs the actual embedding request.
func (m *OllamaModel) embedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	reqBody := ollamaEmbedRequest{
		Model:    m.model,
		Input:    texts,
		Truncate: true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := m.baseURL + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug("requesting embeddings from ollama", "model", m.model, "count", len(texts))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embeddings) > 0 && len(result.Embeddings[0]) > 0 {
		m.dimensions = len(result.Embeddings[0])
	}

	return result.Embeddings, nil
}
