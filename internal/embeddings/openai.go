package embeddings

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIModel is a sentence model backed by the OpenAI embeddings API.
type OpenAIModel struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIModel creates an OpenAI-backed sentence model.
func NewOpenAIModel(apiKey, model, baseURL string, dimensions int) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	if dimensions == 0 {
		dimensions = GetModelDimensions(model)
		if dimensions == 0 {
			dimensions = 1536
			log.Debug("unknown model dimensions, defaulting", "model", model, "dimensions", dimensions)
		}
	}

	return &OpenAIModel{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed generates an embedding for document text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float64, error) {
	log.Debug("requesting embedding from openai", "model", m.model)

	resp, err := m.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(m.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) > 0 {
		m.dimensions = len(embedding)
	}
	return embedding, nil
}

// EmbedQuery generates an embedding for query text. OpenAI models use no
// task prefixes, so this matches Embed.
func (m *OpenAIModel) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return m.Embed(ctx, text)
}

// Dimensions returns the embedding dimensions.
func (m *OpenAIModel) Dimensions() int {
	return m.dimensions
}

// Name returns the model name.
func (m *OpenAIModel) Name() string {
	return m.model
}
