package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIEmbeddingModel is used when no model is configured.
// Any OpenAI-compatible endpoint (LocalAI, Ollama's shim, the real
// thing) works through BaseURL.
const DefaultOpenAIEmbeddingModel = "text-embedding-3-small"

// OpenAIEmbedder satisfies the same Embed contract as the Gemini
// client for deployments that embed against an OpenAI-compatible
// endpoint instead.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	maxRetries int
}

func NewOpenAIEmbedder(apiKey, baseURL, model string, maxRetries int) *OpenAIEmbedder {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIEmbeddingModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		maxRetries: maxRetries,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	var embedding []float64
	err := withRetry(ctx, e.maxRetries, "embed", func() error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{truncate(text, analyzeContentLimit)},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return classifyOpenAIError("embed", err)
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embed: no values returned: %w", ErrUnavailable)
		}
		values := resp.Data[0].Embedding
		embedding = make([]float64, len(values))
		for i, v := range values {
			embedding[i] = float64(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}
