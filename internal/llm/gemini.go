// Package llm implements the external Classifier and Embedder
// interfaces against Gemini, plus an embedder for any
// OpenAI-compatible endpoint. All calls carry bounded retry with
// exponential backoff; 4xx rejections are never retried.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"signalhound/internal/core"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model for triage and analysis.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultEmbeddingModel is the default model for generating embeddings.
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions is the output dimension for embeddings (Matryoshka).
	DefaultEmbeddingDimensions = int32(768)

	defaultMaxRetries = 3

	triageContentLimit  = 2000
	analyzeContentLimit = 8000
)

const triagePromptTemplate = `You screen documents for a catalog of grant and funding-trend signals. Decide whether the document describes a concrete funding opportunity, grant program change, or trend development worth tracking. Marketing fluff, job postings, and generic commentary are not relevant.

Title: %s

Content:
%s

Respond with your relevance decision, a confidence between 0.0 and 1.0, and a one-sentence reason.`

const analyzePromptTemplate = `You analyze documents for a catalog of grant and funding-trend signals. Read the document and produce:
- suggested_name: a concise canonical name for the underlying event or opportunity (not the headline)
- summary: 2-3 sentences covering what happened, who is affected, and any amounts or deadlines
- category: one of funding, policy, technology, market, other
- locale: the BCP-47 locale the document targets (e.g. "en-US"), best effort
- entities: organizations, programs, and instruments named in the document
- scores: integers 0-100 for relevance, impact, novelty, urgency, credibility, specificity, actionability. Score specificity high only when the document names amounts, dates, or eligibility criteria.

Title: %s
%s
Content:
%s`

var triageSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"is_relevant": {Type: genai.TypeBoolean},
		"confidence":  {Type: genai.TypeNumber},
		"reason":      {Type: genai.TypeString},
	},
	Required: []string{"is_relevant", "confidence", "reason"},
}

var analyzeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggested_name": {Type: genai.TypeString},
		"summary":        {Type: genai.TypeString},
		"category":       {Type: genai.TypeString},
		"locale":         {Type: genai.TypeString},
		"entities":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"scores": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"relevance":     {Type: genai.TypeInteger},
				"impact":        {Type: genai.TypeInteger},
				"novelty":       {Type: genai.TypeInteger},
				"urgency":       {Type: genai.TypeInteger},
				"credibility":   {Type: genai.TypeInteger},
				"specificity":   {Type: genai.TypeInteger},
				"actionability": {Type: genai.TypeInteger},
			},
			Required: []string{"relevance", "impact", "novelty", "urgency", "credibility", "specificity", "actionability"},
		},
	},
	Required: []string{"suggested_name", "summary", "category", "scores"},
}

// Client talks to Gemini for triage, analysis, and embeddings.
type Client struct {
	gClient    *genai.Client
	model      string
	embedModel string
	embedDims  int32
	maxRetries int
}

// ClientOptions configures the Gemini client. Zero values fall back
// to defaults; the API key falls back to the environment.
type ClientOptions struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	EmbeddingDims  int32
	MaxRetries     int
}

// NewClient creates a Gemini-backed client. The API key is resolved
// from the options, then GEMINI_API_KEY and its older variants.
func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			apiKey = os.Getenv("GOOGLE_AI_API_KEY")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in the config file")
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	embedModel := opts.EmbeddingModel
	if embedModel == "" {
		embedModel = DefaultEmbeddingModel
	}
	embedDims := opts.EmbeddingDims
	if embedDims <= 0 {
		embedDims = DefaultEmbeddingDimensions
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		gClient:    gClient,
		model:      model,
		embedModel: embedModel,
		embedDims:  embedDims,
		maxRetries: maxRetries,
	}, nil
}

// Triage is the cheap relevance screen run before full analysis.
func (c *Client) Triage(ctx context.Context, title, content string) (core.TriageResult, error) {
	prompt := fmt.Sprintf(triagePromptTemplate, title, truncate(content, triageContentLimit))

	var result core.TriageResult
	err := withRetry(ctx, c.maxRetries, "triage", func() error {
		text, err := c.generateJSON(ctx, prompt, triageSchema)
		if err != nil {
			return err
		}
		var parsed core.TriageResult
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return fmt.Errorf("triage: parsing response: %v: %w", err, ErrUnavailable)
		}
		result = parsed
		return nil
	})
	if err != nil {
		return core.TriageResult{}, err
	}

	result.Confidence = clamp01(result.Confidence)
	return result, nil
}

// Analyze is the full classification pass for documents that survived
// triage. meta carries provenance hints (domain, source type, dates)
// the model should see.
func (c *Client) Analyze(ctx context.Context, title, content string, meta map[string]string) (core.Analysis, error) {
	prompt := fmt.Sprintf(analyzePromptTemplate, title, formatMeta(meta), truncate(content, analyzeContentLimit))

	var result core.Analysis
	err := withRetry(ctx, c.maxRetries, "analyze", func() error {
		text, err := c.generateJSON(ctx, prompt, analyzeSchema)
		if err != nil {
			return err
		}
		var parsed core.Analysis
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return fmt.Errorf("analyze: parsing response: %v: %w", err, ErrUnavailable)
		}
		result = parsed
		return nil
	})
	if err != nil {
		return core.Analysis{}, err
	}

	clampScores(&result.Scores)
	if result.SuggestedName == "" {
		result.SuggestedName = title
	}
	return result, nil
}

// Embed generates the dedup embedding for a document. Uses Matryoshka
// truncation to a fixed dimension so every stored vector is comparable.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: truncate(text, analyzeContentLimit)}},
		Role:  "user",
	}}
	dims := c.embedDims
	config := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	var embedding []float64
	err := withRetry(ctx, c.maxRetries, "embed", func() error {
		resp, err := c.gClient.Models.EmbedContent(ctx, c.embedModel, contents, config)
		if err != nil {
			return classifyGeminiError("embed", err)
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
			return fmt.Errorf("embed: no values returned: %w", ErrUnavailable)
		}
		values := resp.Embeddings[0].Values
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

// generateJSON runs one structured-output generation call.
func (c *Client) generateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", classifyGeminiError("generate", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generate: empty response: %w", ErrUnavailable)
	}
	return text, nil
}

// ModelName returns the generation model in use.
func (c *Client) ModelName() string {
	return c.model
}

func formatMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	var b strings.Builder
	for _, key := range []string{"domain", "source_type", "published_at"} {
		if v, ok := meta[key]; ok && v != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, v)
		}
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampScores(scores *core.AnalysisScores) {
	for _, s := range []*int{
		&scores.Relevance, &scores.Impact, &scores.Novelty, &scores.Urgency,
		&scores.Credibility, &scores.Specificity, &scores.Actionability,
	} {
		if *s < 0 {
			*s = 0
		}
		if *s > 100 {
			*s = 100
		}
	}
}
