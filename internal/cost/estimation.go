package cost

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"signalhound/internal/core"
)

// ModelPricing represents the current pricing for one model.
type ModelPricing struct {
	Model                 string
	InputCostPer1MTokens  float64 // Cost per 1M input tokens in USD
	OutputCostPer1MTokens float64 // Cost per 1M output tokens in USD
	EstimatedOutputTokens int     // Typical analysis response length
	MaxRequestsPerMinute  int     // Rate limiting
}

// PricingTable contains model pricing as of mid-2025. Embedding models
// bill input tokens only.
var PricingTable = map[string]ModelPricing{
	"gemini-2.5-flash": {
		Model:                 "gemini-2.5-flash",
		InputCostPer1MTokens:  0.30,
		OutputCostPer1MTokens: 2.50,
		EstimatedOutputTokens: 350,
		MaxRequestsPerMinute:  1000,
	},
	"gemini-2.5-flash-lite": {
		Model:                 "gemini-2.5-flash-lite",
		InputCostPer1MTokens:  0.10,
		OutputCostPer1MTokens: 0.40,
		EstimatedOutputTokens: 350,
		MaxRequestsPerMinute:  4000,
	},
	"gemini-2.5-pro": {
		Model:                 "gemini-2.5-pro",
		InputCostPer1MTokens:  1.25,
		OutputCostPer1MTokens: 10.00,
		EstimatedOutputTokens: 400,
		MaxRequestsPerMinute:  360,
	},
	"text-embedding-004": {
		Model:                "text-embedding-004",
		InputCostPer1MTokens: 0.15,
		MaxRequestsPerMinute: 1500,
	},
	"text-embedding-3-small": {
		Model:                "text-embedding-3-small",
		InputCostPer1MTokens: 0.02,
		MaxRequestsPerMinute: 3000,
	},
}

const (
	// Content sent to the model is capped; these mirror the excerpt
	// limits the llm client applies before prompting.
	triageContentChars  = 2000
	analyzeContentChars = 8000

	triagePromptTokens  = 140
	analyzePromptTokens = 260
	triageOutputTokens  = 60

	// Embedding input is the analysis summary, not the full document.
	embedInputTokens = 120
)

// DefaultTriagePassRate is the share of candidates assumed to survive
// the relevance screen when no history is available.
const DefaultTriagePassRate = 0.6

// EstimateTokenCount roughly converts text length into a token count.
// One token covers about 3.5 characters of English prose, with a little
// slack left for special tokens and formatting.
func EstimateTokenCount(text string) int {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\n", " ")
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 3.5))
}

// DocumentCostEstimate represents the expected model spend for one
// candidate document: a triage call for every document, plus analysis
// and embedding scaled by the triage pass rate.
type DocumentCostEstimate struct {
	URL                   string
	Title                 string
	EstimatedInputTokens  int
	EstimatedOutputTokens int
	TriageCost            float64
	AnalysisCost          float64
	EmbeddingCost         float64
	TotalCost             float64
}

// RunCostEstimate represents the total expected model spend for one
// ingestion run.
type RunCostEstimate struct {
	Model                 string
	EmbeddingModel        string
	TriagePassRate        float64
	ExpectedAnalyses      int
	Documents             []DocumentCostEstimate
	TotalInputTokens      int
	TotalOutputTokens     int
	TriageCost            float64
	AnalysisCost          float64
	EmbeddingCost         float64
	TotalCost             float64
	ProcessingTimeMinutes float64
	RateLimitWarning      string
}

// EstimateRunCost estimates what running the ingestion pipeline over
// the given documents would cost. Unknown model names fall back to
// gemini-2.5-flash and text-embedding-004 pricing; a passRate outside
// (0, 1] falls back to DefaultTriagePassRate.
func EstimateRunCost(docs []core.Document, modelName, embeddingModelName string, passRate float64) (*RunCostEstimate, error) {
	pricing, ok := PricingTable[modelName]
	if !ok {
		pricing = PricingTable["gemini-2.5-flash"]
	}
	embedding, ok := PricingTable[embeddingModelName]
	if !ok {
		embedding = PricingTable["text-embedding-004"]
	}
	if passRate <= 0 || passRate > 1 {
		passRate = DefaultTriagePassRate
	}

	estimate := &RunCostEstimate{
		Model:          modelName,
		EmbeddingModel: embeddingModelName,
		TriagePassRate: passRate,
		Documents:      make([]DocumentCostEstimate, 0, len(docs)),
	}

	for _, doc := range docs {
		docEst := estimateDocumentCost(doc, pricing, embedding, passRate)
		estimate.Documents = append(estimate.Documents, docEst)
		estimate.TotalInputTokens += docEst.EstimatedInputTokens
		estimate.TotalOutputTokens += docEst.EstimatedOutputTokens
		estimate.TriageCost += docEst.TriageCost
		estimate.AnalysisCost += docEst.AnalysisCost
		estimate.EmbeddingCost += docEst.EmbeddingCost
		estimate.TotalCost += docEst.TotalCost
	}

	estimate.ExpectedAnalyses = int(math.Round(passRate * float64(len(docs))))

	// Triage every document, then analyze and embed the expected
	// survivors. Assume roughly 2 seconds per request.
	totalRequests := len(docs) + estimate.ExpectedAnalyses*2
	estimate.ProcessingTimeMinutes = float64(totalRequests) * 2 / 60

	requestsPerMinute := float64(totalRequests) / math.Max(estimate.ProcessingTimeMinutes, 1)
	if requestsPerMinute > float64(pricing.MaxRequestsPerMinute) {
		estimate.RateLimitWarning = fmt.Sprintf(
			"Warning: Estimated %d requests may exceed rate limit of %d/min for %s",
			totalRequests, pricing.MaxRequestsPerMinute, modelName,
		)
	}

	return estimate, nil
}

// estimateDocumentCost estimates the spend for one document. Feed
// documents carry their content; bare seed URLs get a length guess
// from the URL shape.
func estimateDocumentCost(doc core.Document, pricing, embedding ModelPricing, passRate float64) DocumentCostEstimate {
	content := doc.Content
	if content == "" {
		content = estimateContentLength(doc.URL)
	}
	contentTokens := EstimateTokenCount(content)
	titleTokens := EstimateTokenCount(doc.Title)

	triageInput := min(contentTokens, excerptTokens(triageContentChars)) + titleTokens + triagePromptTokens
	analyzeInput := min(contentTokens, excerptTokens(analyzeContentChars)) + titleTokens + analyzePromptTokens

	triageCost := tokenCost(triageInput, pricing.InputCostPer1MTokens) +
		tokenCost(triageOutputTokens, pricing.OutputCostPer1MTokens)
	analysisCost := passRate * (tokenCost(analyzeInput, pricing.InputCostPer1MTokens) +
		tokenCost(pricing.EstimatedOutputTokens, pricing.OutputCostPer1MTokens))
	embeddingCost := passRate * tokenCost(embedInputTokens, embedding.InputCostPer1MTokens)

	return DocumentCostEstimate{
		URL:                   doc.URL,
		Title:                 doc.Title,
		EstimatedInputTokens:  triageInput + int(math.Round(passRate*float64(analyzeInput+embedInputTokens))),
		EstimatedOutputTokens: triageOutputTokens + int(math.Round(passRate*float64(pricing.EstimatedOutputTokens))),
		TriageCost:            triageCost,
		AnalysisCost:          analysisCost,
		EmbeddingCost:         embeddingCost,
		TotalCost:             triageCost + analysisCost + embeddingCost,
	}
}

// estimateContentLength provides a rough guess of document length for
// URLs whose content has not been fetched yet.
func estimateContentLength(url string) string {
	urlLower := strings.ToLower(url)

	switch {
	case strings.Contains(urlLower, "federalregister.gov"):
		return strings.Repeat("word ", 2500) // full notice and rule text
	case strings.Contains(urlLower, "grants.gov"):
		return strings.Repeat("word ", 1500) // funding opportunity notices
	case strings.Contains(urlLower, "medium.com") || strings.Contains(urlLower, "substack.com"):
		return strings.Repeat("word ", 1200) // long-form articles
	case strings.Contains(urlLower, "blog"):
		return strings.Repeat("word ", 800) // typical blog post
	case strings.Contains(urlLower, "press") || strings.Contains(urlLower, "news"):
		return strings.Repeat("word ", 600) // press releases run short
	default:
		return strings.Repeat("word ", 700)
	}
}

// tokenCost converts a token count into dollars at a per-1M-token rate.
func tokenCost(tokens int, per1MTokens float64) float64 {
	return float64(tokens) * per1MTokens / 1000000
}

// excerptTokens is the token budget of a content excerpt capped at the
// given character count.
func excerptTokens(chars int) int {
	return int(math.Ceil(float64(chars) / 3.5))
}

// FormatEstimate formats the cost estimate for display.
func (e *RunCostEstimate) FormatEstimate() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Cost Estimation for %s\n", e.Model))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString("📊 Summary:\n")
	sb.WriteString(fmt.Sprintf("   Documents to triage: %d\n", len(e.Documents)))
	sb.WriteString(fmt.Sprintf("   Expected past triage: ~%d (%.0f%% pass rate)\n", e.ExpectedAnalyses, e.TriagePassRate*100))
	sb.WriteString(fmt.Sprintf("   Total estimated cost: $%.6f\n", e.TotalCost))
	sb.WriteString(fmt.Sprintf("   Estimated processing time: %.1f minutes\n", e.ProcessingTimeMinutes))

	if e.RateLimitWarning != "" {
		sb.WriteString(fmt.Sprintf("   ⚠️  %s\n", e.RateLimitWarning))
	}
	sb.WriteString("\n")

	sb.WriteString("💰 Cost Breakdown:\n")
	sb.WriteString(fmt.Sprintf("   Triage: $%.6f\n", e.TriageCost))
	sb.WriteString(fmt.Sprintf("   Analysis: $%.6f\n", e.AnalysisCost))
	sb.WriteString(fmt.Sprintf("   Embeddings (%s): $%.6f\n", e.EmbeddingModel, e.EmbeddingCost))
	sb.WriteString(fmt.Sprintf("   Input tokens: %d, output tokens: %d\n", e.TotalInputTokens, e.TotalOutputTokens))
	sb.WriteString("\n")

	if len(e.Documents) > 0 {
		sb.WriteString("📝 Per-Document Estimates (showing first 5):\n")
		for i, doc := range e.Documents {
			if i >= 5 {
				sb.WriteString(fmt.Sprintf("   ... and %d more documents\n", len(e.Documents)-5))
				break
			}
			sb.WriteString(fmt.Sprintf("   %d. $%.6f - %s\n", i+1, doc.TotalCost, doc.URL))
		}
	}

	return sb.String()
}
