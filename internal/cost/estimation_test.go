package cost

import (
	"math"
	"strings"
	"testing"

	"signalhound/internal/core"
)

func TestEstimateTokenCount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
		{
			name:     "simple text",
			input:    "Hello world",
			expected: 4, // 11 chars / 3.5 ≈ 3.14, ceil = 4
		},
		{
			name:     "longer text",
			input:    "The agency announced a new round of infrastructure grants this week.",
			expected: 20, // 68 chars / 3.5 ≈ 19.43, ceil = 20
		},
		{
			name:     "text with newlines",
			input:    "Line 1\nLine 2\nLine 3",
			expected: 6, // 20 chars (newlines replaced) / 3.5 ≈ 5.71, ceil = 6
		},
		{
			name:     "text with surrounding whitespace",
			input:    "  Grant   portal  ",
			expected: 4, // After trimming: "Grant   portal" = 14 chars / 3.5 = 4
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EstimateTokenCount(tt.input)
			if result != tt.expected {
				t.Errorf("EstimateTokenCount(%q) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestEstimateContentLength(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		expectedWords int
	}{
		{
			name:          "federal register notice",
			url:           "https://www.federalregister.gov/documents/2025/07/14/funding-notice",
			expectedWords: 2500,
		},
		{
			name:          "grants.gov opportunity",
			url:           "https://www.grants.gov/search-results-detail/358214",
			expectedWords: 1500,
		},
		{
			name:          "medium article",
			url:           "https://medium.com/@analyst/grant-landscape",
			expectedWords: 1200,
		},
		{
			name:          "substack post",
			url:           "https://philanthropy.substack.com/p/q3-outlook",
			expectedWords: 1200,
		},
		{
			name:          "blog post",
			url:           "https://example.com/blog/new-program",
			expectedWords: 800,
		},
		{
			name:          "press release",
			url:           "https://foundation.org/press/2025-awards",
			expectedWords: 600,
		},
		{
			name:          "newsroom article",
			url:           "https://example.com/newsroom/article-1",
			expectedWords: 600,
		},
		{
			name:          "generic URL",
			url:           "https://example.org/some-page",
			expectedWords: 700,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := estimateContentLength(tt.url)
			words := strings.Fields(result)
			if len(words) != tt.expectedWords {
				t.Errorf("estimateContentLength(%q) returned %d words, expected %d", tt.url, len(words), tt.expectedWords)
			}
		})
	}
}

func TestPricingTableExists(t *testing.T) {
	expectedModels := []string{
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
		"gemini-2.5-pro",
		"text-embedding-004",
		"text-embedding-3-small",
	}

	for _, model := range expectedModels {
		if _, exists := PricingTable[model]; !exists {
			t.Errorf("Expected model %s to exist in PricingTable", model)
		}
	}
}

func TestPricingTableValues(t *testing.T) {
	flashPricing := PricingTable["gemini-2.5-flash"]
	if flashPricing.InputCostPer1MTokens != 0.30 {
		t.Errorf("Expected Flash input cost to be 0.30, got %f", flashPricing.InputCostPer1MTokens)
	}
	if flashPricing.OutputCostPer1MTokens != 2.50 {
		t.Errorf("Expected Flash output cost to be 2.50, got %f", flashPricing.OutputCostPer1MTokens)
	}

	proPricing := PricingTable["gemini-2.5-pro"]
	if proPricing.InputCostPer1MTokens != 1.25 {
		t.Errorf("Expected Pro input cost to be 1.25, got %f", proPricing.InputCostPer1MTokens)
	}
	if proPricing.OutputCostPer1MTokens != 10.00 {
		t.Errorf("Expected Pro output cost to be 10.00, got %f", proPricing.OutputCostPer1MTokens)
	}
}

func TestEstimateRunCost(t *testing.T) {
	docs := []core.Document{
		{
			URL:     "https://example.com/program",
			Title:   "New grant program",
			Content: strings.Repeat("program detail ", 200),
		},
		{
			URL: "https://example.org/seed-page",
		},
	}

	estimate, err := EstimateRunCost(docs, "gemini-2.5-flash", "text-embedding-004", 0.5)
	if err != nil {
		t.Fatalf("EstimateRunCost returned error: %v", err)
	}

	if estimate.Model != "gemini-2.5-flash" {
		t.Errorf("Expected model to be 'gemini-2.5-flash', got %s", estimate.Model)
	}
	if estimate.EmbeddingModel != "text-embedding-004" {
		t.Errorf("Expected embedding model to be 'text-embedding-004', got %s", estimate.EmbeddingModel)
	}
	if len(estimate.Documents) != 2 {
		t.Errorf("Expected 2 documents, got %d", len(estimate.Documents))
	}
	if estimate.ExpectedAnalyses != 1 {
		t.Errorf("Expected 1 expected analysis at 50%% pass rate, got %d", estimate.ExpectedAnalyses)
	}
	if estimate.TotalCost <= 0 {
		t.Errorf("Expected positive total cost, got %f", estimate.TotalCost)
	}
	if estimate.TotalInputTokens <= 0 {
		t.Errorf("Expected positive input tokens, got %d", estimate.TotalInputTokens)
	}
	if estimate.TotalOutputTokens <= 0 {
		t.Errorf("Expected positive output tokens, got %d", estimate.TotalOutputTokens)
	}
	if estimate.ProcessingTimeMinutes <= 0 {
		t.Errorf("Expected positive processing time, got %f", estimate.ProcessingTimeMinutes)
	}

	componentSum := estimate.TriageCost + estimate.AnalysisCost + estimate.EmbeddingCost
	if math.Abs(componentSum-estimate.TotalCost) > 1e-9 {
		t.Errorf("Expected component costs to sum to total %f, got %f", estimate.TotalCost, componentSum)
	}
}

func TestEstimateRunCost_UnknownModel(t *testing.T) {
	docs := []core.Document{{URL: "https://example.com/article"}}

	estimate, err := EstimateRunCost(docs, "mystery-model", "mystery-embedder", 0.5)
	if err != nil {
		t.Fatalf("EstimateRunCost returned error: %v", err)
	}

	// The requested name is reported; pricing falls back to the defaults.
	if estimate.Model != "mystery-model" {
		t.Errorf("Expected model to be 'mystery-model', got %s", estimate.Model)
	}
	if estimate.TotalCost <= 0 {
		t.Errorf("Expected positive total cost from fallback pricing, got %f", estimate.TotalCost)
	}
}

func TestEstimateRunCost_DefaultPassRate(t *testing.T) {
	estimate, err := EstimateRunCost(nil, "gemini-2.5-flash", "text-embedding-004", 0)
	if err != nil {
		t.Fatalf("EstimateRunCost returned error: %v", err)
	}

	if estimate.TriagePassRate != DefaultTriagePassRate {
		t.Errorf("Expected default pass rate %f, got %f", DefaultTriagePassRate, estimate.TriagePassRate)
	}
	if estimate.TotalCost != 0 {
		t.Errorf("Expected zero cost for empty run, got %f", estimate.TotalCost)
	}
}

func TestEstimateRunCost_CapsLongContent(t *testing.T) {
	docs := []core.Document{
		{URL: "https://example.com/a", Title: "Long", Content: strings.Repeat("word ", 5000)},
		{URL: "https://example.com/b", Title: "Long", Content: strings.Repeat("word ", 40000)},
	}

	estimate, err := EstimateRunCost(docs, "gemini-2.5-flash", "text-embedding-004", 1.0)
	if err != nil {
		t.Fatalf("EstimateRunCost returned error: %v", err)
	}

	first := estimate.Documents[0]
	second := estimate.Documents[1]
	if first.EstimatedInputTokens != second.EstimatedInputTokens {
		t.Errorf("Expected content past the excerpt cap to cost the same, got %d and %d",
			first.EstimatedInputTokens, second.EstimatedInputTokens)
	}
}

func TestEstimateDocumentCost(t *testing.T) {
	doc := core.Document{
		URL:   "https://example.com/article",
		Title: "Award notice",
	}

	pricing := PricingTable["gemini-2.5-flash"]
	embedding := PricingTable["text-embedding-004"]
	estimate := estimateDocumentCost(doc, pricing, embedding, 1.0)

	if estimate.URL != doc.URL {
		t.Errorf("Expected URL to be %s, got %s", doc.URL, estimate.URL)
	}
	if estimate.EstimatedInputTokens <= 0 {
		t.Errorf("Expected positive input tokens, got %d", estimate.EstimatedInputTokens)
	}
	if estimate.EstimatedOutputTokens <= 0 {
		t.Errorf("Expected positive output tokens, got %d", estimate.EstimatedOutputTokens)
	}
	if estimate.TriageCost <= 0 {
		t.Errorf("Expected positive triage cost, got %f", estimate.TriageCost)
	}
	if estimate.AnalysisCost <= 0 {
		t.Errorf("Expected positive analysis cost, got %f", estimate.AnalysisCost)
	}
	if estimate.EmbeddingCost <= 0 {
		t.Errorf("Expected positive embedding cost, got %f", estimate.EmbeddingCost)
	}

	expectedTotal := estimate.TriageCost + estimate.AnalysisCost + estimate.EmbeddingCost
	if estimate.TotalCost != expectedTotal {
		t.Errorf("Expected total cost %f, got %f", expectedTotal, estimate.TotalCost)
	}
}

func TestFormatEstimate(t *testing.T) {
	docs := []core.Document{{URL: "https://example.com/article", Title: "Award notice"}}

	estimate, err := EstimateRunCost(docs, "gemini-2.5-flash", "text-embedding-004", 0.5)
	if err != nil {
		t.Fatalf("EstimateRunCost returned error: %v", err)
	}

	formatted := estimate.FormatEstimate()

	if !strings.Contains(formatted, "Cost Estimation for gemini-2.5-flash") {
		t.Errorf("Formatted estimate should contain model name header")
	}
	if !strings.Contains(formatted, "📊 Summary:") {
		t.Errorf("Formatted estimate should contain summary section")
	}
	if !strings.Contains(formatted, "💰 Cost Breakdown:") {
		t.Errorf("Formatted estimate should contain cost breakdown section")
	}
	if !strings.Contains(formatted, "📝 Per-Document Estimates") {
		t.Errorf("Formatted estimate should contain per-document section")
	}
	if !strings.Contains(formatted, "Documents to triage: 1") {
		t.Errorf("Formatted estimate should show correct document count")
	}
}

func TestFormatEstimate_TruncatesLongRuns(t *testing.T) {
	var docs []core.Document
	for i := 0; i < 8; i++ {
		docs = append(docs, core.Document{URL: "https://example.com/article"})
	}

	estimate, err := EstimateRunCost(docs, "gemini-2.5-flash", "text-embedding-004", 0.5)
	if err != nil {
		t.Fatalf("EstimateRunCost returned error: %v", err)
	}

	formatted := estimate.FormatEstimate()
	if !strings.Contains(formatted, "... and 3 more documents") {
		t.Errorf("Expected per-document list to truncate after 5 entries, got:\n%s", formatted)
	}
}
