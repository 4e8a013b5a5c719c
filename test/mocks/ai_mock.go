package mocks

import (
	"context"
	"strings"
	"time"

	"signalhound/internal/core"
)

// MockClassifier provides a mock implementation of the pipeline's Classifier
type MockClassifier struct {
	TriageFunc  func(ctx context.Context, title, content string) (core.TriageResult, error)
	AnalyzeFunc func(ctx context.Context, title, content string, meta map[string]string) (core.Analysis, error)
}

func (m *MockClassifier) Triage(ctx context.Context, title, content string) (core.TriageResult, error) {
	if m.TriageFunc != nil {
		return m.TriageFunc(ctx, title, content)
	}
	return core.TriageResult{
		IsRelevant: true,
		Confidence: 0.9,
		Reason:     "funding opportunity",
	}, nil
}

func (m *MockClassifier) Analyze(ctx context.Context, title, content string, meta map[string]string) (core.Analysis, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, title, content, meta)
	}
	return core.Analysis{
		SuggestedName: title,
		Summary:       "Summary of " + title,
		Category:      "funding",
		Locale:        "en-US",
		Scores: core.AnalysisScores{
			Relevance:     80,
			Impact:        70,
			Novelty:       60,
			Urgency:       50,
			Credibility:   75,
			Specificity:   65,
			Actionability: 70,
		},
	}, nil
}

// MockEmbedder provides a mock implementation of the pipeline's Embedder
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float64, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float64{1, 0, 0}, nil
}

// MockFetcher provides a mock implementation of the pipeline's Fetcher
type MockFetcher struct {
	FetchDocumentFunc func(ctx context.Context, url string) (core.Document, error)
}

func (m *MockFetcher) FetchDocument(ctx context.Context, url string) (core.Document, error) {
	if m.FetchDocumentFunc != nil {
		return m.FetchDocumentFunc(ctx, url)
	}
	return core.Document{
		URL:         url,
		Title:       "Mock page at " + url,
		Content:     strings.Repeat("Mock page content for "+url+". ", 8),
		SourceType:  core.SourceTypeWeb,
		PublishedAt: time.Now().Add(-1 * time.Hour),
	}, nil
}
