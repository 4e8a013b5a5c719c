package core

import (
	"strings"
	"testing"
	"time"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain host", "https://nsf.gov/funding", "nsf.gov"},
		{"www stripped", "https://www.nsf.gov/funding", "nsf.gov"},
		{"subdomain kept", "https://grants.nih.gov/grants/guide", "grants.nih.gov"},
		{"uppercase lowered", "https://Grants.NIH.gov/a", "grants.nih.gov"},
		{"port dropped", "http://localhost:8080/x", "localhost"},
		{"unparseable", "://not-a-url", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DomainOf(tt.url); got != tt.want {
				t.Errorf("Expected domain %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("short text", 100); got != "short text" {
		t.Errorf("Expected short input to pass through, got %q", got)
	}

	long := strings.Repeat("word ", 200)
	got := Excerpt(long, 50)
	if len([]rune(got)) > 50 {
		t.Errorf("Expected excerpt length <= 50, got %d", len([]rune(got)))
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("Expected trimmed excerpt, got %q", got)
	}

	if got := Excerpt("a\n\n  b\t c", 100); got != "a b c" {
		t.Errorf("Expected collapsed whitespace, got %q", got)
	}
}

func TestStageTerminal(t *testing.T) {
	terminal := []Stage{StagePersisted, StageValidationRejected, StageTriageRejected, StageError}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Expected stage %s to be terminal", s)
		}
	}

	inFlight := []Stage{StageDiscovered, StageValidated, StageTriaged, StageAnalyzed, StageMatched}
	for _, s := range inFlight {
		if s.Terminal() {
			t.Errorf("Expected stage %s to not be terminal", s)
		}
	}
}

func TestNewSignalStatus(t *testing.T) {
	analysis := Analysis{
		SuggestedName: "EU Horizon climate adaptation call",
		Summary:       "New funding call for climate adaptation research.",
		Category:      "funding",
		Scores:        AnalysisScores{Relevance: 80, Impact: 70},
	}

	withEmbedding := NewSignal("EU Horizon climate adaptation call", []float64{0.1, 0.2}, analysis)
	if withEmbedding.Status != SignalActive {
		t.Errorf("Expected status active for embedded signal, got %s", withEmbedding.Status)
	}
	if withEmbedding.ID == "" {
		t.Error("Expected signal to get an id")
	}
	if withEmbedding.RelevanceScore != 80 || withEmbedding.ImpactScore != 70 {
		t.Error("Expected analysis scores to carry onto the signal")
	}
	if withEmbedding.CreatedAt.IsZero() || withEmbedding.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	withoutEmbedding := NewSignal("EU Horizon climate adaptation call", nil, analysis)
	if withoutEmbedding.Status != SignalNeedsReview {
		t.Errorf("Expected status needs_review without embedding, got %s", withoutEmbedding.Status)
	}
}

func TestNewSourceFields(t *testing.T) {
	doc := Document{
		URL:         "https://www.grants.example.org/call/42",
		Title:       "Call 42",
		Content:     "  Applications   are open. ",
		SourceType:  SourceTypeRSS,
		Provider:    "rss",
		PublishedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	src := NewSource(doc, []float64{0.5})

	if src.Domain != "grants.example.org" {
		t.Errorf("Expected domain grants.example.org, got %q", src.Domain)
	}
	if src.Excerpt != "Applications are open." {
		t.Errorf("Expected collapsed excerpt, got %q", src.Excerpt)
	}
	if src.SignalID != "" {
		t.Error("Expected new source to start unattached")
	}
	if src.DiscoveredAt.IsZero() {
		t.Error("Expected discovered_at to be set")
	}
}

func TestValidateStruct(t *testing.T) {
	rating := SourceRating{
		SourceID: "3f1f8b1a-1a2b-4c3d-8e4f-5a6b7c8d9e0f",
		RaterID:  "user-1",
		Rating:   5,
	}
	if err := ValidateStruct(rating); err != nil {
		t.Errorf("Expected valid rating to pass, got %v", err)
	}

	rating.Rating = 6
	if err := ValidateStruct(rating); err == nil {
		t.Error("Expected rating above 5 to fail validation")
	}

	rating.Rating = 0
	if err := ValidateStruct(rating); err == nil {
		t.Error("Expected rating below 1 to fail validation")
	}
}

func TestValidateDomainReputationTier(t *testing.T) {
	tier := 2
	rep := DomainReputation{
		ID:          "3f1f8b1a-1a2b-4c3d-8e4f-5a6b7c8d9e0f",
		Pattern:     "nsf.gov",
		CuratedTier: &tier,
	}
	if err := ValidateStruct(rep); err != nil {
		t.Errorf("Expected tier 2 to pass, got %v", err)
	}

	badTier := 4
	rep.CuratedTier = &badTier
	if err := ValidateStruct(rep); err == nil {
		t.Error("Expected tier 4 to fail validation")
	}

	rep.CuratedTier = nil
	if err := ValidateStruct(rep); err != nil {
		t.Errorf("Expected nil tier to pass, got %v", err)
	}
}
