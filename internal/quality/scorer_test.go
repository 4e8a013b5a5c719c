package quality

import (
	"context"
	"math"
	"testing"
	"time"

	"signalhound/internal/clustering"
	"signalhound/internal/core"
	"signalhound/internal/reputation"
)

type stubAuthority struct {
	scores map[string]float64
}

func (s stubAuthority) AuthorityScore(_ context.Context, _ *reputation.Cache, domain string) float64 {
	if score, ok := s.scores[domain]; ok {
		return score
	}
	return 38
}

func newTestScorer(t *testing.T, scores map[string]float64) *Scorer {
	t.Helper()
	scorer, err := NewScorer(stubAuthority{scores: scores}, DefaultWeights(), 14*24*time.Hour, "en-US")
	if err != nil {
		t.Fatalf("Expected scorer construction to succeed, got %v", err)
	}
	return scorer
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"within tolerance", Weights{0.305, 0.20, 0.20, 0.15, 0.15}, false},
		{"under", Weights{0.20, 0.20, 0.20, 0.15, 0.15}, true},
		{"over", Weights{0.40, 0.20, 0.20, 0.15, 0.15}, true},
		{"zero", Weights{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("Expected weight sum %.3f to be rejected", tt.weights.Sum())
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected weight sum %.3f to pass, got %v", tt.weights.Sum(), err)
			}
		})
	}
}

func TestNewScorerRejectsBadWeights(t *testing.T) {
	_, err := NewScorer(stubAuthority{}, Weights{Authority: 1.5}, 0, "")
	if err == nil {
		t.Fatal("Expected construction to fail on a bad weight set")
	}
}

func TestDiversityScore(t *testing.T) {
	mk := func(types ...string) []core.Source {
		out := make([]core.Source, len(types))
		for i, st := range types {
			out[i] = core.Source{SourceType: st}
		}
		return out
	}

	tests := []struct {
		name    string
		sources []core.Source
		want    float64
	}{
		{"no sources", nil, 0},
		{"single type", mk(core.SourceTypeRSS), 40},
		{"repeated type counts once", mk(core.SourceTypeRSS, core.SourceTypeRSS), 40},
		{"two types", mk(core.SourceTypeRSS, core.SourceTypeWeb), 70},
		{"three types saturate", mk(core.SourceTypeRSS, core.SourceTypeWeb, core.SourceTypeAPI), 100},
		{"four types stay at cap", mk(core.SourceTypeRSS, core.SourceTypeWeb, core.SourceTypeAPI, core.SourceTypeSeed), 100},
	}

	for _, tt := range tests {
		if got := diversityScore(tt.sources); got != tt.want {
			t.Errorf("%s: Expected diversity %.0f, got %.0f", tt.name, tt.want, got)
		}
	}
}

func TestCorroborationScore(t *testing.T) {
	if got := corroborationScore(0); got != 0 {
		t.Errorf("Expected 0 for no corroborated clusters, got %.1f", got)
	}
	if got := corroborationScore(1); got != 50 {
		t.Errorf("Expected 50 for one corroborated cluster, got %.1f", got)
	}
	if got := corroborationScore(2); got != 75 {
		t.Errorf("Expected 75 for two corroborated clusters, got %.1f", got)
	}

	prev := 0.0
	for n := 1; n <= 10; n++ {
		got := corroborationScore(n)
		if got <= prev {
			t.Fatalf("Expected monotone growth at n=%d, got %.2f after %.2f", n, got, prev)
		}
		if got > 100 {
			t.Fatalf("Expected saturation below 100, got %.2f", got)
		}
		prev = got
	}
}

func TestRecencyScore(t *testing.T) {
	halfLife := 14 * 24 * time.Hour

	if got := recencyScore(time.Time{}, halfLife); got != 0 {
		t.Errorf("Expected 0 for unknown publication time, got %.1f", got)
	}
	if got := recencyScore(time.Now(), halfLife); got < 99 {
		t.Errorf("Expected ~100 for a fresh source, got %.1f", got)
	}

	got := recencyScore(time.Now().Add(-halfLife), halfLife)
	if math.Abs(got-50) > 1 {
		t.Errorf("Expected ~50 after one half-life, got %.1f", got)
	}

	stale := recencyScore(time.Now().Add(-10*halfLife), halfLife)
	if stale > 1 || stale < 0 {
		t.Errorf("Expected very stale sources to floor near 0, got %.2f", stale)
	}
}

func TestSpecificityScore(t *testing.T) {
	scorer := newTestScorer(t, nil)

	base := scorer.specificityScore(core.Signal{SpecificityScore: 50}, nil)
	if base != 30 {
		t.Errorf("Expected analysis-only specificity 30, got %.0f", base)
	}

	official := scorer.specificityScore(core.Signal{SpecificityScore: 50}, []string{"nsf.gov"})
	if official != 50 {
		t.Errorf("Expected official-domain bonus to add 20, got %.0f", official)
	}

	localized := scorer.specificityScore(core.Signal{SpecificityScore: 50, Locale: "en"}, nil)
	if localized != 50 {
		t.Errorf("Expected locale bonus for shared language tag, got %.0f", localized)
	}

	maxed := scorer.specificityScore(core.Signal{SpecificityScore: 100, Locale: "en-US"}, []string{"grants.gov"})
	if maxed != 100 {
		t.Errorf("Expected specificity clamped at 100, got %.0f", maxed)
	}
}

func TestScoreSubScoresStayBounded(t *testing.T) {
	scorer := newTestScorer(t, map[string]float64{"nsf.gov": 100})
	now := time.Now()

	signal := core.Signal{ID: "sig-1", SpecificityScore: 100, Locale: "en-US"}
	sources := []core.Source{
		{ID: "src-1", Domain: "nsf.gov", SourceType: core.SourceTypeRSS, PublishedAt: now, Embedding: []float64{1, 0}},
		{ID: "src-2", Domain: "reuters.com", SourceType: core.SourceTypeWeb, PublishedAt: now, Embedding: []float64{0.98, 0.2}},
		{ID: "src-3", Domain: "apnews.com", SourceType: core.SourceTypeAPI, PublishedAt: now, Embedding: []float64{0, 1}},
	}
	partition := clustering.NewEngine(0.90).Cluster(sources)

	b := scorer.Score(context.Background(), reputation.NewCache(), signal, sources, partition)

	for name, score := range map[string]float64{
		"authority":     b.Authority,
		"diversity":     b.Diversity,
		"corroboration": b.Corroboration,
		"recency":       b.Recency,
		"specificity":   b.Specificity,
	} {
		if score < 0 || score > 100 {
			t.Errorf("Expected %s in [0,100], got %.2f", name, score)
		}
	}
	if b.Composite < 0 || b.Composite > 100 {
		t.Errorf("Expected composite in [0,100], got %d", b.Composite)
	}
	if b.SourceCount != 3 || b.DomainCount != 3 {
		t.Errorf("Expected audit counts 3/3, got %d/%d", b.SourceCount, b.DomainCount)
	}
	if b.ComputedAt.IsZero() {
		t.Error("Expected breakdown timestamp to be set")
	}
}

func TestScoreCorroborationRaisesComposite(t *testing.T) {
	// A second source from a different domain, similar enough to share
	// a story cluster, must raise the corroboration sub-score.
	scorer := newTestScorer(t, nil)
	engine := clustering.NewEngine(0.90)
	now := time.Now()
	signal := core.Signal{ID: "sig-1", SpecificityScore: 40}

	first := core.Source{
		ID: "src-a", Domain: "nsf.gov", SourceType: core.SourceTypeRSS,
		PublishedAt: now, Embedding: []float64{1, 0},
	}
	second := core.Source{
		ID: "src-b", Domain: "reuters.com", SourceType: core.SourceTypeRSS,
		PublishedAt: now, Embedding: []float64{0.98, 0.19},
	}

	ctx := context.Background()
	before := scorer.Score(ctx, nil, signal, []core.Source{first}, engine.Cluster([]core.Source{first}))
	after := scorer.Score(ctx, nil, signal, []core.Source{first, second}, engine.Cluster([]core.Source{first, second}))

	if before.Corroboration != 0 {
		t.Errorf("Expected no corroboration with a single source, got %.1f", before.Corroboration)
	}
	if after.Corroboration != 50 {
		t.Errorf("Expected corroboration 50 with a cross-domain cluster, got %.1f", after.Corroboration)
	}
	if after.Composite <= before.Composite {
		t.Errorf("Expected composite to rise with corroboration, got %d -> %d", before.Composite, after.Composite)
	}
}

func TestScoreIdempotent(t *testing.T) {
	scorer := newTestScorer(t, map[string]float64{"nsf.gov": 80})
	signal := core.Signal{ID: "sig-1", SpecificityScore: 60, Locale: "en-US"}
	sources := []core.Source{
		{ID: "src-1", Domain: "nsf.gov", SourceType: core.SourceTypeRSS, PublishedAt: time.Now().Add(-time.Hour), Embedding: []float64{1, 0}},
	}
	partition := clustering.NewEngine(0.90).Cluster(sources)

	ctx := context.Background()
	first := scorer.Score(ctx, nil, signal, sources, partition)
	second := scorer.Score(ctx, nil, signal, sources, partition)

	if first.Composite != second.Composite {
		t.Errorf("Expected identical composites, got %d and %d", first.Composite, second.Composite)
	}
	if first.Authority != second.Authority || first.Diversity != second.Diversity ||
		first.Corroboration != second.Corroboration || first.Specificity != second.Specificity {
		t.Error("Expected identical sub-scores on recomputation")
	}
}
