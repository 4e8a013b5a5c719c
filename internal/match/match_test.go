package match

import (
	"context"
	"errors"
	"testing"

	"signalhound/internal/search"
	"signalhound/internal/vectorstore"
)

type stubVectors struct {
	neighbors []vectorstore.Neighbor
	err       error
	calls     int
}

func (s *stubVectors) Nearest(ctx context.Context, embedding []float64, k int) ([]vectorstore.Neighbor, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.neighbors, nil
}

type stubLexical struct {
	ids []string
	err error
}

func (s *stubLexical) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

type stubEmbeddings struct {
	byID map[string][]float64
	err  error
}

func (s *stubEmbeddings) SignalEmbeddings(ctx context.Context, ids []string) (map[string][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string][]float64)
	for _, id := range ids {
		if emb, ok := s.byID[id]; ok {
			out[id] = emb
		}
	}
	return out, nil
}

func matcherWithTopHit(sim float64) *Matcher {
	return NewMatcher(&stubVectors{neighbors: []vectorstore.Neighbor{
		{SignalID: "sig-top", Similarity: sim},
		{SignalID: "sig-second", Similarity: sim - 0.1},
	}}, Config{})
}

func TestClassifyTiers(t *testing.T) {
	tests := []struct {
		name    string
		sim     float64
		verdict Verdict
	}{
		{"well above duplicate", 0.96, VerdictDuplicate},
		{"exactly duplicate threshold", 0.92, VerdictDuplicate},
		{"strong match", 0.87, VerdictEnrich},
		{"exactly enrich threshold", 0.85, VerdictEnrich},
		{"weak match", 0.80, VerdictWeakLink},
		{"exactly weak threshold", 0.75, VerdictWeakLink},
		{"just below weak", 0.7499, VerdictNew},
		{"unrelated", 0.30, VerdictNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := matcherWithTopHit(tt.sim)
			d, err := m.Classify(context.Background(), []float64{1, 0}, "")
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if d.Verdict != tt.verdict {
				t.Errorf("Expected verdict %s at similarity %.4f, got %s", tt.verdict, tt.sim, d.Verdict)
			}
			if tt.verdict != VerdictNew && d.SignalID != "sig-top" {
				t.Errorf("Expected best candidate sig-top, got %q", d.SignalID)
			}
			if tt.verdict == VerdictNew && d.SignalID != "" {
				t.Errorf("Expected no signal id on new verdict, got %q", d.SignalID)
			}
		})
	}
}

func TestClassifyMissingEmbedding(t *testing.T) {
	vectors := &stubVectors{}
	m := NewMatcher(vectors, Config{})

	d, err := m.Classify(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if d.Verdict != VerdictNeedsReview {
		t.Errorf("Expected needs_review for missing embedding, got %s", d.Verdict)
	}
	if d.Reason == "" {
		t.Error("Expected a reason on needs_review")
	}
	if vectors.calls != 0 {
		t.Error("Expected no index query for missing embedding")
	}
}

func TestClassifyEmptyCorpus(t *testing.T) {
	m := NewMatcher(&stubVectors{}, Config{})

	d, err := m.Classify(context.Background(), []float64{1, 0}, "")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if d.Verdict != VerdictNew {
		t.Errorf("Expected new on empty corpus, got %s", d.Verdict)
	}
}

func TestClassifyIndexFailure(t *testing.T) {
	m := NewMatcher(&stubVectors{err: errors.New("index down")}, Config{})

	if _, err := m.Classify(context.Background(), []float64{1, 0}, ""); err == nil {
		t.Error("Expected error when candidate retrieval fails")
	}
}

func TestClassifyIdempotent(t *testing.T) {
	m := matcherWithTopHit(0.88)
	embedding := []float64{1, 0}

	first, err := m.Classify(context.Background(), embedding, "")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	second, err := m.Classify(context.Background(), embedding, "")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected identical decisions, got %+v then %+v", first, second)
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	vectors := &stubVectors{neighbors: []vectorstore.Neighbor{{SignalID: "sig-a", Similarity: 0.80}}}
	m := NewMatcher(vectors, Config{Thresholds: Thresholds{Duplicate: 0.95, Enrich: 0.90, Weak: 0.60}})

	d, err := m.Classify(context.Background(), []float64{1, 0}, "")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if d.Verdict != VerdictWeakLink {
		t.Errorf("Expected weak_link under custom thresholds, got %s", d.Verdict)
	}
}

func TestClassifyLexicalPrefilterFindsDuplicate(t *testing.T) {
	// The vector index only surfaces a mediocre neighbor, but the
	// lexical prefilter knows a signal whose stored embedding is nearly
	// identical to the document's.
	query := []float64{1, 0, 0}
	vectors := &stubVectors{neighbors: []vectorstore.Neighbor{{SignalID: "sig-far", Similarity: 0.60}}}
	lex := &stubLexical{ids: []string{"sig-lex"}}
	embeddings := &stubEmbeddings{byID: map[string][]float64{
		"sig-lex": {0.999, 0.04, 0},
	}}

	m := NewMatcher(vectors, Config{}).WithPrefilter(lex, embeddings, search.NewFusion())

	d, err := m.Classify(context.Background(), query, "horizon climate call")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if d.Verdict != VerdictDuplicate {
		t.Errorf("Expected duplicate via lexical prefilter, got %s", d.Verdict)
	}
	if d.SignalID != "sig-lex" {
		t.Errorf("Expected sig-lex, got %s", d.SignalID)
	}
}

func TestClassifyPrefilterFailureDegrades(t *testing.T) {
	vectors := &stubVectors{neighbors: []vectorstore.Neighbor{{SignalID: "sig-a", Similarity: 0.93}}}
	lex := &stubLexical{err: errors.New("lexical index corrupted")}

	m := NewMatcher(vectors, Config{}).WithPrefilter(lex, &stubEmbeddings{}, search.NewFusion())

	d, err := m.Classify(context.Background(), []float64{1, 0}, "some query")
	if err != nil {
		t.Fatalf("Expected degradation, got error: %v", err)
	}
	if d.Verdict != VerdictDuplicate || d.SignalID != "sig-a" {
		t.Errorf("Expected vector-only duplicate decision, got %+v", d)
	}
}
