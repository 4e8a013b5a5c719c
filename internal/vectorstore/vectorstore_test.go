package vectorstore

import (
	"context"
	"errors"
	"math"
	"testing"

	"signalhound/internal/core"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 1.0},
		{"orthogonal", []float64{1, 0, 0}, []float64{0, 1, 0}, 0.0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"scaled", []float64{2, 0}, []float64{5, 0}, 1.0},
		{"mismatched lengths", []float64{1, 0}, []float64{1, 0, 0}, 0.0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0.0},
		{"both empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestChromemIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := NewChromemIndex(t.TempDir(), "signals")
	if err != nil {
		t.Fatalf("Failed to open chromem index: %v", err)
	}

	// Empty collection returns empty, not an error
	neighbors, err := idx.Nearest(ctx, []float64{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Nearest on empty collection failed: %v", err)
	}
	if len(neighbors) != 0 {
		t.Errorf("Expected no neighbors from empty collection, got %d", len(neighbors))
	}

	vectors := map[string][]float64{
		"sig-a": {1, 0, 0},
		"sig-b": {0.96, 0.28, 0},
		"sig-c": {0, 1, 0},
	}
	for id, v := range vectors {
		if err := idx.Upsert(ctx, id, v); err != nil {
			t.Fatalf("Upsert %s failed: %v", id, err)
		}
	}

	count, err := idx.Count(ctx)
	if err != nil || count != 3 {
		t.Fatalf("Expected count 3, got %d (err %v)", count, err)
	}

	// k larger than the collection is clamped, not an error
	neighbors, err = idx.Nearest(ctx, []float64{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(neighbors) != 3 {
		t.Fatalf("Expected 3 neighbors, got %d", len(neighbors))
	}
	if neighbors[0].SignalID != "sig-a" {
		t.Errorf("Expected sig-a first, got %s", neighbors[0].SignalID)
	}
	if neighbors[1].SignalID != "sig-b" {
		t.Errorf("Expected sig-b second, got %s", neighbors[1].SignalID)
	}
	for i := 1; i < len(neighbors); i++ {
		if neighbors[i].Similarity > neighbors[i-1].Similarity {
			t.Error("Expected neighbors in descending similarity order")
		}
	}

	// Upsert with an existing id replaces the stored vector
	if err := idx.Upsert(ctx, "sig-c", []float64{0.99, 0.1, 0}); err != nil {
		t.Fatalf("Re-upsert failed: %v", err)
	}
	count, _ = idx.Count(ctx)
	if count != 3 {
		t.Errorf("Expected count to stay 3 after re-upsert, got %d", count)
	}

	if err := idx.Delete(ctx, "sig-b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	count, _ = idx.Count(ctx)
	if count != 2 {
		t.Errorf("Expected count 2 after delete, got %d", count)
	}

	if err := idx.Upsert(ctx, "sig-d", nil); err == nil {
		t.Error("Expected empty embedding upsert to fail")
	}
}

type failingIndex struct{}

func (f *failingIndex) Upsert(ctx context.Context, id string, e []float64) error {
	return ErrUnavailable
}
func (f *failingIndex) Nearest(ctx context.Context, e []float64, k int) ([]Neighbor, error) {
	return nil, ErrUnavailable
}
func (f *failingIndex) Delete(ctx context.Context, id string) error { return ErrUnavailable }
func (f *failingIndex) Count(ctx context.Context) (int, error)      { return 0, ErrUnavailable }

type healthyIndex struct {
	neighbors []Neighbor
}

func (h *healthyIndex) Upsert(ctx context.Context, id string, e []float64) error { return nil }
func (h *healthyIndex) Nearest(ctx context.Context, e []float64, k int) ([]Neighbor, error) {
	return h.neighbors, nil
}
func (h *healthyIndex) Delete(ctx context.Context, id string) error { return nil }
func (h *healthyIndex) Count(ctx context.Context) (int, error)      { return len(h.neighbors), nil }

type stubLister struct {
	signals  []core.Signal
	err      error
	gotLimit int
}

func (s *stubLister) ListActiveEmbedded(ctx context.Context, limit int) ([]core.Signal, error) {
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.signals, nil
}

func TestFallbackDelegatesWhenHealthy(t *testing.T) {
	primary := &healthyIndex{neighbors: []Neighbor{{SignalID: "sig-a", Similarity: 0.99}}}
	lister := &stubLister{}
	fb := NewFallback(primary, lister, 200)

	neighbors, err := fb.Nearest(context.Background(), []float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].SignalID != "sig-a" {
		t.Errorf("Expected primary result passthrough, got %+v", neighbors)
	}
	if lister.gotLimit != 0 {
		t.Error("Expected repository scan to be skipped when primary is healthy")
	}
}

func TestFallbackScansOnIndexFailure(t *testing.T) {
	lister := &stubLister{signals: []core.Signal{
		{ID: "sig-far", Embedding: []float64{0, 1, 0}},
		{ID: "sig-near", Embedding: []float64{1, 0, 0}},
		{ID: "sig-mid", Embedding: []float64{0.9, 0.43, 0}},
	}}
	fb := NewFallback(&failingIndex{}, lister, 200)

	neighbors, err := fb.Nearest(context.Background(), []float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Fallback scan failed: %v", err)
	}
	if lister.gotLimit != 200 {
		t.Errorf("Expected scan limit 200, got %d", lister.gotLimit)
	}
	if len(neighbors) != 2 {
		t.Fatalf("Expected top 2 neighbors, got %d", len(neighbors))
	}
	if neighbors[0].SignalID != "sig-near" || neighbors[1].SignalID != "sig-mid" {
		t.Errorf("Expected sig-near then sig-mid, got %+v", neighbors)
	}
}

func TestFallbackPropagatesScanFailure(t *testing.T) {
	lister := &stubLister{err: errors.New("db down")}
	fb := NewFallback(&failingIndex{}, lister, 50)

	if _, err := fb.Nearest(context.Background(), []float64{1, 0}, 3); err == nil {
		t.Error("Expected error when both index and repository fail")
	}
}
