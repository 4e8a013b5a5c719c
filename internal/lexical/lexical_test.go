package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"signalhound/internal/core"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "lexical"))
	if err != nil {
		t.Fatalf("Failed to open lexical index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	signals := []core.Signal{
		{ID: "sig-climate", Name: "EU climate adaptation grants", Summary: "Funding for climate resilience projects", Category: "funding"},
		{ID: "sig-quantum", Name: "Quantum computing research call", Summary: "National program for quantum hardware", Category: "funding"},
		{ID: "sig-health", Name: "Rural health infrastructure program", Summary: "Hospital modernization support", Category: "policy"},
	}
	for _, s := range signals {
		if err := idx.IndexSignal(s); err != nil {
			t.Fatalf("IndexSignal(%s) failed: %v", s.ID, err)
		}
	}

	count, err := idx.Count()
	if err != nil || count != 3 {
		t.Fatalf("Expected 3 indexed signals, got %d (err %v)", count, err)
	}

	ids, err := idx.Search(ctx, "climate grants", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) == 0 || ids[0] != "sig-climate" {
		t.Errorf("Expected sig-climate ranked first, got %v", ids)
	}

	ids, err = idx.Search(ctx, "quantum", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "sig-quantum" {
		t.Errorf("Expected only sig-quantum, got %v", ids)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	idx := newTestIndex(t)

	ids, err := idx.Search(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("Blank query should not error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no hits for blank query, got %v", ids)
	}
}

func TestReindexReplacesDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	s := core.Signal{ID: "sig-1", Name: "Original fisheries subsidy call"}
	if err := idx.IndexSignal(s); err != nil {
		t.Fatalf("IndexSignal failed: %v", err)
	}

	s.Name = "Renamed aquaculture subsidy call"
	if err := idx.IndexSignal(s); err != nil {
		t.Fatalf("Re-index failed: %v", err)
	}

	ids, _ := idx.Search(ctx, "aquaculture", 10)
	if len(ids) != 1 || ids[0] != "sig-1" {
		t.Errorf("Expected renamed signal to match, got %v", ids)
	}

	count, _ := idx.Count()
	if count != 1 {
		t.Errorf("Expected count 1 after re-index, got %d", count)
	}
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.IndexSignal(core.Signal{ID: "sig-1", Name: "Battery storage pilot funding"}); err != nil {
		t.Fatalf("IndexSignal failed: %v", err)
	}
	if err := idx.Delete("sig-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	ids, err := idx.Search(ctx, "battery", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no hits after delete, got %v", ids)
	}
}
