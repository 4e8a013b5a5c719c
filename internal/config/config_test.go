package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Match.DuplicateThreshold != 0.92 {
		t.Errorf("Expected duplicate threshold 0.92, got %f", cfg.Match.DuplicateThreshold)
	}
	if cfg.Match.EnrichThreshold != 0.85 {
		t.Errorf("Expected enrich threshold 0.85, got %f", cfg.Match.EnrichThreshold)
	}
	if cfg.Match.WeakThreshold != 0.75 {
		t.Errorf("Expected weak threshold 0.75, got %f", cfg.Match.WeakThreshold)
	}
	if cfg.Match.TopK != 3 {
		t.Errorf("Expected top_k 3, got %d", cfg.Match.TopK)
	}
	if cfg.Match.BruteForceLimit != 200 {
		t.Errorf("Expected brute force limit 200, got %d", cfg.Match.BruteForceLimit)
	}
	if cfg.Fusion.K != 60 {
		t.Errorf("Expected fusion k 60, got %d", cfg.Fusion.K)
	}
	if cfg.Fusion.VectorWeight != 2.0 || cfg.Fusion.LexicalWeight != 1.0 {
		t.Errorf("Expected fusion weights 2.0/1.0, got %f/%f", cfg.Fusion.VectorWeight, cfg.Fusion.LexicalWeight)
	}
	if cfg.Clustering.SimilarityThreshold != 0.90 {
		t.Errorf("Expected clustering threshold 0.90, got %f", cfg.Clustering.SimilarityThreshold)
	}
	if err := cfg.Quality.CheckWeightSum(); err != nil {
		t.Errorf("Expected default quality weights to sum to 1.0: %v", err)
	}
}

func TestLoadRejectsBadWeightSum(t *testing.T) {
	Reset()
	defer Reset()

	viper.Set("quality.authority_weight", 0.90)

	if _, err := Load(""); err == nil {
		t.Error("Expected Load to reject weights summing past 1.0")
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	Reset()
	defer Reset()

	viper.Set("match.enrich_threshold", 0.95)

	if _, err := Load(""); err == nil {
		t.Error("Expected Load to reject enrich threshold above duplicate threshold")
	}
}

func TestCheckWeightSum(t *testing.T) {
	tests := []struct {
		name    string
		q       Quality
		wantErr bool
	}{
		{
			name: "exact",
			q:    Quality{AuthorityWeight: 0.30, DiversityWeight: 0.20, CorroborationWeight: 0.20, RecencyWeight: 0.15, SpecificityWeight: 0.15},
		},
		{
			name: "within tolerance",
			q:    Quality{AuthorityWeight: 0.305, DiversityWeight: 0.20, CorroborationWeight: 0.20, RecencyWeight: 0.15, SpecificityWeight: 0.15},
		},
		{
			name:    "under",
			q:       Quality{AuthorityWeight: 0.30, DiversityWeight: 0.20, CorroborationWeight: 0.20, RecencyWeight: 0.15},
			wantErr: true,
		},
		{
			name:    "over",
			q:       Quality{AuthorityWeight: 0.50, DiversityWeight: 0.30, CorroborationWeight: 0.20, RecencyWeight: 0.15, SpecificityWeight: 0.15},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.CheckWeightSum()
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckWeightSum() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
