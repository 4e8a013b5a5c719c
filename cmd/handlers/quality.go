package handlers

import (
	"context"
	"fmt"
	"time"

	"signalhound/internal/clustering"
	"signalhound/internal/config"
	"signalhound/internal/core"
	"signalhound/internal/logger"
	"signalhound/internal/persistence"
	"signalhound/internal/quality"
	"signalhound/internal/reputation"

	"github.com/spf13/cobra"
)

// NewQualityCmd creates the quality maintenance command
func NewQualityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Maintain signal quality scores",
		Long: `Maintain the composite quality scores of the catalog.

Quality is recomputed automatically when ingestion touches a signal.
Recalculation is for everything ingestion does not touch: weight changes
in the configuration, reputation drift from accumulated triage results
and ratings, and plain recency decay.`,
	}

	cmd.AddCommand(newQualityRecalcCmd())

	return cmd
}

func newQualityRecalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute quality scores for every signal",
		Long: `Recompute the quality breakdown of every signal from its current
sources, using the configured weights and the latest domain reputation.

One signal failing to load or save is logged and skipped; the batch
always runs to completion.

Example:
  signalhound quality recalc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQualityRecalc(cmd.Context())
		},
	}
}

// Implementation functions

// catalogStore adapts the signal and source repositories to the batch
// recalculation surface.
type catalogStore struct {
	db persistence.Database
}

func (s catalogStore) ListSignals(ctx context.Context) ([]core.Signal, error) {
	return s.db.Signals().List(ctx, persistence.ListOptions{Limit: 10000})
}

func (s catalogStore) SourcesBySignal(ctx context.Context, signalID string) ([]core.Source, error) {
	return s.db.Sources().ListBySignal(ctx, signalID)
}

func (s catalogStore) SaveQuality(ctx context.Context, signalID string, breakdown core.QualityBreakdown) error {
	return s.db.Signals().SaveQuality(ctx, signalID, breakdown)
}

// newQualityScorer builds the quality scorer from the configured
// weights, recency half-life, and home locale.
func newQualityScorer(authority quality.AuthorityProvider) (*quality.Scorer, error) {
	cfg := config.Get()
	weights := quality.Weights{
		Authority:     cfg.Quality.AuthorityWeight,
		Diversity:     cfg.Quality.DiversityWeight,
		Corroboration: cfg.Quality.CorroborationWeight,
		Recency:       cfg.Quality.RecencyWeight,
		Specificity:   cfg.Quality.SpecificityWeight,
	}
	scorer, err := quality.NewScorer(authority, weights,
		parseDuration(cfg.Quality.RecencyHalfLife, 0), cfg.Reputation.HomeLocale)
	if err != nil {
		return nil, fmt.Errorf("failed to build quality scorer: %w", err)
	}
	return scorer, nil
}

func runQualityRecalc(ctx context.Context) error {
	log := logger.Get()
	log.Info("Starting quality recalculation")

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repScorer := reputation.NewScorer(db.Domains())
	scorer, err := newQualityScorer(repScorer)
	if err != nil {
		return err
	}
	engine := clustering.NewEngine(config.Get().Clustering.SimilarityThreshold)

	startTime := time.Now()
	updated, failed, err := scorer.RecalculateAll(ctx, catalogStore{db: db}, engine)
	duration := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("recalculation failed after %d signal(s): %w", updated+failed, err)
	}

	fmt.Println("📊 Quality Recalculation")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Updated:  %d\n", updated)
	fmt.Printf("Failed:   %d\n", failed)
	fmt.Printf("Duration: %s\n", duration.Round(time.Millisecond))

	if failed > 0 {
		fmt.Println("\n⚠️  Some signals could not be rescored; see the log for details")
	} else {
		fmt.Println("\n✅ All signals rescored")
	}

	return nil
}
