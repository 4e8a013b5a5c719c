package handlers

import (
	"context"
	"fmt"
	"strconv"

	"signalhound/internal/core"
	"signalhound/internal/logger"
	"signalhound/internal/reputation"

	"github.com/spf13/cobra"
)

// NewRateCmd creates the source rating command
func NewRateCmd() *cobra.Command {
	var raterID string

	cmd := &cobra.Command{
		Use:   "rate <source-id> <rating>",
		Short: "Rate a source from 1 (junk) to 5 (excellent)",
		Long: `Record a 1-5 rating for a source. Ratings fold into the source
domain's reputation, which feeds triage confidence and the authority
part of every quality score on that domain.

Re-rating the same source with the same --rater replaces the earlier
rating instead of stacking a second vote.

Examples:
  signalhound rate 4f8a21c0-... 5
  signalhound rate 4f8a21c0-... 2 --rater alice`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating must be a number 1-5, got %q", args[1])
			}
			return runRate(cmd.Context(), args[0], rating, raterID)
		},
	}

	cmd.Flags().StringVar(&raterID, "rater", "local", "Identity recording the rating")

	return cmd
}

func runRate(ctx context.Context, sourceID string, rating int, raterID string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	log := logger.Get()
	log.Info("Recording source rating", "source_id", sourceID, "rating", rating, "rater", raterID)

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	source, err := db.Sources().Get(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}

	previous, existed, err := db.Ratings().Upsert(ctx, &core.SourceRating{
		SourceID: sourceID,
		RaterID:  raterID,
		Rating:   rating,
	})
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}

	// Fold the rating into the domain aggregates: a revision contributes
	// only its delta, a fresh rating also grows the count.
	delta := rating - previous
	domainRep, err := db.Domains().ApplyRating(ctx, source.Domain, delta, !existed)
	if err != nil {
		return fmt.Errorf("failed to update domain reputation: %w", err)
	}

	composite, err := reputation.NewScorer(db.Domains()).RefreshComposite(ctx, source.Domain)
	if err != nil {
		return fmt.Errorf("failed to refresh domain composite: %w", err)
	}

	if existed {
		fmt.Printf("✅ Rating revised: %d → %d\n", previous, rating)
	} else {
		fmt.Printf("✅ Rated %d/5\n", rating)
	}
	fmt.Printf("   Source: %s\n", source.Title)
	fmt.Printf("   %s\n", source.URL)

	if domainRep.RatingCount > 0 {
		avg := float64(domainRep.RatingSum) / float64(domainRep.RatingCount)
		fmt.Printf("\n📊 Domain %s\n", source.Domain)
		fmt.Printf("   Crowd rating: %.1f/5 over %d rating(s)\n", avg, domainRep.RatingCount)
		fmt.Printf("   Composite reputation: %.1f\n", composite)
	}

	return nil
}
