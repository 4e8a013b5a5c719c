package handlers

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"signalhound/internal/persistence"

	"github.com/spf13/cobra"
)

// NewSignalsCmd creates the signal catalog inspection command
func NewSignalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Inspect the signal catalog",
		Long: `Browse and inspect the deduplicated signal catalog.

Subcommands:
  list   List signals, newest first
  show   Show one signal with its quality breakdown and sources`,
	}

	cmd.AddCommand(newSignalsListCmd())
	cmd.AddCommand(newSignalsShowCmd())

	return cmd
}

func newSignalsListCmd() *cobra.Command {
	var (
		status string
		sortBy string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List signals",
		Long: `List signals in the catalog.

Examples:
  # Highest quality first
  signalhound signals list --sort quality

  # Only signals waiting on an embedding review
  signalhound signals list --status needs_review`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignalsList(cmd.Context(), status, sortBy, limit)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active, needs_review, archived)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort order: quality, created, or name (default: last updated)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 25, "Maximum number of signals")

	return cmd
}

func newSignalsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <signal-id>",
		Short: "Show one signal in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignalsShow(cmd.Context(), args[0])
		},
	}
}

// Implementation functions

func runSignalsList(ctx context.Context, status, sortBy string, limit int) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	opts := persistence.ListOptions{
		Limit:  limit,
		SortBy: sortBy,
	}
	if status != "" {
		opts.Filter = map[string]interface{}{"status": status}
	}

	signals, err := db.Signals().List(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to list signals: %w", err)
	}

	if len(signals) == 0 {
		fmt.Println("No signals found")
		fmt.Println("\nRun an ingestion to populate the catalog:")
		fmt.Println("  signalhound ingest")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tName\tCategory\tStatus\tQuality\tUpdated\n")
	fmt.Fprintf(w, "━━━━━━━━━━\t━━━━━━━━━━━━━━━━━━━━\t━━━━━━━━\t━━━━━━\t━━━━━━━\t━━━━━━━\n")

	for _, signal := range signals {
		name := signal.Name
		if len(name) > 44 {
			name = name[:41] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			signal.ID[:8]+"...", name, signal.Category, signal.Status,
			signal.QualityScore, signal.UpdatedAt.Format("2006-01-02"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d signal(s)\n", len(signals))
	fmt.Println("Use 'signalhound signals show <id>' for details")

	return nil
}

func runSignalsShow(ctx context.Context, signalID string) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	signal, err := db.Signals().Get(ctx, signalID)
	if err != nil {
		return fmt.Errorf("failed to load signal: %w", err)
	}

	fmt.Printf("📌 %s\n", signal.Name)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:        %s\n", signal.ID)
	fmt.Printf("Status:    %s\n", signal.Status)
	fmt.Printf("Category:  %s\n", signal.Category)
	fmt.Printf("Locale:    %s\n", signal.Locale)
	fmt.Printf("Created:   %s\n", signal.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Updated:   %s\n", signal.UpdatedAt.Format("2006-01-02 15:04"))
	if signal.Summary != "" {
		fmt.Printf("\n%s\n", signal.Summary)
	}

	fmt.Println("\n📈 Analysis Scores")
	fmt.Printf("   Relevance: %d  Impact: %d  Novelty: %d  Urgency: %d\n",
		signal.RelevanceScore, signal.ImpactScore, signal.NoveltyScore, signal.UrgencyScore)
	fmt.Printf("   Credibility: %d  Specificity: %d  Actionability: %d\n",
		signal.CredibilityScore, signal.SpecificityScore, signal.ActionabilityScore)

	fmt.Printf("\n🏅 Quality: %d\n", signal.QualityScore)
	if b := signal.QualityBreakdown; b != nil {
		fmt.Printf("   Authority:     %5.1f\n", b.Authority)
		fmt.Printf("   Diversity:     %5.1f\n", b.Diversity)
		fmt.Printf("   Corroboration: %5.1f\n", b.Corroboration)
		fmt.Printf("   Recency:       %5.1f\n", b.Recency)
		fmt.Printf("   Specificity:   %5.1f\n", b.Specificity)
		fmt.Printf("   Sources: %d across %d domain(s), %d story cluster(s)\n",
			b.SourceCount, b.DomainCount, b.ClusterCount)
		fmt.Printf("   Computed: %s\n", b.ComputedAt.Format("2006-01-02 15:04"))
	}

	sources, err := db.Sources().ListBySignal(ctx, signal.ID)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Println("\nNo sources attached")
		return nil
	}

	fmt.Printf("\n📰 Sources (%d)\n", len(sources))
	for i, source := range sources {
		marker := " "
		if source.DuplicateOf != "" {
			marker = "⊜" // near-duplicate of an earlier source
		}
		fmt.Printf(" %s [%d] %s\n", marker, i+1, source.Title)
		fmt.Printf("      %s\n", source.URL)
		fmt.Printf("      %s · %s", source.Domain, source.SourceType)
		if !source.PublishedAt.IsZero() {
			fmt.Printf(" · %s", source.PublishedAt.Format("2006-01-02"))
		}
		if source.StoryClusterID != "" {
			fmt.Printf(" · story %s", source.StoryClusterID[:8])
		}
		fmt.Println()
	}

	return nil
}
