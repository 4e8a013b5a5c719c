package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signalhound/internal/config"
	"signalhound/internal/lexical"
	"signalhound/internal/logger"
	"signalhound/internal/search"
	"signalhound/internal/vectorstore"

	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command over the signal catalog
func NewSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the signal catalog",
		Long: `Search signals with hybrid retrieval: a lexical match over names and
summaries and a vector match over embeddings, fused into one ranking
with Reciprocal Rank Fusion. Either side failing degrades the search to
the other side.

Examples:
  signalhound search "climate adaptation grants"
  signalhound search --limit 5 "rural broadband"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum number of results")

	return cmd
}

func runSearch(ctx context.Context, query string, limit int) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Get()

	lexIndex, err := lexical.Open(cfg.Storage.LexicalDir)
	if err != nil {
		return fmt.Errorf("failed to open lexical index: %w", err)
	}
	defer func() {
		if err := lexIndex.Close(); err != nil {
			logger.Error("Failed to close lexical index", err)
		}
	}()

	chromem, err := vectorstore.NewChromemIndex(cfg.Storage.VectorDir, "signals")
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	vectors := vectorstore.NewFallback(chromem, db.Signals(), cfg.Match.BruteForceLimit)

	embedder, err := newEmbedder(ctx, nil)
	if err != nil {
		return err
	}

	fusion := search.NewFusionWithWeights(float64(cfg.Fusion.K), cfg.Fusion.LexicalWeight, cfg.Fusion.VectorWeight)
	retriever := search.NewRetriever(embedder, vectors, lexIndex, fusion)

	fmt.Printf("🔍 Searching for: \"%s\"\n\n", query)

	results, err := retriever.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("❌ No matching signals found")
		fmt.Println("   Run 'signalhound ingest' to grow the catalog")
		return nil
	}

	fmt.Printf("✨ Found %d signal(s):\n\n", len(results))

	for i, result := range results {
		signal, err := db.Signals().Get(ctx, result.ID)
		if err != nil {
			fmt.Printf("[%d] %.4f %s (not loadable: %v)\n\n", i+1, result.Score, result.ID, err)
			continue
		}

		fmt.Printf("[%d] %.4f %s\n", i+1, result.Score, signal.Name)
		fmt.Printf("    ID: %s  Quality: %d  Status: %s\n", signal.ID, signal.QualityScore, signal.Status)
		fmt.Printf("    Ranks: %s\n", formatRanks(result))
		if signal.Summary != "" {
			fmt.Printf("    %s\n", truncate(signal.Summary, 120))
		}
		fmt.Println()
	}

	fmt.Println("💡 Use 'signalhound signals show <id>' for the full record")

	return nil
}

func formatRanks(result search.FusedResult) string {
	parts := make([]string, 0, 2)
	if result.LexicalRank > 0 {
		parts = append(parts, fmt.Sprintf("lexical #%d", result.LexicalRank))
	}
	if result.VectorRank > 0 {
		parts = append(parts, fmt.Sprintf("vector #%d", result.VectorRank))
	}
	if len(parts) == 0 {
		return "unranked"
	}
	return strings.Join(parts, ", ")
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
