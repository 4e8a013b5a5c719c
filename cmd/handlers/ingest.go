package handlers

import (
	"context"
	"fmt"
	"time"

	"signalhound/internal/clustering"
	"signalhound/internal/config"
	"signalhound/internal/cost"
	"signalhound/internal/fetch"
	"signalhound/internal/lexical"
	"signalhound/internal/llm"
	"signalhound/internal/logger"
	"signalhound/internal/match"
	"signalhound/internal/persistence"
	"signalhound/internal/pipeline"
	"signalhound/internal/reputation"
	"signalhound/internal/search"
	"signalhound/internal/sources"
	"signalhound/internal/store"
	"signalhound/internal/vectorstore"

	"github.com/spf13/cobra"
)

// NewIngestCmd creates the ingest command that runs the full pipeline
func NewIngestCmd() *cobra.Command {
	var (
		seedFile    string
		sinceHours  int
		maxPerFeed  int
		concurrency int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Discover candidate documents and fold them into the signal catalog",
		Long: `Ingest polls the registered feeds (plus an optional seed list) and runs
every discovered document through the ingestion pipeline:

  • Validates content length and freshness
  • Triages relevance with the LLM, adjusted by domain reputation
  • Analyzes and embeds the survivors
  • Deduplicates against the catalog: create, enrich, duplicate, or weak link
  • Reclusters sources and rescores quality for every touched signal

Re-runs are cheap: recently seen URLs are skipped via the local cache and
unchanged feeds cost a single conditional GET.

Examples:
  # Poll feeds for the last 24 hours of publications
  signalhound ingest --since 24

  # Include a curated seed list of bare URLs
  signalhound ingest --seeds seeds.txt

  # Show what would be processed, and what it would cost, without
  # calling the model
  signalhound ingest --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), seedFile, sinceHours, maxPerFeed, concurrency, dryRun)
		},
	}

	cmd.Flags().StringVar(&seedFile, "seeds", "", "Path to a seed URL list (one URL per line, # for comments)")
	cmd.Flags().IntVar(&sinceHours, "since", 24, "Only keep feed documents published in the last N hours")
	cmd.Flags().IntVar(&maxPerFeed, "max-per-feed", 0, "Maximum documents taken per feed (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "Number of feeds polled concurrently")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Discover, list, and estimate cost without triaging or storing")

	return cmd
}

func runIngest(ctx context.Context, seedFile string, sinceHours, maxPerFeed, concurrency int, dryRun bool) error {
	log := logger.Get()
	log.Info("Starting ingestion run",
		"seed_file", seedFile,
		"since_hours", sinceHours,
		"dry_run", dryRun,
	)

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("Connected to database")

	cfg := config.Get()

	// Discovery side: registered feeds plus the optional seed list.
	sourceMgr := sources.NewManager(db)
	feedMgr := sourceMgr.FeedManager()
	feedMgr.SetUserAgent(cfg.Feeds.UserAgent)
	feedMgr.SetTimeout(parseDuration(cfg.Feeds.Timeout, 30*time.Second))

	if maxPerFeed <= 0 {
		maxPerFeed = cfg.Feeds.MaxItemsPerFeed
	}
	sourceMgr.Register(sources.NewFeedProvider(db, feedMgr, sources.FeedOptions{
		MaxPerFeed:  maxPerFeed,
		Concurrency: concurrency,
		Since:       time.Now().Add(-time.Duration(sinceHours) * time.Hour),
		MinInterval: parseDuration(cfg.Feeds.FetchInterval, 0),
	}))
	if seedFile != "" {
		sourceMgr.Register(sources.NewSeedProvider(seedFile))
	}

	activeFeeds, err := sourceMgr.ListFeeds(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list feeds: %w", err)
	}
	if len(activeFeeds) == 0 && seedFile == "" {
		log.Warn("No active feeds and no seed list. Nothing to discover")
		fmt.Println("⚠️  Nothing to discover")
		fmt.Println("   Add feeds using: signalhound feeds add <url>")
		fmt.Println("   Or pass a seed list: signalhound ingest --seeds seeds.txt")
		return nil
	}

	discovered, err := sourceMgr.Discover(ctx, sources.DiscoverOptions{})
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	fmt.Printf("🔎 Discovered %d candidate documents\n", len(discovered.Documents))
	for provider, count := range discovered.PerProvider {
		fmt.Printf("   • %s: %d\n", provider, count)
	}
	for _, discErr := range discovered.Errors {
		fmt.Printf("   ⚠️  %v\n", discErr)
	}

	if len(discovered.Documents) == 0 {
		fmt.Println("\nℹ️  No new documents found")
		fmt.Println("   Try widening --since or adding more feeds")
		return nil
	}

	if dryRun {
		log.Info("Dry run mode - documents will not be triaged or stored")
		for i, doc := range discovered.Documents {
			if i >= 20 {
				fmt.Printf("   ... and %d more\n", len(discovered.Documents)-20)
				break
			}
			fmt.Printf("   [%d] %s\n", i+1, doc.URL)
		}

		estimate, err := cost.EstimateRunCost(discovered.Documents, cfg.AI.Gemini.Model, embeddingModelName(cfg), 0)
		if err != nil {
			return fmt.Errorf("cost estimation failed: %w", err)
		}
		fmt.Println()
		fmt.Print(estimate.FormatEstimate())
		return nil
	}

	pipe, cleanup, err := buildPipeline(ctx, db)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, runErr := pipe.Run(ctx, discovered.Documents)
	if summary != nil {
		printRunSummary(summary)
	}
	if runErr != nil {
		return fmt.Errorf("ingestion run cut short: %w", runErr)
	}

	if summary.Created+summary.Enriched > 0 {
		fmt.Println("\nNext steps:")
		fmt.Println("  • Browse the catalog: signalhound signals list")
		fmt.Println("  • Search it: signalhound search \"<query>\"")
	}

	return nil
}

// buildPipeline wires the full ingestion pipeline from configuration:
// local stores, model clients, matcher, and scorers. The returned
// cleanup closes the local stores.
func buildPipeline(ctx context.Context, db persistence.Database) (*pipeline.Pipeline, func(), error) {
	cfg := config.Get()

	pcfg := ingestConfig(cfg.Ingest)

	cache, err := store.NewStore(cfg.Storage.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ingest cache: %w", err)
	}

	lexIndex, err := lexical.Open(cfg.Storage.LexicalDir)
	if err != nil {
		cache.Close()
		return nil, nil, fmt.Errorf("failed to open lexical index: %w", err)
	}
	cleanup := func() {
		if err := lexIndex.Close(); err != nil {
			logger.Error("Failed to close lexical index", err)
		}
		if err := cache.Close(); err != nil {
			logger.Error("Failed to close ingest cache", err)
		}
	}

	chromem, err := vectorstore.NewChromemIndex(cfg.Storage.VectorDir, "signals")
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	vectors := vectorstore.NewFallback(chromem, db.Signals(), cfg.Match.BruteForceLimit)

	client, err := newGeminiClient(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	embedder, err := newEmbedder(ctx, client)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	fusion := search.NewFusionWithWeights(float64(cfg.Fusion.K), cfg.Fusion.LexicalWeight, cfg.Fusion.VectorWeight)
	matcher := match.NewMatcher(vectors, match.Config{
		Thresholds: match.Thresholds{
			Duplicate: cfg.Match.DuplicateThreshold,
			Enrich:    cfg.Match.EnrichThreshold,
			Weak:      cfg.Match.WeakThreshold,
		},
		TopK: cfg.Match.TopK,
	}).WithPrefilter(lexIndex, db.Signals(), fusion)

	repScorer := reputation.NewScorer(db.Domains())
	qualScorer, err := newQualityScorer(repScorer)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	pipe, err := pipeline.NewBuilder().
		WithConfig(pcfg).
		WithDatabase(db).
		WithClassifier(client).
		WithEmbedder(embedder).
		WithFetcher(fetch.NewFetcher(pcfg.Timeout)).
		WithCache(cache).
		WithMatcher(matcher).
		WithVectorIndex(vectors).
		WithLexicalIndex(lexIndex).
		WithReputation(repScorer).
		WithQuality(qualScorer).
		WithClusterer(clustering.NewEngine(cfg.Clustering.SimilarityThreshold)).
		Build()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	return pipe, cleanup, nil
}

// ingestConfig translates the configuration file's ingest section into
// pipeline run settings, keeping the pipeline defaults for anything
// unset.
func ingestConfig(ic config.Ingest) *pipeline.Config {
	pcfg := pipeline.DefaultConfig()
	if ic.MaxWorkers > 0 {
		pcfg.MaxWorkers = ic.MaxWorkers
	}
	if ic.MaxPerDomain > 0 {
		pcfg.MaxPerDomain = ic.MaxPerDomain
	}
	pcfg.MaxNewSignals = ic.MaxNewSignals
	if ic.MinContentLength > 0 {
		pcfg.MinContentLength = ic.MinContentLength
	}
	pcfg.MaxDocumentAge = parseDuration(ic.MaxDocumentAge, pcfg.MaxDocumentAge)
	if ic.TriageThreshold > 0 {
		pcfg.TriageThreshold = ic.TriageThreshold
	}
	pcfg.Timeout = parseDuration(ic.Timeout, pcfg.Timeout)
	return pcfg
}

// newGeminiClient builds the triage/analysis client from the ai.gemini
// configuration section.
func newGeminiClient(ctx context.Context) (*llm.Client, error) {
	ai := config.Get().AI.Gemini
	client, err := llm.NewClient(ctx, llm.ClientOptions{
		APIKey:         ai.APIKey,
		Model:          ai.Model,
		EmbeddingModel: ai.EmbeddingModel,
		EmbeddingDims:  ai.EmbeddingDims,
		MaxRetries:     ai.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

// embeddingModelName resolves which embedding model a run would bill,
// matching the backend newEmbedder would pick.
func embeddingModelName(cfg *config.Config) string {
	if cfg.AI.EmbeddingProvider == "openai" {
		return cfg.AI.OpenAI.EmbeddingModel
	}
	return cfg.AI.Gemini.EmbeddingModel
}

// newEmbedder picks the configured embedding backend. The OpenAI path
// never needs a Gemini client; on the Gemini path an existing client is
// reused when the caller has one, so ingest shares a single client for
// triage and embedding.
func newEmbedder(ctx context.Context, client *llm.Client) (pipeline.Embedder, error) {
	cfg := config.Get()
	if cfg.AI.EmbeddingProvider == "openai" {
		oa := cfg.AI.OpenAI
		return llm.NewOpenAIEmbedder(oa.APIKey, oa.BaseURL, oa.EmbeddingModel, 0), nil
	}
	if client != nil {
		return client, nil
	}
	return newGeminiClient(ctx)
}

// parseDuration parses a config duration string, falling back when the
// value is empty or malformed. Load already validated the configured
// strings, so the fallback mostly covers the empty case.
func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func printRunSummary(summary *pipeline.RunSummary) {
	fmt.Println("\n📊 Ingestion Summary")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Duration:             %s\n", summary.Duration().Round(time.Millisecond))
	fmt.Printf("Found:                %d\n", summary.Found)
	fmt.Printf("Skipped (seen):       %d\n", summary.Skipped)
	fmt.Printf("Validated:            %d\n", summary.Validated)
	fmt.Printf("Triaged:              %d\n", summary.Triaged)
	fmt.Printf("Analyzed:             %d\n", summary.Analyzed)
	fmt.Println()
	fmt.Printf("Signals Created:      %d\n", summary.Created)
	fmt.Printf("Signals Enriched:     %d\n", summary.Enriched)
	fmt.Printf("Duplicates:           %d\n", summary.Duplicates)
	fmt.Printf("Weak Links:           %d\n", summary.WeakLinks)
	fmt.Printf("Needs Review:         %d\n", summary.NeedsReview)
	fmt.Printf("Deferred (cap):       %d\n", summary.Deferred)
	fmt.Printf("Validation Rejected:  %d\n", summary.ValidationRejected)
	fmt.Printf("Triage Rejected:      %d\n", summary.TriageRejected)
	fmt.Printf("Errors:               %d\n", summary.Errors)

	if len(summary.Failures) > 0 {
		fmt.Println("\n⚠️  Failures:")
		for i, failure := range summary.Failures {
			if i >= 5 {
				fmt.Printf("  ... and %d more failures\n", len(summary.Failures)-5)
				break
			}
			fmt.Printf("  [%s] %s: %s\n", failure.Stage, failure.URL, failure.Message)
		}
	}
}
