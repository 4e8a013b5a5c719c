package handlers

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"signalhound/internal/config"
	"signalhound/internal/logger"
	"signalhound/internal/persistence"
	"signalhound/internal/sources"

	"github.com/spf13/cobra"
)

// NewFeedsCmd creates the feed management command
func NewFeedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Manage RSS/Atom feed sources",
		Long: `Manage the RSS/Atom feeds the ingest command polls for candidates.

Subcommands:
  add       Add a new feed
  remove    Remove a feed
  list      List registered feeds
  enable    Enable a feed
  disable   Disable a feed
  discover  Find feed URLs on a website`,
	}

	cmd.AddCommand(newFeedsAddCmd())
	cmd.AddCommand(newFeedsRemoveCmd())
	cmd.AddCommand(newFeedsListCmd())
	cmd.AddCommand(newFeedsEnableCmd())
	cmd.AddCommand(newFeedsDisableCmd())
	cmd.AddCommand(newFeedsDiscoverCmd())

	return cmd
}

func newFeedsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <feed-url>",
		Short: "Add a new RSS/Atom feed",
		Long: `Add a feed for signal discovery.

The URL must be a valid RSS or Atom feed. The command validates the
format, fetches the feed metadata, and activates the feed for polling.

Examples:
  signalhound feeds add https://grants.gov/rss/new-opportunities.xml
  signalhound feeds add https://example.org/funding/atom.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedsAdd(cmd.Context(), args[0])
		},
	}
}

func newFeedsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <feed-id>",
		Short: "Remove a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedsRemove(cmd.Context(), args[0])
		},
	}
}

func newFeedsListCmd() *cobra.Command {
	var showInactive bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedsList(cmd.Context(), showInactive)
		},
	}

	cmd.Flags().BoolVar(&showInactive, "all", false, "Show inactive feeds as well")

	return cmd
}

func newFeedsEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <feed-id>",
		Short: "Enable a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedsToggle(cmd.Context(), args[0], true)
		},
	}
}

func newFeedsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <feed-id>",
		Short: "Disable a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedsToggle(cmd.Context(), args[0], false)
		},
	}
}

func newFeedsDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <website-url>",
		Short: "Find feed URLs advertised by a website",
		Long: `Fetch a website and list the RSS/Atom feed URLs it advertises, so you
can pick one to add.

Example:
  signalhound feeds discover https://www.nsf.gov`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedsDiscover(cmd.Context(), args[0])
		},
	}
}

// Implementation functions

// getDatabase is a helper function to load config and connect to database
func getDatabase() (persistence.Database, error) {
	_, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	connStr := config.GetPostgresURL()
	if connStr == "" {
		// Try environment variable fallback
		connStr = os.Getenv("DATABASE_URL")
		if connStr == "" {
			return nil, fmt.Errorf("postgres connection string not configured (set storage.postgres.url in config or DATABASE_URL env var)")
		}
	}

	db, err := persistence.NewPostgresDB(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func runFeedsAdd(ctx context.Context, feedURL string) error {
	log := logger.Get()
	log.Info("Adding new feed", "url", feedURL)

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	sourceMgr := sources.NewManager(db)
	feed, err := sourceMgr.AddFeed(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("failed to add feed: %w", err)
	}

	fmt.Println("✅ Feed added successfully")
	fmt.Printf("   ID:    %s\n", feed.ID)
	fmt.Printf("   Title: %s\n", feed.Title)
	fmt.Printf("   URL:   %s\n", feed.URL)
	fmt.Println("\nNext steps:")
	fmt.Println("  • Run ingestion: signalhound ingest")
	fmt.Println("  • List feeds:    signalhound feeds list")

	return nil
}

func runFeedsRemove(ctx context.Context, feedID string) error {
	log := logger.Get()
	log.Info("Removing feed", "id", feedID)

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	sourceMgr := sources.NewManager(db)
	if err := sourceMgr.RemoveFeed(ctx, feedID); err != nil {
		return fmt.Errorf("failed to remove feed: %w", err)
	}

	fmt.Println("✅ Feed removed successfully")
	return nil
}

func runFeedsList(ctx context.Context, showInactive bool) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	sourceMgr := sources.NewManager(db)
	feeds, err := sourceMgr.ListFeeds(ctx, !showInactive)
	if err != nil {
		return fmt.Errorf("failed to list feeds: %w", err)
	}

	if len(feeds) == 0 {
		fmt.Println("No feeds found")
		fmt.Println("\nAdd your first feed:")
		fmt.Println("  signalhound feeds add <feed-url>")
		return nil
	}

	// Display feeds in a table
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTitle\tActive\tLast Fetched\tError Count\n")
	fmt.Fprintf(w, "━━━━━━━━━━\t━━━━━━━━━━━━━━━━━━━━\t━━━━━━\t━━━━━━━━━━━━\t━━━━━━━━━━━\n")

	for _, feed := range feeds {
		status := "✓"
		if !feed.Active {
			status = "✗"
		}

		lastFetched := "Never"
		if !feed.LastFetched.IsZero() {
			lastFetched = feed.LastFetched.Format("2006-01-02 15:04")
		}

		titleShort := feed.Title
		if len(titleShort) > 40 {
			titleShort = titleShort[:37] + "..."
		}

		errorCount := fmt.Sprintf("%d", feed.ErrorCount)
		if feed.ErrorCount > 0 {
			errorCount = fmt.Sprintf("⚠️  %d", feed.ErrorCount)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			feed.ID[:8]+"...", titleShort, status, lastFetched, errorCount,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal feeds: %d\n", len(feeds))
	if !showInactive {
		fmt.Println("Use --all to show inactive feeds")
	}

	return nil
}

func runFeedsToggle(ctx context.Context, feedID string, active bool) error {
	log := logger.Get()
	action := "Enabling"
	if !active {
		action = "Disabling"
	}
	log.Info(action+" feed", "id", feedID)

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	sourceMgr := sources.NewManager(db)
	if err := sourceMgr.ToggleFeed(ctx, feedID, active); err != nil {
		return fmt.Errorf("failed to toggle feed: %w", err)
	}

	status := "enabled"
	if !active {
		status = "disabled"
	}
	fmt.Printf("✅ Feed %s\n", status)
	return nil
}

func runFeedsDiscover(ctx context.Context, websiteURL string) error {
	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("🔎 Looking for feeds on %s\n", websiteURL)

	sourceMgr := sources.NewManager(db)
	urls, err := sourceMgr.DiscoverFeedURLs(ctx, websiteURL)
	if err != nil {
		return fmt.Errorf("feed discovery failed: %w", err)
	}

	if len(urls) == 0 {
		fmt.Println("❌ No feeds advertised on that page")
		return nil
	}

	fmt.Printf("✨ Found %d feed URL(s):\n\n", len(urls))
	for i, u := range urls {
		fmt.Printf("  [%d] %s\n", i+1, u)
	}
	fmt.Println("\nAdd one with: signalhound feeds add <feed-url>")

	return nil
}
