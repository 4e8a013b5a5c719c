package handlers

import (
	"fmt"
	"os"
	"time"

	"signalhound/internal/config"
	"signalhound/internal/logger"
	"signalhound/internal/store"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the local ingest cache management command
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local ingest cache",
		Long: `Inspect and manage the local SQLite cache of fetched documents,
seen-URL outcomes, and triage verdicts that makes ingest re-runs cheap.`,
	}

	// Add subcommands
	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCacheClearCmd())
	cacheCmd.AddCommand(newCacheCleanupCmd())

	return cacheCmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics and storage information",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runCacheStats(); err != nil {
				logger.Error("Failed to get cache stats", err)
				os.Exit(1)
			}
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache (removes cached documents, seen URLs, and verdicts)",
		Long: `Remove everything from the local cache. The next ingest run will
re-fetch and re-triage documents it has already processed.`,
		Run: func(cmd *cobra.Command, args []string) {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if err := runCacheClear(confirm); err != nil {
				logger.Error("Failed to clear cache", err)
				os.Exit(1)
			}
		},
	}

	clearCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	return clearCmd
}

func newCacheCleanupCmd() *cobra.Command {
	var (
		docMaxAge  time.Duration
		seenMaxAge time.Duration
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Drop cache entries older than the retention windows",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runCacheCleanup(docMaxAge, seenMaxAge); err != nil {
				logger.Error("Failed to clean up cache", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().DurationVar(&docMaxAge, "doc-age", 720*time.Hour, "Drop cached documents older than this")
	cmd.Flags().DurationVar(&seenMaxAge, "seen-age", 30*24*time.Hour, "Drop seen-URL records older than this")

	return cmd
}

func openCacheStore() (*store.Store, error) {
	cacheStore, err := store.NewStore(config.Get().Storage.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return cacheStore, nil
}

func runCacheStats() error {
	fmt.Println("📊 Cache Statistics")
	fmt.Println("==================")

	cacheStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()

	stats, err := cacheStore.GetCacheStats()
	if err != nil {
		return fmt.Errorf("failed to get cache statistics: %w", err)
	}

	fmt.Printf("📄 Documents cached: %d\n", stats.DocumentCount)
	fmt.Printf("👁  Seen URLs:        %d\n", stats.SeenCount)
	fmt.Printf("⚖️  Triage verdicts:  %d\n", stats.TriageCount)
	fmt.Printf("💾 Cache size: %.2f MB\n", float64(stats.CacheSize)/1024/1024)
	fmt.Printf("📅 Last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))

	return nil
}

func runCacheClear(confirm bool) error {
	if !confirm {
		fmt.Print("⚠️  This will remove all cached documents, seen URLs, and triage verdicts. Continue? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" && response != "yes" {
			fmt.Println("Cache clear cancelled")
			return nil
		}
	}

	fmt.Println("🗑️  Clearing cache...")

	cacheStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()

	if err := cacheStore.ClearCache(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Println("✅ Cache cleared successfully")
	return nil
}

func runCacheCleanup(docMaxAge, seenMaxAge time.Duration) error {
	cacheStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()

	if err := cacheStore.CleanupOldCache(docMaxAge, seenMaxAge); err != nil {
		return fmt.Errorf("failed to clean up cache: %w", err)
	}

	fmt.Println("✅ Old cache entries removed")
	return nil
}
