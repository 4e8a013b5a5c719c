// Package sources manages discovery providers and the feed registry.
// A Manager owns the registered providers, runs them concurrently, and
// merges their candidate documents into a single deduplicated batch
// for the ingestion pipeline.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"signalhound/internal/core"
	"signalhound/internal/feeds"
	"signalhound/internal/logger"
	"signalhound/internal/persistence"
)

// Manager coordinates discovery providers and feed bookkeeping.
type Manager struct {
	db          persistence.Database
	feedManager *feeds.FeedManager
	providers   []Provider
	log         *slog.Logger
}

// NewManager creates a source manager. Providers are registered
// separately so callers control which discovery channels a run uses.
func NewManager(db persistence.Database) *Manager {
	return &Manager{
		db:          db,
		feedManager: feeds.NewFeedManager(),
		log:         logger.Get(),
	}
}

// Register adds a discovery provider to the aggregation set.
func (m *Manager) Register(p Provider) {
	m.providers = append(m.providers, p)
}

// FeedManager exposes the shared feed client so providers reuse its
// HTTP configuration.
func (m *Manager) FeedManager() *feeds.FeedManager {
	return m.feedManager
}

// AddFeed validates a feed URL by fetching it once, then registers it
// for polling. Returns the existing feed if the URL is already known.
func (m *Manager) AddFeed(ctx context.Context, feedURL string) (*core.Feed, error) {
	existing, err := m.db.Feeds().GetByURL(ctx, feedURL)
	if err == nil && existing != nil {
		return existing, fmt.Errorf("feed already registered: %s", feedURL)
	}

	parsed, err := m.feedManager.FetchFeed(ctx, feedURL, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed := parsed.Feed
	feed.LastModified = parsed.LastModified
	feed.ETag = parsed.ETag

	if err := m.db.Feeds().Create(ctx, &feed); err != nil {
		return nil, fmt.Errorf("failed to store feed: %w", err)
	}

	m.log.Info("Feed added", "feed_id", feed.ID, "url", feedURL, "title", feed.Title)
	return &feed, nil
}

// RemoveFeed removes a feed from the registry.
func (m *Manager) RemoveFeed(ctx context.Context, feedID string) error {
	if err := m.db.Feeds().Delete(ctx, feedID); err != nil {
		return fmt.Errorf("failed to remove feed: %w", err)
	}

	m.log.Info("Feed removed", "feed_id", feedID)
	return nil
}

// ListFeeds returns registered feeds, optionally only active ones.
func (m *Manager) ListFeeds(ctx context.Context, activeOnly bool) ([]core.Feed, error) {
	if activeOnly {
		return m.db.Feeds().ListActive(ctx)
	}
	return m.db.Feeds().List(ctx, persistence.ListOptions{})
}

// ToggleFeed activates or deactivates a feed without removing it.
func (m *Manager) ToggleFeed(ctx context.Context, feedID string, active bool) error {
	feed, err := m.db.Feeds().Get(ctx, feedID)
	if err != nil {
		return fmt.Errorf("failed to get feed: %w", err)
	}

	feed.Active = active
	if err := m.db.Feeds().Update(ctx, feed); err != nil {
		return fmt.Errorf("failed to update feed: %w", err)
	}

	m.log.Info("Feed toggled", "feed_id", feedID, "active", active)
	return nil
}

// DiscoverFeedURLs probes a website for advertised RSS/Atom feeds.
func (m *Manager) DiscoverFeedURLs(ctx context.Context, websiteURL string) ([]string, error) {
	return m.feedManager.DiscoverFeedURLs(ctx, websiteURL)
}

// DiscoverOptions configures a discovery run across all providers.
type DiscoverOptions struct {
	Timeout time.Duration // overall deadline for the run (default 10m)
}

// DiscoverResult summarizes one discovery run.
type DiscoverResult struct {
	Documents   []core.Document // deduplicated candidates, cross-provider order not guaranteed
	PerProvider map[string]int  // documents contributed per provider after dedup
	Errors      []error         // provider-level failures; the run continues past them
}

// Discover runs every registered provider concurrently and merges
// their candidates. Duplicate URLs are dropped, first provider wins. A
// failing provider is recorded in the result and does not abort the
// run; only the deadline does.
func (m *Manager) Discover(ctx context.Context, opts DiscoverOptions) (*DiscoverResult, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	result := &DiscoverResult{PerProvider: make(map[string]int)}
	if len(m.providers) == 0 {
		m.log.Warn("No discovery providers registered")
		return result, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]bool)
	)

	for _, provider := range m.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			docs, err := provider.Discover(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				m.log.Error("Provider discovery failed", "provider", provider.Name(), "error", err)
				result.Errors = append(result.Errors, fmt.Errorf("provider %s: %w", provider.Name(), err))
				return
			}

			kept := 0
			for _, doc := range docs {
				if doc.URL == "" || seen[doc.URL] {
					continue
				}
				seen[doc.URL] = true
				if doc.Provider == "" {
					doc.Provider = provider.Name()
				}
				result.Documents = append(result.Documents, doc)
				kept++
			}
			result.PerProvider[provider.Name()] = kept
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, err)
		return result, err
	}

	m.log.Info("Discovery completed",
		"providers", len(m.providers),
		"documents", len(result.Documents),
		"failures", len(result.Errors))
	return result, nil
}
