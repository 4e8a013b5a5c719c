package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"signalhound/internal/core"
	"signalhound/internal/feeds"
	"signalhound/internal/logger"
	"signalhound/internal/parser"
	"signalhound/internal/persistence"
)

// Provider yields candidate documents from one discovery channel.
// Providers report what they found; the ingestion pipeline decides
// what to do with it.
type Provider interface {
	// Name identifies the provider in logs and run summaries
	Name() string

	// Discover returns the provider's current candidate documents
	Discover(ctx context.Context) ([]core.Document, error)
}

// FeedOptions configures how the feed provider polls registered feeds.
type FeedOptions struct {
	MaxPerFeed  int           // documents taken per feed (default 50)
	Concurrency int           // feeds polled in parallel (default 5)
	Since       time.Time     // drop documents published before this instant
	MinInterval time.Duration // skip feeds fetched more recently than this; zero polls every feed
}

// DefaultFeedOptions polls up to 50 documents per feed, 5 feeds at a
// time, keeping only the last 24 hours of publications.
func DefaultFeedOptions() FeedOptions {
	return FeedOptions{
		MaxPerFeed:  50,
		Concurrency: 5,
		Since:       time.Now().Add(-24 * time.Hour),
	}
}

// FeedProvider polls the active RSS/Atom feeds with conditional GET,
// recording per-feed fetch errors so broken feeds can be spotted.
type FeedProvider struct {
	db          persistence.Database
	feedManager *feeds.FeedManager
	opts        FeedOptions
	log         *slog.Logger
}

// NewFeedProvider creates a feed provider. Zero option fields fall
// back to the defaults.
func NewFeedProvider(db persistence.Database, feedManager *feeds.FeedManager, opts FeedOptions) *FeedProvider {
	if opts.MaxPerFeed <= 0 {
		opts.MaxPerFeed = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	return &FeedProvider{
		db:          db,
		feedManager: feedManager,
		opts:        opts,
		log:         logger.Get(),
	}
}

// Name identifies the feed provider.
func (p *FeedProvider) Name() string {
	return "feeds"
}

// Discover polls the active feeds that are due under MinInterval,
// concurrently, and merges the documents they yield. A feed that fails
// to fetch gets its error streak bumped and the poll moves on; only
// listing the feeds themselves can fail the whole call.
func (p *FeedProvider) Discover(ctx context.Context) ([]core.Document, error) {
	active, err := p.db.Feeds().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active feeds: %w", err)
	}
	if len(active) == 0 {
		p.log.Debug("No active feeds registered")
		return nil, nil
	}

	var (
		mu                           sync.Mutex
		docs                         []core.Document
		fetched, notModified, failed int
	)

	fresh := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, feed := range active {
		if p.opts.MinInterval > 0 && !feed.LastFetched.IsZero() && time.Since(feed.LastFetched) < p.opts.MinInterval {
			fresh++
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			collected, unchanged, pollErr := p.pollFeed(gctx, feed)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case pollErr != nil:
				failed++
			case unchanged:
				notModified++
			default:
				fetched++
				docs = append(docs, collected...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return docs, err
	}

	p.log.Info("Feed poll completed",
		"fetched", fetched,
		"not_modified", notModified,
		"skipped_fresh", fresh,
		"failed", failed,
		"documents", len(docs))
	return docs, nil
}

// pollFeed fetches one feed and filters its documents by publication
// date and the per-feed cap. Documents without a parseable date are
// kept; the date filter only drops what is provably stale.
func (p *FeedProvider) pollFeed(ctx context.Context, feed core.Feed) ([]core.Document, bool, error) {
	parsed, err := p.feedManager.FetchFeed(ctx, feed.URL, feed.LastModified, feed.ETag)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		p.log.Error("Failed to fetch feed", "feed_id", feed.ID, "url", feed.URL, "error", err)
		if recErr := p.db.Feeds().RecordError(ctx, feed.ID, err.Error()); recErr != nil {
			p.log.Error("Failed to record feed error", "feed_id", feed.ID, "error", recErr)
		}
		return nil, false, err
	}

	if parsed.NotModified {
		p.log.Debug("Feed not modified since last fetch", "feed_id", feed.ID, "url", feed.URL)
		return nil, true, nil
	}

	docs := make([]core.Document, 0, len(parsed.Documents))
	for _, doc := range parsed.Documents {
		if !p.opts.Since.IsZero() && !doc.PublishedAt.IsZero() && doc.PublishedAt.Before(p.opts.Since) {
			continue
		}
		doc.URL = parser.NormalizeURL(doc.URL)
		docs = append(docs, doc)
		if len(docs) >= p.opts.MaxPerFeed {
			break
		}
	}

	if err := p.db.Feeds().UpdateLastFetched(ctx, feed.ID, parsed.LastModified, parsed.ETag); err != nil {
		p.log.Error("Failed to update feed fetch state", "feed_id", feed.ID, "error", err)
	}

	return docs, false, nil
}

// SeedProvider reads a curated URL list from disk. Seed documents
// carry URL and source type only; the pipeline's fetch stage fills in
// title and content.
type SeedProvider struct {
	path string
	log  *slog.Logger
}

// NewSeedProvider creates a provider over the seed file at path.
func NewSeedProvider(path string) *SeedProvider {
	return &SeedProvider{
		path: path,
		log:  logger.Get(),
	}
}

// Name identifies the seed provider.
func (p *SeedProvider) Name() string {
	return "seeds"
}

// Discover parses the seed file and emits one bare document per
// normalized URL.
func (p *SeedProvider) Discover(ctx context.Context) ([]core.Document, error) {
	urls, err := parser.ParseFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed list: %w", err)
	}

	docs := make([]core.Document, 0, len(urls))
	for _, u := range urls {
		docs = append(docs, core.Document{
			URL:        u,
			SourceType: core.SourceTypeSeed,
			Provider:   p.Name(),
		})
	}

	p.log.Debug("Seed list loaded", "path", p.path, "urls", len(urls))
	return docs, nil
}
