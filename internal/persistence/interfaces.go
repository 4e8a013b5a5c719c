// Package persistence provides database abstraction interfaces for storing signals, sources, reputation records, and feeds
package persistence

import (
	"context"
	"errors"

	"signalhound/internal/core"
)

// ErrNotFound is wrapped by repository lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicateURL is returned by SourceRepository.Create when a source
// with the same URL already exists. Callers treat it as an idempotent
// no-op rather than a failure: the earlier write already made the
// catalog correct.
var ErrDuplicateURL = errors.New("source url already recorded")

// SignalRepository handles signal catalog persistence operations
type SignalRepository interface {
	// Create inserts a new signal
	Create(ctx context.Context, signal *core.Signal) error

	// Get retrieves a signal by ID
	Get(ctx context.Context, id string) (*core.Signal, error)

	// List retrieves signals with pagination and filtering
	List(ctx context.Context, opts ListOptions) ([]core.Signal, error)

	// ListActiveEmbedded retrieves active signals that carry an
	// embedding, newest first. Used to rebuild the vector index and as
	// the brute-force dedup fallback when the index is unavailable.
	ListActiveEmbedded(ctx context.Context, limit int) ([]core.Signal, error)

	// SignalEmbeddings loads just the embeddings for the given IDs.
	// Signals without a stored embedding are absent from the map.
	SignalEmbeddings(ctx context.Context, ids []string) (map[string][]float64, error)

	// Update updates an existing signal
	Update(ctx context.Context, signal *core.Signal) error

	// UpdateStatus moves a signal through its lifecycle
	UpdateStatus(ctx context.Context, id string, status core.SignalStatus) error

	// SaveQuality stores the composite quality score together with its
	// audit breakdown
	SaveQuality(ctx context.Context, id string, breakdown core.QualityBreakdown) error

	// Delete removes a signal by ID
	Delete(ctx context.Context, id string) error
}

// SourceRepository handles persistence of discovered documents
type SourceRepository interface {
	// Create inserts a new source, returning ErrDuplicateURL when a
	// row with the same URL already exists
	Create(ctx context.Context, source *core.Source) error

	// Get retrieves a source by ID
	Get(ctx context.Context, id string) (*core.Source, error)

	// GetByURL retrieves a source by its URL
	GetByURL(ctx context.Context, url string) (*core.Source, error)

	// ExistsURL reports whether a source with the URL is already stored
	ExistsURL(ctx context.Context, url string) (bool, error)

	// ListBySignal retrieves all sources attached to a signal
	ListBySignal(ctx context.Context, signalID string) ([]core.Source, error)

	// List retrieves sources with pagination and filtering
	List(ctx context.Context, opts ListOptions) ([]core.Source, error)

	// Update updates an existing source
	Update(ctx context.Context, source *core.Source) error

	// AssignClusters batch-writes story cluster IDs, keyed by source ID
	AssignClusters(ctx context.Context, clusters map[string]string) error

	// MarkDuplicate records that id near-duplicates duplicateOf
	MarkDuplicate(ctx context.Context, id, duplicateOf string) error

	// Delete removes a source by ID
	Delete(ctx context.Context, id string) error
}

// DomainReputationRepository handles per-pattern trust records. The
// FindByPatterns / RecordTriage / SaveComposite triple is what the
// reputation scorer consumes.
type DomainReputationRepository interface {
	// FindByPatterns returns every stored record whose pattern is in
	// the candidate set. Ordering is unspecified; the caller ranks by
	// pattern specificity.
	FindByPatterns(ctx context.Context, patterns []string) ([]core.DomainReputation, error)

	// Get retrieves the record for one exact pattern
	Get(ctx context.Context, pattern string) (*core.DomainReputation, error)

	// Upsert writes a full record, preserving learned counters when the
	// pattern already exists. Used for seeding curated tiers.
	Upsert(ctx context.Context, rep *core.DomainReputation) error

	// RecordTriage increments the triage counters for the pattern,
	// creating the record on first sight, and returns the result
	RecordTriage(ctx context.Context, pattern string, passed bool) (core.DomainReputation, error)

	// ApplyRating folds one crowd rating into the aggregates: delta is
	// added to rating_sum, and rating_count grows only when the rating
	// is new rather than a revision
	ApplyRating(ctx context.Context, pattern string, delta int, newRating bool) (core.DomainReputation, error)

	// SaveComposite stores a freshly recomputed composite score
	SaveComposite(ctx context.Context, pattern string, score float64) error

	// List retrieves reputation records with pagination
	List(ctx context.Context, opts ListOptions) ([]core.DomainReputation, error)
}

// SourceRatingRepository handles 1-5 crowd ratings, upserted on
// (source, rater)
type SourceRatingRepository interface {
	// Upsert writes the rating and reports the previous value so the
	// caller can adjust domain aggregates by the difference
	Upsert(ctx context.Context, rating *core.SourceRating) (previous int, existed bool, err error)

	// ListBySource retrieves all ratings for a source
	ListBySource(ctx context.Context, sourceID string) ([]core.SourceRating, error)
}

// ReviewFlagRepository handles the low-confidence near-miss queue
type ReviewFlagRepository interface {
	// Create records the flag; re-flagging the same source/signal pair
	// is a no-op
	Create(ctx context.Context, flag *core.ReviewFlag) error

	// ListPending retrieves open flags, oldest first
	ListPending(ctx context.Context, limit int) ([]core.ReviewFlag, error)

	// Delete removes a flag once reviewed
	Delete(ctx context.Context, sourceID, signalID string) error
}

// FeedRepository handles RSS/Atom feed persistence operations
type FeedRepository interface {
	// Create inserts a new feed
	Create(ctx context.Context, feed *core.Feed) error

	// Get retrieves a feed by ID
	Get(ctx context.Context, id string) (*core.Feed, error)

	// GetByURL retrieves a feed by its URL
	GetByURL(ctx context.Context, url string) (*core.Feed, error)

	// ListActive retrieves all active feeds
	ListActive(ctx context.Context) ([]core.Feed, error)

	// List retrieves feeds with pagination
	List(ctx context.Context, opts ListOptions) ([]core.Feed, error)

	// Update updates an existing feed
	Update(ctx context.Context, feed *core.Feed) error

	// UpdateLastFetched stamps a successful poll, stores the
	// conditional-GET validators, and clears the error streak
	UpdateLastFetched(ctx context.Context, id string, lastModified, etag string) error

	// RecordError increments the consecutive error count
	RecordError(ctx context.Context, id string, message string) error

	// Delete removes a feed by ID
	Delete(ctx context.Context, id string) error
}

// ListOptions provides pagination and filtering options
type ListOptions struct {
	Limit  int
	Offset int
	SortBy string
	Order  string // "asc" or "desc"
	Filter map[string]interface{}
}

// Database is the interface for database operations
type Database interface {
	// Signals returns the signal repository
	Signals() SignalRepository

	// Sources returns the source repository
	Sources() SourceRepository

	// Domains returns the domain reputation repository
	Domains() DomainReputationRepository

	// Ratings returns the source rating repository
	Ratings() SourceRatingRepository

	// ReviewFlags returns the review flag repository
	ReviewFlags() ReviewFlagRepository

	// Feeds returns the feed repository
	Feeds() FeedRepository

	// Close closes the database connection
	Close() error

	// Ping checks database connectivity
	Ping(ctx context.Context) error

	// BeginTx starts a new transaction
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction exposing the same
// repositories scoped to it
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Signals returns a transactional signal repository
	Signals() SignalRepository

	// Sources returns a transactional source repository
	Sources() SourceRepository

	// Domains returns a transactional domain reputation repository
	Domains() DomainReputationRepository

	// Ratings returns a transactional source rating repository
	Ratings() SourceRatingRepository

	// ReviewFlags returns a transactional review flag repository
	ReviewFlags() ReviewFlagRepository

	// Feeds returns a transactional feed repository
	Feeds() FeedRepository
}
