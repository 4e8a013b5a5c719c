package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signalhound/internal/core"
)

// postgresSourceRepo implements SourceRepository for PostgreSQL
type postgresSourceRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresSourceRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const sourceColumns = `id, signal_id, url, title, excerpt, domain, source_type, embedding,
	   quality_score, story_cluster_id, duplicate_of, published_at, discovered_at`

func (r *postgresSourceRepo) Create(ctx context.Context, source *core.Source) error {
	embeddingJSON, err := marshalEmbedding(source.Embedding)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sources (
			id, signal_id, url, title, excerpt, domain, source_type, embedding,
			quality_score, story_cluster_id, duplicate_of, published_at, discovered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (url) DO NOTHING
	`
	result, err := r.query().ExecContext(ctx, query,
		source.ID, nullString(source.SignalID), source.URL, source.Title,
		source.Excerpt, source.Domain, source.SourceType, embeddingJSON,
		source.QualityScore, nullString(source.StoryClusterID),
		nullString(source.DuplicateOf), nullTime(source.PublishedAt), source.DiscoveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("source %s: %w", source.URL, ErrDuplicateURL)
	}
	return nil
}

func (r *postgresSourceRepo) Get(ctx context.Context, id string) (*core.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`
	row := r.query().QueryRowContext(ctx, query, id)
	return r.scanSource(row)
}

func (r *postgresSourceRepo) GetByURL(ctx context.Context, url string) (*core.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE url = $1`
	row := r.query().QueryRowContext(ctx, query, url)
	return r.scanSource(row)
}

func (r *postgresSourceRepo) ExistsURL(ctx context.Context, url string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sources WHERE url = $1)`
	var exists bool
	err := r.query().QueryRowContext(ctx, query, url).Scan(&exists)
	return exists, err
}

func (r *postgresSourceRepo) ListBySignal(ctx context.Context, signalID string) ([]core.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE signal_id = $1
		ORDER BY discovered_at ASC
	`
	rows, err := r.query().QueryContext(ctx, query, signalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []core.Source
	for rows.Next() {
		source, err := r.scanSourceRow(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}
	return sources, rows.Err()
}

func (r *postgresSourceRepo) List(ctx context.Context, opts ListOptions) ([]core.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources`

	var args []interface{}
	if domain, ok := opts.Filter["domain"].(string); ok && domain != "" {
		args = append(args, domain)
		query += fmt.Sprintf(" WHERE domain = $%d", len(args))
	}
	query += " ORDER BY discovered_at DESC"

	limit := opts.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.query().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []core.Source
	for rows.Next() {
		source, err := r.scanSourceRow(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}
	return sources, rows.Err()
}

func (r *postgresSourceRepo) Update(ctx context.Context, source *core.Source) error {
	embeddingJSON, err := marshalEmbedding(source.Embedding)
	if err != nil {
		return err
	}

	query := `
		UPDATE sources SET
			signal_id = $2, url = $3, title = $4, excerpt = $5, domain = $6,
			source_type = $7, embedding = $8, quality_score = $9,
			story_cluster_id = $10, duplicate_of = $11, published_at = $12
		WHERE id = $1
	`
	result, err := r.query().ExecContext(ctx, query,
		source.ID, nullString(source.SignalID), source.URL, source.Title,
		source.Excerpt, source.Domain, source.SourceType, embeddingJSON,
		source.QualityScore, nullString(source.StoryClusterID),
		nullString(source.DuplicateOf), nullTime(source.PublishedAt),
	)
	if err != nil {
		return err
	}
	return requireRow(result, "source", source.ID)
}

func (r *postgresSourceRepo) AssignClusters(ctx context.Context, clusters map[string]string) error {
	if len(clusters) == 0 {
		return nil
	}
	query := `UPDATE sources SET story_cluster_id = $2 WHERE id = $1`
	for id, clusterID := range clusters {
		if _, err := r.query().ExecContext(ctx, query, id, nullString(clusterID)); err != nil {
			return fmt.Errorf("failed to assign cluster for source %s: %w", id, err)
		}
	}
	return nil
}

func (r *postgresSourceRepo) MarkDuplicate(ctx context.Context, id, duplicateOf string) error {
	query := `UPDATE sources SET duplicate_of = $2 WHERE id = $1`
	result, err := r.query().ExecContext(ctx, query, id, nullString(duplicateOf))
	if err != nil {
		return err
	}
	return requireRow(result, "source", id)
}

func (r *postgresSourceRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sources WHERE id = $1`
	_, err := r.query().ExecContext(ctx, query, id)
	return err
}

func (r *postgresSourceRepo) scanSource(row *sql.Row) (*core.Source, error) {
	source, err := scanSourceFields(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("source %w", ErrNotFound)
		}
		return nil, err
	}
	return source, nil
}

func (r *postgresSourceRepo) scanSourceRow(rows *sql.Rows) (*core.Source, error) {
	return scanSourceFields(rows.Scan)
}

func scanSourceFields(scan func(dest ...interface{}) error) (*core.Source, error) {
	var source core.Source
	var signalID, clusterID, duplicateOf sql.NullString
	var publishedAt sql.NullTime
	var embeddingJSON []byte

	err := scan(
		&source.ID, &signalID, &source.URL, &source.Title, &source.Excerpt,
		&source.Domain, &source.SourceType, &embeddingJSON,
		&source.QualityScore, &clusterID, &duplicateOf, &publishedAt, &source.DiscoveredAt,
	)
	if err != nil {
		return nil, err
	}

	source.SignalID = signalID.String
	source.StoryClusterID = clusterID.String
	source.DuplicateOf = duplicateOf.String
	if publishedAt.Valid {
		source.PublishedAt = publishedAt.Time
	}
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &source.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}
	return &source, nil
}

// postgresDomainRepo implements DomainReputationRepository for PostgreSQL
type postgresDomainRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresDomainRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const domainColumns = `id, pattern, curated_tier, rating_sum, rating_count,
	   triage_passed, triage_total, composite_score, locale_bonus, updated_at`

func (r *postgresDomainRepo) FindByPatterns(ctx context.Context, patterns []string) ([]core.DomainReputation, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	query := `SELECT ` + domainColumns + ` FROM domain_reputation WHERE pattern = ANY($1)`
	rows, err := r.query().QueryContext(ctx, query, pq.Array(patterns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []core.DomainReputation
	for rows.Next() {
		record, err := scanDomainFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *postgresDomainRepo) Get(ctx context.Context, pattern string) (*core.DomainReputation, error) {
	query := `SELECT ` + domainColumns + ` FROM domain_reputation WHERE pattern = $1`
	row := r.query().QueryRowContext(ctx, query, pattern)
	record, err := scanDomainFields(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("domain reputation %w", ErrNotFound)
		}
		return nil, err
	}
	return record, nil
}

func (r *postgresDomainRepo) Upsert(ctx context.Context, rep *core.DomainReputation) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	query := `
		INSERT INTO domain_reputation (
			id, pattern, curated_tier, rating_sum, rating_count,
			triage_passed, triage_total, composite_score, locale_bonus, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pattern) DO UPDATE SET
			curated_tier = EXCLUDED.curated_tier,
			composite_score = EXCLUDED.composite_score,
			locale_bonus = EXCLUDED.locale_bonus,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.query().ExecContext(ctx, query,
		rep.ID, rep.Pattern, nullTier(rep.CuratedTier), rep.RatingSum, rep.RatingCount,
		rep.TriagePassed, rep.TriageTotal, rep.CompositeScore, rep.LocaleBonus, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert domain reputation: %w", err)
	}
	return nil
}

func (r *postgresDomainRepo) RecordTriage(ctx context.Context, pattern string, passed bool) (core.DomainReputation, error) {
	passedDelta := 0
	if passed {
		passedDelta = 1
	}
	query := `
		INSERT INTO domain_reputation (id, pattern, triage_passed, triage_total, updated_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (pattern) DO UPDATE SET
			triage_passed = domain_reputation.triage_passed + $3,
			triage_total = domain_reputation.triage_total + 1,
			updated_at = $4
		RETURNING ` + domainColumns + `
	`
	row := r.query().QueryRowContext(ctx, query, uuid.NewString(), pattern, passedDelta, time.Now().UTC())
	record, err := scanDomainFields(row.Scan)
	if err != nil {
		return core.DomainReputation{}, fmt.Errorf("failed to record triage for %s: %w", pattern, err)
	}
	return *record, nil
}

func (r *postgresDomainRepo) ApplyRating(ctx context.Context, pattern string, delta int, newRating bool) (core.DomainReputation, error) {
	countDelta := 0
	if newRating {
		countDelta = 1
	}
	query := `
		INSERT INTO domain_reputation (id, pattern, rating_sum, rating_count, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pattern) DO UPDATE SET
			rating_sum = domain_reputation.rating_sum + $3,
			rating_count = domain_reputation.rating_count + $4,
			updated_at = $5
		RETURNING ` + domainColumns + `
	`
	row := r.query().QueryRowContext(ctx, query, uuid.NewString(), pattern, delta, countDelta, time.Now().UTC())
	record, err := scanDomainFields(row.Scan)
	if err != nil {
		return core.DomainReputation{}, fmt.Errorf("failed to apply rating for %s: %w", pattern, err)
	}
	return *record, nil
}

func (r *postgresDomainRepo) SaveComposite(ctx context.Context, pattern string, score float64) error {
	query := `UPDATE domain_reputation SET composite_score = $2, updated_at = $3 WHERE pattern = $1`
	result, err := r.query().ExecContext(ctx, query, pattern, score, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(result, "domain reputation", pattern)
}

func (r *postgresDomainRepo) List(ctx context.Context, opts ListOptions) ([]core.DomainReputation, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	query := `
		SELECT ` + domainColumns + `
		FROM domain_reputation
		ORDER BY pattern
		LIMIT $1 OFFSET $2
	`
	rows, err := r.query().QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []core.DomainReputation
	for rows.Next() {
		record, err := scanDomainFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanDomainFields(scan func(dest ...interface{}) error) (*core.DomainReputation, error) {
	var record core.DomainReputation
	var tier sql.NullInt64

	err := scan(
		&record.ID, &record.Pattern, &tier, &record.RatingSum, &record.RatingCount,
		&record.TriagePassed, &record.TriageTotal, &record.CompositeScore,
		&record.LocaleBonus, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tier.Valid {
		t := int(tier.Int64)
		record.CuratedTier = &t
	}
	return &record, nil
}

// postgresRatingRepo implements SourceRatingRepository for PostgreSQL
type postgresRatingRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresRatingRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Upsert is a read-then-write pair; run it inside a transaction when
// the previous value feeds aggregate updates.
func (r *postgresRatingRepo) Upsert(ctx context.Context, rating *core.SourceRating) (int, bool, error) {
	var previous int
	existed := true
	err := r.query().QueryRowContext(ctx,
		`SELECT rating FROM source_ratings WHERE source_id = $1 AND rater_id = $2`,
		rating.SourceID, rating.RaterID,
	).Scan(&previous)
	if err == sql.ErrNoRows {
		existed = false
	} else if err != nil {
		return 0, false, err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO source_ratings (source_id, rater_id, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (source_id, rater_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.query().ExecContext(ctx, query, rating.SourceID, rating.RaterID, rating.Rating, now); err != nil {
		return 0, false, fmt.Errorf("failed to upsert rating: %w", err)
	}
	return previous, existed, nil
}

func (r *postgresRatingRepo) ListBySource(ctx context.Context, sourceID string) ([]core.SourceRating, error) {
	query := `
		SELECT source_id, rater_id, rating, created_at, updated_at
		FROM source_ratings
		WHERE source_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.query().QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []core.SourceRating
	for rows.Next() {
		var rating core.SourceRating
		if err := rows.Scan(&rating.SourceID, &rating.RaterID, &rating.Rating, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// postgresReviewFlagRepo implements ReviewFlagRepository for PostgreSQL
type postgresReviewFlagRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresReviewFlagRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresReviewFlagRepo) Create(ctx context.Context, flag *core.ReviewFlag) error {
	query := `
		INSERT INTO review_flags (source_id, signal_id, similarity, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_id, signal_id) DO NOTHING
	`
	createdAt := flag.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.query().ExecContext(ctx, query,
		flag.SourceID, flag.SignalID, flag.Similarity, flag.Reason, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review flag: %w", err)
	}
	return nil
}

func (r *postgresReviewFlagRepo) ListPending(ctx context.Context, limit int) ([]core.ReviewFlag, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT source_id, signal_id, similarity, reason, created_at
		FROM review_flags
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.query().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []core.ReviewFlag
	for rows.Next() {
		var flag core.ReviewFlag
		if err := rows.Scan(&flag.SourceID, &flag.SignalID, &flag.Similarity, &flag.Reason, &flag.CreatedAt); err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

func (r *postgresReviewFlagRepo) Delete(ctx context.Context, sourceID, signalID string) error {
	query := `DELETE FROM review_flags WHERE source_id = $1 AND signal_id = $2`
	_, err := r.query().ExecContext(ctx, query, sourceID, signalID)
	return err
}

// postgresFeedRepo implements FeedRepository for PostgreSQL
type postgresFeedRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresFeedRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const feedColumns = `id, url, title, description, last_fetched, last_modified, etag,
	   active, error_count, last_error, added_at`

func (r *postgresFeedRepo) Create(ctx context.Context, feed *core.Feed) error {
	query := `
		INSERT INTO feeds (
			id, url, title, description, last_fetched, last_modified, etag,
			active, error_count, last_error, added_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.query().ExecContext(ctx, query,
		feed.ID, feed.URL, feed.Title, feed.Description, nullTime(feed.LastFetched),
		feed.LastModified, feed.ETag, feed.Active, feed.ErrorCount,
		feed.LastError, feed.AddedAt,
	)
	return err
}

func (r *postgresFeedRepo) Get(ctx context.Context, id string) (*core.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1`
	row := r.query().QueryRowContext(ctx, query, id)
	return r.scanFeed(row)
}

func (r *postgresFeedRepo) GetByURL(ctx context.Context, url string) (*core.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE url = $1`
	row := r.query().QueryRowContext(ctx, query, url)
	return r.scanFeed(row)
}

func (r *postgresFeedRepo) ListActive(ctx context.Context) ([]core.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE active = true ORDER BY title`
	rows, err := r.query().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []core.Feed
	for rows.Next() {
		feed, err := r.scanFeedRow(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

func (r *postgresFeedRepo) List(ctx context.Context, opts ListOptions) ([]core.Feed, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	query := `SELECT ` + feedColumns + ` FROM feeds ORDER BY title LIMIT $1 OFFSET $2`
	rows, err := r.query().QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []core.Feed
	for rows.Next() {
		feed, err := r.scanFeedRow(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

func (r *postgresFeedRepo) Update(ctx context.Context, feed *core.Feed) error {
	query := `
		UPDATE feeds SET
			url = $2, title = $3, description = $4, last_fetched = $5,
			last_modified = $6, etag = $7, active = $8, error_count = $9,
			last_error = $10
		WHERE id = $1
	`
	result, err := r.query().ExecContext(ctx, query,
		feed.ID, feed.URL, feed.Title, feed.Description, nullTime(feed.LastFetched),
		feed.LastModified, feed.ETag, feed.Active, feed.ErrorCount, feed.LastError,
	)
	if err != nil {
		return err
	}
	return requireRow(result, "feed", feed.ID)
}

func (r *postgresFeedRepo) UpdateLastFetched(ctx context.Context, id string, lastModified, etag string) error {
	query := `
		UPDATE feeds SET
			last_fetched = $2, last_modified = $3, etag = $4,
			error_count = 0, last_error = ''
		WHERE id = $1
	`
	result, err := r.query().ExecContext(ctx, query, id, time.Now().UTC(), lastModified, etag)
	if err != nil {
		return err
	}
	return requireRow(result, "feed", id)
}

func (r *postgresFeedRepo) RecordError(ctx context.Context, id string, message string) error {
	query := `UPDATE feeds SET error_count = error_count + 1, last_error = $2 WHERE id = $1`
	result, err := r.query().ExecContext(ctx, query, id, message)
	if err != nil {
		return err
	}
	return requireRow(result, "feed", id)
}

func (r *postgresFeedRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM feeds WHERE id = $1`
	_, err := r.query().ExecContext(ctx, query, id)
	return err
}

func (r *postgresFeedRepo) scanFeed(row *sql.Row) (*core.Feed, error) {
	feed, err := scanFeedFields(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("feed %w", ErrNotFound)
		}
		return nil, err
	}
	return feed, nil
}

func (r *postgresFeedRepo) scanFeedRow(rows *sql.Rows) (*core.Feed, error) {
	return scanFeedFields(rows.Scan)
}

func scanFeedFields(scan func(dest ...interface{}) error) (*core.Feed, error) {
	var feed core.Feed
	var lastFetched sql.NullTime
	var lastModified, etag, lastError sql.NullString

	err := scan(
		&feed.ID, &feed.URL, &feed.Title, &feed.Description, &lastFetched,
		&lastModified, &etag, &feed.Active, &feed.ErrorCount,
		&lastError, &feed.AddedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastFetched.Valid {
		feed.LastFetched = lastFetched.Time
	}
	feed.LastModified = lastModified.String
	feed.ETag = etag.String
	feed.LastError = lastError.String
	return &feed, nil
}

// nullString maps "" to NULL for nullable text columns.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullTime maps the zero time to NULL for nullable timestamp columns.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// nullTier maps a missing curated tier to NULL.
func nullTier(tier *int) interface{} {
	if tier == nil {
		return nil
	}
	return *tier
}

// marshalEmbedding prepares the embedding JSONB column, mapping an
// empty vector to NULL.
func marshalEmbedding(embedding []float64) (interface{}, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return b, nil
}
