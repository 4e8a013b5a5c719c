// Package persistence provides database implementations
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"signalhound/internal/core"
)

// PostgresDB implements the Database interface for PostgreSQL
type PostgresDB struct {
	db          *sql.DB
	signals     SignalRepository
	sources     SourceRepository
	domains     DomainReputationRepository
	ratings     SourceRatingRepository
	reviewFlags ReviewFlagRepository
	feeds       FeedRepository
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{db: db}
	pgDB.signals = &postgresSignalRepo{db: db}
	pgDB.sources = &postgresSourceRepo{db: db}
	pgDB.domains = &postgresDomainRepo{db: db}
	pgDB.ratings = &postgresRatingRepo{db: db}
	pgDB.reviewFlags = &postgresReviewFlagRepo{db: db}
	pgDB.feeds = &postgresFeedRepo{db: db}

	return pgDB, nil
}

func (p *PostgresDB) Signals() SignalRepository           { return p.signals }
func (p *PostgresDB) Sources() SourceRepository           { return p.sources }
func (p *PostgresDB) Domains() DomainReputationRepository { return p.domains }
func (p *PostgresDB) Ratings() SourceRatingRepository     { return p.ratings }
func (p *PostgresDB) ReviewFlags() ReviewFlagRepository   { return p.reviewFlags }
func (p *PostgresDB) Feeds() FeedRepository               { return p.feeds }

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{
		tx:          tx,
		signals:     &postgresSignalRepo{db: p.db, tx: tx},
		sources:     &postgresSourceRepo{db: p.db, tx: tx},
		domains:     &postgresDomainRepo{db: p.db, tx: tx},
		ratings:     &postgresRatingRepo{db: p.db, tx: tx},
		reviewFlags: &postgresReviewFlagRepo{db: p.db, tx: tx},
		feeds:       &postgresFeedRepo{db: p.db, tx: tx},
	}, nil
}

// postgresTx implements Transaction interface
type postgresTx struct {
	tx          *sql.Tx
	signals     SignalRepository
	sources     SourceRepository
	domains     DomainReputationRepository
	ratings     SourceRatingRepository
	reviewFlags ReviewFlagRepository
	feeds       FeedRepository
}

func (t *postgresTx) Commit() error                       { return t.tx.Commit() }
func (t *postgresTx) Rollback() error                     { return t.tx.Rollback() }
func (t *postgresTx) Signals() SignalRepository           { return t.signals }
func (t *postgresTx) Sources() SourceRepository           { return t.sources }
func (t *postgresTx) Domains() DomainReputationRepository { return t.domains }
func (t *postgresTx) Ratings() SourceRatingRepository     { return t.ratings }
func (t *postgresTx) ReviewFlags() ReviewFlagRepository   { return t.reviewFlags }
func (t *postgresTx) Feeds() FeedRepository               { return t.feeds }

// postgresSignalRepo implements SignalRepository for PostgreSQL
type postgresSignalRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresSignalRepo) query() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const signalColumns = `id, name, summary, embedding, status, category, locale, source_types,
	   relevance_score, impact_score, novelty_score, urgency_score,
	   credibility_score, specificity_score, actionability_score,
	   quality_score, quality_breakdown, created_at, updated_at`

func (r *postgresSignalRepo) Create(ctx context.Context, signal *core.Signal) error {
	embeddingJSON, sourceTypesJSON, breakdownJSON, err := marshalSignalJSON(signal)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO signals (
			id, name, summary, embedding, status, category, locale, source_types,
			relevance_score, impact_score, novelty_score, urgency_score,
			credibility_score, specificity_score, actionability_score,
			quality_score, quality_breakdown, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = r.query().ExecContext(ctx, query,
		signal.ID, signal.Name, signal.Summary, embeddingJSON, string(signal.Status),
		signal.Category, signal.Locale, sourceTypesJSON,
		signal.RelevanceScore, signal.ImpactScore, signal.NoveltyScore, signal.UrgencyScore,
		signal.CredibilityScore, signal.SpecificityScore, signal.ActionabilityScore,
		signal.QualityScore, breakdownJSON, signal.CreatedAt, signal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

func (r *postgresSignalRepo) Get(ctx context.Context, id string) (*core.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE id = $1`
	row := r.query().QueryRowContext(ctx, query, id)
	return r.scanSignal(row)
}

func (r *postgresSignalRepo) List(ctx context.Context, opts ListOptions) ([]core.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals`

	var args []interface{}
	if status, ok := opts.Filter["status"].(string); ok && status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}

	order := "updated_at DESC"
	switch opts.SortBy {
	case "quality":
		order = "quality_score DESC, updated_at DESC"
	case "created":
		order = "created_at DESC"
	case "name":
		order = "name ASC"
	}
	query += " ORDER BY " + order

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

	var signals []core.Signal
	for rows.Next() {
		signal, err := r.scanSignalRow(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *signal)
	}
	return signals, rows.Err()
}

func (r *postgresSignalRepo) ListActiveEmbedded(ctx context.Context, limit int) ([]core.Signal, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE status = $1 AND embedding IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := r.query().QueryContext(ctx, query, string(core.SignalActive), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []core.Signal
	for rows.Next() {
		signal, err := r.scanSignalRow(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *signal)
	}
	return signals, rows.Err()
}

func (r *postgresSignalRepo) SignalEmbeddings(ctx context.Context, ids []string) (map[string][]float64, error) {
	embeddings := make(map[string][]float64, len(ids))
	if len(ids) == 0 {
		return embeddings, nil
	}

	query := `SELECT id, embedding FROM signals WHERE id = ANY($1) AND embedding IS NOT NULL`
	rows, err := r.query().QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var embeddingJSON []byte
		if err := rows.Scan(&id, &embeddingJSON); err != nil {
			return nil, err
		}
		var embedding []float64
		if err := json.Unmarshal(embeddingJSON, &embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for signal %s: %w", id, err)
		}
		if len(embedding) > 0 {
			embeddings[id] = embedding
		}
	}
	return embeddings, rows.Err()
}

func (r *postgresSignalRepo) Update(ctx context.Context, signal *core.Signal) error {
	embeddingJSON, sourceTypesJSON, breakdownJSON, err := marshalSignalJSON(signal)
	if err != nil {
		return err
	}

	query := `
		UPDATE signals SET
			name = $2, summary = $3, embedding = $4, status = $5, category = $6,
			locale = $7, source_types = $8, relevance_score = $9, impact_score = $10,
			novelty_score = $11, urgency_score = $12, credibility_score = $13,
			specificity_score = $14, actionability_score = $15,
			quality_score = $16, quality_breakdown = $17, updated_at = $18
		WHERE id = $1
	`
	result, err := r.query().ExecContext(ctx, query,
		signal.ID, signal.Name, signal.Summary, embeddingJSON, string(signal.Status),
		signal.Category, signal.Locale, sourceTypesJSON,
		signal.RelevanceScore, signal.ImpactScore, signal.NoveltyScore, signal.UrgencyScore,
		signal.CredibilityScore, signal.SpecificityScore, signal.ActionabilityScore,
		signal.QualityScore, breakdownJSON, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	return requireRow(result, "signal", signal.ID)
}

func (r *postgresSignalRepo) UpdateStatus(ctx context.Context, id string, status core.SignalStatus) error {
	query := `UPDATE signals SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.query().ExecContext(ctx, query, id, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(result, "signal", id)
}

func (r *postgresSignalRepo) SaveQuality(ctx context.Context, id string, breakdown core.QualityBreakdown) error {
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal quality breakdown: %w", err)
	}

	query := `UPDATE signals SET quality_score = $2, quality_breakdown = $3, updated_at = $4 WHERE id = $1`
	result, err := r.query().ExecContext(ctx, query, id, breakdown.Composite, breakdownJSON, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(result, "signal", id)
}

func (r *postgresSignalRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM signals WHERE id = $1`
	_, err := r.query().ExecContext(ctx, query, id)
	return err
}

func (r *postgresSignalRepo) scanSignal(row *sql.Row) (*core.Signal, error) {
	signal, err := scanSignalFields(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("signal %w", ErrNotFound)
		}
		return nil, err
	}
	return signal, nil
}

func (r *postgresSignalRepo) scanSignalRow(rows *sql.Rows) (*core.Signal, error) {
	return scanSignalFields(rows.Scan)
}

// scanSignalFields scans one signals row through the provided Scan
// function, shared between single-row and multi-row reads.
func scanSignalFields(scan func(dest ...interface{}) error) (*core.Signal, error) {
	var signal core.Signal
	var status string
	var embeddingJSON, sourceTypesJSON, breakdownJSON []byte

	err := scan(
		&signal.ID, &signal.Name, &signal.Summary, &embeddingJSON, &status,
		&signal.Category, &signal.Locale, &sourceTypesJSON,
		&signal.RelevanceScore, &signal.ImpactScore, &signal.NoveltyScore, &signal.UrgencyScore,
		&signal.CredibilityScore, &signal.SpecificityScore, &signal.ActionabilityScore,
		&signal.QualityScore, &breakdownJSON, &signal.CreatedAt, &signal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	signal.Status = core.SignalStatus(status)
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &signal.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}
	if len(sourceTypesJSON) > 0 {
		if err := json.Unmarshal(sourceTypesJSON, &signal.SourceTypes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source types: %w", err)
		}
	}
	if len(breakdownJSON) > 0 {
		var breakdown core.QualityBreakdown
		if err := json.Unmarshal(breakdownJSON, &breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quality breakdown: %w", err)
		}
		signal.QualityBreakdown = &breakdown
	}
	return &signal, nil
}

// marshalSignalJSON prepares the three JSONB columns for a signal
// write. Empty embeddings become NULL so the dedup queries can filter
// on embedding IS NOT NULL.
func marshalSignalJSON(signal *core.Signal) (embedding, sourceTypes, breakdown interface{}, err error) {
	if len(signal.Embedding) > 0 {
		b, merr := json.Marshal(signal.Embedding)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal embedding: %w", merr)
		}
		embedding = b
	}

	types := signal.SourceTypes
	if types == nil {
		types = []string{}
	}
	b, merr := json.Marshal(types)
	if merr != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal source types: %w", merr)
	}
	sourceTypes = b

	if signal.QualityBreakdown != nil {
		b, merr := json.Marshal(signal.QualityBreakdown)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal quality breakdown: %w", merr)
		}
		breakdown = b
	}
	return embedding, sourceTypes, breakdown, nil
}

// requireRow converts a zero-row update into a wrapped ErrNotFound.
func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
