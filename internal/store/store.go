// Package store provides the local SQLite ingest cache: fetched
// documents, the seen-URL ledger, and reusable triage verdicts. It
// exists so re-running ingestion does not re-fetch or re-triage
// content the previous run already paid for.
package store

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"signalhound/internal/core"
)

// Store represents the SQLite-based ingest cache
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new store instance with SQLite database
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "signalhound.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	documentsTable := `
	CREATE TABLE IF NOT EXISTS documents (
		url TEXT PRIMARY KEY,
		title TEXT,
		content TEXT,
		source_type TEXT,
		provider TEXT,
		published_at DATETIME,
		fetched_at DATETIME,
		content_hash TEXT
	);`

	seenTable := `
	CREATE TABLE IF NOT EXISTS seen_urls (
		url TEXT PRIMARY KEY,
		outcome TEXT,
		first_seen DATETIME,
		last_seen DATETIME
	);`

	triageTable := `
	CREATE TABLE IF NOT EXISTS triage_verdicts (
		content_hash TEXT PRIMARY KEY,
		is_relevant BOOLEAN,
		confidence REAL,
		reason TEXT,
		decided_at DATETIME
	);`

	tables := []string{documentsTable, seenTable, triageTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CacheDocument stores a fetched document in the cache
func (s *Store) CacheDocument(doc core.Document) error {
	query := `
	INSERT OR REPLACE INTO documents
	(url, title, content, source_type, provider, published_at, fetched_at, content_hash)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		doc.URL,
		doc.Title,
		doc.Content,
		doc.SourceType,
		doc.Provider,
		doc.PublishedAt,
		time.Now().UTC(),
		ContentHash(doc.Content),
	)

	return err
}

// GetCachedDocument retrieves a document from the cache. A nil
// document with a nil error is a cache miss.
func (s *Store) GetCachedDocument(url string, maxAge time.Duration) (*core.Document, error) {
	query := `
	SELECT url, title, content, source_type, provider, published_at
	FROM documents
	WHERE url = ? AND fetched_at > ?`

	cutoff := time.Now().UTC().Add(-maxAge)
	row := s.db.QueryRow(query, url, cutoff)

	var doc core.Document
	err := row.Scan(
		&doc.URL,
		&doc.Title,
		&doc.Content,
		&doc.SourceType,
		&doc.Provider,
		&doc.PublishedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return &doc, nil
}

// MarkSeen records the terminal outcome for a URL so later runs can
// skip it without refetching. Re-marking keeps first_seen.
func (s *Store) MarkSeen(url string, outcome core.Stage) error {
	now := time.Now().UTC()
	query := `
	INSERT INTO seen_urls (url, outcome, first_seen, last_seen)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (url) DO UPDATE SET
		outcome = excluded.outcome,
		last_seen = excluded.last_seen`

	_, err := s.db.Exec(query, url, string(outcome), now, now)
	return err
}

// LastOutcome reports the recorded outcome for a URL seen within
// maxAge. The second return is false on a miss.
func (s *Store) LastOutcome(url string, maxAge time.Duration) (core.Stage, bool, error) {
	query := `SELECT outcome FROM seen_urls WHERE url = ? AND last_seen > ?`

	cutoff := time.Now().UTC().Add(-maxAge)
	var outcome string
	err := s.db.QueryRow(query, url, cutoff).Scan(&outcome)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to scan outcome: %w", err)
	}

	return core.Stage(outcome), true, nil
}

// CacheTriage stores a triage verdict keyed by content hash, so
// re-discovered copies of the same text skip the classifier.
func (s *Store) CacheTriage(contentHash string, verdict core.TriageResult) error {
	query := `
	INSERT OR REPLACE INTO triage_verdicts
	(content_hash, is_relevant, confidence, reason, decided_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		contentHash,
		verdict.IsRelevant,
		verdict.Confidence,
		verdict.Reason,
		time.Now().UTC(),
	)

	return err
}

// GetCachedTriage retrieves a triage verdict from the cache. A nil
// verdict with a nil error is a cache miss.
func (s *Store) GetCachedTriage(contentHash string, maxAge time.Duration) (*core.TriageResult, error) {
	query := `
	SELECT is_relevant, confidence, reason
	FROM triage_verdicts
	WHERE content_hash = ? AND decided_at > ?`

	cutoff := time.Now().UTC().Add(-maxAge)
	row := s.db.QueryRow(query, contentHash, cutoff)

	var verdict core.TriageResult
	err := row.Scan(&verdict.IsRelevant, &verdict.Confidence, &verdict.Reason)

	if err == sql.ErrNoRows {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan triage verdict: %w", err)
	}

	return &verdict, nil
}

// CacheStats represents cache statistics
type CacheStats struct {
	DocumentCount int
	SeenCount     int
	TriageCount   int
	CacheSize     int64
	LastUpdated   time.Time
}

// GetCacheStats returns statistics about the cache
func (s *Store) GetCacheStats() (*CacheStats, error) {
	stats := &CacheStats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM documents":       &stats.DocumentCount,
		"SELECT COUNT(*) FROM seen_urls":       &stats.SeenCount,
		"SELECT COUNT(*) FROM triage_verdicts": &stats.TriageCount,
	}

	for query, target := range queries {
		err := s.db.QueryRow(query).Scan(target)
		if err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	// Get cache size (file size)
	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.CacheSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}

// ClearCache removes all cached data
func (s *Store) ClearCache() error {
	tables := []string{"documents", "seen_urls", "triage_verdicts"}

	for _, table := range tables {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			return fmt.Errorf("failed to clear %s table: %w", table, err)
		}
	}

	// Vacuum to reclaim space
	_, err := s.db.Exec("VACUUM")
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// CleanupOldCache removes cached documents and triage verdicts older
// than documentMaxAge and seen-URL records older than seenMaxAge.
func (s *Store) CleanupOldCache(documentMaxAge, seenMaxAge time.Duration) error {
	now := time.Now().UTC()

	_, err := s.db.Exec("DELETE FROM documents WHERE fetched_at < ?", now.Add(-documentMaxAge))
	if err != nil {
		return fmt.Errorf("failed to clean old documents: %w", err)
	}

	_, err = s.db.Exec("DELETE FROM triage_verdicts WHERE decided_at < ?", now.Add(-documentMaxAge))
	if err != nil {
		return fmt.Errorf("failed to clean old triage verdicts: %w", err)
	}

	_, err = s.db.Exec("DELETE FROM seen_urls WHERE last_seen < ?", now.Add(-seenMaxAge))
	if err != nil {
		return fmt.Errorf("failed to clean old seen urls: %w", err)
	}

	return nil
}

// ContentHash returns the FNV-1a hash of the content, used to key
// triage verdicts across re-discoveries of the same text.
func ContentHash(content string) string {
	if len(content) == 0 {
		return "empty"
	}
	h := fnv.New64a()
	h.Write([]byte(content))
	return fmt.Sprintf("%016x", h.Sum64())
}
