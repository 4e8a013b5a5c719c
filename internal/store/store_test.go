package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"signalhound/internal/core"
)

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.db == nil {
		t.Error("Store database should not be nil")
	}

	// Check that database file was created
	dbPath := filepath.Join(tmpDir, "signalhound.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	// Try to create store in a file (not directory)
	tmpDir := t.TempDir()
	invalidPath := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(invalidPath, []byte("test"), 0644)

	_, err := NewStore(invalidPath)
	if err == nil {
		t.Error("Expected error when creating store in invalid directory")
	}
}

func TestCacheDocument_GetCachedDocument(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	doc := core.Document{
		URL:         "https://www.nsf.gov/funding/opportunity",
		Title:       "New Funding Opportunity",
		Content:     "The National Science Foundation announces a new program.",
		SourceType:  core.SourceTypeRSS,
		Provider:    "feeds",
		PublishedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := store.CacheDocument(doc); err != nil {
		t.Fatalf("CacheDocument failed: %v", err)
	}

	cached, err := store.GetCachedDocument(doc.URL, 24*time.Hour)
	if err != nil {
		t.Fatalf("GetCachedDocument failed: %v", err)
	}
	if cached == nil {
		t.Fatal("Expected cached document, got nil")
	}

	if cached.URL != doc.URL {
		t.Errorf("Expected URL %s, got %s", doc.URL, cached.URL)
	}
	if cached.Title != doc.Title {
		t.Errorf("Expected title %s, got %s", doc.Title, cached.Title)
	}
	if cached.Content != doc.Content {
		t.Errorf("Expected content %s, got %s", doc.Content, cached.Content)
	}
	if cached.SourceType != doc.SourceType {
		t.Errorf("Expected source type %s, got %s", doc.SourceType, cached.SourceType)
	}
	if cached.Provider != doc.Provider {
		t.Errorf("Expected provider %s, got %s", doc.Provider, cached.Provider)
	}
	if !cached.PublishedAt.Equal(doc.PublishedAt) {
		t.Errorf("Expected published at %v, got %v", doc.PublishedAt, cached.PublishedAt)
	}
}

func TestGetCachedDocument_Miss(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	cached, err := store.GetCachedDocument("https://example.com/never-seen", time.Hour)
	if err != nil {
		t.Fatalf("GetCachedDocument failed: %v", err)
	}
	if cached != nil {
		t.Errorf("Expected cache miss, got %+v", cached)
	}
}

func TestGetCachedDocument_Expired(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	doc := core.Document{
		URL:     "https://example.com/stale",
		Title:   "Stale",
		Content: "old content",
	}
	if err := store.CacheDocument(doc); err != nil {
		t.Fatalf("CacheDocument failed: %v", err)
	}

	// Negative max age puts the cutoff in the future, so everything
	// already stored counts as expired.
	cached, err := store.GetCachedDocument(doc.URL, -time.Hour)
	if err != nil {
		t.Fatalf("GetCachedDocument failed: %v", err)
	}
	if cached != nil {
		t.Error("Expected expired entry to miss")
	}
}

func TestMarkSeen_LastOutcome(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	url := "https://example.com/article"

	outcome, found, err := store.LastOutcome(url, time.Hour)
	if err != nil {
		t.Fatalf("LastOutcome failed: %v", err)
	}
	if found {
		t.Errorf("Expected no outcome for unseen url, got %s", outcome)
	}

	if err := store.MarkSeen(url, core.StageTriageRejected); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	outcome, found, err = store.LastOutcome(url, time.Hour)
	if err != nil {
		t.Fatalf("LastOutcome failed: %v", err)
	}
	if !found {
		t.Fatal("Expected outcome after MarkSeen")
	}
	if outcome != core.StageTriageRejected {
		t.Errorf("Expected outcome %s, got %s", core.StageTriageRejected, outcome)
	}

	// Re-marking replaces the outcome
	if err := store.MarkSeen(url, core.StagePersisted); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	outcome, found, err = store.LastOutcome(url, time.Hour)
	if err != nil {
		t.Fatalf("LastOutcome failed: %v", err)
	}
	if !found || outcome != core.StagePersisted {
		t.Errorf("Expected outcome %s, got %s (found=%t)", core.StagePersisted, outcome, found)
	}

	// Outside the window the record does not count
	_, found, err = store.LastOutcome(url, -time.Hour)
	if err != nil {
		t.Fatalf("LastOutcome failed: %v", err)
	}
	if found {
		t.Error("Expected expired seen record to miss")
	}
}

func TestCacheTriage_GetCachedTriage(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	hash := ContentHash("some document text")
	verdict := core.TriageResult{
		IsRelevant: true,
		Confidence: 0.85,
		Reason:     "announces a federal grant program",
	}

	if err := store.CacheTriage(hash, verdict); err != nil {
		t.Fatalf("CacheTriage failed: %v", err)
	}

	cached, err := store.GetCachedTriage(hash, time.Hour)
	if err != nil {
		t.Fatalf("GetCachedTriage failed: %v", err)
	}
	if cached == nil {
		t.Fatal("Expected cached verdict, got nil")
	}
	if cached.IsRelevant != verdict.IsRelevant {
		t.Errorf("Expected IsRelevant %t, got %t", verdict.IsRelevant, cached.IsRelevant)
	}
	if cached.Confidence != verdict.Confidence {
		t.Errorf("Expected confidence %f, got %f", verdict.Confidence, cached.Confidence)
	}
	if cached.Reason != verdict.Reason {
		t.Errorf("Expected reason %s, got %s", verdict.Reason, cached.Reason)
	}

	// Different content hash misses
	other, err := store.GetCachedTriage(ContentHash("different text"), time.Hour)
	if err != nil {
		t.Fatalf("GetCachedTriage failed: %v", err)
	}
	if other != nil {
		t.Error("Expected miss for unrelated hash")
	}

	// Expired verdicts miss
	expired, err := store.GetCachedTriage(hash, -time.Hour)
	if err != nil {
		t.Fatalf("GetCachedTriage failed: %v", err)
	}
	if expired != nil {
		t.Error("Expected expired verdict to miss")
	}
}

func TestGetCacheStats(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	docs := []core.Document{
		{URL: "https://example.com/a", Content: "a"},
		{URL: "https://example.com/b", Content: "b"},
	}
	for _, doc := range docs {
		if err := store.CacheDocument(doc); err != nil {
			t.Fatalf("CacheDocument failed: %v", err)
		}
	}
	if err := store.MarkSeen("https://example.com/a", core.StagePersisted); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if err := store.CacheTriage(ContentHash("a"), core.TriageResult{IsRelevant: true}); err != nil {
		t.Fatalf("CacheTriage failed: %v", err)
	}

	stats, err := store.GetCacheStats()
	if err != nil {
		t.Fatalf("GetCacheStats failed: %v", err)
	}

	if stats.DocumentCount != 2 {
		t.Errorf("Expected 2 documents, got %d", stats.DocumentCount)
	}
	if stats.SeenCount != 1 {
		t.Errorf("Expected 1 seen url, got %d", stats.SeenCount)
	}
	if stats.TriageCount != 1 {
		t.Errorf("Expected 1 triage verdict, got %d", stats.TriageCount)
	}
}

func TestClearCache(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.CacheDocument(core.Document{URL: "https://example.com/a", Content: "a"}); err != nil {
		t.Fatalf("CacheDocument failed: %v", err)
	}
	if err := store.MarkSeen("https://example.com/a", core.StagePersisted); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	if err := store.ClearCache(); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}

	stats, err := store.GetCacheStats()
	if err != nil {
		t.Fatalf("GetCacheStats failed: %v", err)
	}
	if stats.DocumentCount != 0 || stats.SeenCount != 0 || stats.TriageCount != 0 {
		t.Errorf("Expected empty cache, got %+v", stats)
	}
}

func TestCleanupOldCache(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.CacheDocument(core.Document{URL: "https://example.com/a", Content: "a"}); err != nil {
		t.Fatalf("CacheDocument failed: %v", err)
	}
	if err := store.MarkSeen("https://example.com/a", core.StagePersisted); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	// Negative ages put the cutoffs in the future, expiring everything.
	if err := store.CleanupOldCache(-time.Second, -time.Second); err != nil {
		t.Fatalf("CleanupOldCache failed: %v", err)
	}

	stats, err := store.GetCacheStats()
	if err != nil {
		t.Fatalf("GetCacheStats failed: %v", err)
	}
	if stats.DocumentCount != 0 {
		t.Errorf("Expected 0 documents after cleanup, got %d", stats.DocumentCount)
	}
	if stats.SeenCount != 0 {
		t.Errorf("Expected 0 seen urls after cleanup, got %d", stats.SeenCount)
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash("") != "empty" {
		t.Errorf("Expected empty sentinel, got %s", ContentHash(""))
	}
	if ContentHash("abc") != ContentHash("abc") {
		t.Error("Expected stable hash for identical content")
	}
	if ContentHash("abc") == ContentHash("abd") {
		t.Error("Expected different hashes for different content")
	}
}
