package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"signalhound/internal/core"
	"signalhound/internal/feeds"
	"signalhound/internal/persistence"
)

// Mock repositories

type MockFeedRepo struct {
	mu             sync.Mutex
	feeds          []core.Feed
	errorCalls     []string // feed IDs passed to RecordError
	fetchedCalls   []string // feed IDs passed to UpdateLastFetched
	failListActive bool
}

func (m *MockFeedRepo) Create(ctx context.Context, feed *core.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds = append(m.feeds, *feed)
	return nil
}

func (m *MockFeedRepo) Get(ctx context.Context, id string) (*core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.feeds {
		if m.feeds[i].ID == id {
			feed := m.feeds[i]
			return &feed, nil
		}
	}
	return nil, fmt.Errorf("feed %w", persistence.ErrNotFound)
}

func (m *MockFeedRepo) GetByURL(ctx context.Context, url string) (*core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.feeds {
		if m.feeds[i].URL == url {
			feed := m.feeds[i]
			return &feed, nil
		}
	}
	return nil, fmt.Errorf("feed %w", persistence.ErrNotFound)
}

func (m *MockFeedRepo) ListActive(ctx context.Context) ([]core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failListActive {
		return nil, errors.New("mock list active error")
	}
	var active []core.Feed
	for _, feed := range m.feeds {
		if feed.Active {
			active = append(active, feed)
		}
	}
	return active, nil
}

func (m *MockFeedRepo) List(ctx context.Context, opts persistence.ListOptions) ([]core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Feed{}, m.feeds...), nil
}

func (m *MockFeedRepo) Update(ctx context.Context, feed *core.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.feeds {
		if m.feeds[i].ID == feed.ID {
			m.feeds[i] = *feed
			return nil
		}
	}
	return fmt.Errorf("feed %w", persistence.ErrNotFound)
}

func (m *MockFeedRepo) UpdateLastFetched(ctx context.Context, id string, lastModified, etag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchedCalls = append(m.fetchedCalls, id)
	for i := range m.feeds {
		if m.feeds[i].ID == id {
			m.feeds[i].LastFetched = time.Now()
			m.feeds[i].LastModified = lastModified
			m.feeds[i].ETag = etag
			m.feeds[i].ErrorCount = 0
		}
	}
	return nil
}

func (m *MockFeedRepo) RecordError(ctx context.Context, id string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCalls = append(m.errorCalls, id)
	for i := range m.feeds {
		if m.feeds[i].ID == id {
			m.feeds[i].ErrorCount++
			m.feeds[i].LastError = message
		}
	}
	return nil
}

func (m *MockFeedRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.feeds {
		if m.feeds[i].ID == id {
			m.feeds = append(m.feeds[:i], m.feeds[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("feed %w", persistence.ErrNotFound)
}

type MockDatabase struct {
	feeds *MockFeedRepo
}

func NewMockDatabase() *MockDatabase {
	return &MockDatabase{feeds: &MockFeedRepo{}}
}

func (m *MockDatabase) Feeds() persistence.FeedRepository { return m.feeds }

// Stub methods (not used in tests but required by interface)
func (m *MockDatabase) Signals() persistence.SignalRepository           { return nil }
func (m *MockDatabase) Sources() persistence.SourceRepository           { return nil }
func (m *MockDatabase) Domains() persistence.DomainReputationRepository { return nil }
func (m *MockDatabase) Ratings() persistence.SourceRatingRepository     { return nil }
func (m *MockDatabase) ReviewFlags() persistence.ReviewFlagRepository   { return nil }
func (m *MockDatabase) Close() error                                    { return nil }
func (m *MockDatabase) Ping(ctx context.Context) error                  { return nil }
func (m *MockDatabase) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return nil, nil
}

// stubProvider is a canned provider for aggregation tests.
type stubProvider struct {
	name string
	docs []core.Document
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Discover(ctx context.Context) ([]core.Document, error) {
	return s.docs, s.err
}

const managerRSSFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Grant Watch</title>
    <description>Funding announcements</description>
    <item>
      <title>Rural broadband grants open</title>
      <link>https://example.com/broadband</link>
      <description>Applications open for rural broadband funding.</description>
      <pubDate>Mon, 05 Aug 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Climate resilience fund</title>
      <link>https://example.com/climate</link>
      <description>New climate resilience grant program announced.</description>
      <pubDate>Tue, 06 Aug 2024 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

// Tests

func TestAddFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, managerRSSFixture)
	}))
	defer server.Close()

	mockDB := NewMockDatabase()
	manager := NewManager(mockDB)

	feed, err := manager.AddFeed(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if feed.Title != "Grant Watch" {
		t.Errorf("Expected title 'Grant Watch', got %s", feed.Title)
	}
	if feed.ETag != `"v1"` {
		t.Errorf("Expected stored ETag, got %q", feed.ETag)
	}
	if len(mockDB.feeds.feeds) != 1 {
		t.Fatalf("Expected 1 feed stored, got %d", len(mockDB.feeds.feeds))
	}
	if mockDB.feeds.feeds[0].URL != server.URL {
		t.Errorf("Expected stored URL %s, got %s", server.URL, mockDB.feeds.feeds[0].URL)
	}
	if !mockDB.feeds.feeds[0].Active {
		t.Error("Expected new feed to be active")
	}
}

func TestAddFeed_AlreadyRegistered(t *testing.T) {
	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{
		{ID: "feed-1", URL: "https://example.com/feed", Title: "Existing", Active: true},
	}
	manager := NewManager(mockDB)

	feed, err := manager.AddFeed(context.Background(), "https://example.com/feed")
	if err == nil {
		t.Fatal("Expected error for already registered feed")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("Expected 'already registered' error, got: %v", err)
	}
	if feed == nil || feed.ID != "feed-1" {
		t.Errorf("Expected existing feed returned, got %+v", feed)
	}
	if len(mockDB.feeds.feeds) != 1 {
		t.Errorf("Expected no new feed stored, got %d feeds", len(mockDB.feeds.feeds))
	}
}

func TestAddFeed_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	mockDB := NewMockDatabase()
	manager := NewManager(mockDB)

	_, err := manager.AddFeed(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error when feed fetch fails")
	}
	if len(mockDB.feeds.feeds) != 0 {
		t.Errorf("Expected no feed stored after fetch failure, got %d", len(mockDB.feeds.feeds))
	}
}

func TestRemoveFeed(t *testing.T) {
	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{{ID: "feed-1", URL: "https://example.com/feed", Active: true}}
	manager := NewManager(mockDB)

	if err := manager.RemoveFeed(context.Background(), "feed-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(mockDB.feeds.feeds) != 0 {
		t.Errorf("Expected feed removed, %d remain", len(mockDB.feeds.feeds))
	}

	if err := manager.RemoveFeed(context.Background(), "missing"); err == nil {
		t.Error("Expected error removing unknown feed")
	}
}

func TestToggleFeed(t *testing.T) {
	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{{ID: "feed-1", URL: "https://example.com/feed", Active: true}}
	manager := NewManager(mockDB)

	if err := manager.ToggleFeed(context.Background(), "feed-1", false); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if mockDB.feeds.feeds[0].Active {
		t.Error("Expected feed to be deactivated")
	}

	if err := manager.ToggleFeed(context.Background(), "feed-1", true); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !mockDB.feeds.feeds[0].Active {
		t.Error("Expected feed to be reactivated")
	}
}

func TestListFeeds(t *testing.T) {
	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{
		{ID: "feed-1", URL: "https://example.com/a", Active: true},
		{ID: "feed-2", URL: "https://example.com/b", Active: false},
	}
	manager := NewManager(mockDB)

	all, err := manager.ListFeeds(context.Background(), false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 feeds, got %d", len(all))
	}

	active, err := manager.ListFeeds(context.Background(), true)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(active) != 1 || active[0].ID != "feed-1" {
		t.Errorf("Expected only feed-1 active, got %+v", active)
	}
}

func TestFeedProvider_Discover(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, managerRSSFixture)
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{
		{ID: "feed-good", URL: good.URL, Active: true},
		{ID: "feed-bad", URL: bad.URL, Active: true},
		{ID: "feed-off", URL: "https://example.com/inactive", Active: false},
	}

	provider := NewFeedProvider(mockDB, feeds.NewFeedManager(), FeedOptions{})
	docs, err := provider.Discover(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(docs) != 2 {
		t.Errorf("Expected 2 documents from the healthy feed, got %d", len(docs))
	}
	if len(mockDB.feeds.errorCalls) != 1 || mockDB.feeds.errorCalls[0] != "feed-bad" {
		t.Errorf("Expected error recorded for feed-bad, got %v", mockDB.feeds.errorCalls)
	}
	if len(mockDB.feeds.fetchedCalls) != 1 || mockDB.feeds.fetchedCalls[0] != "feed-good" {
		t.Errorf("Expected fetch stamp for feed-good, got %v", mockDB.feeds.fetchedCalls)
	}
}

func TestFeedProvider_Discover_NotModified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		fmt.Fprint(w, managerRSSFixture)
	}))
	defer server.Close()

	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{
		{ID: "feed-1", URL: server.URL, ETag: `"v1"`, Active: true},
	}

	provider := NewFeedProvider(mockDB, feeds.NewFeedManager(), FeedOptions{})
	docs, err := provider.Discover(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(docs) != 0 {
		t.Errorf("Expected no documents from an unmodified feed, got %d", len(docs))
	}
	if len(mockDB.feeds.errorCalls) != 0 {
		t.Errorf("Expected no errors recorded, got %v", mockDB.feeds.errorCalls)
	}
	if len(mockDB.feeds.fetchedCalls) != 0 {
		t.Errorf("Expected validators left untouched on 304, got %v", mockDB.feeds.fetchedCalls)
	}
}

func TestFeedProvider_Discover_SinceFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, managerRSSFixture)
	}))
	defer server.Close()

	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{{ID: "feed-1", URL: server.URL, Active: true}}

	// Cutoff between the two fixture publication dates.
	since := time.Date(2024, 8, 6, 0, 0, 0, 0, time.UTC)
	provider := NewFeedProvider(mockDB, feeds.NewFeedManager(), FeedOptions{Since: since})

	docs, err := provider.Discover(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(docs) != 1 {
		t.Fatalf("Expected 1 document after date filter, got %d", len(docs))
	}
	if docs[0].URL != "https://example.com/climate" {
		t.Errorf("Expected the newer item to survive, got %s", docs[0].URL)
	}
}

func TestFeedProvider_Discover_MaxPerFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, managerRSSFixture)
	}))
	defer server.Close()

	mockDB := NewMockDatabase()
	mockDB.feeds.feeds = []core.Feed{{ID: "feed-1", URL: server.URL, Active: true}}

	provider := NewFeedProvider(mockDB, feeds.NewFeedManager(), FeedOptions{MaxPerFeed: 1})
	docs, err := provider.Discover(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(docs) != 1 {
		t.Errorf("Expected per-feed cap of 1 document, got %d", len(docs))
	}
}

func TestFeedProvider_Discover_ListError(t *testing.T) {
	mockDB := NewMockDatabase()
	mockDB.feeds.failListActive = true

	provider := NewFeedProvider(mockDB, feeds.NewFeedManager(), FeedOptions{})
	_, err := provider.Discover(context.Background())
	if err == nil {
		t.Fatal("Expected error when listing feeds fails")
	}
	if !strings.Contains(err.Error(), "failed to list active feeds") {
		t.Errorf("Expected list error, got: %v", err)
	}
}

func TestSeedProvider_Discover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seeds.md")
	content := "# Watchlist\n- https://example.com/agency\n- https://example.com/foundation grants page\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	provider := NewSeedProvider(path)
	docs, err := provider.Discover(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("Expected 2 seed documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if doc.SourceType != core.SourceTypeSeed {
			t.Errorf("Expected source type %q, got %q", core.SourceTypeSeed, doc.SourceType)
		}
		if doc.Provider != "seeds" {
			t.Errorf("Expected provider 'seeds', got %q", doc.Provider)
		}
		if doc.Content != "" {
			t.Errorf("Expected empty content on seed document, got %q", doc.Content)
		}
	}
}

func TestSeedProvider_Discover_MissingFile(t *testing.T) {
	provider := NewSeedProvider(filepath.Join(t.TempDir(), "absent.md"))
	_, err := provider.Discover(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing seed file")
	}
}

func TestDiscover_MergesProviders(t *testing.T) {
	manager := NewManager(NewMockDatabase())
	manager.Register(&stubProvider{name: "alpha", docs: []core.Document{
		{URL: "https://example.com/one"},
		{URL: "https://example.com/two", Provider: "alpha-custom"},
	}})
	manager.Register(&stubProvider{name: "beta", docs: []core.Document{
		{URL: "https://example.com/one"},
		{URL: "https://example.com/three"},
	}})

	result, err := manager.Discover(context.Background(), DiscoverOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Documents) != 3 {
		t.Errorf("Expected 3 documents after URL dedup, got %d", len(result.Documents))
	}
	if got := result.PerProvider["alpha"] + result.PerProvider["beta"]; got != 3 {
		t.Errorf("Expected per-provider counts to sum to 3, got %d", got)
	}

	for _, doc := range result.Documents {
		if doc.Provider == "" {
			t.Errorf("Expected provider stamped on %s", doc.URL)
		}
		if doc.URL == "https://example.com/two" && doc.Provider != "alpha-custom" {
			t.Errorf("Expected pre-set provider preserved, got %q", doc.Provider)
		}
	}
}

func TestDiscover_ProviderFailure(t *testing.T) {
	manager := NewManager(NewMockDatabase())
	manager.Register(&stubProvider{name: "broken", err: errors.New("connection refused")})
	manager.Register(&stubProvider{name: "healthy", docs: []core.Document{
		{URL: "https://example.com/only"},
	}})

	result, err := manager.Discover(context.Background(), DiscoverOptions{})
	if err != nil {
		t.Fatalf("Expected no error (run continues past provider failures), got: %v", err)
	}

	if len(result.Errors) != 1 {
		t.Fatalf("Expected 1 provider error, got %d", len(result.Errors))
	}
	if !strings.Contains(result.Errors[0].Error(), "provider broken") {
		t.Errorf("Expected error to name the provider, got: %v", result.Errors[0])
	}
	if len(result.Documents) != 1 {
		t.Errorf("Expected documents from the healthy provider, got %d", len(result.Documents))
	}
}

func TestDiscover_NoProviders(t *testing.T) {
	manager := NewManager(NewMockDatabase())

	result, err := manager.Discover(context.Background(), DiscoverOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Documents) != 0 {
		t.Errorf("Expected no documents, got %d", len(result.Documents))
	}
}
