package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"signalhound/internal/core"
	"signalhound/internal/persistence"
)

// MockSignalRepo provides an in-memory implementation of persistence.SignalRepository
type MockSignalRepo struct {
	mu      sync.Mutex
	signals map[string]core.Signal
}

func (m *MockSignalRepo) Create(ctx context.Context, signal *core.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[signal.ID] = *signal
	return nil
}

func (m *MockSignalRepo) Get(ctx context.Context, id string) (*core.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	signal, ok := m.signals[id]
	if !ok {
		return nil, fmt.Errorf("signal %s: %w", id, persistence.ErrNotFound)
	}
	found := signal
	return &found, nil
}

// List applies the status filter and sort the way the real repository
// does. A zero limit returns everything, which keeps test assertions
// independent of pagination defaults.
func (m *MockSignalRepo) List(ctx context.Context, opts persistence.ListOptions) ([]core.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.Signal
	for _, signal := range m.signals {
		if status, ok := opts.Filter["status"]; ok && string(signal.Status) != fmt.Sprintf("%v", status) {
			continue
		}
		out = append(out, signal)
	}

	sort.Slice(out, func(i, j int) bool {
		switch opts.SortBy {
		case "quality":
			return out[i].QualityScore > out[j].QualityScore
		case "created":
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case "name":
			return out[i].Name < out[j].Name
		default:
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []core.Signal{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MockSignalRepo) ListActiveEmbedded(ctx context.Context, limit int) ([]core.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.Signal
	for _, signal := range m.signals {
		if signal.Status == core.SignalActive && len(signal.Embedding) > 0 {
			out = append(out, signal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSignalRepo) SignalEmbeddings(ctx context.Context, ids []string) (map[string][]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]float64, len(ids))
	for _, id := range ids {
		if signal, ok := m.signals[id]; ok && len(signal.Embedding) > 0 {
			out[id] = signal.Embedding
		}
	}
	return out, nil
}

func (m *MockSignalRepo) Update(ctx context.Context, signal *core.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signals[signal.ID]; !ok {
		return fmt.Errorf("signal %s: %w", signal.ID, persistence.ErrNotFound)
	}
	m.signals[signal.ID] = *signal
	return nil
}

func (m *MockSignalRepo) UpdateStatus(ctx context.Context, id string, status core.SignalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	signal, ok := m.signals[id]
	if !ok {
		return fmt.Errorf("signal %s: %w", id, persistence.ErrNotFound)
	}
	signal.Status = status
	signal.UpdatedAt = time.Now().UTC()
	m.signals[id] = signal
	return nil
}

func (m *MockSignalRepo) SaveQuality(ctx context.Context, id string, breakdown core.QualityBreakdown) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	signal, ok := m.signals[id]
	if !ok {
		return fmt.Errorf("signal %s: %w", id, persistence.ErrNotFound)
	}
	signal.QualityScore = breakdown.Composite
	signal.QualityBreakdown = &breakdown
	m.signals[id] = signal
	return nil
}

func (m *MockSignalRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.signals, id)
	return nil
}

func (m *MockSignalRepo) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.signals, id)
}

// MockSourceRepo provides an in-memory implementation of persistence.SourceRepository,
// enforcing the unique-URL constraint the way the real one does
type MockSourceRepo struct {
	mu      sync.Mutex
	sources map[string]core.Source
}

func (m *MockSourceRepo) Create(ctx context.Context, source *core.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sources {
		if existing.URL == source.URL {
			return fmt.Errorf("source %s: %w", source.URL, persistence.ErrDuplicateURL)
		}
	}
	m.sources[source.ID] = *source
	return nil
}

func (m *MockSourceRepo) Get(ctx context.Context, id string) (*core.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", id, persistence.ErrNotFound)
	}
	found := source
	return &found, nil
}

func (m *MockSourceRepo) GetByURL(ctx context.Context, url string) (*core.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, source := range m.sources {
		if source.URL == url {
			found := source
			return &found, nil
		}
	}
	return nil, fmt.Errorf("source %s: %w", url, persistence.ErrNotFound)
}

func (m *MockSourceRepo) ExistsURL(ctx context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, source := range m.sources {
		if source.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockSourceRepo) ListBySignal(ctx context.Context, signalID string) ([]core.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Source
	for _, source := range m.sources {
		if source.SignalID == signalID {
			out = append(out, source)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscoveredAt.Before(out[j].DiscoveredAt) })
	return out, nil
}

func (m *MockSourceRepo) List(ctx context.Context, opts persistence.ListOptions) ([]core.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.Source
	for _, source := range m.sources {
		if domain, ok := opts.Filter["domain"]; ok && source.Domain != fmt.Sprintf("%v", domain) {
			continue
		}
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscoveredAt.After(out[j].DiscoveredAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MockSourceRepo) Update(ctx context.Context, source *core.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[source.ID]; !ok {
		return fmt.Errorf("source %s: %w", source.ID, persistence.ErrNotFound)
	}
	m.sources[source.ID] = *source
	return nil
}

func (m *MockSourceRepo) AssignClusters(ctx context.Context, clusters map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, clusterID := range clusters {
		if source, ok := m.sources[id]; ok {
			source.StoryClusterID = clusterID
			m.sources[id] = source
		}
	}
	return nil
}

func (m *MockSourceRepo) MarkDuplicate(ctx context.Context, id, duplicateOf string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source %s: %w", id, persistence.ErrNotFound)
	}
	source.DuplicateOf = duplicateOf
	m.sources[id] = source
	return nil
}

func (m *MockSourceRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
	return nil
}

func (m *MockSourceRepo) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
}

// MockDomainRepo provides an in-memory implementation of persistence.DomainReputationRepository
type MockDomainRepo struct {
	mu      sync.Mutex
	records map[string]core.DomainReputation
}

func (m *MockDomainRepo) FindByPatterns(ctx context.Context, patterns []string) ([]core.DomainReputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.DomainReputation
	for _, pattern := range patterns {
		if record, ok := m.records[pattern]; ok {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *MockDomainRepo) Get(ctx context.Context, pattern string) (*core.DomainReputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[pattern]
	if !ok {
		return nil, fmt.Errorf("reputation %s: %w", pattern, persistence.ErrNotFound)
	}
	found := record
	return &found, nil
}

// Upsert keeps the learned counters of an existing record and takes the
// curated fields from the incoming one, matching the real repository.
func (m *MockDomainRepo) Upsert(ctx context.Context, rep *core.DomainReputation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := *rep
	if existing, ok := m.records[rep.Pattern]; ok {
		record.RatingSum = existing.RatingSum
		record.RatingCount = existing.RatingCount
		record.TriagePassed = existing.TriagePassed
		record.TriageTotal = existing.TriageTotal
	}
	record.UpdatedAt = time.Now().UTC()
	m.records[rep.Pattern] = record
	return nil
}

func (m *MockDomainRepo) RecordTriage(ctx context.Context, pattern string, passed bool) (core.DomainReputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[pattern]
	if !ok {
		record = core.DomainReputation{ID: pattern, Pattern: pattern}
	}
	record.TriageTotal++
	if passed {
		record.TriagePassed++
	}
	record.UpdatedAt = time.Now().UTC()
	m.records[pattern] = record
	return record, nil
}

func (m *MockDomainRepo) ApplyRating(ctx context.Context, pattern string, delta int, newRating bool) (core.DomainReputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[pattern]
	if !ok {
		record = core.DomainReputation{ID: pattern, Pattern: pattern}
	}
	record.RatingSum += delta
	if newRating {
		record.RatingCount++
	}
	record.UpdatedAt = time.Now().UTC()
	m.records[pattern] = record
	return record, nil
}

func (m *MockDomainRepo) SaveComposite(ctx context.Context, pattern string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[pattern]
	if !ok {
		return fmt.Errorf("reputation %s: %w", pattern, persistence.ErrNotFound)
	}
	record.CompositeScore = score
	record.UpdatedAt = time.Now().UTC()
	m.records[pattern] = record
	return nil
}

func (m *MockDomainRepo) List(ctx context.Context, opts persistence.ListOptions) ([]core.DomainReputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.DomainReputation
	for _, record := range m.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Seed installs a record directly, bypassing the upsert counter rules.
func (m *MockDomainRepo) Seed(rep core.DomainReputation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rep.Pattern] = rep
}

// MockRatingRepo provides an in-memory implementation of persistence.SourceRatingRepository
type MockRatingRepo struct {
	mu      sync.Mutex
	ratings map[string]core.SourceRating // keyed by source|rater
}

func (m *MockRatingRepo) Upsert(ctx context.Context, rating *core.SourceRating) (previous int, existed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rating.SourceID + "|" + rating.RaterID
	if old, ok := m.ratings[key]; ok {
		previous, existed = old.Rating, true
	}
	stored := *rating
	stored.UpdatedAt = time.Now().UTC()
	if !existed {
		stored.CreatedAt = stored.UpdatedAt
	}
	m.ratings[key] = stored
	return previous, existed, nil
}

func (m *MockRatingRepo) ListBySource(ctx context.Context, sourceID string) ([]core.SourceRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.SourceRating
	for _, rating := range m.ratings {
		if rating.SourceID == sourceID {
			out = append(out, rating)
		}
	}
	return out, nil
}

// MockReviewFlagRepo provides an in-memory implementation of persistence.ReviewFlagRepository
type MockReviewFlagRepo struct {
	mu    sync.Mutex
	flags []core.ReviewFlag
}

func (m *MockReviewFlagRepo) Create(ctx context.Context, flag *core.ReviewFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.flags {
		if existing.SourceID == flag.SourceID && existing.SignalID == flag.SignalID {
			return nil
		}
	}
	m.flags = append(m.flags, *flag)
	return nil
}

func (m *MockReviewFlagRepo) ListPending(ctx context.Context, limit int) ([]core.ReviewFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]core.ReviewFlag(nil), m.flags...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockReviewFlagRepo) Delete(ctx context.Context, sourceID, signalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.flags[:0]
	for _, flag := range m.flags {
		if flag.SourceID != sourceID || flag.SignalID != signalID {
			kept = append(kept, flag)
		}
	}
	m.flags = kept
	return nil
}

// MockFeedRepo provides an in-memory implementation of persistence.FeedRepository
type MockFeedRepo struct {
	mu    sync.Mutex
	feeds map[string]core.Feed
}

func (m *MockFeedRepo) Create(ctx context.Context, feed *core.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.feeds {
		if existing.URL == feed.URL {
			return fmt.Errorf("feed %s already exists", feed.URL)
		}
	}
	m.feeds[feed.ID] = *feed
	return nil
}

func (m *MockFeedRepo) Get(ctx context.Context, id string) (*core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[id]
	if !ok {
		return nil, fmt.Errorf("feed %s: %w", id, persistence.ErrNotFound)
	}
	found := feed
	return &found, nil
}

func (m *MockFeedRepo) GetByURL(ctx context.Context, url string) (*core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, feed := range m.feeds {
		if feed.URL == url {
			found := feed
			return &found, nil
		}
	}
	return nil, fmt.Errorf("feed %s: %w", url, persistence.ErrNotFound)
}

func (m *MockFeedRepo) ListActive(ctx context.Context) ([]core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Feed
	for _, feed := range m.feeds {
		if feed.Active {
			out = append(out, feed)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (m *MockFeedRepo) List(ctx context.Context, opts persistence.ListOptions) ([]core.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Feed
	for _, feed := range m.feeds {
		out = append(out, feed)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MockFeedRepo) Update(ctx context.Context, feed *core.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.feeds[feed.ID]; !ok {
		return fmt.Errorf("feed %s: %w", feed.ID, persistence.ErrNotFound)
	}
	m.feeds[feed.ID] = *feed
	return nil
}

func (m *MockFeedRepo) UpdateLastFetched(ctx context.Context, id string, lastModified, etag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[id]
	if !ok {
		return fmt.Errorf("feed %s: %w", id, persistence.ErrNotFound)
	}
	feed.LastFetched = time.Now().UTC()
	feed.LastModified = lastModified
	feed.ETag = etag
	feed.ErrorCount = 0
	feed.LastError = ""
	m.feeds[id] = feed
	return nil
}

func (m *MockFeedRepo) RecordError(ctx context.Context, id string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[id]
	if !ok {
		return fmt.Errorf("feed %s: %w", id, persistence.ErrNotFound)
	}
	feed.ErrorCount++
	feed.LastError = message
	m.feeds[id] = feed
	return nil
}

func (m *MockFeedRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.feeds, id)
	return nil
}

// MockDatabase provides an in-memory implementation of persistence.Database.
// The repository fields are exported so tests can reach past the
// interface for seeding and assertions.
type MockDatabase struct {
	SignalRepo *MockSignalRepo
	SourceRepo *MockSourceRepo
	DomainRepo *MockDomainRepo
	RatingRepo *MockRatingRepo
	FlagRepo   *MockReviewFlagRepo
	FeedRepo   *MockFeedRepo
}

func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		SignalRepo: &MockSignalRepo{signals: make(map[string]core.Signal)},
		SourceRepo: &MockSourceRepo{sources: make(map[string]core.Source)},
		DomainRepo: &MockDomainRepo{records: make(map[string]core.DomainReputation)},
		RatingRepo: &MockRatingRepo{ratings: make(map[string]core.SourceRating)},
		FlagRepo:   &MockReviewFlagRepo{},
		FeedRepo:   &MockFeedRepo{feeds: make(map[string]core.Feed)},
	}
}

func (m *MockDatabase) Signals() persistence.SignalRepository           { return m.SignalRepo }
func (m *MockDatabase) Sources() persistence.SourceRepository           { return m.SourceRepo }
func (m *MockDatabase) Domains() persistence.DomainReputationRepository { return m.DomainRepo }
func (m *MockDatabase) Ratings() persistence.SourceRatingRepository     { return m.RatingRepo }
func (m *MockDatabase) ReviewFlags() persistence.ReviewFlagRepository   { return m.FlagRepo }
func (m *MockDatabase) Feeds() persistence.FeedRepository               { return m.FeedRepo }
func (m *MockDatabase) Close() error                                    { return nil }
func (m *MockDatabase) Ping(ctx context.Context) error                  { return nil }

func (m *MockDatabase) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return &MockTx{db: m}, nil
}

// MockTx applies writes to the backing database immediately and undoes
// its own signal and source inserts on rollback. That is enough
// fidelity for the commit-path invariant that a signal never outlives a
// failed source insert.
type MockTx struct {
	db             *MockDatabase
	committed      bool
	rolledBack     bool
	createdSignals []string
	createdSources []string
}

func (t *MockTx) Commit() error {
	t.committed = true
	return nil
}

func (t *MockTx) Rollback() error {
	if t.committed || t.rolledBack {
		return nil
	}
	t.rolledBack = true
	for _, id := range t.createdSignals {
		t.db.SignalRepo.remove(id)
	}
	for _, id := range t.createdSources {
		t.db.SourceRepo.remove(id)
	}
	return nil
}

func (t *MockTx) Signals() persistence.SignalRepository           { return &txSignalRepo{t.db.SignalRepo, t} }
func (t *MockTx) Sources() persistence.SourceRepository           { return &txSourceRepo{t.db.SourceRepo, t} }
func (t *MockTx) Domains() persistence.DomainReputationRepository { return t.db.DomainRepo }
func (t *MockTx) Ratings() persistence.SourceRatingRepository     { return t.db.RatingRepo }
func (t *MockTx) ReviewFlags() persistence.ReviewFlagRepository   { return t.db.FlagRepo }
func (t *MockTx) Feeds() persistence.FeedRepository               { return t.db.FeedRepo }

type txSignalRepo struct {
	*MockSignalRepo
	tx *MockTx
}

func (r *txSignalRepo) Create(ctx context.Context, signal *core.Signal) error {
	if err := r.MockSignalRepo.Create(ctx, signal); err != nil {
		return err
	}
	r.tx.createdSignals = append(r.tx.createdSignals, signal.ID)
	return nil
}

type txSourceRepo struct {
	*MockSourceRepo
	tx *MockTx
}

func (r *txSourceRepo) Create(ctx context.Context, source *core.Source) error {
	if err := r.MockSourceRepo.Create(ctx, source); err != nil {
		return err
	}
	r.tx.createdSources = append(r.tx.createdSources, source.ID)
	return nil
}
