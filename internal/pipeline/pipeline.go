// Package pipeline runs the ingestion state machine. Discovered
// documents move through discovered -> validated -> triaged ->
// analyzed -> matched -> persisted, with terminal rejection states for
// the validation and triage gates and a stage-tagged error state for
// everything else.
//
// Validation, triage, and analysis are independent per document, so a
// bounded worker pool runs them concurrently. Matching against the
// corpus is the serialization point: a single committer goroutine
// classifies and commits one item at a time, updating the vector index
// before it takes the next item, so two near-identical documents
// prepared concurrently can never both create a signal for the same
// event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"signalhound/internal/clustering"
	"signalhound/internal/core"
	"signalhound/internal/match"
	"signalhound/internal/persistence"
	"signalhound/internal/quality"
	"signalhound/internal/reputation"
	"signalhound/internal/store"
	"signalhound/internal/vectorstore"
)

// Config holds the run-level tuning knobs.
type Config struct {
	// MaxWorkers bounds how many documents are in validate/triage/
	// analyze at once.
	MaxWorkers int

	// MaxPerDomain bounds concurrent external work per registrable
	// domain, so one slow or rate-limited host cannot absorb the whole
	// pool. Zero disables the per-domain cap.
	MaxPerDomain int

	// MaxNewSignals caps signal creation per run, needs-review
	// creations included. Documents beyond the cap are deferred to the
	// next run, not discarded. Zero means unlimited.
	MaxNewSignals int

	// MinContentLength is the validation gate on title+content runes.
	MinContentLength int

	// MaxDocumentAge rejects documents published longer ago than this.
	// Zero disables the freshness gate; documents without a publish
	// date always pass it.
	MaxDocumentAge time.Duration

	// FreshnessOverrides replaces MaxDocumentAge per source type, e.g.
	// a tighter window for rss than for seed pages.
	FreshnessOverrides map[string]time.Duration

	// TriageThreshold is the minimum reputation-adjusted confidence a
	// relevant verdict needs to proceed.
	TriageThreshold float64

	// Timeout bounds each item's external work: once through fetch/
	// triage/analyze, and once more through match/commit.
	Timeout time.Duration

	// CacheTTL is the reuse window for cached documents and triage
	// verdicts. Zero disables cache reads.
	CacheTTL time.Duration

	// SeenTTL is the replay-protection window: URLs with a terminal
	// outcome recorded more recently than this are skipped outright.
	// Zero disables the skip.
	SeenTTL time.Duration
}

// DefaultConfig mirrors the shipped configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:       8,
		MaxPerDomain:     2,
		MaxNewSignals:    0,
		MinContentLength: 120,
		MaxDocumentAge:   720 * time.Hour,
		TriageThreshold:  0.5,
		Timeout:          30 * time.Second,
		CacheTTL:         24 * time.Hour,
		SeenTTL:          7 * 24 * time.Hour,
	}
}

// Pipeline executes ingestion runs. Construct it with Builder; the
// zero value is not usable.
type Pipeline struct {
	db         persistence.Database
	classifier Classifier
	embedder   Embedder
	fetcher    Fetcher
	cache      Cache
	matcher    Matcher
	vectors    VectorIndexer
	lexical    LexicalIndexer
	reputation *reputation.Scorer
	quality    *quality.Scorer
	clusterer  *clustering.Engine
	config     *Config
	log        *slog.Logger
}

// item carries one document through the run.
type item struct {
	doc         core.Document
	contentHash string
	triage      core.TriageResult
	analysis    core.Analysis
	embedding   []float64
}

// Run executes one ingestion run over a batch of discovered documents.
// Per-item failures are counted in the summary, never propagated.
// Cancelling ctx stops dispatching new documents; items already in
// flight finish on a detached context bounded by Config.Timeout, so no
// document is left half-persisted. The returned error is non-nil only
// when the run was cut short.
func (p *Pipeline) Run(ctx context.Context, docs []core.Document) (*RunSummary, error) {
	summary := &RunSummary{StartedAt: time.Now().UTC(), Found: len(docs)}

	p.log.Info("Starting ingestion run",
		"documents", len(docs),
		"max_workers", p.config.MaxWorkers,
		"max_new_signals", p.config.MaxNewSignals,
	)

	// The reputation run cache is the only mutable state shared across
	// workers. It is safe for concurrent reads and cleared at run end.
	repCache := reputation.NewCache()
	defer repCache.Clear()

	// In-flight items survive run cancellation; their external calls
	// are bounded per item by Config.Timeout instead.
	work := context.WithoutCancel(ctx)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, p.config.MaxWorkers)
		commits = make(chan *item)
		done    = make(chan struct{})
	)
	domains := newDomainLimiter(p.config.MaxPerDomain)

	go func() {
		defer close(done)
		created := 0
		for it := range commits {
			out, err := p.commit(work, repCache, it, &created)
			mu.Lock()
			p.record(summary, it.doc, out, err)
			mu.Unlock()
		}
	}()

	for _, doc := range docs {
		if ctx.Err() != nil {
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		select {
		case <-ctx.Done():
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(doc core.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			it, err := p.prepare(work, repCache, doc, domains)
			if err != nil {
				mu.Lock()
				p.record(summary, doc, "", err)
				mu.Unlock()
				return
			}
			commits <- it
		}(doc)
	}

	wg.Wait()
	close(commits)
	<-done

	summary.FinishedAt = time.Now().UTC()
	p.log.Info("Ingestion run completed",
		"found", summary.Found,
		"created", summary.Created,
		"enriched", summary.Enriched,
		"duplicates", summary.Duplicates,
		"weak_links", summary.WeakLinks,
		"needs_review", summary.NeedsReview,
		"deferred", summary.Deferred,
		"rejected", summary.ValidationRejected+summary.TriageRejected,
		"errors", summary.Errors,
		"duration", summary.Duration().Round(time.Millisecond),
	)
	return summary, ctx.Err()
}

// record folds one terminal outcome into the summary. The progression
// counters are derived from how far the item got: an error while
// analyzing still counts the validation and triage gates it passed.
// Callers hold the summary lock.
func (p *Pipeline) record(summary *RunSummary, doc core.Document, out Outcome, err error) {
	if err == nil {
		summary.Validated++
		summary.Triaged++
		summary.Analyzed++
		switch out {
		case OutcomeCreated:
			summary.Created++
		case OutcomeEnriched:
			summary.Enriched++
		case OutcomeDuplicate:
			summary.Duplicates++
		case OutcomeWeakLink:
			summary.WeakLinks++
		case OutcomeNeedsReview:
			summary.NeedsReview++
		}
		return
	}

	switch {
	case errors.Is(err, errAlreadySeen):
		summary.Skipped++
	case errors.Is(err, ErrValidationRejected):
		summary.ValidationRejected++
	case errors.Is(err, ErrTriageRejected):
		summary.Validated++
		summary.TriageRejected++
	case errors.Is(err, ErrSignalCapReached):
		summary.Validated++
		summary.Triaged++
		summary.Analyzed++
		summary.Deferred++
	case errors.Is(err, persistence.ErrDuplicateURL):
		summary.Validated++
		summary.Triaged++
		summary.Analyzed++
		summary.Duplicates++
	default:
		stage := stageOf(err)
		switch stage {
		case core.StageTriaged:
			summary.Validated++
		case core.StageAnalyzed:
			summary.Validated++
			summary.Triaged++
		case core.StageMatched, core.StagePersisted:
			summary.Validated++
			summary.Triaged++
			summary.Analyzed++
		}
		summary.Errors++
		summary.Failures = append(summary.Failures, ItemFailure{
			URL:     doc.URL,
			Stage:   stage,
			Message: err.Error(),
		})
		p.log.Error("Ingestion item failed", "url", doc.URL, "stage", stage, "error", err)
	}
}

// prepare runs the pre-commit stages for one document: resolve content,
// validate, triage, analyze. Rejections come back as sentinel errors,
// failures as stage-tagged errors.
func (p *Pipeline) prepare(ctx context.Context, repCache *reputation.Cache, doc core.Document, domains *domainLimiter) (*item, error) {
	if p.cache != nil && p.config.SeenTTL > 0 {
		_, seen, err := p.cache.LastOutcome(doc.URL, p.config.SeenTTL)
		if err != nil {
			p.log.Warn("Seen-ledger lookup failed", "url", doc.URL, "error", err)
		} else if seen {
			return nil, fmt.Errorf("%w: %s", errAlreadySeen, doc.URL)
		}
	}

	ctx, cancel := p.itemContext(ctx)
	defer cancel()

	release := domains.acquire(core.DomainOf(doc.URL))
	defer release()

	resolved, err := p.resolve(ctx, doc)
	if err != nil {
		return nil, failAt(core.StageDiscovered, err)
	}
	doc = resolved

	if reason := p.validate(doc); reason != "" {
		p.markSeen(doc.URL, core.StageValidationRejected)
		return nil, fmt.Errorf("%w: %s", ErrValidationRejected, reason)
	}

	it := &item{doc: doc, contentHash: store.ContentHash(doc.Content)}

	if err := p.triage(ctx, repCache, it); err != nil {
		if errors.Is(err, ErrTriageRejected) {
			p.markSeen(doc.URL, core.StageTriageRejected)
		}
		return nil, err
	}

	if err := p.analyze(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// resolve fills in content for documents the provider discovered as
// bare URLs, consulting the document cache before fetching.
func (p *Pipeline) resolve(ctx context.Context, doc core.Document) (core.Document, error) {
	if strings.TrimSpace(doc.Content) != "" {
		return doc, nil
	}

	if p.cache != nil && p.config.CacheTTL > 0 {
		cached, err := p.cache.GetCachedDocument(doc.URL, p.config.CacheTTL)
		if err != nil {
			p.log.Warn("Document cache lookup failed", "url", doc.URL, "error", err)
		} else if cached != nil {
			merged := *cached
			if merged.Provider == "" {
				merged.Provider = doc.Provider
			}
			if merged.SourceType == "" {
				merged.SourceType = doc.SourceType
			}
			return merged, nil
		}
	}

	if p.fetcher == nil {
		return doc, fmt.Errorf("document %s has no content and no fetcher is configured", doc.URL)
	}

	fetched, err := p.fetcher.FetchDocument(ctx, doc.URL)
	if err != nil {
		return doc, fmt.Errorf("fetch %s: %w", doc.URL, err)
	}

	// Discovery metadata wins where the page itself carried none, and
	// the provider's source type labels provenance.
	if fetched.Title == "" {
		fetched.Title = doc.Title
	}
	if fetched.PublishedAt.IsZero() {
		fetched.PublishedAt = doc.PublishedAt
	}
	if doc.SourceType != "" {
		fetched.SourceType = doc.SourceType
	}
	fetched.Provider = doc.Provider

	if p.cache != nil {
		if err := p.cache.CacheDocument(fetched); err != nil {
			p.log.Warn("Failed to cache document", "url", doc.URL, "error", err)
		}
	}
	return fetched, nil
}

// validate is the deterministic, cost-free gate run before any paid
// model call. An empty reason means the document passed.
func (p *Pipeline) validate(doc core.Document) string {
	if strings.TrimSpace(doc.URL) == "" {
		return "missing url"
	}

	length := utf8.RuneCountInString(doc.Title) + utf8.RuneCountInString(doc.Content)
	if length < p.config.MinContentLength {
		return fmt.Sprintf("content too short: %d chars, minimum is %d", length, p.config.MinContentLength)
	}

	maxAge := p.config.MaxDocumentAge
	if override, ok := p.config.FreshnessOverrides[doc.SourceType]; ok {
		maxAge = override
	}
	if maxAge > 0 && !doc.PublishedAt.IsZero() {
		if age := time.Since(doc.PublishedAt); age > maxAge {
			return fmt.Sprintf("published %s ago, freshness window is %s", age.Round(time.Hour), maxAge)
		}
	}
	return ""
}

// triage runs the cheap relevance pre-filter, reusing a cached verdict
// for identical content when one exists. The classifier's raw
// confidence is adjusted by the domain's reputation prior before the
// threshold applies; the raw verdict is what gets cached. Either way
// the outcome feeds back into the domain's learned pass-rate.
func (p *Pipeline) triage(ctx context.Context, repCache *reputation.Cache, it *item) error {
	verdict, cached := p.cachedTriage(it.contentHash)
	if !cached {
		var err error
		verdict, err = p.classifier.Triage(ctx, it.doc.Title, it.doc.Content)
		if err != nil {
			return failAt(core.StageTriaged, err)
		}
		if p.cache != nil {
			if err := p.cache.CacheTriage(it.contentHash, verdict); err != nil {
				p.log.Warn("Failed to cache triage verdict", "url", it.doc.URL, "error", err)
			}
		}
	}
	it.triage = verdict

	domain := core.DomainOf(it.doc.URL)
	adjusted := verdict.Confidence + p.reputation.ConfidenceAdjustmentFor(ctx, repCache, domain)
	passed := verdict.IsRelevant && adjusted >= p.config.TriageThreshold

	if domain != "" {
		if err := p.reputation.RecordTriageResult(ctx, domain, passed); err != nil {
			p.log.Warn("Failed to record triage outcome", "domain", domain, "error", err)
		}
	}

	if !passed {
		reason := verdict.Reason
		if verdict.IsRelevant {
			reason = fmt.Sprintf("adjusted confidence %.2f below threshold %.2f", adjusted, p.config.TriageThreshold)
		}
		return fmt.Errorf("%w: %s", ErrTriageRejected, reason)
	}
	return nil
}

func (p *Pipeline) cachedTriage(contentHash string) (core.TriageResult, bool) {
	if p.cache == nil || p.config.CacheTTL <= 0 {
		return core.TriageResult{}, false
	}
	verdict, err := p.cache.GetCachedTriage(contentHash, p.config.CacheTTL)
	if err != nil {
		p.log.Warn("Triage cache lookup failed", "hash", contentHash, "error", err)
		return core.TriageResult{}, false
	}
	if verdict == nil {
		return core.TriageResult{}, false
	}
	return *verdict, true
}

// analyze runs the full classification and generates the dedup
// embedding. An embedding failure downgrades the item to the
// needs-review path instead of failing it: the analysis is already
// paid for, and the review workflow can backfill the embedding later.
func (p *Pipeline) analyze(ctx context.Context, it *item) error {
	meta := map[string]string{
		"url":         it.doc.URL,
		"domain":      core.DomainOf(it.doc.URL),
		"source_type": it.doc.SourceType,
	}
	if !it.doc.PublishedAt.IsZero() {
		meta["published_at"] = it.doc.PublishedAt.UTC().Format(time.RFC3339)
	}

	analysis, err := p.classifier.Analyze(ctx, it.doc.Title, it.doc.Content, meta)
	if err != nil {
		return failAt(core.StageAnalyzed, err)
	}
	it.analysis = analysis

	embedding, err := p.embedder.Embed(ctx, embeddingText(it.doc, analysis))
	if err != nil {
		p.log.Warn("Embedding failed, routing to needs-review", "url", it.doc.URL, "error", err)
		it.embedding = nil
		return nil
	}
	it.embedding = embedding
	return nil
}

// embeddingText picks the text the dedup embedding is computed from:
// the classifier's summary when present, else title plus leading
// content. The summary gives a cleaner centroid than raw page text.
func embeddingText(doc core.Document, analysis core.Analysis) string {
	if s := strings.TrimSpace(analysis.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(doc.Title + "\n" + core.Excerpt(doc.Content, 2000))
}

// commit is the serialization point. It re-classifies the item against
// the corpus as it exists right now, applies the decision inside one
// transaction, and updates the dedup indexes before the committer takes
// the next item.
func (p *Pipeline) commit(ctx context.Context, repCache *reputation.Cache, it *item, created *int) (Outcome, error) {
	ctx, cancel := p.itemContext(ctx)
	defer cancel()

	decision, err := p.matcher.Classify(ctx, it.embedding, it.doc.Title)
	if err != nil {
		return "", failAt(core.StageMatched, err)
	}

	out, err := p.persist(ctx, repCache, it, decision, created)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicateURL) {
			// The earlier write already made the catalog correct.
			p.markSeen(it.doc.URL, core.StagePersisted)
			return "", err
		}
		if errors.Is(err, ErrSignalCapReached) {
			return "", err
		}
		return "", failAt(core.StagePersisted, err)
	}

	p.markSeen(it.doc.URL, core.StagePersisted)
	return out, nil
}

// persist applies one match decision transactionally.
func (p *Pipeline) persist(ctx context.Context, repCache *reputation.Cache, it *item, decision match.Decision, created *int) (Outcome, error) {
	switch decision.Verdict {
	case match.VerdictDuplicate:
		return OutcomeDuplicate, p.attach(ctx, repCache, it, decision)
	case match.VerdictEnrich:
		return OutcomeEnriched, p.attach(ctx, repCache, it, decision)
	case match.VerdictWeakLink:
		return OutcomeWeakLink, p.attach(ctx, repCache, it, decision)
	case match.VerdictNew, match.VerdictNeedsReview:
		if p.config.MaxNewSignals > 0 && *created >= p.config.MaxNewSignals {
			return "", fmt.Errorf("%w: %d created this run", ErrSignalCapReached, *created)
		}
		if err := p.create(ctx, repCache, it, decision); err != nil {
			return "", err
		}
		*created++
		if decision.Verdict == match.VerdictNeedsReview {
			return OutcomeNeedsReview, nil
		}
		return OutcomeCreated, nil
	default:
		return "", fmt.Errorf("unhandled match verdict %q", decision.Verdict)
	}
}

// attach adds the item's source to an existing signal and recomputes
// that signal's clusters and quality, all in one transaction.
func (p *Pipeline) attach(ctx context.Context, repCache *reputation.Cache, it *item, decision match.Decision) error {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	signal, err := tx.Signals().Get(ctx, decision.SignalID)
	if err != nil {
		return fmt.Errorf("load signal %s: %w", decision.SignalID, err)
	}

	source := core.NewSource(it.doc, it.embedding)
	source.SignalID = signal.ID

	if err := tx.Sources().Create(ctx, &source); err != nil {
		return err
	}

	sources, err := tx.Sources().ListBySignal(ctx, signal.ID)
	if err != nil {
		return fmt.Errorf("list sources for %s: %w", signal.ID, err)
	}

	switch decision.Verdict {
	case match.VerdictDuplicate:
		if twin := closestSource(source, sources); twin != "" {
			if err := tx.Sources().MarkDuplicate(ctx, source.ID, twin); err != nil {
				return fmt.Errorf("mark duplicate: %w", err)
			}
		}
	case match.VerdictWeakLink:
		flag := core.ReviewFlag{
			SourceID:   source.ID,
			SignalID:   signal.ID,
			Similarity: decision.Similarity,
			Reason:     "weak-tier attachment",
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.ReviewFlags().Create(ctx, &flag); err != nil {
			return fmt.Errorf("create review flag: %w", err)
		}
	}

	if err := p.rescore(ctx, repCache, tx, signal, sources); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.log.Debug("Source attached",
		"signal_id", signal.ID,
		"url", it.doc.URL,
		"verdict", decision.Verdict,
		"similarity", decision.Similarity,
	)
	return nil
}

// create commits a brand-new signal with its first source and initial
// scores in one transaction, then feeds the dedup indexes so the very
// next decision sees it. A missing embedding creates the signal in
// needs_review instead of active.
func (p *Pipeline) create(ctx context.Context, repCache *reputation.Cache, it *item, decision match.Decision) error {
	name := strings.TrimSpace(it.analysis.SuggestedName)
	if name == "" {
		name = strings.TrimSpace(it.doc.Title)
	}
	if name == "" {
		name = it.doc.URL
	}

	signal := core.NewSignal(name, it.embedding, it.analysis)
	source := core.NewSource(it.doc, it.embedding)
	source.SignalID = signal.ID
	signal.SourceTypes = sourceTypesOf([]core.Source{source})

	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.Signals().Create(ctx, &signal); err != nil {
		return fmt.Errorf("create signal: %w", err)
	}
	if err := tx.Sources().Create(ctx, &source); err != nil {
		return err
	}

	if err := p.rescore(ctx, repCache, tx, &signal, []core.Source{source}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.index(ctx, signal)
	p.log.Info("Signal created",
		"signal_id", signal.ID,
		"name", signal.Name,
		"status", signal.Status,
		"reason", decision.Reason,
	)
	return nil
}

// rescore recomputes clustering and the composite quality for one
// signal from its full source set, inside the caller's transaction.
func (p *Pipeline) rescore(ctx context.Context, repCache *reputation.Cache, tx persistence.Transaction, signal *core.Signal, sources []core.Source) error {
	partition := p.clusterer.Cluster(sources)
	if len(partition.BySource) > 0 {
		if err := tx.Sources().AssignClusters(ctx, partition.BySource); err != nil {
			return fmt.Errorf("assign clusters: %w", err)
		}
	}

	breakdown := p.quality.Score(ctx, repCache, *signal, sources, partition)
	if err := tx.Signals().SaveQuality(ctx, signal.ID, breakdown); err != nil {
		return fmt.Errorf("save quality: %w", err)
	}

	if types := sourceTypesOf(sources); !slices.Equal(types, signal.SourceTypes) {
		signal.SourceTypes = types
		signal.UpdatedAt = time.Now().UTC()
		if err := tx.Signals().Update(ctx, signal); err != nil {
			return fmt.Errorf("update signal: %w", err)
		}
	}
	return nil
}

// index mirrors a committed signal into the vector and lexical indexes.
// Failures here are logged, not fatal: both indexes rebuild from the
// catalog.
func (p *Pipeline) index(ctx context.Context, signal core.Signal) {
	if p.vectors != nil && len(signal.Embedding) > 0 {
		if err := p.vectors.Upsert(ctx, signal.ID, signal.Embedding); err != nil {
			p.log.Error("Vector index update failed", "signal_id", signal.ID, "error", err)
		}
	}
	if p.lexical != nil {
		if err := p.lexical.IndexSignal(signal); err != nil {
			p.log.Error("Lexical index update failed", "signal_id", signal.ID, "error", err)
		}
	}
}

func (p *Pipeline) markSeen(url string, outcome core.Stage) {
	if p.cache == nil {
		return
	}
	if err := p.cache.MarkSeen(url, outcome); err != nil {
		p.log.Warn("Failed to record seen url", "url", url, "error", err)
	}
}

func (p *Pipeline) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.config.Timeout)
}

// closestSource finds the already-attached source nearest to src, for
// the duplicate_of self-reference. Returns "" when nothing comparable
// is attached.
func closestSource(src core.Source, attached []core.Source) string {
	if len(src.Embedding) == 0 {
		return ""
	}
	best, bestSim := "", 0.0
	for _, other := range attached {
		if other.ID == src.ID || len(other.Embedding) == 0 {
			continue
		}
		if sim := vectorstore.Cosine(src.Embedding, other.Embedding); sim > bestSim {
			best, bestSim = other.ID, sim
		}
	}
	return best
}

// sourceTypesOf returns the sorted distinct source types in the set.
func sourceTypesOf(sources []core.Source) []string {
	seen := make(map[string]bool, len(sources))
	var types []string
	for _, s := range sources {
		if s.SourceType == "" || seen[s.SourceType] {
			continue
		}
		seen[s.SourceType] = true
		types = append(types, s.SourceType)
	}
	slices.Sort(types)
	return types
}

// domainLimiter bounds concurrent external work per registrable domain.
type domainLimiter struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	size  int
}

func newDomainLimiter(size int) *domainLimiter {
	return &domainLimiter{slots: make(map[string]chan struct{}), size: size}
}

// acquire blocks until a slot for the domain is free and returns the
// release. A zero cap, or a document without a domain, is unlimited.
func (l *domainLimiter) acquire(domain string) func() {
	if l.size <= 0 || domain == "" {
		return func() {}
	}

	l.mu.Lock()
	slot, ok := l.slots[domain]
	if !ok {
		slot = make(chan struct{}, l.size)
		l.slots[domain] = slot
	}
	l.mu.Unlock()

	slot <- struct{}{}
	return func() { <-slot }
}
