package pipeline

import (
	"context"
	"time"

	"signalhound/internal/core"
	"signalhound/internal/match"
)

// Classifier is the external model surface: cheap triage first, full
// analysis only for documents that survive it. Implementations retry
// transient failures internally, so any error reaching the pipeline is
// final for that call.
type Classifier interface {
	// Triage is the cheap relevance pre-filter.
	Triage(ctx context.Context, title, content string) (core.TriageResult, error)

	// Analyze is the full read: summary, classification, component
	// scores, and a suggested signal name.
	Analyze(ctx context.Context, title, content string, meta map[string]string) (core.Analysis, error)
}

// Embedder produces the dedup embedding for an analyzed document. A
// failure here routes the item to needs-review rather than failing it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fetcher fills in content for documents discovered as bare URLs, such
// as entries from a seed list.
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (core.Document, error)
}

// Cache is the local ingest cache: the seen-URL ledger, fetched
// documents, and reusable triage verdicts. Every method is a cost
// optimization; a cache failure degrades to re-doing work, never to
// failing an item.
type Cache interface {
	// LastOutcome reports the recorded terminal outcome for a URL seen
	// within maxAge. The second return is false on a miss.
	LastOutcome(url string, maxAge time.Duration) (core.Stage, bool, error)

	// MarkSeen records the terminal outcome for a URL.
	MarkSeen(url string, outcome core.Stage) error

	// GetCachedDocument returns a previously fetched document, or nil
	// on a miss.
	GetCachedDocument(url string, maxAge time.Duration) (*core.Document, error)

	// CacheDocument stores a fetched document.
	CacheDocument(doc core.Document) error

	// GetCachedTriage returns the stored verdict for a content hash, or
	// nil on a miss.
	GetCachedTriage(contentHash string, maxAge time.Duration) (*core.TriageResult, error)

	// CacheTriage stores a triage verdict keyed by content hash.
	CacheTriage(contentHash string, verdict core.TriageResult) error
}

// Matcher classifies an analyzed document against the live signal
// corpus. The committer calls it serially, so a decision always sees
// every signal committed earlier in the same run.
type Matcher interface {
	Classify(ctx context.Context, embedding []float64, lexicalQuery string) (match.Decision, error)
}

// VectorIndexer receives the embedding of every committed signal so
// later match decisions in the same run can find it.
type VectorIndexer interface {
	Upsert(ctx context.Context, signalID string, embedding []float64) error
}

// LexicalIndexer mirrors committed signals into the text index behind
// the matcher's lexical prefilter.
type LexicalIndexer interface {
	IndexSignal(signal core.Signal) error
}
