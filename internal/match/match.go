// Package match classifies a discovered document against the existing
// signal corpus. The verdict decides whether the document becomes a new
// signal, corroborates an existing one, or is a near-duplicate.
package match

import (
	"context"
	"fmt"
	"log/slog"

	"signalhound/internal/logger"
	"signalhound/internal/search"
	"signalhound/internal/vectorstore"
)

// Verdict tags the outcome of classifying one document.
type Verdict string

const (
	VerdictDuplicate   Verdict = "duplicate"    // Near-identical to an existing signal's centroid
	VerdictEnrich      Verdict = "enrich"       // Same event, new corroborating coverage
	VerdictWeakLink    Verdict = "weak_link"    // Attach, but flag for review
	VerdictNew         Verdict = "new"          // No close signal exists
	VerdictNeedsReview Verdict = "needs_review" // Could not be compared at all
)

// Decision is the matcher's verdict for one document. SignalID and
// Similarity are set for duplicate/enrich/weak_link; Reason is set for
// needs_review.
type Decision struct {
	Verdict    Verdict `json:"verdict"`
	SignalID   string  `json:"signal_id,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// Thresholds are the cosine similarity tier boundaries. A similarity s
// classifies as duplicate when s >= Duplicate, enrich when
// s >= Enrich, weak_link when s >= Weak, and new below that.
type Thresholds struct {
	Duplicate float64
	Enrich    float64
	Weak      float64
}

// DefaultThresholds returns the standard tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Duplicate: 0.92, Enrich: 0.85, Weak: 0.75}
}

// Config holds matcher tuning.
type Config struct {
	Thresholds Thresholds
	TopK       int // Nearest candidates examined per document
}

// VectorSearcher is the nearest-neighbor slice of the vector index the
// matcher needs.
type VectorSearcher interface {
	Nearest(ctx context.Context, embedding []float64, k int) ([]vectorstore.Neighbor, error)
}

// LexicalSearcher returns ranked signal ids for a text query, used to
// widen the candidate set beyond pure vector neighbors.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// EmbeddingGetter fetches stored centroid embeddings for candidates the
// lexical prefilter surfaced that the vector search did not.
type EmbeddingGetter interface {
	SignalEmbeddings(ctx context.Context, ids []string) (map[string][]float64, error)
}

// Matcher is a pure decision function over the candidate set: it never
// persists anything. Callers act on the Decision.
type Matcher struct {
	vectors    VectorSearcher
	lexical    LexicalSearcher
	embeddings EmbeddingGetter
	fusion     search.Fusion
	cfg        Config
	logger     *slog.Logger
}

// NewMatcher builds a matcher over the vector index. Zero-value config
// fields fall back to defaults.
func NewMatcher(vectors VectorSearcher, cfg Config) *Matcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Matcher{
		vectors: vectors,
		cfg:     cfg,
		fusion:  search.NewFusion(),
		logger:  logger.Get(),
	}
}

// WithPrefilter enables lexical candidate widening: lexical hits are
// fused with the vector neighbors and missing similarities are computed
// from stored embeddings.
func (m *Matcher) WithPrefilter(lex LexicalSearcher, embeddings EmbeddingGetter, fusion search.Fusion) *Matcher {
	m.lexical = lex
	m.embeddings = embeddings
	m.fusion = fusion
	return m
}

// Classify decides how a document relates to the existing corpus.
// lexicalQuery may be empty, which skips the prefilter. The only error
// is candidate retrieval failing entirely; every comparable input maps
// to a Decision.
func (m *Matcher) Classify(ctx context.Context, embedding []float64, lexicalQuery string) (Decision, error) {
	if len(embedding) == 0 {
		return Decision{Verdict: VerdictNeedsReview, Reason: "document has no embedding"}, nil
	}

	neighbors, err := m.vectors.Nearest(ctx, embedding, m.cfg.TopK)
	if err != nil {
		return Decision{}, fmt.Errorf("retrieving match candidates: %w", err)
	}

	candidates := m.widenCandidates(ctx, embedding, lexicalQuery, neighbors)
	if len(candidates) == 0 {
		return Decision{Verdict: VerdictNew}, nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Similarity > best.Similarity {
			best = c
		}
	}

	t := m.cfg.Thresholds
	switch {
	case best.Similarity >= t.Duplicate:
		return Decision{Verdict: VerdictDuplicate, SignalID: best.SignalID, Similarity: best.Similarity}, nil
	case best.Similarity >= t.Enrich:
		return Decision{Verdict: VerdictEnrich, SignalID: best.SignalID, Similarity: best.Similarity}, nil
	case best.Similarity >= t.Weak:
		return Decision{Verdict: VerdictWeakLink, SignalID: best.SignalID, Similarity: best.Similarity}, nil
	default:
		return Decision{Verdict: VerdictNew}, nil
	}
}

// widenCandidates fuses lexical hits into the vector neighbor set when
// a prefilter is configured. Prefilter failures degrade to the vector
// neighbors alone; they never fail the classification.
func (m *Matcher) widenCandidates(ctx context.Context, embedding []float64, lexicalQuery string, neighbors []vectorstore.Neighbor) []vectorstore.Neighbor {
	if lexicalQuery == "" || m.lexical == nil {
		return neighbors
	}

	lexIDs, err := m.lexical.Search(ctx, lexicalQuery, m.cfg.TopK)
	if err != nil {
		m.logger.Warn("lexical prefilter failed, matching on vector neighbors only", "error", err.Error())
		return neighbors
	}
	if len(lexIDs) == 0 {
		return neighbors
	}

	simByID := make(map[string]float64, len(neighbors))
	vecIDs := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		simByID[n.SignalID] = n.Similarity
		vecIDs = append(vecIDs, n.SignalID)
	}

	fused := m.fusion.FuseTopK(m.cfg.TopK, lexIDs, vecIDs)

	// Lexical-only candidates need their stored embedding for a cosine.
	var missing []string
	for _, f := range fused {
		if _, ok := simByID[f.ID]; !ok {
			missing = append(missing, f.ID)
		}
	}
	if len(missing) > 0 && m.embeddings != nil {
		stored, err := m.embeddings.SignalEmbeddings(ctx, missing)
		if err != nil {
			m.logger.Warn("fetching candidate embeddings failed, scoring vector neighbors only", "error", err.Error())
		} else {
			for id, emb := range stored {
				simByID[id] = vectorstore.Cosine(embedding, emb)
			}
		}
	}

	candidates := make([]vectorstore.Neighbor, 0, len(fused))
	for _, f := range fused {
		sim, ok := simByID[f.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, vectorstore.Neighbor{SignalID: f.ID, Similarity: sim})
	}
	return candidates
}
