package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"signalhound/internal/core"
	"signalhound/internal/logger"
)

// SignalLister is the slice of the signal repository the fallback scan
// needs: recent active signals that carry an embedding.
type SignalLister interface {
	ListActiveEmbedded(ctx context.Context, limit int) ([]core.Signal, error)
}

// Fallback wraps a primary Index with a bounded brute-force cosine scan
// over the signal repository. When the primary is unreachable a run
// degrades to the scan instead of halting, with functionally identical
// match outcomes over the scanned candidates.
type Fallback struct {
	primary Index
	signals SignalLister
	limit   int
	logger  *slog.Logger
}

// NewFallback wraps primary with a repository scan capped at limit
// candidates (most recently updated first).
func NewFallback(primary Index, signals SignalLister, limit int) *Fallback {
	if limit <= 0 {
		limit = 200
	}
	return &Fallback{
		primary: primary,
		signals: signals,
		limit:   limit,
		logger:  logger.Get(),
	}
}

// Upsert delegates to the primary index. A failed upsert propagates:
// silently skipping it would leave the index blind to a live signal.
func (f *Fallback) Upsert(ctx context.Context, signalID string, embedding []float64) error {
	return f.primary.Upsert(ctx, signalID, embedding)
}

// Nearest queries the primary index, scanning the repository when it is
// unreachable.
func (f *Fallback) Nearest(ctx context.Context, embedding []float64, k int) ([]Neighbor, error) {
	neighbors, err := f.primary.Nearest(ctx, embedding, k)
	if err == nil {
		return neighbors, nil
	}

	f.logger.Warn("vector index unreachable, using brute-force scan",
		"error", err.Error(), "limit", f.limit)

	candidates, scanErr := f.signals.ListActiveEmbedded(ctx, f.limit)
	if scanErr != nil {
		return nil, fmt.Errorf("brute-force scan after index failure (%v): %w", err, scanErr)
	}

	scored := make([]Neighbor, 0, len(candidates))
	for _, s := range candidates {
		scored = append(scored, Neighbor{
			SignalID:   s.ID,
			Similarity: Cosine(embedding, s.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Delete delegates to the primary index.
func (f *Fallback) Delete(ctx context.Context, signalID string) error {
	return f.primary.Delete(ctx, signalID)
}

// Count delegates to the primary index.
func (f *Fallback) Count(ctx context.Context) (int, error) {
	return f.primary.Count(ctx)
}
