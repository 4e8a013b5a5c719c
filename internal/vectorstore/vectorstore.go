package vectorstore

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/floats"
)

// ErrUnavailable marks nearest-neighbor failures that callers may treat
// as an index outage and route around. Implementations wrap it.
var ErrUnavailable = errors.New("vector index unavailable")

// Index provides nearest-neighbor search over signal centroid embeddings.
// All implementations rank by cosine similarity, highest first.
type Index interface {
	// Upsert saves or replaces the embedding stored for a signal.
	Upsert(ctx context.Context, signalID string, embedding []float64) error

	// Nearest returns up to k neighbors of the query embedding in
	// descending similarity order. Fewer than k results is not an error.
	Nearest(ctx context.Context, embedding []float64, k int) ([]Neighbor, error)

	// Delete removes a signal's embedding (when a signal is archived).
	Delete(ctx context.Context, signalID string) error

	// Count returns the number of stored embeddings.
	Count(ctx context.Context) (int, error)
}

// Neighbor is one nearest-neighbor hit.
type Neighbor struct {
	SignalID   string  `json:"signal_id"`
	Similarity float64 `json:"similarity"` // Cosine similarity, higher = more similar
}

// Cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm inputs score 0 rather than erroring, so a single bad vector
// cannot poison a batch comparison.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
