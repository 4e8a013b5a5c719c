package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex implements Index on a persistent chromem-go collection.
// Embeddings are always supplied precomputed, so the collection never
// calls out to an embedding API itself.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
}

// NewChromemIndex opens (or creates) a persistent collection at path.
func NewChromemIndex(path, collection string) (*ChromemIndex, error) {
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("opening vector db at %s: %w", path, err)
	}

	c, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collection, err)
	}

	return &ChromemIndex{db: db, collection: c}, nil
}

// Upsert saves or replaces the embedding stored for a signal.
func (c *ChromemIndex) Upsert(ctx context.Context, signalID string, embedding []float64) error {
	if signalID == "" {
		return fmt.Errorf("empty signal id")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("empty embedding for signal %s", signalID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	doc := chromem.Document{
		ID:        signalID,
		Embedding: toFloat32(embedding),
		Content:   signalID, // chromem requires content; the id is enough, search never reads it
	}
	if err := c.collection.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrUnavailable, signalID, err)
	}
	return nil
}

// Nearest returns up to k neighbors in descending similarity order.
func (c *ChromemIndex) Nearest(ctx context.Context, embedding []float64, k int) ([]Neighbor, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// chromem rejects nResults larger than the collection, so clamp.
	count := c.collection.Count()
	if count == 0 {
		return []Neighbor{}, nil
	}
	if k > count {
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, toFloat32(embedding), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}

	neighbors := make([]Neighbor, 0, len(results))
	for _, r := range results {
		neighbors = append(neighbors, Neighbor{
			SignalID:   r.ID,
			Similarity: float64(r.Similarity),
		})
	}
	return neighbors, nil
}

// Delete removes a signal's embedding.
func (c *ChromemIndex) Delete(ctx context.Context, signalID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.collection.Delete(ctx, nil, nil, signalID); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, signalID, err)
	}
	return nil
}

// Count returns the number of stored embeddings.
func (c *ChromemIndex) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection.Count(), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
