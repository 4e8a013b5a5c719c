package search

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"signalhound/internal/logger"
	"signalhound/internal/vectorstore"
)

// Embedder produces a query embedding for the semantic side of retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// LexicalSearcher returns ranked signal ids for a text query.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// VectorSearcher returns the nearest signals to an embedding.
type VectorSearcher interface {
	Nearest(ctx context.Context, embedding []float64, k int) ([]vectorstore.Neighbor, error)
}

// Retriever answers catalog search queries by running the lexical and
// vector searches in parallel and fusing their rankings. One side
// failing degrades the search to the other side; only both failing is
// an error.
type Retriever struct {
	embedder Embedder
	vectors  VectorSearcher
	lexical  LexicalSearcher
	fusion   Fusion
	logger   *slog.Logger
}

// NewRetriever wires a Retriever from its search backends.
func NewRetriever(embedder Embedder, vectors VectorSearcher, lex LexicalSearcher, fusion Fusion) *Retriever {
	return &Retriever{
		embedder: embedder,
		vectors:  vectors,
		lexical:  lex,
		fusion:   fusion,
		logger:   logger.Get(),
	}
}

// Search returns up to limit fused results for the query, best first.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]FusedResult, error) {
	if limit <= 0 {
		limit = 10
	}
	// Overfetch per list so fusion sees the overlap it rewards.
	perList := limit * 2

	var (
		lexicalIDs, vectorIDs []string
		lexErr, vecErr        error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ids, err := r.lexical.Search(gctx, query, perList)
		if err != nil {
			lexErr = err
			r.logger.Warn("lexical search failed, continuing vector-only", "error", err.Error())
			return nil
		}
		lexicalIDs = ids
		return nil
	})

	g.Go(func() error {
		embedding, err := r.embedder.Embed(gctx, query)
		if err != nil {
			vecErr = err
			r.logger.Warn("query embedding failed, continuing lexical-only", "error", err.Error())
			return nil
		}
		neighbors, err := r.vectors.Nearest(gctx, embedding, perList)
		if err != nil {
			vecErr = err
			r.logger.Warn("vector search failed, continuing lexical-only", "error", err.Error())
			return nil
		}
		vectorIDs = make([]string, 0, len(neighbors))
		for _, n := range neighbors {
			vectorIDs = append(vectorIDs, n.SignalID)
		}
		return nil
	})

	_ = g.Wait() // per-side errors are captured above, never returned from the group

	if lexErr != nil && vecErr != nil {
		return nil, fmt.Errorf("both search sides failed: lexical: %v; vector: %v", lexErr, vecErr)
	}

	return r.fusion.FuseTopK(limit, lexicalIDs, vectorIDs), nil
}
