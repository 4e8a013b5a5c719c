// Package lexical maintains the full-text side of hybrid signal search:
// a bleve index over signal names and summaries whose ranked ids feed
// rank fusion alongside the vector index.
package lexical

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"signalhound/internal/core"
	"signalhound/internal/logger"
)

// Index wraps a bleve full-text index keyed by signal id.
type Index struct {
	idx    bleve.Index
	path   string
	mu     sync.RWMutex
	logger *slog.Logger
}

// signalDoc is the indexed projection of a signal.
type signalDoc struct {
	Name     string `json:"name"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// Open opens the index at path, creating it with the standard mapping
// if it does not exist yet.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		mapping := bleve.NewIndexMapping()

		textField := bleve.NewTextFieldMapping()
		textField.Analyzer = "en"

		docMapping := bleve.NewDocumentMapping()
		docMapping.AddFieldMappingsAt("name", textField)
		docMapping.AddFieldMappingsAt("summary", textField)
		docMapping.AddFieldMappingsAt("category", textField)

		mapping.AddDocumentMapping("_default", docMapping)
		mapping.DefaultAnalyzer = "en"

		idx, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("creating lexical index at %s: %w", path, err)
		}
	}

	return &Index{idx: idx, path: path, logger: logger.Get()}, nil
}

// IndexSignal adds or replaces the signal's searchable projection.
func (x *Index) IndexSignal(s core.Signal) error {
	if s.ID == "" {
		return fmt.Errorf("signal has no id")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	doc := signalDoc{Name: s.Name, Summary: s.Summary, Category: s.Category}
	if err := x.idx.Index(s.ID, doc); err != nil {
		return fmt.Errorf("indexing signal %s: %w", s.ID, err)
	}
	return nil
}

// Search returns ranked signal ids matching the query, best first.
// A blank query matches nothing.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit

	result, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Delete removes a signal from the index.
func (x *Index) Delete(signalID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.idx.Delete(signalID); err != nil {
		return fmt.Errorf("deleting signal %s from lexical index: %w", signalID, err)
	}
	return nil
}

// Count returns the number of indexed signals.
func (x *Index) Count() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.idx.DocCount()
}

// Close releases the underlying index.
func (x *Index) Close() error {
	return x.idx.Close()
}

// Reset drops and recreates the index. Used by full reindex runs.
func (x *Index) Reset() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.idx.Close(); err != nil {
		x.logger.Warn("closing lexical index before reset", "error", err.Error())
	}
	if err := os.RemoveAll(x.path); err != nil {
		return fmt.Errorf("removing lexical index dir: %w", err)
	}

	fresh, err := Open(x.path)
	if err != nil {
		return err
	}
	x.idx = fresh.idx
	return nil
}
