package search

import "sort"

const (
	// DefaultK is the RRF smoothing constant, shared with the backend
	// search system so fused scores stay comparable across surfaces.
	DefaultK = 60.0

	// DefaultLexicalWeight and DefaultVectorWeight bias fusion toward
	// semantic recall: enriched queries make the vector list the better
	// witness, so it counts double.
	DefaultLexicalWeight = 1.0
	DefaultVectorWeight  = 2.0
)

// FusedResult is one id with its combined RRF score. LexicalRank and
// VectorRank are 1-based positions in the input lists, 0 when absent.
type FusedResult struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	LexicalRank int     `json:"lexical_rank,omitempty"`
	VectorRank  int     `json:"vector_rank,omitempty"`
}

// Fusion combines a lexical and a vector ranking using weighted
// Reciprocal Rank Fusion: score(id) = Σ weight_i / (k + rank_i), with
// an id absent from a list contributing nothing from that list.
type Fusion struct {
	k             float64
	lexicalWeight float64
	vectorWeight  float64
}

// NewFusion creates a Fusion with the default constant and weights.
func NewFusion() Fusion {
	return NewFusionWithWeights(DefaultK, DefaultLexicalWeight, DefaultVectorWeight)
}

// NewFusionWithWeights creates a Fusion with a custom RRF constant and
// per-list weights. Non-positive values fall back to the defaults.
func NewFusionWithWeights(k, lexicalWeight, vectorWeight float64) Fusion {
	if k <= 0 {
		k = DefaultK
	}
	if lexicalWeight <= 0 {
		lexicalWeight = DefaultLexicalWeight
	}
	if vectorWeight <= 0 {
		vectorWeight = DefaultVectorWeight
	}
	return Fusion{k: k, lexicalWeight: lexicalWeight, vectorWeight: vectorWeight}
}

// Fuse combines the two ranked id lists into a single list ordered by
// fused score, highest first. Ties break by the order of the
// higher-weighted list. Empty inputs yield an empty result.
func (f Fusion) Fuse(lexicalIDs, vectorIDs []string) []FusedResult {
	if len(lexicalIDs) == 0 && len(vectorIDs) == 0 {
		return []FusedResult{}
	}

	byID := make(map[string]*FusedResult, len(lexicalIDs)+len(vectorIDs))

	accumulate := func(ids []string, weight float64, lexical bool) {
		for i, id := range ids {
			rank := i + 1
			r, ok := byID[id]
			if !ok {
				r = &FusedResult{ID: id}
				byID[id] = r
			}
			if lexical {
				if r.LexicalRank != 0 {
					continue // duplicate id within one list, first position wins
				}
				r.LexicalRank = rank
			} else {
				if r.VectorRank != 0 {
					continue
				}
				r.VectorRank = rank
			}
			r.Score += weight / (f.k + float64(rank))
		}
	}

	accumulate(lexicalIDs, f.lexicalWeight, true)
	accumulate(vectorIDs, f.vectorWeight, false)

	results := make([]FusedResult, 0, len(byID))
	for _, r := range byID {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return f.tieRank(results[i]) < f.tieRank(results[j])
	})

	return results
}

// FuseTopK fuses the two lists and returns at most topK results.
func (f Fusion) FuseTopK(topK int, lexicalIDs, vectorIDs []string) []FusedResult {
	results := f.Fuse(lexicalIDs, vectorIDs)
	if topK <= 0 || topK >= len(results) {
		return results
	}
	return results[:topK]
}

// tieRank is the position of the result in the higher-weighted list;
// ids absent from that list sort after everything present in it.
func (f Fusion) tieRank(r FusedResult) int {
	rank := r.VectorRank
	if f.lexicalWeight > f.vectorWeight {
		rank = r.LexicalRank
	}
	if rank == 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}

// K returns the RRF constant used by this fusion.
func (f Fusion) K() float64 {
	return f.k
}
