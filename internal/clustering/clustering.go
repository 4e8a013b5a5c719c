// Package clustering groups a signal's sources into same-story clusters:
// sources whose embeddings agree closely enough that they are covering
// the same specific event, not merely the same topic.
package clustering

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"signalhound/internal/core"
)

// DefaultSimilarityThreshold sits deliberately above the dedup tiers:
// within one signal the sources are already topically related, so only
// near-agreement counts as the same specific event.
const DefaultSimilarityThreshold = 0.90

// Partition is the result of clustering one signal's sources.
type Partition struct {
	// ClusterCount is the total number of clusters, singletons included.
	ClusterCount int `json:"cluster_count"`

	// Corroborated is the number of clusters containing sources from at
	// least two distinct domains, meaning independent outlets agree on
	// one event. This is the input to the corroboration sub-score.
	Corroborated int `json:"corroborated"`

	// Clusters maps each fresh cluster id to its member source ids.
	Clusters map[string][]string `json:"clusters"`

	// BySource maps each source id to its cluster id, for persisting
	// story_cluster_id on the source rows.
	BySource map[string]string `json:"by_source"`
}

// Engine clusters sources by pairwise embedding agreement.
type Engine struct {
	threshold float64
}

// NewEngine creates an engine with the given similarity threshold.
// Non-positive thresholds fall back to the default.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Engine{threshold: threshold}
}

// Cluster partitions the sources. Sources without an embedding are each
// their own singleton: a grouping is never guessed without evidence.
// The partition is invariant under any permutation of the input, up to
// cluster-id renaming; ids are freshly minted per call.
func (e *Engine) Cluster(sources []core.Source) Partition {
	n := len(sources)
	uf := newUnionFind(n)

	embedded := make([]int, 0, n)
	for i, s := range sources {
		if len(s.Embedding) > 0 {
			embedded = append(embedded, i)
		}
	}

	for a := 0; a < len(embedded); a++ {
		for b := a + 1; b < len(embedded); b++ {
			i, j := embedded[a], embedded[b]
			if cosineSimilarity(sources[i].Embedding, sources[j].Embedding) >= e.threshold {
				uf.union(i, j)
			}
		}
	}

	p := Partition{
		Clusters: make(map[string][]string),
		BySource: make(map[string]string, n),
	}

	idByRoot := make(map[int]string)
	domainsByCluster := make(map[string]map[string]struct{})

	for i, s := range sources {
		root := uf.find(i)
		clusterID, ok := idByRoot[root]
		if !ok {
			clusterID = uuid.NewString()
			idByRoot[root] = clusterID
			domainsByCluster[clusterID] = make(map[string]struct{})
		}
		p.Clusters[clusterID] = append(p.Clusters[clusterID], s.ID)
		p.BySource[s.ID] = clusterID
		if s.Domain != "" {
			domainsByCluster[clusterID][s.Domain] = struct{}{}
		}
	}

	p.ClusterCount = len(p.Clusters)
	for id := range p.Clusters {
		if len(domainsByCluster[id]) >= 2 {
			p.Corroborated++
		}
	}

	return p
}

// cosineSimilarity scores two embeddings, treating mismatched or
// zero-norm vectors as unrelated.
func cosineSimilarity(a, b []float64) float64 {
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
