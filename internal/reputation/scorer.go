// Package reputation scores domains from curated tiers, crowd ratings,
// and observed triage pass-rate. The composite feeds the quality
// authority sub-score; the confidence adjustment is a soft prior on
// triage, never a hard filter.
package reputation

import (
	"context"

	"signalhound/internal/core"
	"signalhound/internal/logger"
)

// Composite weights. The curated tier dominates because it is the only
// editorially controlled input; the two learned inputs share the rest.
const (
	tierWeight     = 0.50
	ratingsWeight  = 0.30
	passRateWeight = 0.20

	// Neutral fallbacks for domains with no learned history yet, so an
	// unrated domain is not punished on 50% of the composite.
	neutralRating   = 3.0
	neutralPassRate = 0.5

	// Largest confidence shift the reputation prior may apply in
	// either direction.
	maxConfidenceShift = 0.15
)

// untieredScore is the curated-tier score for domains with no tier.
const untieredScore = 20.0

var tierScores = map[int]float64{1: 85, 2: 60, 3: 35}

// Store is the persistence surface the scorer needs. Tier edits stay
// outside it: curated tiers are editorial and never written here.
type Store interface {
	// FindByPatterns returns every stored record whose pattern is in
	// the given set. Order does not matter; the scorer re-ranks.
	FindByPatterns(ctx context.Context, patterns []string) ([]core.DomainReputation, error)

	// RecordTriage upserts the learned triage counters for an exact
	// domain pattern and returns the updated record.
	RecordTriage(ctx context.Context, pattern string, passed bool) (core.DomainReputation, error)

	// SaveComposite persists a recomputed composite score.
	SaveComposite(ctx context.Context, pattern string, score float64) error
}

type Scorer struct {
	store Store
}

func NewScorer(store Store) *Scorer {
	return &Scorer{store: store}
}

// Lookup resolves the most specific stored reputation record for a
// registrable domain. Match priority is exact > parent-domain >
// subdomain-wildcard > TLD-wildcard; "sub.example.com" prefers a stored
// "example.com" over "*.example.com" over "*.com". The run cache
// memoizes hits and misses alike.
func (s *Scorer) Lookup(ctx context.Context, cache *Cache, domain string) (core.DomainReputation, bool, error) {
	patterns := candidatePatterns(domain)
	if len(patterns) == 0 {
		return core.DomainReputation{}, false, nil
	}
	key := patterns[0]

	if cache != nil {
		if record, found, ok := cache.get(key); ok {
			return record, found, nil
		}
	}

	records, err := s.store.FindByPatterns(ctx, patterns)
	if err != nil {
		return core.DomainReputation{}, false, err
	}

	byPattern := make(map[string]core.DomainReputation, len(records))
	for _, record := range records {
		byPattern[record.Pattern] = record
	}

	for _, pattern := range patterns {
		if record, ok := byPattern[pattern]; ok {
			if cache != nil {
				cache.put(key, record, true)
			}
			return record, true, nil
		}
	}

	if cache != nil {
		cache.put(key, core.DomainReputation{}, false)
	}
	return core.DomainReputation{}, false, nil
}

// Composite computes the reputation score on [0,100]:
//
//	tierScore*0.50 + (avgRating/5*100)*0.30 + passRate*100*0.20 + localeBonus
//
// with tier scores {1:85, 2:60, 3:35, none:20}. Only the rating and
// pass-rate inputs are learned; the tier and locale bonus are curated.
func Composite(record core.DomainReputation) float64 {
	tierScore := untieredScore
	if record.CuratedTier != nil {
		if score, ok := tierScores[*record.CuratedTier]; ok {
			tierScore = score
		}
	}

	avgRating := neutralRating
	if record.RatingCount > 0 {
		avgRating = float64(record.RatingSum) / float64(record.RatingCount)
	}

	passRate := neutralPassRate
	if record.TriageTotal > 0 {
		passRate = float64(record.TriagePassed) / float64(record.TriageTotal)
	}

	score := tierScore*tierWeight +
		(avgRating/5*100)*ratingsWeight +
		(passRate*100)*passRateWeight +
		record.LocaleBonus

	return clamp(score, 0, 100)
}

// AuthorityScore returns the composite for a domain, with the neutral
// untiered composite when nothing is stored. Lookup failure degrades to
// the same neutral score; authority never takes a batch down.
func (s *Scorer) AuthorityScore(ctx context.Context, cache *Cache, domain string) float64 {
	record, found, err := s.Lookup(ctx, cache, domain)
	if err != nil {
		logger.Warn("domain lookup failed, using neutral authority", "domain", domain, "error", err)
		return Composite(core.DomainReputation{})
	}
	if !found {
		return Composite(core.DomainReputation{})
	}
	return Composite(record)
}

// ConfidenceAdjustment maps a record's composite to a signed delta in
// [-maxConfidenceShift, +maxConfidenceShift], centered at composite 50.
func ConfidenceAdjustment(record core.DomainReputation) float64 {
	delta := (Composite(record) - 50) / 50 * maxConfidenceShift
	return clamp(delta, -maxConfidenceShift, maxConfidenceShift)
}

// ConfidenceAdjustmentFor is the pipeline entry point: unknown domains
// carry no prior, and a lookup failure is logged and treated as zero
// adjustment rather than failing the item.
func (s *Scorer) ConfidenceAdjustmentFor(ctx context.Context, cache *Cache, domain string) float64 {
	record, found, err := s.Lookup(ctx, cache, domain)
	if err != nil {
		logger.Warn("domain lookup failed, skipping confidence adjustment", "domain", domain, "error", err)
		return 0
	}
	if !found {
		return 0
	}
	return ConfidenceAdjustment(record)
}

// RecordTriageResult feeds one triage outcome back into the learned
// pass-rate for the exact domain and refreshes the stored composite.
// The curated tier is never touched.
func (s *Scorer) RecordTriageResult(ctx context.Context, domain string, passed bool) error {
	patterns := candidatePatterns(domain)
	if len(patterns) == 0 {
		return nil
	}

	record, err := s.store.RecordTriage(ctx, patterns[0], passed)
	if err != nil {
		return err
	}
	return s.store.SaveComposite(ctx, record.Pattern, Composite(record))
}

// RefreshComposite recomputes and persists the composite for an exact
// stored pattern, after its learned inputs changed out of band (e.g. a
// crowd rating landed).
func (s *Scorer) RefreshComposite(ctx context.Context, pattern string) (float64, error) {
	records, err := s.store.FindByPatterns(ctx, []string{pattern})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	score := Composite(records[0])
	if err := s.store.SaveComposite(ctx, pattern, score); err != nil {
		return 0, err
	}
	return score, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
