// Package quality computes the composite 0-100 trust score for a
// signal from five weighted sub-scores: authority, diversity,
// corroboration, recency, and specificity. The full breakdown is
// persisted alongside the composite so reviewers can audit why a
// signal scored the way it did.
package quality

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"signalhound/internal/clustering"
	"signalhound/internal/core"
	"signalhound/internal/reputation"
)

// Weights combines the five sub-scores. They must sum to 1.0 within
// tolerance; a bad set is rejected at construction, never silently
// normalized.
type Weights struct {
	Authority     float64
	Diversity     float64
	Corroboration float64
	Recency       float64
	Specificity   float64
}

const weightSumTolerance = 0.01

func DefaultWeights() Weights {
	return Weights{
		Authority:     0.30,
		Diversity:     0.20,
		Corroboration: 0.20,
		Recency:       0.15,
		Specificity:   0.15,
	}
}

func (w Weights) Sum() float64 {
	return w.Authority + w.Diversity + w.Corroboration + w.Recency + w.Specificity
}

func (w Weights) Validate() error {
	if sum := w.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("quality weights must sum to 1.0 (±%.2f), got %.3f", weightSumTolerance, sum)
	}
	return nil
}

// AuthorityProvider resolves a domain to its reputation composite.
// Implemented by reputation.Scorer.
type AuthorityProvider interface {
	AuthorityScore(ctx context.Context, cache *reputation.Cache, domain string) float64
}

// Scorer is safe for concurrent use; all per-run mutable state lives
// in the reputation cache passed per call.
type Scorer struct {
	weights    Weights
	halfLife   time.Duration
	homeLocale string
	authority  AuthorityProvider
}

const defaultHalfLife = 14 * 24 * time.Hour

func NewScorer(authority AuthorityProvider, weights Weights, halfLife time.Duration, homeLocale string) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if halfLife <= 0 {
		halfLife = defaultHalfLife
	}
	return &Scorer{
		weights:    weights,
		halfLife:   halfLife,
		homeLocale: homeLocale,
		authority:  authority,
	}, nil
}

// Score computes the breakdown for one signal from its attached
// sources and their story partition. Pure given its inputs and the
// clock; recomputing with unchanged inputs yields the same breakdown.
func (s *Scorer) Score(ctx context.Context, cache *reputation.Cache, signal core.Signal, sources []core.Source, partition clustering.Partition) core.QualityBreakdown {
	breakdown := core.QualityBreakdown{
		SourceCount:  len(sources),
		ClusterCount: partition.ClusterCount,
		ComputedAt:   time.Now().UTC(),
	}

	domains := distinctDomains(sources)
	breakdown.DomainCount = len(domains)

	breakdown.Authority = s.authorityScore(ctx, cache, domains)
	breakdown.Diversity = diversityScore(sources)
	breakdown.Corroboration = corroborationScore(partition.Corroborated)
	breakdown.Recency = recencyScore(newestSourceTime(sources), s.halfLife)
	breakdown.Specificity = s.specificityScore(signal, domains)

	weighted := breakdown.Authority*s.weights.Authority +
		breakdown.Diversity*s.weights.Diversity +
		breakdown.Corroboration*s.weights.Corroboration +
		breakdown.Recency*s.weights.Recency +
		breakdown.Specificity*s.weights.Specificity

	breakdown.Composite = int(clampScore(math.Round(weighted)))
	return breakdown
}

// authorityScore averages the reputation composite over the distinct
// domains backing the signal, so ten sources from one domain carry the
// weight of one.
func (s *Scorer) authorityScore(ctx context.Context, cache *reputation.Cache, domains []string) float64 {
	if len(domains) == 0 {
		return 0
	}
	total := 0.0
	for _, domain := range domains {
		total += s.authority.AuthorityScore(ctx, cache, domain)
	}
	return clampScore(total / float64(len(domains)))
}

// diversityScore saturates on distinct source-type categories: one
// type is a weak 40, three or more max out.
func diversityScore(sources []core.Source) float64 {
	types := make(map[string]struct{})
	for _, src := range sources {
		if src.SourceType != "" {
			types[src.SourceType] = struct{}{}
		}
	}
	if len(types) == 0 {
		return 0
	}
	return clampScore(10 + 30*float64(len(types)))
}

// corroborationScore saturates on the number of independently
// corroborated story clusters (clusters spanning at least two
// domains): 0 → 0, 1 → 50, 2 → 75, with diminishing returns after.
func corroborationScore(corroborated int) float64 {
	if corroborated <= 0 {
		return 0
	}
	return clampScore(100 * (1 - math.Pow(0.5, float64(corroborated))))
}

// recencyScore halves with every half-life elapsed since the newest
// source; very stale signals decay toward zero rather than going
// negative.
func recencyScore(newest time.Time, halfLife time.Duration) float64 {
	if newest.IsZero() {
		return 0
	}
	age := time.Since(newest)
	if age <= 0 {
		return 100
	}
	return clampScore(100 * math.Pow(0.5, age.Hours()/halfLife.Hours()))
}

// Official provenance suffixes granting the specificity bonus.
var officialSuffixes = []string{".gov", ".mil", ".edu", ".int", ".gov.uk", ".gc.ca", ".europa.eu"}

// specificityScore blends the analyzed content specificity with
// provenance bonuses for official domains and home-locale relevance.
func (s *Scorer) specificityScore(signal core.Signal, domains []string) float64 {
	score := float64(signal.SpecificityScore) * 0.6

	for _, domain := range domains {
		if isOfficialDomain(domain) {
			score += 20
			break
		}
	}

	if localeMatches(signal.Locale, s.homeLocale) {
		score += 20
	}

	return clampScore(score)
}

func isOfficialDomain(domain string) bool {
	for _, suffix := range officialSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}
	return false
}

// localeMatches accepts an exact locale match or a shared language
// tag, so "en" counts toward a home locale of "en-US".
func localeMatches(locale, home string) bool {
	if locale == "" || home == "" {
		return false
	}
	if strings.EqualFold(locale, home) {
		return true
	}
	lang := func(tag string) string {
		tag = strings.ToLower(tag)
		if i := strings.IndexAny(tag, "-_"); i > 0 {
			return tag[:i]
		}
		return tag
	}
	return lang(locale) == lang(home)
}

func distinctDomains(sources []core.Source) []string {
	seen := make(map[string]struct{})
	var domains []string
	for _, src := range sources {
		if src.Domain == "" {
			continue
		}
		if _, ok := seen[src.Domain]; !ok {
			seen[src.Domain] = struct{}{}
			domains = append(domains, src.Domain)
		}
	}
	return domains
}

func newestSourceTime(sources []core.Source) time.Time {
	var newest time.Time
	for _, src := range sources {
		at := src.PublishedAt
		if at.IsZero() {
			at = src.DiscoveredAt
		}
		if at.After(newest) {
			newest = at
		}
	}
	return newest
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
