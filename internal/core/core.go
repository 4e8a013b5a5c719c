package core

import (
	"time"

	"github.com/google/uuid"
)

// SignalStatus tracks a signal through its catalog lifecycle.
type SignalStatus string

const (
	SignalActive      SignalStatus = "active"       // Normal catalog member
	SignalNeedsReview SignalStatus = "needs_review" // Created without an embedding; excluded from dedup until reviewed
	SignalArchived    SignalStatus = "archived"     // Retired by the review workflow; never matched against
)

// Stage is the position of a document inside an ingestion run.
type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageValidated  Stage = "validated"
	StageTriaged    Stage = "triaged"
	StageAnalyzed   Stage = "analyzed"
	StageMatched    Stage = "matched"
	StagePersisted  Stage = "persisted"

	// Terminal rejection stages. These are outcomes, not bugs.
	StageValidationRejected Stage = "validation_rejected"
	StageTriageRejected     Stage = "triage_rejected"
	StageError              Stage = "error"
)

// Terminal reports whether a stage ends processing for a document.
func (s Stage) Terminal() bool {
	switch s {
	case StagePersisted, StageValidationRejected, StageTriageRejected, StageError:
		return true
	}
	return false
}

// Source type labels used on both Source rows and Signal classification.
const (
	SourceTypeRSS  = "rss"
	SourceTypeWeb  = "web"
	SourceTypeAPI  = "api"
	SourceTypeSeed = "seed"
)

// Signal is one catalog entry for one distinct real-world event or grant
// opportunity. Its embedding is the durable centroid every future dedup
// comparison is made against, so it is set once at creation and only
// replaced deliberately by the review workflow.
type Signal struct {
	ID                 string            `json:"id" validate:"required,uuid4"`
	Name               string            `json:"name" validate:"required,min=3,max=500"`
	Summary            string            `json:"summary"`                                              // Classifier-written abstract
	Embedding          []float64         `json:"embedding,omitempty"`                                  // Durable dedup centroid; empty only while needs_review
	Status             SignalStatus      `json:"status" validate:"required,oneof=active needs_review archived"`
	Category           string            `json:"category"`                                             // e.g. "funding", "policy", "technology"
	Locale             string            `json:"locale"`                                               // BCP-47-ish region tag, e.g. "en-US"
	SourceTypes        []string          `json:"source_types,omitempty"`                               // Distinct source types seen across attached sources
	RelevanceScore     int               `json:"relevance_score" validate:"gte=0,lte=100"`
	ImpactScore        int               `json:"impact_score" validate:"gte=0,lte=100"`
	NoveltyScore       int               `json:"novelty_score" validate:"gte=0,lte=100"`
	UrgencyScore       int               `json:"urgency_score" validate:"gte=0,lte=100"`
	CredibilityScore   int               `json:"credibility_score" validate:"gte=0,lte=100"`
	SpecificityScore   int               `json:"specificity_score" validate:"gte=0,lte=100"`
	ActionabilityScore int               `json:"actionability_score" validate:"gte=0,lte=100"`
	QualityScore       int               `json:"quality_score" validate:"gte=0,lte=100"`               // Composite trust score, see quality package
	QualityBreakdown   *QualityBreakdown `json:"quality_breakdown,omitempty"`                          // Audit record for the last composite computation
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Source is one discovered document attached to at most one Signal.
type Source struct {
	ID             string    `json:"id" validate:"required,uuid4"`
	SignalID       string    `json:"signal_id,omitempty"`      // Empty until the matcher attaches it
	URL            string    `json:"url" validate:"required,url"`
	Title          string    `json:"title"`
	Excerpt        string    `json:"excerpt"`                  // Cleaned text excerpt used for lexical search
	Domain         string    `json:"domain"`                   // Registrable host, lowercased
	SourceType     string    `json:"source_type" validate:"required"`
	Embedding      []float64 `json:"embedding,omitempty"`
	QualityScore   int       `json:"quality_score" validate:"gte=0,lte=100"`
	StoryClusterID string    `json:"story_cluster_id,omitempty"` // Same-story group across feeds, assigned by the cluster engine
	DuplicateOf    string    `json:"duplicate_of,omitempty"`     // Self-reference when this source near-duplicates another
	PublishedAt    time.Time `json:"published_at"`
	DiscoveredAt   time.Time `json:"discovered_at"`
}

// QualityBreakdown is the persisted audit record for one composite
// quality computation. Sub-scores are stored pre-weighting.
type QualityBreakdown struct {
	Authority     float64   `json:"authority"`
	Diversity     float64   `json:"diversity"`
	Corroboration float64   `json:"corroboration"`
	Recency       float64   `json:"recency"`
	Specificity   float64   `json:"specificity"`
	Composite     int       `json:"composite"`
	SourceCount   int       `json:"source_count"`
	ClusterCount  int       `json:"cluster_count"`
	DomainCount   int       `json:"domain_count"`
	ComputedAt    time.Time `json:"computed_at"`
}

// DomainReputation is the learned-plus-curated trust record for one
// domain pattern. Pattern forms, most to least specific: exact host
// ("nsf.gov"), parent domain matching subdomains ("nih.gov" matching
// "grants.nih.gov"), subdomain wildcard ("*.europa.eu"), TLD wildcard
// ("*.gov"). CuratedTier is editorial and never written by recalculation.
type DomainReputation struct {
	ID             string    `json:"id" validate:"required,uuid4"`
	Pattern        string    `json:"pattern" validate:"required"`
	CuratedTier    *int      `json:"curated_tier,omitempty" validate:"omitempty,gte=1,lte=3"`
	RatingSum      int       `json:"rating_sum"`      // Sum of 1-5 crowd ratings
	RatingCount    int       `json:"rating_count"`
	TriagePassed   int       `json:"triage_passed"`   // Documents from this domain that passed triage
	TriageTotal    int       `json:"triage_total"`
	CompositeScore float64   `json:"composite_score"` // Recomputed from the four weighted inputs
	LocaleBonus    float64   `json:"locale_bonus"`    // Additive bonus for locale-relevant outlets
	UpdatedAt      time.Time `json:"updated_at"`
}

// SourceRating is one rater's 1-5 judgment of one source. Upserted on
// (source, rater), so re-rating replaces rather than accumulates.
type SourceRating struct {
	SourceID  string    `json:"source_id" validate:"required,uuid4"`
	RaterID   string    `json:"rater_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,gte=1,lte=5"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewFlag queues a low-confidence attachment between a source and a
// signal for external review. The attachment is already made; a reviewer
// confirms it or detaches the source into its own signal.
type ReviewFlag struct {
	SourceID   string    `json:"source_id" validate:"required,uuid4"`
	SignalID   string    `json:"signal_id" validate:"required,uuid4"`
	Similarity float64   `json:"similarity"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Document is the uniform unit every source provider yields, before any
// validation or classification has happened.
type Document struct {
	URL         string    `json:"url" validate:"required,url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SourceType  string    `json:"source_type"`
	Provider    string    `json:"provider"` // Name of the provider that discovered it
	PublishedAt time.Time `json:"published_at"`
}

// TriageResult is the Classifier's cheap relevance pre-filter verdict.
type TriageResult struct {
	IsRelevant bool    `json:"is_relevant"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Reason     string  `json:"reason"`
}

// AnalysisScores are the seven 0-100 component scores the Classifier
// assigns during full analysis. They live on the Signal verbatim.
type AnalysisScores struct {
	Relevance     int `json:"relevance" validate:"gte=0,lte=100"`
	Impact        int `json:"impact" validate:"gte=0,lte=100"`
	Novelty       int `json:"novelty" validate:"gte=0,lte=100"`
	Urgency       int `json:"urgency" validate:"gte=0,lte=100"`
	Credibility   int `json:"credibility" validate:"gte=0,lte=100"`
	Specificity   int `json:"specificity" validate:"gte=0,lte=100"`
	Actionability int `json:"actionability" validate:"gte=0,lte=100"`
}

// Analysis is the Classifier's full read of a relevant document.
type Analysis struct {
	SuggestedName string         `json:"suggested_name"`
	Summary       string         `json:"summary"`
	Category      string         `json:"category"`
	Locale        string         `json:"locale"`
	Entities      []string       `json:"entities,omitempty"`
	Scores        AnalysisScores `json:"scores"`
}

// Feed represents an RSS/Atom feed source registered for polling.
type Feed struct {
	ID           string    `json:"id"`            // Unique identifier for the feed
	URL          string    `json:"url"`           // Feed URL
	Title        string    `json:"title"`         // Feed title
	Description  string    `json:"description"`   // Feed description
	LastFetched  time.Time `json:"last_fetched"`  // Last time the feed was fetched
	LastModified string    `json:"last_modified"` // Last-Modified header from the feed
	ETag         string    `json:"etag"`          // ETag header from the feed
	Active       bool      `json:"active"`        // Whether the feed is active for polling
	ErrorCount   int       `json:"error_count"`   // Number of consecutive errors
	LastError    string    `json:"last_error"`    // Last error encountered
	AddedAt      time.Time `json:"added_at"`      // When the feed was added
}

// NewSignal builds a signal from a completed analysis. A signal without
// an embedding starts as needs_review instead of active, keeping it out
// of dedup comparisons until a reviewer supplies one.
func NewSignal(name string, embedding []float64, analysis Analysis) Signal {
	now := time.Now().UTC()
	status := SignalActive
	if len(embedding) == 0 {
		status = SignalNeedsReview
	}
	return Signal{
		ID:                 uuid.NewString(),
		Name:               name,
		Summary:            analysis.Summary,
		Embedding:          embedding,
		Status:             status,
		Category:           analysis.Category,
		Locale:             analysis.Locale,
		RelevanceScore:     analysis.Scores.Relevance,
		ImpactScore:        analysis.Scores.Impact,
		NoveltyScore:       analysis.Scores.Novelty,
		UrgencyScore:       analysis.Scores.Urgency,
		CredibilityScore:   analysis.Scores.Credibility,
		SpecificityScore:   analysis.Scores.Specificity,
		ActionabilityScore: analysis.Scores.Actionability,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// NewSource builds an unattached source from a discovered document.
func NewSource(doc Document, embedding []float64) Source {
	return Source{
		ID:           uuid.NewString(),
		URL:          doc.URL,
		Title:        doc.Title,
		Excerpt:      Excerpt(doc.Content, 500),
		Domain:       DomainOf(doc.URL),
		SourceType:   doc.SourceType,
		Embedding:    embedding,
		PublishedAt:  doc.PublishedAt,
		DiscoveredAt: time.Now().UTC(),
	}
}
