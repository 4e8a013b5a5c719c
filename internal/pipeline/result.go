package pipeline

import (
	"time"

	"signalhound/internal/core"
)

// ItemFailure is one document that ended in the error state.
type ItemFailure struct {
	URL     string     `json:"url"`
	Stage   core.Stage `json:"stage"`
	Message string     `json:"message"`
}

// RunSummary aggregates per-outcome counts for one ingestion run. The
// counts are exact even when individual items failed: every document
// handed to the run lands in exactly one terminal bucket.
type RunSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Progression counts. A document increments every gate it passed,
	// so Triaged <= Validated and Analyzed <= Triaged.
	Found     int `json:"found"`
	Skipped   int `json:"skipped"`
	Validated int `json:"validated"`
	Triaged   int `json:"triaged"`
	Analyzed  int `json:"analyzed"`

	// Terminal buckets.
	Created            int `json:"created"`
	Enriched           int `json:"enriched"`
	Duplicates         int `json:"duplicates"`
	WeakLinks          int `json:"weak_links"`
	NeedsReview        int `json:"needs_review"`
	Deferred           int `json:"deferred"`
	ValidationRejected int `json:"validation_rejected"`
	TriageRejected     int `json:"triage_rejected"`
	Errors             int `json:"errors"`

	Failures []ItemFailure `json:"failures,omitempty"`
}

// Duration returns the wall-clock run time.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Committed returns the number of documents that reached persisted.
func (s *RunSummary) Committed() int {
	return s.Created + s.Enriched + s.Duplicates + s.WeakLinks + s.NeedsReview
}

// Outcome tags how a committed document landed in the catalog.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeEnriched    Outcome = "enriched"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeWeakLink    Outcome = "weak_link"
	OutcomeNeedsReview Outcome = "needs_review"
)
