package pipeline

import (
	"errors"
	"fmt"

	"signalhound/internal/core"
)

// Sentinel outcomes that are decisions, not faults. The run loop
// separates them from real failures with errors.Is; none of them
// increments the error count.
var (
	// ErrValidationRejected marks a document stopped by the
	// deterministic pre-model gate.
	ErrValidationRejected = errors.New("validation rejected")

	// ErrTriageRejected marks a document judged irrelevant, either by
	// the classifier outright or because the reputation-adjusted
	// confidence fell below the run threshold.
	ErrTriageRejected = errors.New("triage rejected")

	// ErrSignalCapReached defers a would-be new signal once the per-run
	// creation cap is hit. Deferred documents are not written to the
	// seen ledger, so the next run picks them up again.
	ErrSignalCapReached = errors.New("new-signal cap reached")
)

// errAlreadySeen short-circuits URLs whose terminal outcome a recent
// run already recorded.
var errAlreadySeen = errors.New("url already processed")

// StageError tags a per-item failure with the stage the item was
// advancing toward. Item failures are counted into the run summary and
// never abort the batch.
type StageError struct {
	Stage core.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func failAt(stage core.Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// stageOf extracts the failing stage, defaulting to discovered for
// errors raised before the state machine advanced at all.
func stageOf(err error) core.Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return core.StageDiscovered
}
