package quality

import (
	"context"
	"fmt"

	"signalhound/internal/clustering"
	"signalhound/internal/core"
	"signalhound/internal/logger"
	"signalhound/internal/reputation"
)

// Store is the persistence surface batch recalculation reads and
// writes. Callers adapt the signal and source repositories to it.
type Store interface {
	ListSignals(ctx context.Context) ([]core.Signal, error)
	SourcesBySignal(ctx context.Context, signalID string) ([]core.Source, error)
	SaveQuality(ctx context.Context, signalID string, breakdown core.QualityBreakdown) error
}

// RecalculateAll rescores every signal from its current sources. One
// signal failing to load or save is logged and skipped; the batch
// always runs to completion and reports exact counts.
func (s *Scorer) RecalculateAll(ctx context.Context, store Store, engine *clustering.Engine) (updated, failed int, err error) {
	signals, err := store.ListSignals(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing signals for recalculation: %w", err)
	}

	cache := reputation.NewCache()
	defer cache.Clear()

	for _, signal := range signals {
		if ctx.Err() != nil {
			return updated, failed, ctx.Err()
		}

		sources, err := store.SourcesBySignal(ctx, signal.ID)
		if err != nil {
			logger.Error("loading sources for rescore failed", err, "signal_id", signal.ID)
			failed++
			continue
		}

		partition := engine.Cluster(sources)
		breakdown := s.Score(ctx, cache, signal, sources, partition)

		if err := store.SaveQuality(ctx, signal.ID, breakdown); err != nil {
			logger.Error("saving quality breakdown failed", err, "signal_id", signal.ID)
			failed++
			continue
		}
		updated++
	}

	logger.Info("quality recalculation complete", "updated", updated, "failed", failed)
	return updated, failed, nil
}
