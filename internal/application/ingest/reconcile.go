package ingest

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/promokit/adserve/internal/application/ads"
	"github.com/promokit/adserve/internal/application/analytics"
)

// Reconciler is the corrective backstop for the increment-on-ingest protocol:
// it periodically rewrites every ad's counters from the non-suspicious event
// rows, repairing whatever drift lost increments left behind.
type Reconciler struct {
	events   EventRepo
	cache    Cache
	interval time.Duration
}

func NewReconciler(events EventRepo, cache Cache, interval time.Duration) *Reconciler {
	if interval == 0 {
		interval = time.Hour
	}
	return &Reconciler{events: events, cache: cache, interval: interval}
}

// Run blocks until ctx is done, reconciling on every tick.
func (r *Reconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.ReconcileAll(ctx); err != nil {
				zlog.Error().Err(err).Msg("counter reconciliation failed")
			}
		}
	}
}

func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	ids, err := r.events.ListAdIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.events.RecountAd(ctx, id); err != nil {
			zlog.Warn().Err(err).Str("ad_id", id).Msg("recount failed, continuing")
			continue
		}
		// Cached detail and rollups embed the old counters.
		r.cache.Forget(ctx, ads.DetailPrefix, id)
		r.cache.FlushPrefix(ctx, analytics.AdPrefix(id))
	}
	zlog.Info().Int("ads", len(ids)).Msg("counters reconciled")
	return nil
}
