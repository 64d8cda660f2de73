package rollup

import (
	"context"
	"log/slog"
	"time"

	"github.com/reportengine-lab/reportengine/internal/core/storage"
	"github.com/reportengine-lab/reportengine/internal/metrics"
)

// Refresher keeps the region daily rollup fresh by refreshing it on a
// periodic interval. It is stateless: each tick recomputes the whole rollup.
type Refresher struct {
	interval time.Duration
	admin    storage.RollupAdmin
}

// NewRefresher creates a periodic refresher for the region rollup.
func NewRefresher(interval time.Duration, admin storage.RollupAdmin) *Refresher {
	return &Refresher{interval: interval, admin: admin}
}

// Start begins periodic refreshing.
// Runs until context is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("[Rollup] Starting rollup refresher", "interval", r.interval)

	// Populate immediately so the fast path has data before the first tick.
	r.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-ctx.Done():
			slog.Info("[Rollup] Stopping refresher (context cancelled)")
			return nil
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now()
	if err := r.admin.RefreshRegionRollup(ctx); err != nil {
		slog.Error("[Rollup] Refresh failed", "error", err)
		return
	}
	elapsed := time.Since(start)
	metrics.RollupRefreshDuration.Observe(elapsed.Seconds())
	slog.Info("[Rollup] Refresh complete", "elapsed", elapsed)
}
