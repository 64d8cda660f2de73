package storage

import (
	"context"
	"errors"

	"github.com/reportengine-lab/reportengine/internal/core/report"
)

// ErrRollupUnavailable signals that the precomputed region rollup cannot be
// served at all (typically: the materialized view does not exist yet).
// It is distinct from an empty result so the caller can fall back to the
// live aggregation path instead of returning a misleading empty report.
var ErrRollupUnavailable = errors.New("region rollup unavailable")

// ReportStore is the live aggregation read path over the transaction store.
type ReportStore interface {
	// GroupTotals aggregates transactions in the window, grouped by the given
	// dimension, keyset-filtered past the cursor, ordered by amount DESC then
	// key ASC, capped at limit. Callers pass limit+1 to probe for a next page.
	GroupTotals(
		ctx context.Context,
		groupBy report.GroupBy,
		window report.TimeWindow,
		after *report.Cursor,
		limit int,
	) ([]report.GroupTotal, error)

	// DailyTotals sums amounts per calendar day over the window, ascending.
	// The region variant only counts transactions attributable to a region
	// (users joined to regions); the user variant scans transactions
	// directly. The asymmetry mirrors the totals queries.
	DailyTotals(
		ctx context.Context,
		groupBy report.GroupBy,
		window report.TimeWindow,
	) ([]report.SeriesPoint, error)
}

// RollupStore is the optional fast read path over the precomputed
// mv_region_daily rollup. It serves a single unpaginated top-N page.
type RollupStore interface {
	// TopRegionTotals returns the top-N region totals from the rollup.
	// Returns ErrRollupUnavailable when the rollup relation is missing.
	TopRegionTotals(
		ctx context.Context,
		window report.TimeWindow,
		limit int,
	) ([]report.GroupTotal, error)
}

// RollupStatus describes the current state of the region rollup.
type RollupStatus struct {
	Exists   bool
	RowCount int64
}

// RollupAdmin maintains the region rollup: the refresher and the admin API
// drive it through this interface.
type RollupAdmin interface {
	RefreshRegionRollup(ctx context.Context) error
	RegionRollupStatus(ctx context.Context) (RollupStatus, error)
}
