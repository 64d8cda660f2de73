package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/reportengine-lab/reportengine/internal/core/report"
	"github.com/reportengine-lab/reportengine/internal/core/storage"
	"github.com/shopspring/decimal"
)

// pqUndefinedTable is the PostgreSQL error code raised when the materialized
// view has never been created.
const pqUndefinedTable = "42P01"

// RollupAdapter implements storage.RollupStore and storage.RollupAdmin over
// the mv_region_daily materialized view.
type RollupAdapter struct {
	db *sql.DB
}

// NewRollupAdapter creates a rollup adapter sharing the given connection.
func NewRollupAdapter(db *sql.DB) *RollupAdapter {
	return &RollupAdapter{db: db}
}

// TopRegionTotals reads the top-N region totals from the rollup.
// A missing view maps to storage.ErrRollupUnavailable so the report service
// can fall back to the live aggregation path.
func (a *RollupAdapter) TopRegionTotals(
	ctx context.Context,
	window report.TimeWindow,
	limit int,
) ([]report.GroupTotal, error) {
	if window.Start == nil || window.End == nil {
		return nil, fmt.Errorf("rollup totals require a bounded window")
	}

	rows, err := a.db.QueryContext(ctx, queryTopRegionRollup, *window.Start, *window.End, limit)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, storage.ErrRollupUnavailable
		}
		return nil, fmt.Errorf("query region rollup: %w", err)
	}
	defer rows.Close()

	var totals []report.GroupTotal
	for rows.Next() {
		var (
			row       report.GroupTotal
			amountStr string
		)
		if err := rows.Scan(&row.Key, &row.Count, &amountStr); err != nil {
			return nil, fmt.Errorf("scan rollup total: %w", err)
		}

		amount, parseErr := decimal.NewFromString(amountStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amountStr, parseErr)
		}
		row.Amount = amount
		totals = append(totals, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup totals: %w", err)
	}
	return totals, nil
}

// RefreshRegionRollup repopulates the materialized view.
func (a *RollupAdapter) RefreshRegionRollup(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, queryRefreshRegionRollup); err != nil {
		if isUndefinedTable(err) {
			return storage.ErrRollupUnavailable
		}
		return fmt.Errorf("refresh region rollup: %w", err)
	}
	slog.Info("[Rollup] Materialized view refreshed")
	return nil
}

// RegionRollupStatus reports whether the view exists and, if so, its row count.
func (a *RollupAdapter) RegionRollupStatus(ctx context.Context) (storage.RollupStatus, error) {
	var name sql.NullString
	if err := a.db.QueryRowContext(ctx, queryRegionRollupExists).Scan(&name); err != nil {
		return storage.RollupStatus{}, fmt.Errorf("check region rollup: %w", err)
	}
	if !name.Valid {
		return storage.RollupStatus{Exists: false}, nil
	}

	var count int64
	if err := a.db.QueryRowContext(ctx, queryRegionRollupCount).Scan(&count); err != nil {
		return storage.RollupStatus{}, fmt.Errorf("count region rollup rows: %w", err)
	}
	return storage.RollupStatus{Exists: true, RowCount: count}, nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable
}
