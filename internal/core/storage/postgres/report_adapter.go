package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/reportengine-lab/reportengine/internal/core/report"
	"github.com/shopspring/decimal"
)

// ReportAdapter implements storage.ReportStore for PostgreSQL.
// Statements are built per request: the filter shape depends on which window
// bounds and cursor are present, so there is nothing useful to prepare.
type ReportAdapter struct {
	db *sql.DB
}

// NewReportAdapter creates a report adapter sharing the given connection.
func NewReportAdapter(db *sql.DB) *ReportAdapter {
	return &ReportAdapter{db: db}
}

// GroupTotals aggregates, keyset-filters and pages transaction totals.
func (a *ReportAdapter) GroupTotals(
	ctx context.Context,
	groupBy report.GroupBy,
	window report.TimeWindow,
	after *report.Cursor,
	limit int,
) ([]report.GroupTotal, error) {
	query, args := buildTotalsQuery(groupBy, window, after, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query group totals: %w", err)
	}
	defer rows.Close()

	var totals []report.GroupTotal
	for rows.Next() {
		var (
			row       report.GroupTotal
			amountStr string
		)
		if groupBy == report.GroupByUser {
			err = rows.Scan(&row.Key, &row.Name, &row.Count, &amountStr)
		} else {
			err = rows.Scan(&row.Key, &row.Count, &amountStr)
		}
		if err != nil {
			return nil, fmt.Errorf("scan group total: %w", err)
		}

		amount, parseErr := decimal.NewFromString(amountStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amountStr, parseErr)
		}
		row.Amount = amount
		totals = append(totals, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group totals: %w", err)
	}
	return totals, nil
}

// DailyTotals sums amounts per calendar day over the window.
func (a *ReportAdapter) DailyTotals(
	ctx context.Context,
	groupBy report.GroupBy,
	window report.TimeWindow,
) ([]report.SeriesPoint, error) {
	if window.Start == nil || window.End == nil {
		return nil, fmt.Errorf("daily totals require a bounded window")
	}

	query := queryRegionDailySeries
	if groupBy == report.GroupByUser {
		query = queryUserDailySeries
	}

	rows, err := a.db.QueryContext(ctx, query, *window.Start, *window.End)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var points []report.SeriesPoint
	for rows.Next() {
		var (
			day      time.Time
			valueStr string
		)
		if err := rows.Scan(&day, &valueStr); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}

		value, parseErr := decimal.NewFromString(valueStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse value %q: %w", valueStr, parseErr)
		}
		points = append(points, report.SeriesPoint{
			Date:  day.UTC().Format("2006-01-02"),
			Value: value,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}
	return points, nil
}
