package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/reportengine-lab/reportengine/internal/core/report"
	"github.com/reportengine-lab/reportengine/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestRollupAdapter_TopRegionTotals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM mv_region_daily r")).
		WithArgs(start, end, 10).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count", "amount"}).
			AddRow("North", int64(120), "9500.00").
			AddRow("South", int64(80), "7200.50"))

	totals, err := adapter.TopRegionTotals(
		context.Background(),
		report.TimeWindow{Start: &start, End: &end},
		10,
	)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	require.Equal(t, "North", totals[0].Key)
	require.Equal(t, int64(120), totals[0].Count)
	require.Equal(t, "9500", totals[0].Amount.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_TopRegionTotals_MissingViewMapsToUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM mv_region_daily r")).
		WithArgs(start, end, 10).
		WillReturnError(&pq.Error{Code: pqUndefinedTable})

	_, err = adapter.TopRegionTotals(
		context.Background(),
		report.TimeWindow{Start: &start, End: &end},
		10,
	)
	require.ErrorIs(t, err, storage.ErrRollupUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_RefreshRegionRollup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	mock.ExpectExec(regexp.QuoteMeta("REFRESH MATERIALIZED VIEW mv_region_daily")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.RefreshRegionRollup(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_RefreshRegionRollup_MissingView(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	mock.ExpectExec(regexp.QuoteMeta("REFRESH MATERIALIZED VIEW mv_region_daily")).
		WillReturnError(&pq.Error{Code: pqUndefinedTable})

	err = adapter.RefreshRegionRollup(context.Background())
	require.ErrorIs(t, err, storage.ErrRollupUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_RegionRollupStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass('public.mv_region_daily')")).
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow("mv_region_daily"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM mv_region_daily")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	status, err := adapter.RegionRollupStatus(context.Background())
	require.NoError(t, err)
	require.True(t, status.Exists)
	require.Equal(t, int64(42), status.RowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_RegionRollupStatus_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass('public.mv_region_daily')")).
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow(nil))

	status, err := adapter.RegionRollupStatus(context.Background())
	require.NoError(t, err)
	require.False(t, status.Exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
