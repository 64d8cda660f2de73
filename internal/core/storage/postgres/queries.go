package postgres

import (
	"fmt"
	"strings"

	"github.com/reportengine-lab/reportengine/internal/core/report"
)

// SQL for the report read paths. Totals are aggregated first, then
// keyset-filtered on the computed (amount, key) tuple. The cursor predicate
// runs over the grouped subquery, never over raw rows.

const (
	// queryRegionTotalsBase groups transaction sums by region name.
	// %s is the optional transaction-time filter.
	queryRegionTotalsBase = `SELECT r.name AS key, COUNT(*) AS count, SUM(t.amount)::numeric(12,2) AS amount
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		JOIN regions r ON r.id = u.region_id
		%s
		GROUP BY r.name`

	// queryUserTotalsBase groups by user. The id is selected as text so the
	// key tie-break is lexicographic, same as region names.
	queryUserTotalsBase = `SELECT u.id::text AS key, u.name AS name, COUNT(*) AS count, SUM(t.amount)::numeric(12,2) AS amount
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		%s
		GROUP BY u.id, u.name`

	// queryTotalsPage wraps a totals base query with the keyset filter,
	// ordering and page limit. Placeholders: base query, cursor filter
	// (may be empty), limit parameter index.
	queryTotalsPage = `SELECT * FROM (
		%s
	) s
	%s
	ORDER BY amount DESC, key ASC
	LIMIT $%d`

	// queryRegionDailySeries sums per calendar day, only counting
	// transactions attributable to a region.
	queryRegionDailySeries = `SELECT date_trunc('day', t.created_at) AS day, SUM(t.amount)::numeric(12,2) AS value
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		JOIN regions r ON r.id = u.region_id
		WHERE t.created_at >= $1 AND t.created_at <= $2
		GROUP BY day
		ORDER BY day`

	// queryUserDailySeries sums per calendar day over all transactions.
	queryUserDailySeries = `SELECT date_trunc('day', t.created_at) AS day, SUM(t.amount)::numeric(12,2) AS value
		FROM transactions t
		WHERE t.created_at >= $1 AND t.created_at <= $2
		GROUP BY day
		ORDER BY day`

	// queryTopRegionRollup reads the precomputed daily region rollup.
	queryTopRegionRollup = `SELECT r.region_name AS key, SUM(r.tx_count) AS count, SUM(r.total_amount)::numeric(12,2) AS amount
		FROM mv_region_daily r
		WHERE r.day >= $1 AND r.day <= $2
		GROUP BY r.region_name
		ORDER BY amount DESC, key ASC
		LIMIT $3`

	queryRefreshRegionRollup = `REFRESH MATERIALIZED VIEW mv_region_daily`

	queryRegionRollupExists = `SELECT to_regclass('public.mv_region_daily')`

	queryRegionRollupCount = `SELECT COUNT(*) FROM mv_region_daily`
)

// buildTotalsQuery assembles the paged totals statement for one request.
// Parameter order: window bounds, then the cursor tuple (amount reused for
// both branches of the keyset predicate), then the limit.
func buildTotalsQuery(
	groupBy report.GroupBy,
	window report.TimeWindow,
	after *report.Cursor,
	limit int,
) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if window.Start != nil {
		args = append(args, *window.Start)
		conds = append(conds, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if window.End != nil {
		args = append(args, *window.End)
		conds = append(conds, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	base := queryRegionTotalsBase
	if groupBy == report.GroupByUser {
		base = queryUserTotalsBase
	}
	base = fmt.Sprintf(base, where)

	filter := ""
	if after != nil {
		args = append(args, after.Amount)
		amountArg := len(args)
		args = append(args, after.Key)
		filter = fmt.Sprintf(
			"WHERE (amount < $%d OR (amount = $%d AND key > $%d))",
			amountArg, amountArg, amountArg+1,
		)
	}

	args = append(args, limit)
	return fmt.Sprintf(queryTotalsPage, base, filter, len(args)), args
}
