package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/reportengine-lab/reportengine/internal/core/report"
	"github.com/reportengine-lab/reportengine/internal/core/storage"
	"github.com/reportengine-lab/reportengine/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// seriesLookback is the default time-series window when the client sends no
// dates. Totals deliberately do NOT share this default: without explicit
// bounds they run over all time while the series shows the trailing 30 days.
// The asymmetry is a product decision inherited from the dashboard this
// service was built for; do not "fix" it by unifying the two windows.
const seriesLookback = 30 * 24 * time.Hour

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid report query")

// Options tunes the report service.
type Options struct {
	// DefaultLimit is the page size when the client sends none.
	DefaultLimit int
	// MaxLimit caps the page size; larger requests are clamped.
	MaxLimit int
	// UseRollup enables the precomputed region fast path.
	UseRollup bool
}

func (o Options) normalized() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 100
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 1000
	}
	return o
}

// Service produces summary report pages. It is stateless: every request is a
// pure function of its parameters and the underlying data.
type Service struct {
	store  storage.ReportStore
	rollup storage.RollupStore
	opts   Options
	nowFn  func() time.Time
}

// NewService creates the report service. rollup may be nil when no fast path
// is deployed.
func NewService(store storage.ReportStore, rollup storage.RollupStore, opts Options) *Service {
	return &Service{
		store:  store,
		rollup: rollup,
		opts:   opts.normalized(),
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// summaryQuery is a fully validated request.
type summaryQuery struct {
	groupBy      report.GroupBy
	totalsWindow report.TimeWindow
	seriesWindow report.TimeWindow
	limit        int
	cursor       *report.Cursor
	rawStart     string
	rawEnd       string
}

// Summary computes one page of ranked totals plus the daily series.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	q, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}

	var (
		totals []report.GroupTotal
		next   *report.Cursor
		series []report.SeriesPoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var loadErr error
		totals, next, loadErr = s.loadTotals(gctx, q)
		return loadErr
	})
	g.Go(func() error {
		var loadErr error
		series, loadErr = s.store.DailyTotals(gctx, q.groupBy, q.seriesWindow)
		return loadErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if totals == nil {
		totals = []report.GroupTotal{}
	}
	if series == nil {
		series = []report.SeriesPoint{}
	}

	meta := SummaryMeta{
		GroupBy: q.groupBy,
		Limit:   q.limit,
		HasNext: next != nil,
	}
	if q.rawStart != "" {
		meta.Start = &q.rawStart
	}
	if q.rawEnd != "" {
		meta.End = &q.rawEnd
	}
	if q.cursor != nil {
		current := q.cursor.Encode()
		meta.CurrentCursor = &current
	}
	if next != nil {
		token := next.Encode()
		meta.NextCursor = &token
	}

	return &SummaryResponse{Meta: meta, Totals: totals, Timeseries: series}, nil
}

// loadTotals serves the totals page, preferring the rollup fast path when it
// applies. The fast path never paginates: it returns a single top-N page with
// no next cursor, and falls back transparently to live aggregation whenever
// the rollup errors or holds no rows.
func (s *Service) loadTotals(ctx context.Context, q summaryQuery) ([]report.GroupTotal, *report.Cursor, error) {
	if s.opts.UseRollup && s.rollup != nil && q.groupBy == report.GroupByRegion {
		rows, err := s.rollup.TopRegionTotals(ctx, q.seriesWindow, q.limit)
		switch {
		case errors.Is(err, storage.ErrRollupUnavailable):
			metrics.RollupFallbacks.WithLabelValues("unavailable").Inc()
			slog.Debug("[Reporting] Rollup unavailable, using live aggregation")
		case err != nil:
			metrics.RollupFallbacks.WithLabelValues("error").Inc()
			slog.Warn("[Reporting] Rollup read failed, using live aggregation", "error", err)
		case len(rows) == 0:
			metrics.RollupFallbacks.WithLabelValues("empty").Inc()
		default:
			return rows, nil, nil
		}
	}

	// Probe one row past the page so hasNext reflects the actual presence of
	// a following row, not just a full page.
	rows, err := s.store.GroupTotals(ctx, q.groupBy, q.totalsWindow, q.cursor, q.limit+1)
	if err != nil {
		return nil, nil, fmt.Errorf("query group totals: %w", err)
	}

	if len(rows) <= q.limit {
		return rows, nil, nil
	}
	page := rows[:q.limit]
	last := page[len(page)-1]
	return page, &report.Cursor{Amount: last.Amount, Key: last.Key}, nil
}

func (s *Service) parseRequest(req SummaryRequest) (summaryQuery, error) {
	var q summaryQuery

	start, err := parseDate(req.Start)
	if err != nil {
		return q, invalidQueryf("invalid start date")
	}
	end, err := parseDate(req.End)
	if err != nil {
		return q, invalidQueryf("invalid end date")
	}

	groupBy, err := report.ParseGroupBy(req.GroupBy)
	if err != nil {
		return q, invalidQueryf("%s", err.Error())
	}

	limit := s.opts.DefaultLimit
	if req.Limit != "" {
		limit, err = strconv.Atoi(req.Limit)
		if err != nil {
			return q, invalidQueryf("invalid limit")
		}
		if limit <= 0 {
			return q, invalidQueryf("limit must be > 0")
		}
		if limit > s.opts.MaxLimit {
			limit = s.opts.MaxLimit
		}
	}

	cursor, err := report.DecodeCursor(req.Cursor)
	if err != nil {
		return q, invalidQueryf("invalid cursor")
	}

	now := s.nowFn()
	seriesStart := now.Add(-seriesLookback)
	seriesEnd := now
	if start != nil {
		seriesStart = *start
	}
	if end != nil {
		seriesEnd = *end
	}

	return summaryQuery{
		groupBy:      groupBy,
		totalsWindow: report.TimeWindow{Start: start, End: end},
		seriesWindow: report.TimeWindow{Start: &seriesStart, End: &seriesEnd},
		limit:        limit,
		cursor:       cursor,
		rawStart:     req.Start,
		rawEnd:       req.End,
	}, nil
}

// parseDate accepts plain calendar dates and RFC 3339 timestamps.
// An empty value means "no bound" and returns nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("unparseable date %q", s)
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
