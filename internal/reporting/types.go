package reporting

import (
	"github.com/reportengine-lab/reportengine/internal/core/report"
)

// SummaryRequest carries the raw query parameters of one summary request.
// Validation and normalization happen in the service, not the handler.
type SummaryRequest struct {
	Start   string
	End     string
	GroupBy string
	Limit   string
	Cursor  string
}

// SummaryMeta echoes the effective request parameters plus the pagination
// state. Start/End reflect what the client sent (null when absent);
// CurrentCursor is the consumed cursor re-encoded, NextCursor the position
// to resume from, null on the last page.
type SummaryMeta struct {
	Start         *string        `json:"start"`
	End           *string        `json:"end"`
	GroupBy       report.GroupBy `json:"groupBy"`
	Limit         int            `json:"limit"`
	CurrentCursor *string        `json:"currentCursor"`
	NextCursor    *string        `json:"nextCursor"`
	HasNext       bool           `json:"hasNext"`
}

// SummaryResponse is one page of ranked totals plus the independent daily
// time-series rollup.
type SummaryResponse struct {
	Meta       SummaryMeta          `json:"meta"`
	Totals     []report.GroupTotal  `json:"totals"`
	Timeseries []report.SeriesPoint `json:"timeseries"`
}
