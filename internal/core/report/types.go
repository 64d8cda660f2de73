package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GroupBy selects the dimension transaction totals are grouped on.
type GroupBy string

const (
	GroupByRegion GroupBy = "region"
	GroupByUser   GroupBy = "user"
)

// ParseGroupBy normalizes the groupBy query parameter.
// An empty value falls back to region, the historical default.
func ParseGroupBy(s string) (GroupBy, error) {
	switch s {
	case "":
		return GroupByRegion, nil
	case string(GroupByRegion):
		return GroupByRegion, nil
	case string(GroupByUser):
		return GroupByUser, nil
	default:
		return "", fmt.Errorf("invalid groupBy, allowed: region,user")
	}
}

// TimeWindow bounds a transaction-time filter. A nil bound means unbounded
// on that side; totals queries without explicit dates run over all time.
type TimeWindow struct {
	Start *time.Time
	End   *time.Time
}

// GroupTotal is one ranked row of the aggregate report: the grouping key
// (region name, or user id as text), the row count and the summed amount.
// Name is only populated for user grouping.
type GroupTotal struct {
	Key    string
	Name   string
	Count  int64
	Amount decimal.Decimal
}

// MarshalJSON emits amount as a bare JSON number, matching the wire contract
// consumed by the dashboard. decimal's default marshaling would quote it.
func (t GroupTotal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key    string          `json:"key"`
		Name   string          `json:"name,omitempty"`
		Count  int64           `json:"count"`
		Amount json.RawMessage `json:"amount"`
	}{
		Key:    t.Key,
		Name:   t.Name,
		Count:  t.Count,
		Amount: json.RawMessage(t.Amount.String()),
	})
}

// SeriesPoint is one day of the time-series rollup. Date is a calendar day
// formatted as YYYY-MM-DD.
type SeriesPoint struct {
	Date  string
	Value decimal.Decimal
}

func (p SeriesPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string          `json:"date"`
		Value json.RawMessage `json:"value"`
	}{
		Date:  p.Date,
		Value: json.RawMessage(p.Value.String()),
	})
}

// Less is the total order every report page is sorted by: amount descending,
// then key ascending. The key tie-break keeps pagination deterministic when
// several groups share a summed amount.
func Less(a, b GroupTotal) bool {
	if !a.Amount.Equal(b.Amount) {
		return a.Amount.GreaterThan(b.Amount)
	}
	return a.Key < b.Key
}
