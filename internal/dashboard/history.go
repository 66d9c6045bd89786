package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/backend"
	"github.com/i474232898/air-quality-explorer/internal/common"
	"github.com/i474232898/air-quality-explorer/internal/daterange"
)

// TableDisplayLimit caps the rows rendered in the history table.
const TableDisplayLimit = 500

// Point is one chart sample.
type Point struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// TableRow is one formatted row of the history table.
type TableRow struct {
	Date  string `json:"date"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// HistoryView is the chart and table for a historical query.
type HistoryView struct {
	Title       string     `json:"title"`
	SeriesLabel string     `json:"seriesLabel"`
	ValueAxis   string     `json:"valueAxis"`
	TimeUnit    string     `json:"timeUnit"`
	Points      []Point    `json:"points"`
	Rows        []TableRow `json:"rows"`
	Total       int        `json:"total"`
	Truncated   bool       `json:"truncated"`
}

type sample struct {
	at   time.Time
	val  float64
	unit string
}

// cleanSeries drops measurements without a parseable timestamp or a value
// and sorts the rest oldest first.
func cleanSeries(ms []backend.Measurement) []sample {
	out := make([]sample, 0, len(ms))
	for _, m := range ms {
		if m.Value == nil {
			continue
		}
		ts, err := common.ParseTimestamp(m.DatetimeUTC)
		if err != nil {
			continue
		}
		out = append(out, sample{at: ts, val: *m.Value, unit: m.Unit})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].at.Before(out[j].at)
	})
	return out
}

// BuildHistory turns backend measurements into the chart and table view.
// It returns nil when no measurement is usable.
func BuildHistory(ms []backend.Measurement, g daterange.Granularity, sensorLabel string) *HistoryView {
	series := cleanSeries(ms)
	if len(series) == 0 {
		return nil
	}

	param := ParameterName(sensorLabel)
	unit := LabelUnit(sensorLabel)

	view := &HistoryView{
		Title:       fmt.Sprintf("%s | %s (%s)", param, g.Label(), unit),
		SeriesLabel: fmt.Sprintf("%s (%s)", param, unit),
		ValueAxis:   fmt.Sprintf("Value (%s)", unit),
		TimeUnit:    g.TimeUnit(),
		Points:      make([]Point, 0, len(series)),
		Total:       len(series),
		Truncated:   len(series) > TableDisplayLimit,
	}
	for _, s := range series {
		view.Points = append(view.Points, Point{Time: s.at, Value: s.val})
	}

	rows := series
	if len(rows) > TableDisplayLimit {
		rows = rows[:TableDisplayLimit]
	}
	view.Rows = make([]TableRow, 0, len(rows))
	for _, s := range rows {
		view.Rows = append(view.Rows, TableRow{
			Date:  s.at.Format("02-01-2006 15:04:05") + "Z",
			Value: fmt.Sprintf("%.2f", s.val),
			Unit:  common.FirstNonEmpty(s.unit, "N/A"),
		})
	}
	return view
}

// BuildLatest formats the latest-reading card.
func BuildLatest(readings []backend.LatestReading) *LatestView {
	if len(readings) == 0 {
		return &LatestView{Value: "N/A", Datetime: "Date (UTC): no recent data"}
	}

	r := readings[0]
	value := "N/A"
	if r.Value != nil {
		value = fmt.Sprintf("%.2f", *r.Value)
	}
	if r.Unit != "" {
		value += " " + r.Unit
	}

	when := "Date (UTC): unknown"
	if ts, err := common.ParseTimestamp(r.DatetimeUTC); err == nil {
		when = "Date (UTC): " + ts.Format("02-01-2006 15:04") + "Z"
	}

	return &LatestView{Available: true, Value: value, Datetime: when}
}
