// Package daterange derives the default query window shown in the
// dashboard's date pickers from the latest date a sensor has data for.
package daterange

import (
	"strings"
	"time"
)

// Granularity is the temporal bucketing of a historical query. Values are
// the aggregation names the backend's measurements endpoint understands.
type Granularity string

const (
	Raw     Granularity = "raw"
	Hourly  Granularity = "hours"
	Daily   Granularity = "days"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// ParseGranularity normalises user input. "hourly" and "daily" are
// accepted as aliases; anything unrecognised is kept as-is and falls back
// to the default lookback.
func ParseGranularity(s string) Granularity {
	switch g := strings.ToLower(strings.TrimSpace(s)); g {
	case "", "raw":
		return Raw
	case "hours", "hourly", "hour":
		return Hourly
	case "days", "daily", "day":
		return Daily
	case "monthly", "month", "months":
		return Monthly
	case "yearly", "year", "years":
		return Yearly
	default:
		return Granularity(g)
	}
}

// Known reports whether g is one of the enumerated granularities.
func (g Granularity) Known() bool {
	switch g {
	case Raw, Hourly, Daily, Monthly, Yearly:
		return true
	}
	return false
}

// Lookback is a calendar offset subtracted from the window end.
type Lookback struct {
	Years  int
	Months int
	Days   int
}

// Lookback returns how far before the end date the default window starts.
func (g Granularity) Lookback() Lookback {
	switch g {
	case Raw, Hourly:
		return Lookback{Days: 3}
	case Daily:
		return Lookback{Months: 1}
	case Monthly:
		return Lookback{Years: 1}
	case Yearly:
		return Lookback{Years: 10}
	default:
		return Lookback{Months: 1}
	}
}

// TimeUnit is the chart axis unit for the granularity.
func (g Granularity) TimeUnit() string {
	switch g {
	case Raw, Hourly:
		return "hour"
	case Daily:
		return "day"
	case Monthly:
		return "month"
	case Yearly:
		return "year"
	default:
		return "day"
	}
}

// Label is the display name used in chart titles.
func (g Granularity) Label() string {
	switch g {
	case Raw:
		return "Raw"
	case Hourly:
		return "Hourly"
	case Daily:
		return "Daily"
	case Monthly:
		return "Monthly"
	case Yearly:
		return "Yearly"
	default:
		return string(g)
	}
}

// RowLimit is the row cap sent with history queries; zero means none.
func (g Granularity) RowLimit() int {
	if g == Raw || g == Hourly {
		return 1000
	}
	return 0
}

// Window is an inclusive range of UTC calendar dates. Start <= End.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Derive computes the default window for a granularity. The end is the
// user's chosen end date when it does not exceed latestKnown, otherwise
// latestKnown itself; the start is the end minus the granularity's
// lookback. Derive is pure.
func Derive(latestKnown time.Time, g Granularity, userEnd *time.Time) Window {
	end := DateOf(latestKnown)
	if userEnd != nil {
		if u := DateOf(*userEnd); !u.After(end) {
			end = u
		}
	}
	return Window{
		Start: subtract(end, g.Lookback()),
		End:   end,
	}
}

// QueryBounds returns the first instant of Start and the last instant of
// End, formatted for the backend's date_from/date_to parameters.
func (w Window) QueryBounds() (from, to string) {
	last := w.End.AddDate(0, 0, 1).Add(-time.Millisecond)
	return w.Start.Format(queryLayout), last.Format(queryLayout)
}

const (
	queryLayout = "2006-01-02T15:04:05.000Z07:00"

	// DateLayout is the format of date picker values.
	DateLayout = "2006-01-02"
)

// ParseDate parses a date picker value as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// DateOf truncates t to midnight of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// subtract moves d back by lb. Month and year steps clamp to the last day
// of the target month instead of overflowing into the next one.
func subtract(d time.Time, lb Lookback) time.Time {
	months := lb.Years*12 + lb.Months
	if months != 0 {
		d = addMonthsClamped(d, -months)
	}
	if lb.Days != 0 {
		d = d.AddDate(0, 0, -lb.Days)
	}
	return d
}

func addMonthsClamped(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
