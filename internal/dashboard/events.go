package dashboard

import (
	"time"

	"github.com/i474232898/air-quality-explorer/internal/daterange"
)

// Event is a user action on the dashboard. Each concrete type below is
// handled by exactly one reducer in handlers.go.
type Event interface {
	eventName() string
}

// LoadCountries populates the country selector.
type LoadCountries struct{}

// SelectCountry picks a country and loads its stations.
type SelectCountry struct {
	Code string
}

// SelectStation picks a station and loads its sensors.
type SelectStation struct {
	StationID int64
}

// SelectSensor picks a sensor, derives the default window and loads the
// latest reading.
type SelectSensor struct {
	ParameterID int64
	SensorID    int64
}

// ChangeGranularity switches the history aggregation and re-derives the
// window.
type ChangeGranularity struct {
	Granularity daterange.Granularity
}

// ChangeStartDate moves the window start.
type ChangeStartDate struct {
	Date time.Time
}

// ChangeEndDate sets the user's end date and re-derives the window.
type ChangeEndDate struct {
	Date time.Time
}

// RequestLatest reloads the latest reading of the selected sensor.
type RequestLatest struct{}

// RequestHistory loads the historical series for the current window.
type RequestHistory struct{}

func (LoadCountries) eventName() string     { return "load_countries" }
func (SelectCountry) eventName() string     { return "select_country" }
func (SelectStation) eventName() string     { return "select_station" }
func (SelectSensor) eventName() string      { return "select_sensor" }
func (ChangeGranularity) eventName() string { return "change_granularity" }
func (ChangeStartDate) eventName() string   { return "change_start_date" }
func (ChangeEndDate) eventName() string     { return "change_end_date" }
func (RequestLatest) eventName() string     { return "request_latest" }
func (RequestHistory) eventName() string    { return "request_history" }

// EventName returns the wire name of ev.
func EventName(ev Event) string {
	return ev.eventName()
}
