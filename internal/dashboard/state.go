// Package dashboard holds the UI-side logic of the air-quality explorer:
// an explicit per-session state and the reducers that apply user events
// to it.
package dashboard

import (
	"context"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/backend"
	"github.com/i474232898/air-quality-explorer/internal/daterange"
)

// Backend is the subset of the backend client the dashboard needs.
type Backend interface {
	Countries(ctx context.Context) ([]backend.Country, error)
	Stations(ctx context.Context, countryCode string) ([]backend.Station, error)
	Sensors(ctx context.Context, stationID int64) ([]backend.Sensor, error)
	LatestDate(ctx context.Context, locationID, parameterID int64) (time.Time, error)
	SensorLatest(ctx context.Context, locationID, sensorID int64) ([]backend.LatestReading, error)
	Measurements(ctx context.Context, q backend.MeasurementQuery) ([]backend.Measurement, error)
}

// StationOption is an entry of the station selector.
type StationOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// SensorOption is an entry of the sensor selector.
type SensorOption struct {
	ParameterID int64  `json:"parameterId"`
	SensorID    int64  `json:"sensorId"`
	Label       string `json:"label"`
}

// LatestView is the "latest reading" card.
type LatestView struct {
	Available bool   `json:"available"`
	Value     string `json:"value"`
	Datetime  string `json:"datetime"`
}

// State is everything one dashboard session shows. Reducers never mutate
// a State in place; they return a new one.
type State struct {
	Countries   []backend.Country `json:"countries"`
	CountryCode string            `json:"countryCode,omitempty"`

	Stations  []StationOption `json:"stations"`
	StationID int64           `json:"stationId,omitempty"`

	Sensors []SensorOption `json:"sensors"`
	Sensor  *SensorOption  `json:"sensor,omitempty"`

	Granularity daterange.Granularity `json:"granularity"`

	// LatestKnown is the newest date the backend has data for; when the
	// lookup failed it is the time of selection and LatestFallback is set.
	LatestKnown    *time.Time        `json:"latestKnown,omitempty"`
	LatestFallback bool              `json:"latestFallback,omitempty"`
	UserEnd        *time.Time        `json:"userEnd,omitempty"`
	Window         *daterange.Window `json:"window,omitempty"`

	Latest  *LatestView  `json:"latest,omitempty"`
	History *HistoryView `json:"history,omitempty"`

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewState returns the state of a freshly opened dashboard.
func NewState() State {
	return State{
		Granularity: daterange.Raw,
		Status:      "Loading countries...",
	}
}

func (s State) resetStation() State {
	s.Stations = nil
	s.StationID = 0
	return s.resetSensor()
}

func (s State) resetSensor() State {
	s.Sensors = nil
	s.Sensor = nil
	s.LatestKnown = nil
	s.LatestFallback = false
	s.UserEnd = nil
	s.Window = nil
	s.Latest = nil
	s.History = nil
	return s
}
