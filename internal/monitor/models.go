package monitor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Watch identifies a sensor whose latest reading is polled periodically.
type Watch struct {
	LocationID int64 `json:"locationId"`
	SensorID   int64 `json:"sensorId"`
}

// Key returns a canonical string key for indexing this watch in stores.
func (w Watch) Key() string {
	return strconv.FormatInt(w.LocationID, 10) + ":" + strconv.FormatInt(w.SensorID, 10)
}

// ParseWatch parses "location:sensor".
func ParseWatch(s string) (Watch, error) {
	loc, sensor, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Watch{}, fmt.Errorf("watch %q: expected location:sensor", s)
	}
	l, err := strconv.ParseInt(loc, 10, 64)
	if err != nil || l <= 0 {
		return Watch{}, fmt.Errorf("watch %q: invalid location id", s)
	}
	sid, err := strconv.ParseInt(sensor, 10, 64)
	if err != nil || sid <= 0 {
		return Watch{}, fmt.Errorf("watch %q: invalid sensor id", s)
	}
	return Watch{LocationID: l, SensorID: sid}, nil
}

// Reading is one stored observation of a watched sensor.
type Reading struct {
	Watch      Watch     `json:"watch"`
	Timestamp  time.Time `json:"timestamp"` // always UTC
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	SensorName string    `json:"sensorName,omitempty"`
	FetchedAt  time.Time `json:"fetchedAt"`
}
