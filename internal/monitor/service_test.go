package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/backend"
	"github.com/i474232898/air-quality-explorer/internal/monitor"
	"github.com/i474232898/air-quality-explorer/internal/store"
)

type fakeSource struct {
	mu       sync.Mutex
	readings map[int64][]backend.LatestReading
	calls    int
}

func (f *fakeSource) SensorLatest(_ context.Context, _ int64, sensorID int64) ([]backend.LatestReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r, ok := f.readings[sensorID]
	if !ok {
		return nil, errors.New("sensor offline")
	}
	return r, nil
}

func f64(v float64) *float64 { return &v }

func TestPollAllStoresNewReadings(t *testing.T) {
	src := &fakeSource{readings: map[int64][]backend.LatestReading{
		1: {{DatetimeUTC: "2024-06-15T10:00:00Z", Value: f64(11), Unit: "ppm"}},
		2: {},
	}}
	watches := []monitor.Watch{{LocationID: 10, SensorID: 1}, {LocationID: 10, SensorID: 2}, {LocationID: 10, SensorID: 3}}
	svc := monitor.NewService(store.NewMemoryStore(10, 0), src, watches)

	if failed := svc.PollAll(context.Background()); failed != 1 {
		t.Fatalf("expected 1 failed watch, got %d", failed)
	}

	got, err := svc.GetLatest(watches[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != 11 || got.Unit != "ppm" || !got.Timestamp.Equal(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected reading %+v", got)
	}
	if _, err := svc.GetLatest(watches[1]); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no reading for empty sensor, got %v", err)
	}
}

func TestPollAndStoreSkipsDuplicates(t *testing.T) {
	src := &fakeSource{readings: map[int64][]backend.LatestReading{
		1: {{DatetimeUTC: "2024-06-15T10:00:00Z", Value: f64(11)}},
	}}
	w := monitor.Watch{LocationID: 10, SensorID: 1}
	svc := monitor.NewService(store.NewMemoryStore(10, 0), src, []monitor.Watch{w})

	for i := 0; i < 3; i++ {
		if err := svc.PollAndStore(context.Background(), w); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, err := svc.GetRange(w, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC))
	if err != nil || len(got) != 1 {
		t.Fatalf("expected a single stored reading, got %d (%v)", len(got), err)
	}
}

func TestParseWatch(t *testing.T) {
	w, err := monitor.ParseWatch(" 8118:3917 ")
	if err != nil || w.LocationID != 8118 || w.SensorID != 3917 || w.Key() != "8118:3917" {
		t.Fatalf("unexpected watch %+v (%v)", w, err)
	}
	for _, bad := range []string{"", "8118", "a:1", "1:-2"} {
		if _, err := monitor.ParseWatch(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
