package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/monitor"
)

var watch = monitor.Watch{LocationID: 10, SensorID: 100}

func reading(ts time.Time, v float64) monitor.Reading {
	return monitor.Reading{Watch: watch, Timestamp: ts, Value: v}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s.SaveReading(watch, reading(base.Add(time.Duration(i)*time.Hour), float64(i)))
	}

	got, err := s.GetRange(watch, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Value != 1 || got[1].Value != 2 {
		t.Fatalf("unexpected readings %+v", got)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.SaveReading(watch, reading(now.Add(-3*time.Hour), 1))
	s.SaveReading(watch, reading(now.Add(-30*time.Minute), 2))

	got, err := s.GetRange(watch, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Value != 2 {
		t.Fatalf("expected only the recent reading, got %+v", got)
	}

	s.SaveReading(watch, reading(now.Add(-5*time.Hour), 3))
	if latest, _ := s.GetLatest(watch); latest.Value != 2 {
		t.Fatalf("expired reading must not become latest, got %+v", latest)
	}
}

func TestMemoryStoreKeepsOrder(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	s.SaveReading(watch, reading(base.Add(2*time.Hour), 2))
	s.SaveReading(watch, reading(base, 0))
	s.SaveReading(watch, reading(base.Add(time.Hour), 1))

	latest, err := s.GetLatest(watch)
	if err != nil || latest.Value != 2 {
		t.Fatalf("unexpected latest %+v (%v)", latest, err)
	}
	got, _ := s.GetRange(watch, base, base.Add(2*time.Hour))
	for i, r := range got {
		if r.Value != float64(i) {
			t.Fatalf("readings out of order: %+v", got)
		}
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore(10, time.Hour)
	if _, err := s.GetLatest(watch); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	base := time.Now().UTC()
	s.SaveReading(watch, reading(base, 1))
	if _, err := s.GetRange(watch, base.Add(time.Hour), base.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty range, got %v", err)
	}
}
