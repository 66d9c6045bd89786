package monitor

import (
	"context"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/backend"
)

// Source abstracts where latest readings come from (the backend client).
type Source interface {
	SensorLatest(ctx context.Context, locationID, sensorID int64) ([]backend.LatestReading, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveReading(w Watch, r Reading)
	GetLatest(w Watch) (Reading, error)
	GetRange(w Watch, from, to time.Time) ([]Reading, error)
}
