// Package monitor polls the latest reading of configured sensors and keeps
// their recent history.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/common"
)

// Service orchestrates polling watched sensors and persisting readings.
type Service struct {
	store   Store
	source  Source
	watches []Watch
	now     func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, source Source, watches []Watch) *Service {
	return &Service{
		store:   store,
		source:  source,
		watches: watches,
		now:     time.Now,
	}
}

// Watches returns the configured watches.
func (s *Service) Watches() []Watch {
	return s.watches
}

// PollAndStore fetches the latest reading for w and stores it unless it is
// already the newest stored reading.
func (s *Service) PollAndStore(ctx context.Context, w Watch) error {
	readings, err := s.source.SensorLatest(ctx, w.LocationID, w.SensorID)
	if err != nil {
		return fmt.Errorf("poll %s: %w", w.Key(), err)
	}
	if len(readings) == 0 || readings[0].Value == nil {
		// Nothing recent; keep the last good reading.
		log.Printf("INFO: no recent reading for %s", w.Key())
		return nil
	}

	latest := readings[0]
	ts, err := common.ParseTimestamp(latest.DatetimeUTC)
	if err != nil {
		return fmt.Errorf("poll %s: %w", w.Key(), err)
	}

	if prev, err := s.store.GetLatest(w); err == nil && !ts.After(prev.Timestamp) {
		return nil
	}

	s.store.SaveReading(w, Reading{
		Watch:      w,
		Timestamp:  ts,
		Value:      *latest.Value,
		Unit:       latest.Unit,
		SensorName: latest.SensorName,
		FetchedAt:  s.now().UTC(),
	})
	return nil
}

// PollAll polls every watch concurrently. Failures are logged; one failing
// sensor does not stop the others.
func (s *Service) PollAll(ctx context.Context) int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for _, w := range s.watches {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.PollAndStore(ctx, w); err != nil {
				log.Printf("ERROR: %v", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failed
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(w Watch) (Reading, error) {
	return s.store.GetLatest(w)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(w Watch, from, to time.Time) ([]Reading, error) {
	return s.store.GetRange(w, from, to)
}
