package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/air-quality-explorer/internal/monitor"
)

var (
	// ErrNotFound is returned when no readings are stored for a watch.
	ErrNotFound = errors.New("no readings for sensor")
)

// ReadingHistory holds a time-ordered list of readings for one watch.
type ReadingHistory struct {
	Readings []monitor.Reading
}

// MemoryStore is a concurrency-safe in-memory reading store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: watch key, value: history
	data map[string]*ReadingHistory

	maxHistory int           // max readings per watch
	maxAge     time.Duration // max age of readings
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// A maxHistory or maxAge <= 0 means unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ReadingHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveReading appends a reading and enforces retention. Readings older
// than the newest stored one are inserted in order.
func (s *MemoryStore) SaveReading(w monitor.Watch, r monitor.Reading) {
	key := w.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ReadingHistory{}
		s.data[key] = history
	}

	i := len(history.Readings)
	for i > 0 && history.Readings[i-1].Timestamp.After(r.Timestamp) {
		i--
	}
	history.Readings = append(history.Readings, monitor.Reading{})
	copy(history.Readings[i+1:], history.Readings[i:])
	history.Readings[i] = r

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Readings) > s.maxHistory {
		over := len(history.Readings) - s.maxHistory
		history.Readings = history.Readings[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Readings); i++ {
			if !history.Readings[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.Readings = history.Readings[i:]
	}
}

// GetLatest returns the most recent reading for a watch.
func (s *MemoryStore) GetLatest(w monitor.Watch) (monitor.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[w.Key()]
	if !ok || len(history.Readings) == 0 {
		return monitor.Reading{}, ErrNotFound
	}
	return history.Readings[len(history.Readings)-1], nil
}

// GetRange returns all readings for a watch between from and to (inclusive).
func (s *MemoryStore) GetRange(w monitor.Watch, from, to time.Time) ([]monitor.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[w.Key()]
	if !ok || len(history.Readings) == 0 {
		return nil, ErrNotFound
	}

	var result []monitor.Reading
	for _, r := range history.Readings {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
