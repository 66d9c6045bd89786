package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("dashboard session not found")

// Session owns the state of one dashboard. Events are applied one at a
// time; a slow backend call delays later events of the same session but
// never other sessions. Readers see the state as of the last completed
// event.
type Session struct {
	ID string

	dispatchMu sync.Mutex // serialises events

	mu    sync.RWMutex // guards state
	deps  Deps
	state State
}

// NewSession creates a session with an empty dashboard.
func NewSession(id string, deps Deps) *Session {
	return &Session{
		ID:    id,
		deps:  deps,
		state: NewState(),
	}
}

// Dispatch applies ev and returns the new state.
func (s *Session) Dispatch(ctx context.Context, ev Event) (State, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	next, err := Reduce(ctx, s.deps, s.State(), ev)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	if err != nil {
		log.Printf("INFO: session %s event %s failed: %v", s.ID, EventName(ev), err)
	}
	return next, err
}

// State returns the state after the last completed event. It does not wait
// for an event in progress.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Sessions keeps live dashboard sessions and expires idle ones.
type Sessions struct {
	items *cache.Cache
	ttl   time.Duration
	deps  Deps
}

// NewSessions creates a session registry. Sessions idle for longer than
// ttl are dropped.
func NewSessions(deps Deps, ttl time.Duration) *Sessions {
	return &Sessions{
		items: cache.New(ttl, ttl),
		ttl:   ttl,
		deps:  deps,
	}
}

// Create opens a session and loads the country list. The session is kept
// even if loading fails so the client can retry with LoadCountries.
func (m *Sessions) Create(ctx context.Context) (*Session, State, error) {
	s := NewSession(uuid.NewString(), m.deps)
	m.items.Set(s.ID, s, m.ttl)

	st, err := s.Dispatch(ctx, LoadCountries{})
	return s, st, err
}

// Get returns the session with id and extends its lifetime.
func (m *Sessions) Get(id string) (*Session, error) {
	v, ok := m.items.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*Session)
	m.items.Set(id, s, m.ttl)
	return s, nil
}

// Len is the number of live sessions.
func (m *Sessions) Len() int {
	return m.items.ItemCount()
}
