package usage

import (
	"sync"

	"github.com/google/uuid"
)

// CounterStore holds one Counter per company. Updates to a single company
// are serialized by that company's entry lock; companies never contend with
// each other except briefly on the map lock during lazy creation.
type CounterStore struct {
	clock Clock

	mu      sync.RWMutex
	entries map[uuid.UUID]*counterEntry
}

type counterEntry struct {
	mu      sync.Mutex
	counter Counter
}

// NewCounterStore creates an empty store. It is memory only and needs no teardown.
func NewCounterStore(clock Clock) *CounterStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CounterStore{
		clock:   clock,
		entries: make(map[uuid.UUID]*counterEntry),
	}
}

// entry returns the company's entry, creating it at most once.
func (s *CounterStore) entry(companyID uuid.UUID) *counterEntry {
	s.mu.RLock()
	e, ok := s.entries[companyID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[companyID]; ok {
		return e
	}
	e = &counterEntry{}
	s.entries[companyID] = e
	return e
}

// Get returns a copy of the stored counter (zeroed for unseen companies).
// The copy is not rolled over; use RolledOver for a read at a given instant.
func (s *CounterStore) Get(companyID uuid.UUID) Counter {
	e := s.entry(companyID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counter
}

// RecordConsumption rolls the windows over if needed, then records one
// request of the given token size unconditionally.
func (s *CounterStore) RecordConsumption(companyID uuid.UUID, tokens int64) Counter {
	c, _ := s.Consume(companyID, tokens, nil)
	return c
}

// Consume is the atomic check-then-increment unit. Under the company's lock it
// projects the rollover at the current time and passes the projection to
// allow. When allow is nil or returns true the request is committed and the
// updated counter returned; otherwise the stored counter is left untouched
// and the projection is returned.
func (s *CounterStore) Consume(companyID uuid.UUID, tokens int64, allow func(projected Counter) bool) (Counter, bool) {
	e := s.entry(companyID)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.clock.Now()
	projected := RolledOver(e.counter, now)
	if allow != nil && !allow(projected) {
		return projected, false
	}

	e.counter = withConsumption(projected, tokens, now)
	return e.counter, true
}

// Len returns the number of companies with a counter.
func (s *CounterStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
