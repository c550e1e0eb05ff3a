package usage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// BytesStore tracks cumulative stored bytes per company.
//
// Implementations:
//   - MemoryBytesStore: per-company mutex, for development and tests
//   - PostgresBytesStore: single conditional UPDATE per reservation
type BytesStore interface {
	// BytesUsed returns the company's current total (0 if never written).
	BytesUsed(ctx context.Context, companyID uuid.UUID) (int64, error)

	// Reserve adds n bytes if used+n <= limit, atomically. It returns the
	// total after the call and whether the reservation was accepted. A
	// rejected reservation leaves the total unchanged.
	Reserve(ctx context.Context, companyID uuid.UUID, n, limit int64) (int64, bool, error)

	// Release subtracts n bytes (floored at zero). Used to undo a reservation
	// whose object write failed.
	Release(ctx context.Context, companyID uuid.UUID, n int64) error
}

// MemoryBytesStore is an in-memory BytesStore.
type MemoryBytesStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*bytesEntry
}

type bytesEntry struct {
	mu   sync.Mutex
	used int64
}

// NewMemoryBytesStore creates an empty in-memory store.
func NewMemoryBytesStore() *MemoryBytesStore {
	return &MemoryBytesStore{entries: make(map[uuid.UUID]*bytesEntry)}
}

func (m *MemoryBytesStore) entry(companyID uuid.UUID) *bytesEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[companyID]
	if !ok {
		e = &bytesEntry{}
		m.entries[companyID] = e
	}
	return e
}

func (m *MemoryBytesStore) BytesUsed(ctx context.Context, companyID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e := m.entry(companyID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.used, nil
}

func (m *MemoryBytesStore) Reserve(ctx context.Context, companyID uuid.UUID, n, limit int64) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	e := m.entry(companyID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if n > limit-e.used {
		return e.used, false, nil
	}
	e.used += n
	return e.used, true, nil
}

func (m *MemoryBytesStore) Release(ctx context.Context, companyID uuid.UUID, n int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := m.entry(companyID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.used -= n
	if e.used < 0 {
		e.used = 0
	}
	return nil
}

var _ BytesStore = (*MemoryBytesStore)(nil)
