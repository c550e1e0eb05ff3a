package company

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory company store for development and tests.
// Each write holds the store lock for its whole read-modify-write, which gives
// the same single-row atomicity the Postgres UPDATE statements provide.
type MemoryStore struct {
	mu        sync.RWMutex
	companies map[uuid.UUID]*domain.Company
}

// NewMemoryStore creates a new in-memory company store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		companies: make(map[uuid.UUID]*domain.Company),
	}
}

func (m *MemoryStore) Create(_ context.Context, c *domain.Company) error {
	const op = "company.create"

	if err := c.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.companies[c.ID]; exists {
		return domain.Errorf(domain.ECONFLICT, op, "company %q already exists", c.ID)
	}
	m.companies[c.ID] = cloneCompany(c)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, domain.TenantNotFound("company.get", id.String())
	}
	return cloneCompany(c), nil
}

func (m *MemoryStore) ListExpired(_ context.Context, now time.Time) ([]domain.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []domain.Company
	for _, c := range m.companies {
		if c.IsActive && c.IsExpired(now) {
			expired = append(expired, *cloneCompany(c))
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].SubscriptionExpiry.Before(*expired[j].SubscriptionExpiry)
	})
	return expired, nil
}

func (m *MemoryStore) DowngradeExpired(_ context.Context, id uuid.UUID, now time.Time, deactivate bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.companies[id]
	if !ok {
		return false, domain.TenantNotFound("company.downgrade_expired", id.String())
	}
	if !c.IsExpired(now) || (deactivate && !c.IsActive) {
		return false, nil
	}

	c.SubscriptionTier = domain.SubscriptionTierFree
	c.SubscriptionExpiry = nil
	if deactivate {
		c.IsActive = false
	}
	c.UpdatedAt = now
	return true, nil
}

func (m *MemoryStore) UpdateSubscription(_ context.Context, id uuid.UUID, tier domain.SubscriptionTier, expiry *time.Time) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, domain.TenantNotFound("company.update_subscription", id.String())
	}

	next := cloneCompany(c)
	next.SubscriptionTier = tier
	next.SubscriptionExpiry = cloneTime(expiry)
	next.IsActive = true
	next.UpdatedAt = time.Now().UTC()
	if err := next.Validate(); err != nil {
		return nil, err
	}

	m.companies[id] = next
	return cloneCompany(next), nil
}

func cloneCompany(c *domain.Company) *domain.Company {
	cp := *c
	cp.SubscriptionExpiry = cloneTime(c.SubscriptionExpiry)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var _ Store = (*MemoryStore)(nil)
