// Package company persists tenants and their subscription state.
package company

import (
	"context"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/google/uuid"
)

// Store persists company data. Implementations return domain errors:
// TenantNotFound for unknown IDs, Unavailable when the backing store fails.
type Store interface {
	Create(ctx context.Context, c *domain.Company) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Company, error)

	// ListExpired returns active paid companies whose expiry is before now.
	ListExpired(ctx context.Context, now time.Time) ([]domain.Company, error)

	// DowngradeExpired moves one company to FREE and clears its expiry, but
	// only if it is still a paid company expired before now. deactivate also
	// clears IsActive. Returns false when the company no longer qualified.
	DowngradeExpired(ctx context.Context, id uuid.UUID, now time.Time, deactivate bool) (bool, error)

	// UpdateSubscription sets tier and expiry together and reactivates the company.
	UpdateSubscription(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier, expiry *time.Time) (*domain.Company, error)
}
