package company

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/repository"
	"github.com/google/uuid"
)

// PostgresStore persists companies in PostgreSQL through the repository queries.
type PostgresStore struct {
	queries *repository.Queries
}

// NewPostgresStore creates a new PostgreSQL-backed company store.
func NewPostgresStore(queries *repository.Queries) *PostgresStore {
	return &PostgresStore{queries: queries}
}

func (p *PostgresStore) Create(ctx context.Context, c *domain.Company) error {
	const op = "company.create"

	if err := c.Validate(); err != nil {
		return err
	}

	row, err := p.queries.CreateCompany(ctx, repository.CreateCompanyParams{
		ID:                 c.ID,
		Name:               c.Name,
		SubscriptionTier:   string(c.SubscriptionTier),
		SubscriptionExpiry: domain.ToNullTime(c.SubscriptionExpiry),
		IsActive:           c.IsActive,
	})
	if err != nil {
		return domain.Unavailable(err, op, "failed to create company")
	}
	*c = *toDomain(row)
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	const op = "company.get"

	row, err := p.queries.GetCompany(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.TenantNotFound(op, id.String())
	}
	if err != nil {
		return nil, domain.Unavailable(err, op, "failed to load company")
	}
	return toDomain(row), nil
}

func (p *PostgresStore) ListExpired(ctx context.Context, now time.Time) ([]domain.Company, error) {
	const op = "company.list_expired"

	rows, err := p.queries.ListExpiredCompanies(ctx, now)
	if err != nil {
		return nil, domain.Unavailable(err, op, "failed to list expired companies")
	}

	companies := make([]domain.Company, 0, len(rows))
	for _, row := range rows {
		companies = append(companies, *toDomain(row))
	}
	return companies, nil
}

func (p *PostgresStore) DowngradeExpired(ctx context.Context, id uuid.UUID, now time.Time, deactivate bool) (bool, error) {
	const op = "company.downgrade_expired"

	n, err := p.queries.DowngradeExpiredCompany(ctx, repository.DowngradeExpiredCompanyParams{
		ID:         id,
		Now:        now,
		Deactivate: deactivate,
	})
	if err != nil {
		return false, domain.Unavailable(err, op, "failed to downgrade company")
	}
	return n > 0, nil
}

func (p *PostgresStore) UpdateSubscription(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier, expiry *time.Time) (*domain.Company, error) {
	const op = "company.update_subscription"

	candidate := domain.Company{ID: id, SubscriptionTier: tier, SubscriptionExpiry: expiry}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	row, err := p.queries.UpdateCompanySubscription(ctx, repository.UpdateCompanySubscriptionParams{
		ID:                 id,
		SubscriptionTier:   string(tier),
		SubscriptionExpiry: domain.ToNullTime(expiry),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.TenantNotFound(op, id.String())
	}
	if err != nil {
		return nil, domain.Unavailable(err, op, "failed to update subscription")
	}
	return toDomain(row), nil
}

func toDomain(row repository.Company) *domain.Company {
	return &domain.Company{
		ID:                 row.ID,
		Name:               row.Name,
		SubscriptionTier:   domain.SubscriptionTier(row.SubscriptionTier),
		SubscriptionExpiry: domain.NullTimeValue(row.SubscriptionExpiry),
		IsActive:           row.IsActive,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

var _ Store = (*PostgresStore)(nil)
