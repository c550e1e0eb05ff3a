package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const companyColumns = `id, name, subscription_tier, subscription_expiry, is_active, created_at, updated_at`

func scanCompany(row interface{ Scan(...interface{}) error }) (Company, error) {
	var i Company
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.SubscriptionTier,
		&i.SubscriptionExpiry,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCompany = `-- name: CreateCompany :one
INSERT INTO companies (id, name, subscription_tier, subscription_expiry, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + companyColumns

type CreateCompanyParams struct {
	ID                 uuid.UUID
	Name               string
	SubscriptionTier   string
	SubscriptionExpiry sql.NullTime
	IsActive           bool
}

func (q *Queries) CreateCompany(ctx context.Context, arg CreateCompanyParams) (Company, error) {
	row := q.db.QueryRowContext(ctx, createCompany,
		arg.ID,
		arg.Name,
		arg.SubscriptionTier,
		arg.SubscriptionExpiry,
		arg.IsActive,
	)
	return scanCompany(row)
}

const getCompany = `-- name: GetCompany :one
SELECT ` + companyColumns + `
FROM companies
WHERE id = $1`

func (q *Queries) GetCompany(ctx context.Context, id uuid.UUID) (Company, error) {
	row := q.db.QueryRowContext(ctx, getCompany, id)
	return scanCompany(row)
}

const listExpiredCompanies = `-- name: ListExpiredCompanies :many
SELECT ` + companyColumns + `
FROM companies
WHERE subscription_expiry < $1
  AND subscription_tier <> 'FREE'
  AND is_active = TRUE
ORDER BY subscription_expiry`

func (q *Queries) ListExpiredCompanies(ctx context.Context, now time.Time) ([]Company, error) {
	rows, err := q.db.QueryContext(ctx, listExpiredCompanies, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Company
	for rows.Next() {
		i, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// The WHERE clause repeats the listing predicate so a company renewed or
// deactivated between listing and updating is left alone (zero rows affected).
// The on-access path passes deactivate=false and ignores is_active.
const downgradeExpiredCompany = `-- name: DowngradeExpiredCompany :execrows
UPDATE companies
SET subscription_tier = 'FREE',
    subscription_expiry = NULL,
    is_active = is_active AND NOT $3::boolean,
    updated_at = NOW()
WHERE id = $1
  AND subscription_expiry < $2
  AND subscription_tier <> 'FREE'
  AND (is_active OR NOT $3::boolean)`

type DowngradeExpiredCompanyParams struct {
	ID         uuid.UUID
	Now        time.Time
	Deactivate bool
}

func (q *Queries) DowngradeExpiredCompany(ctx context.Context, arg DowngradeExpiredCompanyParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, downgradeExpiredCompany, arg.ID, arg.Now, arg.Deactivate)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateCompanySubscription = `-- name: UpdateCompanySubscription :one
UPDATE companies
SET subscription_tier = $2,
    subscription_expiry = $3,
    is_active = TRUE,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + companyColumns

type UpdateCompanySubscriptionParams struct {
	ID                 uuid.UUID
	SubscriptionTier   string
	SubscriptionExpiry sql.NullTime
}

func (q *Queries) UpdateCompanySubscription(ctx context.Context, arg UpdateCompanySubscriptionParams) (Company, error) {
	row := q.db.QueryRowContext(ctx, updateCompanySubscription, arg.ID, arg.SubscriptionTier, arg.SubscriptionExpiry)
	return scanCompany(row)
}
