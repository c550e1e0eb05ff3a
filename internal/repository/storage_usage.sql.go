package repository

import (
	"context"

	"github.com/google/uuid"
)

const ensureStorageUsage = `-- name: EnsureStorageUsage :exec
INSERT INTO storage_usage (company_id, bytes_used)
VALUES ($1, 0)
ON CONFLICT (company_id) DO NOTHING`

func (q *Queries) EnsureStorageUsage(ctx context.Context, companyID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, ensureStorageUsage, companyID)
	return err
}

const getStorageBytesUsed = `-- name: GetStorageBytesUsed :one
SELECT bytes_used
FROM storage_usage
WHERE company_id = $1`

func (q *Queries) GetStorageBytesUsed(ctx context.Context, companyID uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, getStorageBytesUsed, companyID)
	var bytesUsed int64
	err := row.Scan(&bytesUsed)
	return bytesUsed, err
}

// Returns sql.ErrNoRows when the reservation would exceed the cap.
const reserveStorageBytes = `-- name: ReserveStorageBytes :one
UPDATE storage_usage
SET bytes_used = bytes_used + $2,
    updated_at = NOW()
WHERE company_id = $1
  AND $2 <= $3 - bytes_used
RETURNING bytes_used`

type ReserveStorageBytesParams struct {
	CompanyID uuid.UUID
	Bytes     int64
	Cap       int64
}

func (q *Queries) ReserveStorageBytes(ctx context.Context, arg ReserveStorageBytesParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, reserveStorageBytes, arg.CompanyID, arg.Bytes, arg.Cap)
	var bytesUsed int64
	err := row.Scan(&bytesUsed)
	return bytesUsed, err
}

const releaseStorageBytes = `-- name: ReleaseStorageBytes :exec
UPDATE storage_usage
SET bytes_used = GREATEST(bytes_used - $2, 0),
    updated_at = NOW()
WHERE company_id = $1`

type ReleaseStorageBytesParams struct {
	CompanyID uuid.UUID
	Bytes     int64
}

func (q *Queries) ReleaseStorageBytes(ctx context.Context, arg ReleaseStorageBytesParams) error {
	_, err := q.db.ExecContext(ctx, releaseStorageBytes, arg.CompanyID, arg.Bytes)
	return err
}
