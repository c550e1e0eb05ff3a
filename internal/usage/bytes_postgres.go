package usage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// foreignKeyViolation is the SQLSTATE raised when storage_usage references a
// company that does not exist.
const foreignKeyViolation = "23503"

// PostgresBytesStore persists storage usage in the storage_usage table.
type PostgresBytesStore struct {
	queries *repository.Queries
}

// NewPostgresBytesStore creates a PostgreSQL-backed BytesStore.
func NewPostgresBytesStore(queries *repository.Queries) *PostgresBytesStore {
	return &PostgresBytesStore{queries: queries}
}

func (p *PostgresBytesStore) BytesUsed(ctx context.Context, companyID uuid.UUID) (int64, error) {
	const op = "storage_usage.bytes_used"

	used, err := p.queries.GetStorageBytesUsed(ctx, companyID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.Unavailable(err, op, "failed to read storage usage")
	}
	return used, nil
}

// Reserve relies on the conditional UPDATE in ReserveStorageBytes: the check
// and the increment happen in one statement, so concurrent uploads for the
// same company cannot both pass the cap.
func (p *PostgresBytesStore) Reserve(ctx context.Context, companyID uuid.UUID, n, limit int64) (int64, bool, error) {
	const op = "storage_usage.reserve"

	if err := p.queries.EnsureStorageUsage(ctx, companyID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return 0, false, domain.TenantNotFound(op, companyID.String())
		}
		return 0, false, domain.Unavailable(err, op, "failed to initialise storage usage")
	}

	used, err := p.queries.ReserveStorageBytes(ctx, repository.ReserveStorageBytesParams{
		CompanyID: companyID,
		Bytes:     n,
		Cap:       limit,
	})
	if err == nil {
		return used, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, domain.Unavailable(err, op, "failed to reserve storage")
	}

	// Over the cap: report the unchanged total.
	used, err = p.queries.GetStorageBytesUsed(ctx, companyID)
	if err != nil {
		return 0, false, domain.Unavailable(err, op, "failed to read storage usage")
	}
	return used, false, nil
}

func (p *PostgresBytesStore) Release(ctx context.Context, companyID uuid.UUID, n int64) error {
	const op = "storage_usage.release"

	err := p.queries.ReleaseStorageBytes(ctx, repository.ReleaseStorageBytesParams{
		CompanyID: companyID,
		Bytes:     n,
	})
	if err != nil {
		return domain.Unavailable(err, op, "failed to release storage")
	}
	return nil
}

var _ BytesStore = (*PostgresBytesStore)(nil)
