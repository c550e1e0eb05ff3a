package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID                 uuid.UUID
	Name               string
	SubscriptionTier   string
	SubscriptionExpiry sql.NullTime
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type StorageUsage struct {
	CompanyID uuid.UUID
	BytesUsed int64
	UpdatedAt time.Time
}
