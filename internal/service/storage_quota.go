// Package service contains the business logic layer.
//
// This file implements storage accounting: cumulative stored bytes per
// company checked against the tier's storage cap.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/metrics"
	"github.com/DukeRupert/kasir/internal/usage"
	"github.com/google/uuid"
)

// StorageUsage is a company's stored bytes relative to its cap.
type StorageUsage struct {
	BytesUsed   int64   `json:"bytes_used"`
	BytesCap    int64   `json:"bytes_cap"`
	PercentUsed float64 `json:"percent_used"`
}

// StorageDecision is the outcome of one storage check. Denials are data, not errors.
type StorageDecision struct {
	Allowed   bool             `json:"allowed"`
	Reason    domain.LimitKind `json:"reason,omitempty"`
	BytesUsed int64            `json:"bytes_used"`
	BytesCap  int64            `json:"bytes_cap"`
}

// StorageQuotaService tracks stored bytes against the tier's cap.
type StorageQuotaService interface {
	// GetUsage returns the company's stored bytes and cap.
	GetUsage(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier) (StorageUsage, error)

	// EnforceLimit accepts incomingBytes if they fit under the cap and adds
	// them to the company's total. A denial leaves the total unchanged.
	// The cap is looked up from the tier on every call.
	EnforceLimit(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier, incomingBytes int64) (StorageDecision, error)

	// Release gives back bytes accepted by EnforceLimit whose write never
	// completed.
	Release(ctx context.Context, companyID uuid.UUID, bytes int64) error
}

type storageQuotaService struct {
	store  usage.BytesStore
	logger *slog.Logger
}

// NewStorageQuotaService creates a new StorageQuotaService.
func NewStorageQuotaService(store usage.BytesStore, logger *slog.Logger) StorageQuotaService {
	return &storageQuotaService{
		store:  store,
		logger: logger,
	}
}

func (s *storageQuotaService) GetUsage(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier) (StorageUsage, error) {
	const op = "storage.get_usage"

	used, err := s.store.BytesUsed(ctx, companyID)
	if err != nil {
		return StorageUsage{}, asUnavailable(err, op, "failed to read storage usage")
	}

	capBytes := domain.LimitsFor(tier).StorageBytesCap
	return StorageUsage{
		BytesUsed:   used,
		BytesCap:    capBytes,
		PercentUsed: percent(used, capBytes),
	}, nil
}

func (s *storageQuotaService) EnforceLimit(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier, incomingBytes int64) (StorageDecision, error) {
	const op = "storage.enforce_limit"

	if incomingBytes < 0 {
		return StorageDecision{}, domain.Invalid(op, "incoming bytes must not be negative")
	}

	capBytes := domain.LimitsFor(tier).StorageBytesCap

	var (
		used int64
		ok   bool
		err  error
	)
	if incomingBytes > capBytes {
		// Can never fit; leave the store untouched.
		used, err = s.store.BytesUsed(ctx, companyID)
		if err != nil {
			return StorageDecision{}, asUnavailable(err, op, "failed to read storage usage")
		}
	} else {
		used, ok, err = s.store.Reserve(ctx, companyID, incomingBytes, capBytes)
		if err != nil {
			return StorageDecision{}, asUnavailable(err, op, "failed to reserve storage")
		}
	}

	metrics.StorageDecision(string(tier), ok, incomingBytes)

	decision := StorageDecision{
		Allowed:   ok,
		BytesUsed: used,
		BytesCap:  capBytes,
	}
	if !ok {
		decision.Reason = domain.LimitStorage
		s.logger.Info("storage quota exceeded",
			"company_id", companyID,
			"tier", tier,
			"bytes_used", used,
			"incoming_bytes", incomingBytes,
			"bytes_cap", capBytes,
		)
	}
	return decision, nil
}

func (s *storageQuotaService) Release(ctx context.Context, companyID uuid.UUID, bytes int64) error {
	const op = "storage.release"

	if bytes <= 0 {
		return nil
	}
	if err := s.store.Release(ctx, companyID, bytes); err != nil {
		return asUnavailable(err, op, "failed to release storage")
	}
	return nil
}

func percent(used, capBytes int64) float64 {
	if capBytes <= 0 {
		return 100
	}
	return float64(used) / float64(capBytes) * 100
}

// asUnavailable keeps domain errors (e.g. tenant not found) as they are and
// reports anything else as a persistence failure.
func asUnavailable(err error, op, message string) error {
	var e *domain.Error
	if errors.As(err, &e) {
		return err
	}
	return domain.Unavailable(err, op, message)
}
