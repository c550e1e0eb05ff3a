// Package service contains the business logic layer.
//
// This file implements the subscription expiry auditor: the batch sweep that
// downgrades and deactivates lapsed companies, the request-time downgrade,
// and the upgrade path that sets a new tier.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/kasir/internal/company"
	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/metrics"
	"github.com/DukeRupert/kasir/internal/usage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultSweepConcurrency bounds how many downgrades a sweep runs at once.
const DefaultSweepConcurrency = 8

// =============================================================================
// Types
// =============================================================================

// SweepFailure records one company the sweep could not downgrade.
type SweepFailure struct {
	CompanyID uuid.UUID `json:"company_id"`
	Error     string    `json:"error"`
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	UpdatedCount int            `json:"updated_count"`
	UpdatedIDs   []uuid.UUID    `json:"updated_ids"`
	Failures     []SweepFailure `json:"failures,omitempty"`
	RanAt        time.Time      `json:"ran_at"`
}

// AccessResult is the outcome of a request-time expiry check.
type AccessResult struct {
	WasDowngraded bool                    `json:"was_downgraded"`
	NewTier       domain.SubscriptionTier `json:"new_tier"`
	Company       *domain.Company         `json:"-"`
}

// =============================================================================
// Interface Definition
// =============================================================================

// SubscriptionService enforces subscription expiry.
type SubscriptionService interface {
	// Sweep downgrades every active paid company whose expiry has passed to
	// FREE and deactivates it. Each company is handled independently; per-company
	// failures are reported in the result. Only a failure to list candidates
	// is returned as an error.
	Sweep(ctx context.Context) (SweepResult, error)

	// CheckOnAccess downgrades the company to FREE if its paid subscription has
	// expired. Unlike Sweep it leaves IsActive untouched.
	// Returns domain.ENOTFOUND for unknown companies.
	CheckOnAccess(ctx context.Context, companyID uuid.UUID) (AccessResult, error)

	// ApplySubscription sets tier and expiry together and reactivates the
	// company. Paid tiers need a future expiry; FREE must have none.
	ApplySubscription(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier, expiry *time.Time) (*domain.Company, error)
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	companies   company.Store
	clock       usage.Clock
	concurrency int
	logger      *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
// A concurrency below 1 uses DefaultSweepConcurrency.
func NewSubscriptionService(companies company.Store, clock usage.Clock, concurrency int, logger *slog.Logger) SubscriptionService {
	if clock == nil {
		clock = usage.SystemClock{}
	}
	if concurrency < 1 {
		concurrency = DefaultSweepConcurrency
	}
	return &subscriptionService{
		companies:   companies,
		clock:       clock,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (s *subscriptionService) Sweep(ctx context.Context) (SweepResult, error) {
	const op = "subscription.sweep"

	start := time.Now()
	now := s.clock.Now()
	result := SweepResult{RanAt: now, UpdatedIDs: []uuid.UUID{}}

	candidates, err := s.companies.ListExpired(ctx, now)
	if err != nil {
		return result, domain.Wrap(err, domain.ErrorCode(err), op, "failed to list expired companies")
	}

	type outcome struct {
		updated bool
		err     error
	}
	outcomes := make([]outcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range candidates {
		id := candidates[i].ID
		g.Go(func() error {
			updated, err := s.companies.DowngradeExpired(ctx, id, now, true)
			outcomes[i] = outcome{updated: updated, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		c := candidates[i]
		switch {
		case o.err != nil:
			s.logger.Error("failed to downgrade expired company",
				"op", op,
				"company_id", c.ID,
				"tier", c.SubscriptionTier,
				"error", o.err,
			)
			result.Failures = append(result.Failures, SweepFailure{CompanyID: c.ID, Error: o.err.Error()})
		case o.updated:
			s.logger.Info("subscription expired, company downgraded and deactivated",
				"company_id", c.ID,
				"previous_tier", c.SubscriptionTier,
				"expired_at", c.SubscriptionExpiry,
			)
			result.UpdatedIDs = append(result.UpdatedIDs, c.ID)
		default:
			// Renewed or already downgraded between list and update.
			s.logger.Debug("expired company no longer qualifies, skipped", "company_id", c.ID)
		}
	}
	result.UpdatedCount = len(result.UpdatedIDs)

	metrics.SweepFinished(result.UpdatedCount, len(result.Failures), time.Since(start))
	s.logger.Info("subscription sweep finished",
		"candidates", len(candidates),
		"updated", result.UpdatedCount,
		"failed", len(result.Failures),
		"duration", time.Since(start),
	)

	return result, nil
}

func (s *subscriptionService) CheckOnAccess(ctx context.Context, companyID uuid.UUID) (AccessResult, error) {
	const op = "subscription.check_on_access"

	c, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return AccessResult{}, err
	}

	now := s.clock.Now()
	if !c.IsExpired(now) {
		return AccessResult{NewTier: c.SubscriptionTier, Company: c}, nil
	}

	downgraded, err := s.companies.DowngradeExpired(ctx, companyID, now, false)
	if err != nil {
		return AccessResult{}, domain.Wrap(err, domain.ErrorCode(err), op, "failed to downgrade expired company")
	}

	// Re-read so a concurrent renewal or sweep is reflected in what the caller sees.
	c, err = s.companies.Get(ctx, companyID)
	if err != nil {
		return AccessResult{}, err
	}

	if downgraded {
		metrics.OnAccessDowngradesTotal.Inc()
		s.logger.Info("subscription expired, company downgraded on access",
			"company_id", companyID,
			"tier", c.SubscriptionTier,
		)
	}

	return AccessResult{
		WasDowngraded: downgraded,
		NewTier:       c.SubscriptionTier,
		Company:       c,
	}, nil
}

func (s *subscriptionService) ApplySubscription(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier, expiry *time.Time) (*domain.Company, error) {
	const op = "subscription.apply"

	if !domain.KnownTier(tier) {
		return nil, domain.Invalid(op, "unknown subscription tier")
	}
	if tier.IsPaid() {
		if expiry == nil {
			return nil, domain.Invalid(op, "paid tiers require a subscription expiry")
		}
		if !expiry.After(s.clock.Now()) {
			return nil, domain.Invalid(op, "subscription expiry must be in the future")
		}
	} else if expiry != nil {
		return nil, domain.Invalid(op, "free tier cannot have a subscription expiry")
	}

	c, err := s.companies.UpdateSubscription(ctx, companyID, tier, expiry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription applied",
		"company_id", companyID,
		"tier", tier,
		"expiry", expiry,
	)
	return c, nil
}
