// Package service contains the business logic layer.
//
// This file implements the quota evaluator: per-company AI request and token
// limits checked against the subscription tier's policy.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/metrics"
	"github.com/DukeRupert/kasir/internal/usage"
	"github.com/google/uuid"
)

// =============================================================================
// Types
// =============================================================================

// Decision is the outcome of one quota check. Denials are data, not errors.
type Decision struct {
	Allowed bool             `json:"allowed"`
	Reason  domain.LimitKind `json:"reason,omitempty"`
	Usage   usage.Counter    `json:"usage"`
	Limits  domain.Policy    `json:"limits"`
}

// Remaining holds the headroom left in each windowed dimension.
type Remaining struct {
	RequestsThisHour int64 `json:"requests_this_hour"`
	RequestsToday    int64 `json:"requests_today"`
	TokensToday      int64 `json:"tokens_today"`
}

// QuotaStatus is a read-only view of a company's AI quota.
type QuotaStatus struct {
	CompanyID    uuid.UUID               `json:"company_id"`
	Tier         domain.SubscriptionTier `json:"tier"`
	Usage        usage.Counter           `json:"usage"`
	Limits       domain.Policy           `json:"limits"`
	Remaining    Remaining               `json:"remaining"`
	HourResetsAt time.Time               `json:"hour_resets_at"`
	DayResetsAt  time.Time               `json:"day_resets_at"`
}

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService evaluates and records AI request consumption.
type QuotaService interface {
	// CheckAndConsume decides whether one AI request of estimatedTokens may
	// proceed and, if so, records it. Check and commit happen under the
	// company's lock. Returns domain.EINVALID for a negative estimate.
	CheckAndConsume(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier, estimatedTokens int64) (Decision, error)

	// GetQuotaStatus returns the company's counters as they read now. Never mutates.
	GetQuotaStatus(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier) (QuotaStatus, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	counters *usage.CounterStore
	clock    usage.Clock
	logger   *slog.Logger
}

// NewQuotaService creates a new QuotaService over the given counter store.
// The clock must be the one the store was built with.
func NewQuotaService(counters *usage.CounterStore, clock usage.Clock, logger *slog.Logger) QuotaService {
	if clock == nil {
		clock = usage.SystemClock{}
	}
	return &quotaService{
		counters: counters,
		clock:    clock,
		logger:   logger,
	}
}

func (s *quotaService) CheckAndConsume(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier, estimatedTokens int64) (Decision, error) {
	const op = "quota.check_and_consume"

	if estimatedTokens < 0 {
		return Decision{}, domain.Invalid(op, "estimated tokens must not be negative")
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, domain.Wrap(err, domain.EUNAVAILABLE, op, "request canceled")
	}

	limits := domain.LimitsFor(tier)

	var reason domain.LimitKind
	counter, allowed := s.counters.Consume(companyID, estimatedTokens, func(projected usage.Counter) bool {
		reason = firstViolation(projected, limits, estimatedTokens)
		return reason == domain.LimitNone
	})

	metrics.QuotaDecision(string(tier), allowed, string(reason), estimatedTokens)

	if !allowed {
		s.logger.Info("AI quota exceeded",
			"company_id", companyID,
			"tier", tier,
			"reason", reason,
			"requests_this_hour", counter.RequestsThisHour,
			"requests_today", counter.RequestsToday,
			"tokens_today", counter.TokensToday,
		)
	}

	return Decision{
		Allowed: allowed,
		Reason:  reason,
		Usage:   counter,
		Limits:  limits,
	}, nil
}

func (s *quotaService) GetQuotaStatus(ctx context.Context, companyID uuid.UUID, tier domain.SubscriptionTier) (QuotaStatus, error) {
	const op = "quota.get_status"

	if err := ctx.Err(); err != nil {
		return QuotaStatus{}, domain.Wrap(err, domain.EUNAVAILABLE, op, "request canceled")
	}

	limits := domain.LimitsFor(tier)
	counter := usage.RolledOver(s.counters.Get(companyID), s.clock.Now())

	return QuotaStatus{
		CompanyID: companyID,
		Tier:      tier,
		Usage:     counter,
		Limits:    limits,
		Remaining: Remaining{
			RequestsThisHour: remaining(limits.RequestsPerHour, counter.RequestsThisHour),
			RequestsToday:    remaining(limits.RequestsPerDay, counter.RequestsToday),
			TokensToday:      remaining(limits.TokensPerDay, counter.TokensToday),
		},
		HourResetsAt: counter.HourResetAt(),
		DayResetsAt:  counter.DayResetAt(),
	}, nil
}

// firstViolation checks hourly, then daily, then tokens. The first limit the
// request would cross wins. Comparisons are against the headroom left so a
// caller-supplied token count cannot overflow the sum.
func firstViolation(c usage.Counter, p domain.Policy, tokens int64) domain.LimitKind {
	switch {
	case c.RequestsThisHour >= p.RequestsPerHour:
		return domain.LimitHourly
	case c.RequestsToday >= p.RequestsPerDay:
		return domain.LimitDaily
	case tokens > p.TokensPerDay-c.TokensToday:
		return domain.LimitTokenDaily
	}
	return domain.LimitNone
}

func remaining(limit, used int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}
