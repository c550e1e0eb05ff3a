// Package domain contains core business types and interfaces.
//
// This file defines the Company (tenant) type and its subscription state.
// These types are separate from the repository models so the tier rules
// can be tested without a database.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier represents the service level a company pays for.
type SubscriptionTier string

const (
	SubscriptionTierFree    SubscriptionTier = "FREE"
	SubscriptionTierBasic   SubscriptionTier = "BASIC"
	SubscriptionTierPremium SubscriptionTier = "PREMIUM"
)

// IsPaid returns true for every tier other than FREE.
func (t SubscriptionTier) IsPaid() bool {
	return t != SubscriptionTierFree
}

// Company is an isolated customer account whose usage and tier are tracked
// independently of every other company.
type Company struct {
	ID                 uuid.UUID
	Name               string
	SubscriptionTier   SubscriptionTier
	SubscriptionExpiry *time.Time // nil means no expiry enforcement
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsExpired reports whether a paid subscription's expiry lies strictly before now.
// Both the batch sweep and the on-access check use this predicate.
func (c *Company) IsExpired(now time.Time) bool {
	if !c.SubscriptionTier.IsPaid() || c.SubscriptionExpiry == nil {
		return false
	}
	return c.SubscriptionExpiry.Before(now)
}

// Validate checks the tier/expiry invariant: FREE never carries an expiry.
func (c *Company) Validate() error {
	const op = "company.validate"

	if !KnownTier(c.SubscriptionTier) {
		return Invalid(op, "unknown subscription tier")
	}
	if c.SubscriptionTier == SubscriptionTierFree && c.SubscriptionExpiry != nil {
		return Invalid(op, "free tier cannot have a subscription expiry")
	}
	return nil
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
