// Package domain contains core business types and interfaces.
//
// This file defines the quota policy table: the limits attached to each
// subscription tier.
package domain

// LimitKind identifies which limit denied a unit of consumption.
type LimitKind string

const (
	LimitNone       LimitKind = ""
	LimitHourly     LimitKind = "hourly"
	LimitDaily      LimitKind = "daily"
	LimitTokenDaily LimitKind = "token_daily"
	LimitStorage    LimitKind = "storage"
)

const (
	mebibyte = int64(1024 * 1024)
	gibibyte = 1024 * mebibyte
)

// Policy defines the limits for a subscription tier.
type Policy struct {
	RequestsPerHour int64 `json:"requests_per_hour"`
	RequestsPerDay  int64 `json:"requests_per_day"`
	TokensPerDay    int64 `json:"tokens_per_day"`
	StorageBytesCap int64 `json:"storage_bytes_cap"`
}

// policies is never mutated after package initialization.
var policies = map[SubscriptionTier]Policy{
	SubscriptionTierFree: {
		RequestsPerHour: 10,
		RequestsPerDay:  50,
		TokensPerDay:    20_000,
		StorageBytesCap: 100 * mebibyte,
	},
	SubscriptionTierBasic: {
		RequestsPerHour: 100,
		RequestsPerDay:  1_000,
		TokensPerDay:    200_000,
		StorageBytesCap: 1 * gibibyte,
	},
	SubscriptionTierPremium: {
		RequestsPerHour: 1_000,
		RequestsPerDay:  10_000,
		TokensPerDay:    2_000_000,
		StorageBytesCap: 10 * gibibyte,
	},
}

// LimitsFor returns the policy for a tier, defaulting to free tier for unknown tiers.
func LimitsFor(tier SubscriptionTier) Policy {
	if p, ok := policies[tier]; ok {
		return p
	}
	return policies[SubscriptionTierFree]
}

// KnownTier returns true if the tier name is recognised.
func KnownTier(tier SubscriptionTier) bool {
	_, ok := policies[tier]
	return ok
}

// Tiers lists the known tiers from most to least restrictive.
func Tiers() []SubscriptionTier {
	return []SubscriptionTier{
		SubscriptionTierFree,
		SubscriptionTierBasic,
		SubscriptionTierPremium,
	}
}
