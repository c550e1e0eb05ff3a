package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsFor(t *testing.T) {
	tests := []struct {
		name string
		tier SubscriptionTier
		want Policy
	}{
		{
			name: "free tier",
			tier: SubscriptionTierFree,
			want: Policy{RequestsPerHour: 10, RequestsPerDay: 50, TokensPerDay: 20_000, StorageBytesCap: 100 * mebibyte},
		},
		{
			name: "premium tier",
			tier: SubscriptionTierPremium,
			want: Policy{RequestsPerHour: 1_000, RequestsPerDay: 10_000, TokensPerDay: 2_000_000, StorageBytesCap: 10 * gibibyte},
		},
		{
			name: "unknown tier falls back to free",
			tier: SubscriptionTier("GOLD"),
			want: policies[SubscriptionTierFree],
		},
		{
			name: "empty tier falls back to free",
			tier: "",
			want: policies[SubscriptionTierFree],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LimitsFor(tt.tier))
		})
	}
}

func TestLimitsFor_ReturnsCopy(t *testing.T) {
	p := LimitsFor(SubscriptionTierBasic)
	p.RequestsPerHour = 1

	assert.Equal(t, int64(100), LimitsFor(SubscriptionTierBasic).RequestsPerHour)
}

func TestTiers_AreKnownAndOrdered(t *testing.T) {
	tiers := Tiers()
	for i, tier := range tiers {
		assert.True(t, KnownTier(tier), "tier %s should be known", tier)
		if i > 0 {
			prev := LimitsFor(tiers[i-1])
			cur := LimitsFor(tier)
			assert.Less(t, prev.RequestsPerHour, cur.RequestsPerHour)
			assert.Less(t, prev.StorageBytesCap, cur.StorageBytesCap)
		}
	}
	assert.False(t, KnownTier("GOLD"))
}
