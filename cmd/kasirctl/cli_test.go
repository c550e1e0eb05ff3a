package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DukeRupert/kasir/internal/company"
	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/service"
	"github.com/DukeRupert/kasir/internal/usage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

func memoryBackend(store *company.MemoryStore) backendFunc {
	return func(context.Context) (*backend, error) {
		return &backend{companies: store, clock: usage.NewManualClock(t0)}, nil
	}
}

func executeCLI(t *testing.T, connect backendFunc, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(connect)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedCompany(t *testing.T, store *company.MemoryStore, tier domain.SubscriptionTier, expiry *time.Time) uuid.UUID {
	t.Helper()
	c := &domain.Company{
		ID:                 uuid.New(),
		Name:               "Warung Sejahtera",
		SubscriptionTier:   tier,
		SubscriptionExpiry: expiry,
		IsActive:           true,
	}
	require.NoError(t, store.Create(context.Background(), c))
	return c.ID
}

func TestSweepCommand_JSON(t *testing.T) {
	store := company.NewMemoryStore()
	yesterday := t0.Add(-24 * time.Hour)
	id := seedCompany(t, store, domain.SubscriptionTierPremium, &yesterday)

	stdout, err := executeCLI(t, memoryBackend(store), "sweep", "--json")
	require.NoError(t, err)

	var result service.SweepResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, []uuid.UUID{id}, result.UpdatedIDs)

	stdout, err = executeCLI(t, memoryBackend(store), "sweep")
	require.NoError(t, err)
	assert.Contains(t, stdout, "downgraded: 0")
}

func TestQuotaPolicyCommand(t *testing.T) {
	stdout, err := executeCLI(t, nil, "quota-policy")
	require.NoError(t, err)
	assert.Contains(t, stdout, "FREE")
	assert.Contains(t, stdout, "100 MiB")
	assert.Contains(t, stdout, "10 GiB")

	stdout, err = executeCLI(t, nil, "quota-policy", "--json")
	require.NoError(t, err)

	var rows []struct {
		Tier            string `json:"tier"`
		RequestsPerHour int64  `json:"requests_per_hour"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "BASIC", rows[1].Tier)
	assert.Equal(t, int64(100), rows[1].RequestsPerHour)
}

func TestSubscriptionApplyCommand(t *testing.T) {
	store := company.NewMemoryStore()
	id := seedCompany(t, store, domain.SubscriptionTierFree, nil)

	stdout, err := executeCLI(t, memoryBackend(store), "subscription", "apply", id.String(), "--tier", "basic", "--days", "30")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tier: BASIC")
	assert.Contains(t, stdout, "expires: 2026-04-09T09:15:00Z")

	_, err = executeCLI(t, memoryBackend(store), "subscription", "apply", id.String(), "--tier", "PREMIUM")
	require.Error(t, err, "paid tiers require an expiry")

	_, err = executeCLI(t, memoryBackend(store), "subscription", "apply", "not-a-uuid", "--tier", "FREE")
	require.Error(t, err)
}

func TestSubscriptionShowCommand_DowngradesExpired(t *testing.T) {
	store := company.NewMemoryStore()
	lastWeek := t0.Add(-7 * 24 * time.Hour)
	id := seedCompany(t, store, domain.SubscriptionTierBasic, &lastWeek)

	stdout, err := executeCLI(t, memoryBackend(store), "subscription", "show", id.String())
	require.NoError(t, err)
	assert.Contains(t, stdout, "was downgraded")
	assert.Contains(t, stdout, "tier: FREE")
	assert.Contains(t, stdout, "active: true")
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	_, err := executeCLI(t, memoryBackend(company.NewMemoryStore()), "migrate", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1 GiB", formatBytes(1<<30))
	assert.Equal(t, "100 MiB", formatBytes(100<<20))
}
