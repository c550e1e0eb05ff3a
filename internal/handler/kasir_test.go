package handler

import (
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAIRequest_AdmitsUntilHourlyLimit(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, domain.SubscriptionTierFree, nil, true)

	for i := 1; i <= 10; i++ {
		rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{EstimatedTokens: int64Ptr(50)}), kasir(id))
		require.Equal(t, http.StatusOK, rec.Code, "call %d: %s", i, rec.Body.String())

		resp := decodeBody[AIResponse](t, rec)
		assert.True(t, resp.Allowed)
		assert.Equal(t, int64(i), resp.Usage.RequestsThisHour)
	}

	rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{EstimatedTokens: int64Ptr(50)}), kasir(id))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	resp := decodeBody[AIDeniedResponse](t, rec)
	assert.Equal(t, domain.ERATELIMIT, resp.Error.Code)
	assert.Equal(t, string(domain.LimitHourly), resp.Error.Reason)
	assert.False(t, resp.Decision.Allowed)
	assert.Equal(t, int64(10), resp.Decision.Usage.RequestsThisHour)
	assert.Equal(t, t0.Add(time.Hour), resp.RetryAt)
}

func TestCreateAIRequest_EstimatesFromPrompt(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, domain.SubscriptionTierFree, nil, true)

	rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{Prompt: "ringkas penjualan hari ini"}), kasir(id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[AIResponse](t, rec)
	assert.Equal(t, int64(7), resp.EstimatedTokens)
	assert.Equal(t, int64(7), resp.Usage.TokensToday)
}

func TestCreateAIRequest_OversizedEstimateIsDenied(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, domain.SubscriptionTierFree, nil, true)

	rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{EstimatedTokens: int64Ptr(1)}), kasir(id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{EstimatedTokens: int64Ptr(math.MaxInt64)}), kasir(id))
	require.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())

	resp := decodeBody[AIDeniedResponse](t, rec)
	assert.Equal(t, string(domain.LimitTokenDaily), resp.Error.Reason)
	assert.Equal(t, int64(1), resp.Decision.Usage.TokensToday)
}

func TestCreateAIRequest_DowngradesExpiredCompanyOnAccess(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, domain.SubscriptionTierBasic, timePtr(t0.Add(-time.Minute)), true)

	rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{EstimatedTokens: int64Ptr(1)}), kasir(id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[AIResponse](t, rec)
	assert.True(t, resp.WasDowngraded)
	assert.Equal(t, domain.SubscriptionTierFree, resp.Tier)
	assert.Equal(t, domain.LimitsFor(domain.SubscriptionTierFree), resp.Limits)
}

func TestCreateAIRequest_Errors(t *testing.T) {
	f := newFixture(t)
	active := f.seed(t, domain.SubscriptionTierFree, nil, true)
	inactive := f.seed(t, domain.SubscriptionTierFree, nil, false)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing prompt and estimate",
			body:       AIRequest{},
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.EINVALID,
		},
		{
			name:       "unknown field",
			body:       map[string]any{"prompt": "x", "model": "gpt"},
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.EINVALID,
		},
		{
			name:       "negative estimate",
			body:       AIRequest{EstimatedTokens: int64Ptr(-1)},
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.EINVALID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", tt.body), kasir(active))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeBody[JSONError](t, rec).Error.Code)
		})
	}

	t.Run("no principal", func(t *testing.T) {
		rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{Prompt: "x"}), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("superadmin has no company", func(t *testing.T) {
		rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{Prompt: "x"}), superadmin())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("inactive company", func(t *testing.T) {
		rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{Prompt: "x"}), kasir(inactive))
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, domain.EPAYMENT, decodeBody[JSONError](t, rec).Error.Code)
	})

	t.Run("unknown company", func(t *testing.T) {
		rec := f.do(jsonRequest(t, http.MethodPost, "/api/kasir/ai/requests", AIRequest{Prompt: "x"}), kasir(uuid.New()))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
