package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

// Driver and storage errors must never reach the client.
func TestErrorResponse_DoesNotLeakInternals(t *testing.T) {
	secret := "pq: password authentication failed for user kasir at 10.0.0.5"

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "raw error",
			err:        errors.New(secret),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "wrapped internal",
			err:        domain.Wrap(errors.New(secret), domain.EINTERNAL, "company.get", secret),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unavailable",
			err:        domain.Wrap(errors.New(secret), domain.EUNAVAILABLE, "usage.reserve", secret),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/quota", nil)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, testLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, strings.Contains(rec.Body.String(), "10.0.0.5"), "body leaked internals: %s", rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "usage.reserve")
		})
	}
}

func TestErrorResponse_UnavailableSetsRetryAfter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, testLogger(), domain.Unavailable(errors.New("timeout"), "usage.reserve", "storage usage unavailable"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestErrorResponse_ClientErrorKeepsMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, testLogger(), domain.Invalid("subscription.apply", "paid tiers require an expiry"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody[JSONError](t, rec)
	assert.Equal(t, domain.EINVALID, body.Error.Code)
	assert.Equal(t, "paid tiers require an expiry", body.Error.Message)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(_ context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(fakePinger{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
