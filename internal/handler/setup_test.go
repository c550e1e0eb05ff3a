package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DukeRupert/kasir/internal/ai"
	"github.com/DukeRupert/kasir/internal/auth"
	"github.com/DukeRupert/kasir/internal/company"
	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/service"
	"github.com/DukeRupert/kasir/internal/storage"
	"github.com/DukeRupert/kasir/internal/usage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthrough stands in for the auth middleware; tests attach the
// principal to the request context directly.
func passthrough(next http.Handler) http.Handler { return next }

type fixture struct {
	clock     *usage.ManualClock
	companies *company.MemoryStore
	bytes     *usage.MemoryBytesStore
	mux       *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()
	clock := usage.NewManualClock(t0)
	companies := company.NewMemoryStore()
	bytesStore := usage.NewMemoryBytesStore()

	objects, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files",
	}, logger)
	require.NoError(t, err)

	subscriptions := service.NewSubscriptionService(companies, clock, 2, logger)
	quota := service.NewQuotaService(usage.NewCounterStore(clock), clock, logger)
	storageQuota := service.NewStorageQuotaService(bytesStore, logger)
	uploads := service.NewUploadService(storageQuota, objects, 1<<20, logger)

	mux := http.NewServeMux()
	NewKasirHandler(subscriptions, quota, ai.CharEstimator{}, logger).RegisterRoutes(mux, passthrough)
	NewAdminHandler(subscriptions, quota, storageQuota, uploads, 1<<20, logger).RegisterRoutes(mux, passthrough)
	NewSuperadminHandler(subscriptions, quota, storageQuota, logger).RegisterRoutes(mux, passthrough)

	return &fixture{clock: clock, companies: companies, bytes: bytesStore, mux: mux}
}

func (f *fixture) seed(t *testing.T, tier domain.SubscriptionTier, expiry *time.Time, active bool) uuid.UUID {
	t.Helper()
	c := &domain.Company{
		ID:                 uuid.New(),
		Name:               "Toko " + string(tier),
		SubscriptionTier:   tier,
		SubscriptionExpiry: expiry,
		IsActive:           active,
		CreatedAt:          t0,
		UpdatedAt:          t0,
	}
	require.NoError(t, f.companies.Create(context.Background(), c))
	return c.ID
}

func (f *fixture) do(req *http.Request, p *auth.Principal) *httptest.ResponseRecorder {
	if p != nil {
		req = req.WithContext(auth.SetPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func kasir(companyID uuid.UUID) *auth.Principal {
	return &auth.Principal{UserID: "kasir-1", Role: auth.RoleKasir, CompanyID: companyID}
}

func admin(companyID uuid.UUID) *auth.Principal {
	return &auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin, CompanyID: companyID}
}

func superadmin() *auth.Principal {
	return &auth.Principal{UserID: "root", Role: auth.RoleSuperadmin}
}

func timePtr(t time.Time) *time.Time { return &t }

func int64Ptr(n int64) *int64 { return &n }
