package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/admin/quota", "/api/admin/quota"},
		{"/superadmin/companies/0b6f4b7e-7f0e-4f0a-9d52-1f2d3c4b5a69/quota", "/superadmin/companies/{id}/quota"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path))
	}
}

func TestRouteLabel_PrefersPattern(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/superadmin/companies/0b6f4b7e-7f0e-4f0a-9d52-1f2d3c4b5a69/quota", nil)
	assert.Equal(t, "/superadmin/companies/{id}/quota", routeLabel(r))

	r.Pattern = "GET /superadmin/companies/{id}/quota"
	assert.Equal(t, "GET /superadmin/companies/{id}/quota", routeLabel(r))
}

func TestMiddleware_CapturesStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/kasir/ai/requests", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMiddleware_LabelsByMatchedPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/quota", func(w http.ResponseWriter, r *http.Request) {})

	// An outer middleware that passes a request copy downstream, as
	// WithPrincipal does.
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Middleware(mux).ServeHTTP(w, r.WithContext(r.Context()))
	})

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /api/admin/quota", "200")
	before := counterValue(t, counter)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/quota", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before+1, counterValue(t, counter))
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
