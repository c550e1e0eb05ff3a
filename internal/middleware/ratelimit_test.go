package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(max, window)
	rl.now = func() time.Time { return now }
	t.Cleanup(rl.Close)
	return rl, &now
}

func TestRateLimiter_AllowsUpToMax(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute)

	for i := 1; i <= 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("4th request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other keys have their own window")
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl, now := newTestLimiter(t, 1, time.Minute)

	rl.Allow("k")
	if rl.Allow("k") {
		t.Fatal("second request should be limited")
	}
	if got := rl.TimeUntilReset("k"); got != time.Minute {
		t.Errorf("TimeUntilReset = %v, want 1m", got)
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("k") {
		t.Error("request after window should be allowed")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)

	rl.Allow("k")
	rl.Reset("k")
	if !rl.Allow("k") {
		t.Error("request after Reset should be allowed")
	}
	if rl.TimeUntilReset("unknown") != 0 {
		t.Error("unknown key should have no wait")
	}
}

func TestRateLimitMiddleware_BlocksWithJSONAndRetryAfter(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, 30*time.Second)
	h := NewRateLimitMiddleware(rl, testLogger()).Limit(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/superadmin/subscriptions/sweep", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rec.Code)
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if secs, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || secs != 30 {
		t.Errorf("Retry-After = %q, want 30", rec.Header().Get("Retry-After"))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.1:1", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:4321", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
