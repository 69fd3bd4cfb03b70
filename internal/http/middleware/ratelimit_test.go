package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tendant/stay-concierge/internal/config"
)

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	handler := RateLimit(RateLimitConfig{
		Requests: 2,
		Window:   time.Minute,
		Logger:   logger,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		remoteAddr string
		wantStatus int
	}{
		{"192.168.1.1:12345", http.StatusOK},
		{"192.168.1.1:23456", http.StatusOK},
		{"192.168.1.1:34567", http.StatusTooManyRequests},
		{"192.168.1.2:12345", http.StatusOK},
	}

	for i, tt := range tests {
		req := httptest.NewRequest("POST", "/v1/events", nil)
		req.RemoteAddr = tt.remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != tt.wantStatus {
			t.Errorf("request %d from %s: got status %d, want %d", i, tt.remoteAddr, w.Code, tt.wantStatus)
		}
	}
}

func TestNoRateLimit(t *testing.T) {
	handler := NoRateLimit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	// All requests should succeed
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: got status %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestKeyLimiter(t *testing.T) {
	limiter := NewKeyLimiter(RateLimitConfig{Requests: 2, Window: time.Minute})

	tests := []struct {
		key     string
		limited bool
	}{
		{"mgr-1", false},
		{"mgr-1", false},
		{"mgr-1", true},
		{"mgr-2", false},
	}

	for i, tt := range tests {
		req := httptest.NewRequest("POST", "/v1/events", nil)
		w := httptest.NewRecorder()

		if got := limiter.Limit(w, req, tt.key); got != tt.limited {
			t.Errorf("request %d for %s: limited = %v, want %v", i, tt.key, got, tt.limited)
		}
		if tt.limited && w.Code != http.StatusTooManyRequests {
			t.Errorf("request %d: got status %d, want %d", i, w.Code, http.StatusTooManyRequests)
		}
		if tt.limited && !strings.Contains(w.Body.String(), "rate limit exceeded") {
			t.Errorf("request %d: body = %q, want the limit error", i, w.Body.String())
		}
	}
}

func TestCreateRateLimiters_Disabled(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled: false,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	limiters := CreateRateLimiters(cfg, logger)

	// All limiters should be no-op
	handler := limiters.IP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Request %d: got status %d, want %d", i, w.Code, http.StatusOK)
		}
		if limiters.User.Limit(w, req, "mgr-1") {
			t.Errorf("Request %d: user limiter should be disabled", i)
		}
	}
}

func TestCreateRateLimiters_Enabled(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:               true,
		IPRequestsPerMinute:   100,
		UserRequestsPerMinute: 1,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	limiters := CreateRateLimiters(cfg, logger)

	if limiters.IP == nil {
		t.Fatal("IP limiter should not be nil")
	}
	req := httptest.NewRequest("POST", "/v1/events", nil)
	if limiters.User.Limit(httptest.NewRecorder(), req, "mgr-1") {
		t.Error("first request should pass the user limiter")
	}
	if !limiters.User.Limit(httptest.NewRecorder(), req, "mgr-1") {
		t.Error("second request should be limited")
	}
}
