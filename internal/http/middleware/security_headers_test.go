package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tendant/stay-concierge/internal/config"
)

func serveWithHeaders(cfg config.SecurityHeadersConfig) http.Header {
	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/events", nil))
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SecurityHeadersConfig
		want map[string]string
	}{
		{
			name: "api defaults",
			cfg: config.SecurityHeadersConfig{
				Enabled:            true,
				CSP:                "default-src 'none'",
				HSTSMaxAge:         31536000,
				FrameOptions:       "DENY",
				ContentTypeOptions: "nosniff",
				XSSProtection:      "0",
				ReferrerPolicy:     "no-referrer",
			},
			want: map[string]string{
				"Cache-Control":             "no-store",
				"Content-Security-Policy":   "default-src 'none'",
				"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
				"X-Frame-Options":           "DENY",
				"X-Content-Type-Options":    "nosniff",
				"X-XSS-Protection":          "0",
				"Referrer-Policy":           "no-referrer",
				"Permissions-Policy":        "",
			},
		},
		{
			name: "empty values are skipped",
			cfg:  config.SecurityHeadersConfig{Enabled: true, PermissionsPolicy: "camera=()"},
			want: map[string]string{
				"Cache-Control":             "no-store",
				"Content-Security-Policy":   "",
				"Strict-Transport-Security": "",
				"X-Frame-Options":           "",
				"Permissions-Policy":        "camera=()",
			},
		},
		{
			name: "disabled",
			cfg:  config.SecurityHeadersConfig{Enabled: false, CSP: "default-src 'none'", HSTSMaxAge: 60},
			want: map[string]string{
				"Cache-Control":             "",
				"Content-Security-Policy":   "",
				"Strict-Transport-Security": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := serveWithHeaders(tt.cfg)
			for name, want := range tt.want {
				if got := h.Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}
