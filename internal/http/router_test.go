package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tendant/stay-concierge/internal/config"
	"github.com/tendant/stay-concierge/internal/conversation"
	"github.com/tendant/stay-concierge/internal/http/middleware"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(_ context.Context, ev conversation.Event) (conversation.Reply, error) {
	return conversation.Reply{Text: ev.Text}, nil
}

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	auth := middleware.NewWebhookAuth([]byte("router-secret"), "adapter")
	token, err := auth.Issue("telegram", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	router := NewRouter(RouterConfig{
		Logger:          slog.New(slog.DiscardHandler),
		Dispatcher:      echoDispatcher{},
		Auth:            auth,
		RateLimitConfig: config.RateLimitConfig{Enabled: true, IPRequestsPerMinute: 100, UserRequestsPerMinute: 100},
		SecurityHeaders: config.SecurityHeadersConfig{Enabled: true, ContentTypeOptions: "nosniff"},
		Validation:      config.ValidationConfig{MaxRequestBodySize: 1024},
	})
	return router, token
}

func TestRouter(t *testing.T) {
	router, token := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		auth       bool
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", "", false, http.StatusOK, `"ok"`},
		{"events without token", http.MethodPost, "/v1/events", `{"user_id":"1","kind":"text","text":"hi"}`, false, http.StatusUnauthorized, ""},
		{"events", http.MethodPost, "/v1/events", `{"user_id":"1","kind":"text","text":"hello"}`, true, http.StatusOK, `"hello"`},
		{"events too large", http.MethodPost, "/v1/events", `{"user_id":"1","kind":"text","text":"` + strings.Repeat("a", 2048) + `"}`, true, http.StatusRequestEntityTooLarge, ""},
		{"catalog without token", http.MethodGet, "/v1/catalog", "", false, http.StatusUnauthorized, ""},
		{"catalog", http.MethodGet, "/v1/catalog", "", true, http.StatusOK, `"checkin"`},
		{"unknown route", http.MethodGet, "/v1/nope", "", true, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", w.Body.String(), tt.wantBody)
			}
			if got := w.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", got)
			}
			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
			}
		})
	}
}
