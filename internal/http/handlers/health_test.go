package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vmarkevych/storefront/internal/http/handlers"
)

func TestHealthz(t *testing.T) {
	h := handlers.NewHealthHandler(nil)
	r := setupRouter(http.MethodGet, "/healthz", h.Healthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]handlers.Pinger
		wantStatus int
		wantInBody string
	}{
		{name: "no dependencies", wantStatus: http.StatusOK, wantInBody: "ready"},
		{
			name: "all healthy",
			checks: map[string]handlers.Pinger{
				"postgres": func(ctx context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantInBody: "ready",
		},
		{
			name: "one failing",
			checks: map[string]handlers.Pinger{
				"postgres": func(ctx context.Context) error { return nil },
				"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantInBody: "redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.checks)
			r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantInBody) {
				t.Fatalf("body %s does not mention %q", w.Body.String(), tt.wantInBody)
			}
		})
	}
}
