package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/studytoday/internal/metrics"
	"github.com/hitoshi/studytoday/internal/middleware"
)

func newTestRouter(t *testing.T, rl *middleware.RateLimiter) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)

	return NewRouter(&RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)),
		CORSAllowedOrigin: "*",
		RateLimiter:       rl,
		StudyService:      successService(t),
		Page:              newTestPage(t),
		StoreChecker:      &mockStoreChecker{},
		MetricsHandler:    metrics.Handler(reg),
	})
}

func TestNewRouter_Routes(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		path       string
		wantStatus int
		wantCT     string
	}{
		{"/", http.StatusOK, "text/html; charset=utf-8"},
		{"/api/data", http.StatusOK, "application/json"},
		{"/api/history", http.StatusOK, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/metrics", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, w.Result().StatusCode, tt.wantStatus)
			}
			if tt.wantCT != "" && w.Result().Header.Get("Content-Type") != tt.wantCT {
				t.Errorf("GET %s Content-Type = %q, want %q", tt.path, w.Result().Header.Get("Content-Type"), tt.wantCT)
			}
		})
	}
}

func TestNewRouter_MetricsExposesCollector(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(w.Body.String(), "studytoday_") {
		t.Errorf("metrics output should contain studytoday_ metrics")
	}
}

func TestNewRouter_UnknownRoute_Returns404Or405(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/unknown", nil),
		httptest.NewRequest(http.MethodPost, "/api/data", nil),
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		status := w.Result().StatusCode
		if status != http.StatusNotFound && status != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 404 or 405", req.Method, req.URL.Path, status)
		}
	}
}

func TestNewRouter_AppliesCommonMiddleware(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	resp := w.Result()
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("X-Request-ID header should be set")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers should be set")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header should be set")
	}
}

func TestNewRouter_RateLimit_AppliesToStudyRoutesOnly(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:            0.001,
		Burst:           1,
		CleanupInterval: time.Minute,
	}, slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	defer rl.Stop()

	router := newTestRouter(t, rl)

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.9:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Result().StatusCode
	}

	if got := send("/api/data"); got != http.StatusOK {
		t.Errorf("first /api/data status = %d, want 200", got)
	}
	if got := send("/api/data"); got != http.StatusTooManyRequests {
		t.Errorf("second /api/data status = %d, want 429", got)
	}
	if got := send("/health"); got != http.StatusOK {
		t.Errorf("/health status = %d, want 200 (not rate limited)", got)
	}
}
