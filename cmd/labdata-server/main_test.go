package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/labdata/labdata/internal/config"
	"github.com/labdata/labdata/internal/platform/auth"
)

const testSecret = "test-secret-with-at-least-32-bytes!!"

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8000",
		Env:            "test",
		LogLevel:       "debug",
		TokenSecret:    testSecret,
		TokenTTL:       time.Hour,
		CORSOrigins:    []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		RequestTimeout: 5 * time.Second,
	}
}

func newTestHTTPServer(t *testing.T) http.Handler {
	t.Helper()
	tokens := auth.NewTokenManager(testSecret, time.Hour, nil)
	return newServer(testConfig(), zerolog.Nop(), nil, tokens, prometheus.NewRegistry())
}

func serve(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	h := newTestHTTPServer(t)
	rec := serve(h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on every response")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestServer_SchemaDocument(t *testing.T) {
	h := newTestHTTPServer(t)
	rec := serve(h, http.MethodGet, "/api/v1/schema/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Paths map[string]interface{} `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, p := range []string{
		"/labs/", "/tests/", "/scores/", "/test-results/",
		"/indicators/", "/metrics/", "/indicator-metrics/", "/references/",
	} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("schema missing %s", p)
		}
	}
}

func TestServer_AccessRulesBeforeStorage(t *testing.T) {
	h := newTestHTTPServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous create", http.MethodPost, "/api/v1/labs/", "", http.StatusUnauthorized},
		{"anonymous object delete", http.MethodDelete, "/api/v1/references/" + "7f0c1c3e-2b8a-4d4e-9a57-0d3c5d8f1a11/", "", http.StatusUnauthorized},
		{"invalid token on read", http.MethodGet, "/api/v1/labs/", "garbage", http.StatusUnauthorized},
		{"test results write", http.MethodPost, "/api/v1/test-results/", "", http.StatusMethodNotAllowed},
		{"test results anonymous read", http.MethodGet, "/api/v1/test-results/", "", http.StatusUnauthorized},
		{"me anonymous", http.MethodGet, "/api/v1/auth/users/me/", "", http.StatusUnauthorized},
		{"collection delete", http.MethodDelete, "/api/v1/labs/", "", http.StatusMethodNotAllowed},
		{"object post", http.MethodPost, "/api/v1/labs/7f0c1c3e-2b8a-4d4e-9a57-0d3c5d8f1a11/", "", http.StatusMethodNotAllowed},
		{"collection put", http.MethodPut, "/api/v1/metrics/", "", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/api/v1/nothing-here/", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, tt.token)
			if rec.Code != tt.want {
				t.Errorf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	h := newTestHTTPServer(t)
	serve(h, http.MethodGet, "/health", "")

	rec := serve(h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "labdata_http_requests_total") {
		t.Error("expected HTTP request counter in exposition")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig()

	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", got)
	}

	cfg.LogLevel = "not-a-level"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %s", got)
	}
}
