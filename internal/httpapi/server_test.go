package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
)

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code engine.Code
		want int
	}{
		{engine.CodeNotFound, http.StatusNotFound},
		{engine.CodeInvalidTransition, http.StatusConflict},
		{engine.CodePreconditionFailed, http.StatusPreconditionFailed},
		{engine.CodeExternalFailure, http.StatusBadGateway},
		{engine.CodeCorruption, http.StatusInternalServerError},
		{engine.Code("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := httpStatusForCode(tt.code); got != tt.want {
			t.Errorf("httpStatusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := apiKeyMiddleware("secret", next)

	req := httptest.NewRequest(http.MethodGet, "/workspaces", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/workspaces", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with key: %d", rec.Code)
	}

	// Query param fallback.
	req = httptest.NewRequest(http.MethodGet, "/workspaces?api_key=secret", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query key: %d", rec.Code)
	}

	// Health stays open.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}

func TestCORSMiddleware_options(t *testing.T) {
	h := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run on OPTIONS")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/workspaces", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("OPTIONS: %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("CORS header missing")
	}
}

func TestBodyLimitMiddleware(t *testing.T) {
	var readErr error
	h := bodyLimitMiddleware(8, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/workspaces", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if readErr == nil {
		t.Fatal("oversized body not limited")
	}

	// GET requests are not limited.
	req = httptest.NewRequest(http.MethodGet, "/workspaces", strings.NewReader(strings.Repeat("x", 64)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if readErr != nil {
		t.Fatalf("GET body limited: %v", readErr)
	}
}
