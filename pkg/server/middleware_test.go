// Copyright 2025 Certen Labs

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestIDSetsHeader(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	wrapped := WithRequestID(inner)

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Errorf("X-Request-Id header not set")
	}
}
