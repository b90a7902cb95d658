// Copyright 2025 Certen Labs
//
// Request-ID middleware. The teacher tags batches with a google/uuid
// value (pkg/batch's BatchID) so every log line about a batch can be
// correlated; this generalizes the same idea to HTTP requests, tagging
// each with a UUID surfaced in both the response header and the access
// log line.

package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WithRequestID wraps next so every request is assigned a UUID, echoed
// back as X-Request-Id, and logged with its method, path, status, and
// duration once the handler returns.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("request_id=%s method=%s path=%s status=%d duration=%s", id, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
