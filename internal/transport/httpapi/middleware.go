// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/wingedpig/jacquesd/internal/broadcast"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// the audit log.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// recovery converts a panicking handler into a 500 response rather than
// crashing the HTTP server.
func recovery(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Printf("httpapi: panic recovered: %v\n%s", err, debug.Stack())
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// audit logs every completed request and broadcasts it as an api_log
// message to every connected websocket client.
func audit(hub *broadcast.Hub, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, duration)
			if hub != nil {
				hub.PublishAPILog(r.Method, r.URL.Path, wrapped.status, duration.Milliseconds(), start.UnixMilli())
			}
		})
	}
}
