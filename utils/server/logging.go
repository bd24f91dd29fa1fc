package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mouncefik/nbgen/utils/config"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// requestID returns the id logRequest assigned to r
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Build auth info string, masking the token
		var authInfo string
		if auth := r.Header.Get("Authorization"); auth != "" {
			authInfo = maskToken(auth)
		}

		config.DebugLog("Request details:")
		config.DebugLog("- Remote Address: %s", r.RemoteAddr)
		config.DebugLog("- Content Length: %d", r.ContentLength)
		config.DebugLog("- Content Type: %s", r.Header.Get("Content-Type"))

		config.VerboseLog("Incoming request: %s %s", r.Method, r.URL.String())

		handler(wrapped, r)

		duration := time.Since(start)

		config.VerboseLog("Response: status=%d bytes=%d duration=%v",
			wrapped.statusCode,
			wrapped.written,
			duration)

		if wrapped.statusCode >= 400 {
			config.DebugLog("Error response details:")
			config.DebugLog("- Status Code: %d", wrapped.statusCode)
			config.DebugLog("- Path: %s", r.URL.Path)
		}

		config.Logger().Infow("Request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"auth", authInfo,
			"status", wrapped.statusCode,
			"bytes", wrapped.written,
			"duration", duration,
		)
	}
}
