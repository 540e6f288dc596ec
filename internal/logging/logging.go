// Package logging builds the service logger and the request logging middleware.
package logging

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New creates the root logger. Development environments get a human readable console output.
func New(w io.Writer, env string) zerolog.Logger {
	if env == "" || env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, mostly used by tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// RequestID gets the request ID set by chi's RequestID middleware.
func RequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// ForRequest returns a child logger carrying the request ID.
func ForRequest(logger zerolog.Logger, r *http.Request) *zerolog.Logger {
	child := logger.With().Str("request_id", RequestID(r.Context())).Logger()
	return &child
}

// RequestLogger logs every request once it has been served.
func RequestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.
				Str("request_id", RequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Str("remote_ip", r.RemoteAddr).
				Msg("request")
		})
	}
}
