// Package middleware decorates the front-end routes: a tracing span per
// request, panic recovery, and combined-format access logging.
package middleware

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/corehttp/txcore/internal/log"
	"github.com/corehttp/txcore/internal/tracing"
)

// Trace opens a span covering the whole request and closes it once the
// downstream handler returns.
func Trace() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, span := tracing.PrepareRequest(r, "Request")
			defer span.End()
			next.ServeHTTP(w, r)
		})
	}
}

// Recover converts a downstream panic into a 500 instead of tearing the
// connection down, logging the value it recovered.
func Recover() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return handlers.RecoveryHandler(
			handlers.RecoveryLogger(recoveryLogger{}),
			handlers.PrintRecoveryStack(true),
		)(next)
	}
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("panic serving request", log.Pairs{"detail": v})
}

// AccessLog writes one combined-log-format line per request to the given
// file, or stdout when path is empty.
func AccessLog(path string) (mux.MiddlewareFunc, error) {
	out := os.Stdout
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		out = f
	}
	return func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(out, next)
	}, nil
}

// Decorate observes per-request wall time at debug level, the request
// decoration applied to every proxy path.
func Decorate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request complete", log.Pairs{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start).String(),
		})
	})
}
