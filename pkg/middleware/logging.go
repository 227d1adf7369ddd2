package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/pkg/logger"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderActorID       = "X-Actor-ID"
)

// RequestLogging assigns a correlation ID, records the acting user from the
// X-Actor-ID header, stores an enriched logger in the request context and
// writes one access log line per request.
func RequestLogging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get(HeaderCorrelationID)
			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			w.Header().Set(HeaderCorrelationID, correlationID)

			ctx := logger.WithCorrelationID(r.Context(), correlationID)
			if actor := r.Header.Get(HeaderActorID); actor != "" {
				ctx = logger.WithActorID(ctx, actor)
			}
			reqLogger := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, reqLogger)

			sw := wrapWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			reqLogger.Log(ctx, level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", sw.bytes),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
