package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/InventoryGo/pkg/httputil"
	"github.com/utafrali/InventoryGo/pkg/idempotency"
	"github.com/utafrali/InventoryGo/pkg/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Idempotency replays the stored response for a repeated POST carrying the
// same Idempotency-Key. A key whose first request is still running yields
// 409. Responses with a 5xx status are not stored so the client may retry.
func Idempotency(store idempotency.Store, ttl time.Duration, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderIdempotencyKey)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			log := logger.WithContext(ctx, l)
			scoped := r.Method + " " + r.URL.Path + " " + key

			if rec, err := store.Get(ctx, scoped); err != nil {
				log.WarnContext(ctx, "idempotency lookup failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			} else if rec != nil {
				replay(w, rec)
				return
			}

			reserved, err := store.Reserve(ctx, scoped, ttl)
			if err != nil {
				log.WarnContext(ctx, "idempotency reserve failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				// Lost a race with a request that completed in between.
				if rec, _ := store.Get(ctx, scoped); rec != nil {
					replay(w, rec)
					return
				}
				httputil.WriteJSON(w, http.StatusConflict, httputil.Response{Error: &httputil.ErrorResponse{
					Code:      "REQUEST_IN_PROGRESS",
					Message:   "a request with this idempotency key is still in progress",
					Retryable: true,
					RequestID: logger.CorrelationIDFromContext(ctx),
				}})
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK, capture: &bytes.Buffer{}}
			next.ServeHTTP(sw, r)

			if sw.status >= http.StatusInternalServerError {
				if err := store.Release(ctx, scoped); err != nil {
					log.WarnContext(ctx, "idempotency release failed", slog.String("error", err.Error()))
				}
				return
			}
			rec := &idempotency.Record{
				Status:      sw.status,
				ContentType: sw.Header().Get("Content-Type"),
				Body:        sw.capture.Bytes(),
				StoredAt:    time.Now().UTC(),
			}
			if err := store.Complete(ctx, scoped, rec, ttl); err != nil {
				log.WarnContext(ctx, "idempotency store failed", slog.String("error", err.Error()))
			}
		})
	}
}

func replay(w http.ResponseWriter, rec *idempotency.Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}
