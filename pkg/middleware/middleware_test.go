package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/pkg/idempotency"
	"github.com/utafrali/InventoryGo/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- RequestLogging ---

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var seen string
	h := RequestLogging(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderCorrelationID))
}

func TestRequestLogging_PropagatesHeaders(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("inventory", "info", &buf)

	var actor string
	h := RequestLogging(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = logger.ActorIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
	req.Header.Set(HeaderCorrelationID, "corr-1")
	req.Header.Set(HeaderActorID, "user-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "user-9", actor)
	assert.Equal(t, "corr-1", rec.Header().Get(HeaderCorrelationID))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "corr-1", line["correlation_id"])
	assert.Equal(t, "user-9", line["actor_id"])
	assert.Equal(t, float64(http.StatusCreated), line["status"])
}

// --- Recovery ---

func TestRecovery_WritesEnvelope(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
}

// --- Metrics ---

func TestHTTPMetrics_CountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "inventory")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for range 2 {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.total.WithLabelValues(http.MethodGet, "/api/v1/products/{id}", "404")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inFlight))
}

// collectHistogram returns the histogram sample for the series with the given
// label values.
func collectHistogram(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Histogram {
	t.Helper()
	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		matched := 0
		for _, lp := range d.GetLabel() {
			if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return d.GetHistogram()
		}
	}
	return nil
}

func TestHTTPMetrics_ObservesDuration(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry(), "inventory")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Post("/api/v1/stock/add", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/stock/add", nil))

	h := collectHistogram(t, m.duration, map[string]string{
		"method": http.MethodPost,
		"route":  "/api/v1/stock/add",
		"status": "201",
	})
	require.NotNil(t, h)
	assert.Equal(t, uint64(1), h.GetSampleCount())
	assert.GreaterOrEqual(t, h.GetSampleSum(), 0.0)
}

// --- Tracing ---

func TestTracing_PassesThroughStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Tracing())
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

// --- Idempotency ---

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	var calls atomic.Int32
	h := Idempotency(idempotency.NewMemoryStore(), time.Hour, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
		}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
		req.Header.Set(HeaderIdempotencyKey, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	second := send()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Empty(t, first.Header().Get(HeaderReplayed))
}

func TestIdempotency_ServerErrorIsNotStored(t *testing.T) {
	var calls atomic.Int32
	h := Idempotency(idempotency.NewMemoryStore(), time.Hour, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
		req.Header.Set(HeaderIdempotencyKey, "abc")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_InFlightKeyConflicts(t *testing.T) {
	store := idempotency.NewMemoryStore()
	ok, err := store.Reserve(t.Context(), "POST /api/v1/transfers abc", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	h := Idempotency(store, time.Hour, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "REQUEST_IN_PROGRESS")
}

func TestIdempotency_IgnoresRequestsWithoutKey(t *testing.T) {
	var calls atomic.Int32
	h := Idempotency(idempotency.NewMemoryStore(), time.Hour, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))

	for range 2 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	}
	assert.Equal(t, int32(2), calls.Load())
}

// --- RateLimit ---

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	h := RateLimit(1, 2, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/add", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "buckets are per client")
}

func TestVisitorStore_EvictsStaleEntries(t *testing.T) {
	s := newVisitorStore(1, 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.lastCleanup = now

	s.get("10.0.0.1")
	s.get("10.0.0.2")
	require.Equal(t, 2, s.len())

	now = now.Add(2 * time.Minute)
	s.get("10.0.0.3")

	assert.Equal(t, 1, s.len())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.9:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.9:80", "198.51.100.7"},
		{"garbage forwarded falls through", map[string]string{"X-Forwarded-For": "nope"}, "10.0.0.9:80", "10.0.0.9"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
