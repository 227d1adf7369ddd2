package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig(retries int) Config {
	return Config{
		Timeout:         2 * time.Second,
		MaxRetries:      retries,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 4,
	}
}

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := New(fastConfig(3)).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_ReturnsLastServerErrorWhenRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp, err := New(fastConfig(1)).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := New(fastConfig(3)).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(1), attempts.Load())
}

func TestCircuitBreaker_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"name":"Ada"}}`))
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("identity-ok"), testLogger())

	var out struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, cb.GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "Ada", out.Data.Name)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_GetJSON_MapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"user 7"}}`))
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("identity-404"), testLogger())
	err := cb.GetJSON(context.Background(), srv.URL, &struct{}{})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, gobreaker.StateClosed, cb.State(), "4xx must not trip the breaker")
}

func TestCircuitBreaker_TripsAndReportsUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("identity-trip"), testLogger())
	for range 2 {
		err := cb.GetJSON(context.Background(), srv.URL, &struct{}{})
		assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	err := cb.GetJSON(context.Background(), srv.URL, &struct{}{})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		sentinel error
	}{
		{http.StatusBadRequest, `{"error":{"code":"INVALID_INPUT","message":"bad id"}}`, apperrors.ErrInvalidInput},
		{http.StatusConflict, `plain text`, apperrors.ErrConflict},
		{http.StatusBadGateway, ``, apperrors.ErrServiceUnavail},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))
		resp, err := http.Get(srv.URL)
		require.NoError(t, err)

		assert.ErrorIs(t, ParseResponseError(resp, "identity"), tt.sentinel)
		srv.Close()
	}
}
