package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	mu    sync.Mutex
	calls []time.Time
	n     int
	err   error
}

func (f *fakeMarker) MarkOverdue(_ context.Context, asOf time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, asOf)
	return f.n, f.err
}

func (f *fakeMarker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newLocker(t *testing.T) *redislock.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redislock.New(client)
}

func TestSweepOnce_WithoutLocker(t *testing.T) {
	marker := &fakeMarker{n: 2}
	s := NewOverdueSweeper(marker, nil, time.Minute, testLogger())
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	n, err := s.SweepOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Equal(t, 1, marker.callCount())
	assert.Equal(t, fixed, marker.calls[0])
}

func TestSweepOnce_ReleasesLock(t *testing.T) {
	locker := newLocker(t)
	marker := &fakeMarker{n: 1}
	s := NewOverdueSweeper(marker, locker, time.Minute, testLogger())

	_, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	_, err = s.SweepOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, marker.callCount())
}

func TestSweepOnce_SkipsWhenLockHeld(t *testing.T) {
	locker := newLocker(t)
	held, err := locker.Obtain(context.Background(), overdueLockKey, time.Minute, nil)
	require.NoError(t, err)
	defer func() { _ = held.Release(context.Background()) }()

	marker := &fakeMarker{n: 1}
	s := NewOverdueSweeper(marker, locker, time.Minute, testLogger())

	n, err := s.SweepOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, marker.callCount())
}

func TestSweepOnce_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	s := NewOverdueSweeper(&fakeMarker{err: boom}, nil, time.Minute, testLogger())

	_, err := s.SweepOnce(context.Background())

	assert.ErrorIs(t, err, boom)
}

func TestRun_StopsOnCancel(t *testing.T) {
	marker := &fakeMarker{}
	s := NewOverdueSweeper(marker, nil, 10*time.Millisecond, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return marker.callCount() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestLockTTL(t *testing.T) {
	assert.Equal(t, 30*time.Second, (&OverdueSweeper{interval: time.Minute}).lockTTL())
	assert.Equal(t, 5*time.Minute, (&OverdueSweeper{interval: time.Hour}).lockTTL())
}
