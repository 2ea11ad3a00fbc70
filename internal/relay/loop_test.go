package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServe(t *testing.T, h *harness, interval time.Duration) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.relay.Serve(ctx, interval) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitForTimer(t *testing.T, h *harness) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
}

func TestServe_RunsEveryInterval(t *testing.T) {
	h := newHarness(t, lee("t1"))
	cancel, done := startServe(t, h, 10*time.Minute)

	waitForTimer(t, h)
	assert.Equal(t, int64(1), h.feed.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.LoopRunning))

	h.clock.Advance(10 * time.Minute)
	waitForTimer(t, h)
	assert.Equal(t, int64(2), h.feed.calls.Load())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.LoopRunning))
}

func TestServe_BacksOffAfterFailure(t *testing.T) {
	h := newHarness(t, lee("t1"))
	h.feed.err = errors.New("status 503")
	cancel, done := startServe(t, h, 10*time.Minute)

	waitForTimer(t, h)
	assert.Equal(t, int64(1), h.feed.calls.Load())

	h.clock.Advance(29 * time.Second)
	assert.Equal(t, int64(1), h.feed.calls.Load(), "first retry waits 30s")

	h.clock.Advance(time.Second)
	waitForTimer(t, h)
	assert.Equal(t, int64(2), h.feed.calls.Load())

	h.clock.Advance(59 * time.Second)
	assert.Equal(t, int64(2), h.feed.calls.Load(), "second retry waits 60s")

	h.clock.Advance(time.Second)
	waitForTimer(t, h)
	assert.Equal(t, int64(3), h.feed.calls.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestServe_StopsWhenCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.relay.Serve(ctx, time.Minute))
	assert.Equal(t, int64(0), h.feed.calls.Load())
}
