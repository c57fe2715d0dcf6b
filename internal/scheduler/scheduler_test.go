package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func TestEveryFiresAfterEachInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	h := Every(context.Background(), clock, 5*time.Second, func(context.Context) { calls.Add(1) })
	defer h.Stop()

	clock.Advance(4 * time.Second)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, tick)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
}

func TestStoppedTaskNeverTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	h := Every(context.Background(), clock, time.Second, func(context.Context) { calls.Add(1) })
	h.Stop()

	select {
	case <-h.Done():
	case <-time.After(waitFor):
		t.Fatal("task goroutine did not exit")
	}

	clock.Advance(10 * time.Second)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, tick)
	assert.True(t, h.Stopped())
}

func TestStopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := Every(context.Background(), clock, time.Second, func(context.Context) {})

	assert.NotPanics(t, func() {
		h.Stop()
		h.Stop()
	})

	var never *Handle
	assert.NotPanics(t, never.Stop)
	assert.True(t, never.Stopped())
}

func TestSchedulerRestartReplacesTask(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(context.Background(), clock)
	defer s.Close()

	var first, second atomic.Int32
	old := s.Every("price", 5*time.Second, func(context.Context) { first.Add(1) })
	s.Every("price", 5*time.Second, func(context.Context) { second.Add(1) })

	assert.True(t, old.Stopped())

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, tick)
	assert.Equal(t, int32(0), first.Load())
	assert.True(t, s.Running("price"))
}

func TestSchedulerStopUnknownIsNoop(t *testing.T) {
	s := New(context.Background(), clockwork.NewFakeClock())
	defer s.Close()

	assert.NotPanics(t, func() { s.Stop("missing") })
	assert.False(t, s.Running("missing"))
}

func TestGoCancelsPreviousJob(t *testing.T) {
	s := New(context.Background(), clockwork.NewFakeClock())
	defer s.Close()

	cancelled := make(chan error, 1)
	started := make(chan struct{})
	s.Go("calendar", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled <- ctx.Err()
	})
	<-started

	ran := make(chan struct{})
	s.Go("calendar", func(context.Context) { close(ran) })

	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("previous job was not cancelled")
	}
	select {
	case <-ran:
	case <-time.After(waitFor):
		t.Fatal("replacement job did not run")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(context.Background(), clock)

	var calls atomic.Int32
	h := s.Every("auto-trade", 3*time.Second, func(context.Context) { calls.Add(1) })
	s.Close()
	s.Close()

	assert.True(t, h.Stopped())
	assert.Nil(t, s.Every("auto-trade", 3*time.Second, func(context.Context) { calls.Add(1) }))
	assert.Nil(t, s.Go("calendar", func(context.Context) {}))

	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, tick)
}
