package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunNow(t *testing.T) {
	ran := 0
	s := New(time.Minute, func(ctx context.Context) error {
		ran++
		return nil
	})

	assert.True(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, ran)
	assert.False(t, s.GetState().LastRunAt.IsZero())
}

func TestScheduler_RunNowSkipsWhileCycleInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var startedOnce sync.Once
	s := New(time.Minute, func(ctx context.Context) error {
		startedOnce.Do(func() { close(started) })
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.True(t, s.RunNow(context.Background()))
	}()

	<-started
	// A second cycle must not start while the first is running.
	assert.False(t, s.RunNow(context.Background()))

	close(release)
	wg.Wait()

	assert.True(t, s.RunNow(context.Background()))
}

func TestScheduler_SkippedTickDoesNotAdvanceLastRun(t *testing.T) {
	ran := 0
	s := New(time.Minute, func(ctx context.Context) error {
		ran++
		return nil
	})
	s.enabled = true

	// Hold the guard as an in-flight cycle would.
	require.True(t, s.guard.TryAcquire())
	s.tick(context.Background())
	s.guard.Release()

	assert.Equal(t, 0, ran)
	assert.True(t, s.GetState().LastRunAt.IsZero())

	// An unobstructed tick runs the cycle and records it.
	s.tick(context.Background())
	assert.Equal(t, 1, ran)
	assert.False(t, s.GetState().LastRunAt.IsZero())
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(time.Minute, func(ctx context.Context) error { return nil })
	require.False(t, s.IsEnabled())

	s.Start(context.Background())
	assert.True(t, s.IsEnabled())
	assert.False(t, s.GetState().NextRunAt.IsZero())

	// Start is idempotent.
	s.Start(context.Background())
	assert.True(t, s.IsEnabled())

	s.Stop()
	assert.False(t, s.IsEnabled())
	assert.True(t, s.GetState().NextRunAt.IsZero())

	// Stop is idempotent.
	s.Stop()
}

func TestScheduler_IntervalFloor(t *testing.T) {
	s := New(time.Second, func(ctx context.Context) error { return nil })
	assert.Equal(t, time.Minute, s.GetState().Interval)
}
