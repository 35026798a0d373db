package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadExpression(t *testing.T) {
	s := New(time.Minute)
	assert.Error(t, s.Add("broken", "whenever", func(context.Context) error { return nil }))
	assert.NoError(t, s.Add("hourly", "@hourly", func(context.Context) error { return nil }))
}

func TestRunDueFollowsSchedule(t *testing.T) {
	s := New(time.Minute)
	var runs atomic.Int32
	require.NoError(t, s.Add("sweep", "0 * * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	start := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)
	s.plan(start)
	ctx := context.Background()

	s.runDue(ctx, start.Add(30*time.Minute))
	s.wg.Wait()
	assert.Equal(t, int32(0), runs.Load())

	s.runDue(ctx, time.Date(2024, 5, 1, 11, 0, 5, 0, time.UTC))
	s.wg.Wait()
	assert.Equal(t, int32(1), runs.Load())

	// Same hour again: next activation is 12:00.
	s.runDue(ctx, time.Date(2024, 5, 1, 11, 30, 0, 0, time.UTC))
	s.wg.Wait()
	assert.Equal(t, int32(1), runs.Load())

	s.runDue(ctx, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s.wg.Wait()
	assert.Equal(t, int32(2), runs.Load())
}

func TestFailingJobKeepsSchedule(t *testing.T) {
	s := New(time.Minute)
	var runs atomic.Int32
	require.NoError(t, s.Add("flaky", "* * * * *", func(context.Context) error {
		runs.Add(1)
		return errors.New("database is locked")
	}))

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.plan(start)
	for i := 1; i <= 3; i++ {
		s.runDue(context.Background(), start.Add(time.Duration(i)*time.Minute))
		s.wg.Wait()
	}
	assert.Equal(t, int32(3), runs.Load())
}

func TestRunStops(t *testing.T) {
	s := New(10 * time.Millisecond)
	var runs atomic.Int32
	require.NoError(t, s.Add("every-minute", "* * * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	// Pretend a minute passes on every tick.
	var minutes atomic.Int64
	base := time.Date(2024, 5, 1, 10, 0, 30, 0, time.UTC)
	s.now = func() time.Time { return base.Add(time.Duration(minutes.Add(1)) * time.Minute) }

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestAddConcurrentWithRun(t *testing.T) {
	s := New(time.Millisecond)
	noop := func(context.Context) error { return nil }

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Add("noop", "@hourly", noop))
	}
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
