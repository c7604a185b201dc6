package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apimgmt/pkg/logger"
	"github.com/dmitrymomot/apimgmt/pkg/scheduler"
)

func newScheduler() *scheduler.Scheduler {
	return scheduler.New(
		scheduler.WithCheckInterval(5*time.Millisecond),
		scheduler.WithLogger(logger.Discard()),
	)
}

func noop(context.Context) error { return nil }

func TestScheduler_Add(t *testing.T) {
	t.Parallel()

	s := newScheduler()
	require.NoError(t, s.Add("a", scheduler.Every(time.Second), noop))

	err := s.Add("a", scheduler.Every(time.Second), noop)
	assert.ErrorIs(t, err, scheduler.ErrJobAlreadyRegistered)

	err = s.Add("b", scheduler.Every(time.Second), nil)
	assert.ErrorIs(t, err, scheduler.ErrJobNil)

	err = s.Add("c", nil, noop)
	assert.ErrorIs(t, err, scheduler.ErrInvalidSchedule)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "every 1s", jobs[0].Schedule)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Empty(t, s.Jobs())
}

func TestScheduler_StartWithoutJobs(t *testing.T) {
	t.Parallel()

	err := newScheduler().Start(context.Background())
	assert.ErrorIs(t, err, scheduler.ErrSchedulerNotConfigured)
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := newScheduler()
	require.NoError(t, s.Add("tick", scheduler.Every(10*time.Millisecond), func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_DoesNotOverlapRuns(t *testing.T) {
	t.Parallel()

	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		runs    atomic.Int32
	)
	release := make(chan struct{})

	s := newScheduler()
	require.NoError(t, s.Add("slow", scheduler.Every(time.Millisecond), func(ctx context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		if runs.Add(1) == 1 {
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return active.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "job re-entered while running")
	assert.True(t, s.Jobs()[0].Running)

	close(release)
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestScheduler_RecoversPanicsAndErrors(t *testing.T) {
	t.Parallel()

	var panics, failures atomic.Int32
	s := newScheduler()
	require.NoError(t, s.Add("panics", scheduler.Every(5*time.Millisecond), func(context.Context) error {
		panics.Add(1)
		panic("boom")
	}))
	require.NoError(t, s.Add("fails", scheduler.Every(5*time.Millisecond), func(context.Context) error {
		failures.Add(1)
		return errors.New("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return panics.Load() >= 2 && failures.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
