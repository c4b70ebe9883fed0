package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestScheduleRejectsBadSpecAndDuplicates(t *testing.T) {
	s := NewJobScheduler(time.UTC, 0, quietLogger())
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Schedule("bad", "not a cron spec", noop))
	require.NoError(t, s.Schedule("nightly", "0 30 2 * * *", noop))
	require.NoError(t, s.Schedule("monitor", "0 11 * * *", noop))
	assert.Error(t, s.Schedule("nightly", "@daily", noop))

	jobs := s.Jobs()
	assert.Len(t, jobs, 2)
	assert.Contains(t, jobs, "nightly")
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewJobScheduler(time.UTC, 0, quietLogger())
	assert.Error(t, s.Start())
	assert.NoError(t, s.Stop())
}

func TestRunsJobOnSchedule(t *testing.T) {
	s := NewJobScheduler(time.UTC, time.Second, quietLogger())
	var runs atomic.Int32
	require.NoError(t, s.Schedule("tick", "@every 1s", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		runs.Add(1)
		return nil
	}))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.NextRun().IsZero())
	assert.Error(t, s.Start())
	assert.Error(t, s.Schedule("late", "@daily", func(context.Context) error { return nil }))

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestRunNowAndRemove(t *testing.T) {
	s := NewJobScheduler(time.UTC, 0, quietLogger())
	var runs int
	require.NoError(t, s.Schedule("nightly", "@daily", func(context.Context) error {
		runs++
		return errors.New("source unavailable")
	}))

	require.NoError(t, s.RunNow("nightly"))
	assert.Equal(t, 1, runs)
	assert.Error(t, s.RunNow("missing"))

	require.NoError(t, s.Remove("nightly"))
	assert.Empty(t, s.Jobs())
	assert.Error(t, s.Remove("nightly"))
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := NewJobScheduler(time.UTC, 0, quietLogger())
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	require.NoError(t, s.Schedule("long", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))

	require.NoError(t, s.Start())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}
	require.NoError(t, s.Stop())
	assert.True(t, cancelled.Load())
}
