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

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts its runs" }

func (j *countingJob) Run(_ context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RegisterRejectsDuplicatesAndNil(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	schedule := NewIntervalSchedule(time.Hour)

	require.NoError(t, s.Register(&countingJob{name: "sweep"}, schedule))

	assert.ErrorIs(t, s.Register(&countingJob{name: "sweep"}, schedule), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, schedule), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "other"}, nil), ErrNilSchedule)
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.RunNow(context.Background(), "sweep"))
	assert.Equal(t, int64(1), job.runs.Load())

	assert.ErrorIs(t, s.RunNow(context.Background(), "no-such-job"), ErrJobNotFound)
}

func TestScheduler_RunNowSurfacesJobError(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	boom := errors.New("sweep failed")
	job := &countingJob{name: "sweep", err: boom}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	assert.ErrorIs(t, s.RunNow(context.Background(), "sweep"), boom)
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	require.NoError(t, s.Register(&countingJob{name: "sweep"}, NewIntervalSchedule(time.Hour)))

	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}
