package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_AddJob_AcceptsBothFormats(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{}))
	require.NoError(t, s.AddJob("*/5 * * * *", &countingJob{}))
	require.NoError(t, s.AddJob("@every 30s", &countingJob{}))
	assert.Equal(t, []string{"counting"}, s.Jobs())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond, "failing jobs keep their schedule")
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())

	job.err = errors.New("boom")
	assert.EqualError(t, s.RunNow(job), "boom")
}
