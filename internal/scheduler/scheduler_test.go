package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/scheduler"
)

type countingRecounter struct {
	calls atomic.Int32
	err   error
}

func (c *countingRecounter) RecountCategories(context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestEveryRunsJob(t *testing.T) {
	s := scheduler.New(nil)
	rc := &countingRecounter{}
	_, err := s.Every(time.Second, "recount", scheduler.RecountJob(rc, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return rc.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
}

func TestRejectsBadSchedules(t *testing.T) {
	s := scheduler.New(nil)
	job := func(context.Context) error { return nil }
	_, err := s.Every(0, "noop", job)
	assert.Error(t, err)
	_, err = s.Cron("not a spec", "noop", job)
	assert.Error(t, err)
	_, err = s.Cron("@hourly", "noop", job)
	assert.NoError(t, err)
}

func TestRecountJobPropagatesError(t *testing.T) {
	rc := &countingRecounter{err: errors.New("db locked")}
	err := scheduler.RecountJob(rc, nil)(context.Background())
	assert.EqualError(t, err, "db locked")
	assert.Equal(t, int32(1), rc.calls.Load())
}
