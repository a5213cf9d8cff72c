package trigger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soon/internal/agenda"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) RefreshAgenda(context.Context) (agenda.Agenda, error) {
	c.calls.Add(1)
	return agenda.Agenda{Date: 3}, c.err
}

func TestStartRefreshesImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &countingRefresher{}
	run, err := New("1 4 * * *", time.UTC, r)
	require.NoError(t, err)
	run.Start(ctx)

	assert.EqualValues(t, 1, r.calls.Load())
	next := run.Next()
	assert.Equal(t, 4, next.UTC().Hour())
	assert.Equal(t, 1, next.UTC().Minute())
}

func TestScheduleFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &countingRefresher{err: errors.New("skew")}
	run, err := New("@every 1s", time.UTC, r)
	require.NoError(t, err)
	run.Start(ctx)

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 3*time.Second, 50*time.Millisecond)
}

func TestJobSkippedAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &countingRefresher{}
	run, err := New("1 4 * * *", time.UTC, r)
	require.NoError(t, err)
	run.Start(ctx)
	assert.Zero(t, r.calls.Load())
}

func TestBadSchedule(t *testing.T) {
	_, err := New("not a schedule", time.UTC, &countingRefresher{})
	require.Error(t, err)
}
