package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, time.Second)
}

func TestAdd(t *testing.T) {
	s := newTestScheduler()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("disabled", "  ", noop))
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Add("reminder", "0 */6 * * *", noop))
	assert.Equal(t, 1, s.Len())

	err := s.Add("broken", "every tuesday", noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule broken")
	assert.Equal(t, 1, s.Len())
}

func TestRunGivesDeadline(t *testing.T) {
	s := newTestScheduler()

	var deadline time.Time
	s.run("probe", func(ctx context.Context) error {
		var ok bool
		deadline, ok = ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)

	// Failures are logged, not propagated.
	s.run("failing", func(context.Context) error { return errors.New("boom") })
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Add("tick", "* * * * *", func(context.Context) error { return nil }))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
