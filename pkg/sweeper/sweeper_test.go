package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/persistence/file"
	"github.com/dukex/chatflow/pkg/workflowstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireIdle(_ context.Context, _ time.Duration) (int, error) {
	c.calls.Add(1)

	return 1, c.err
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	_, err := New(log.Discard(), &countingExpirer{}, time.Minute, WithSchedule("every now and then"))
	assert.Error(t, err)
}

func TestRunOnce_ExpiresIdleStates(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := file.NewStateRepository(t.TempDir())
	store := workflowstate.NewStore(log.Discard(), repo, workflowstate.WithClock(clock))

	_, err := store.Start(t.Context(), "acme:1", "acme", "survey", "crm")
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)

	_, err = store.Start(t.Context(), "acme:2", "acme", "survey", "crm")
	require.NoError(t, err)

	now = now.Add(25 * time.Minute)

	s, err := New(log.Discard(), store, 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, s.RunOnce(t.Context()))

	state, err := store.Get(t.Context(), "acme:1")
	require.NoError(t, err)
	assert.Nil(t, state)

	state, err = store.Get(t.Context(), "acme:2")
	require.NoError(t, err)
	assert.NotNil(t, state)
}

func TestRunOnce_Failure(t *testing.T) {
	s, err := New(log.Discard(), &countingExpirer{err: errors.New("down")}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 0, s.RunOnce(t.Context()))
}

func TestStartStop(t *testing.T) {
	expirer := &countingExpirer{}

	s, err := New(log.Discard(), expirer, time.Minute, WithSchedule("@every 1s"))
	require.NoError(t, err)

	require.NoError(t, s.Start(t.Context()))
	require.NoError(t, s.Start(t.Context()))

	assert.Eventually(t, func() bool { return expirer.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, s.Stop(t.Context()))
	require.NoError(t, s.Stop(t.Context()))
}
