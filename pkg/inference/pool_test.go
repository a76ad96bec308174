package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func emptySession() (*modelSession, error) {
	return &modelSession{}, nil
}

func TestSessionPoolExclusiveUse(t *testing.T) {
	pool, err := newSessionPool(1, time.Second, emptySession)
	require.NoError(t, err)
	defer pool.Destroy()

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release(s)

	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.Same(t, s, again)
	pool.Release(again)

	stats := pool.Stats()
	require.Equal(t, 0, stats.InUse)
	require.Equal(t, int64(2), stats.TotalAcquired)
	require.Equal(t, int64(2), stats.TotalReleased)
}

func TestSessionPoolAcquireTimeout(t *testing.T) {
	pool, err := newSessionPool(1, 10*time.Millisecond, emptySession)
	require.NoError(t, err)
	defer pool.Destroy()

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(s)

	_, err = pool.Acquire(context.Background())
	require.Error(t, err)
	require.Equal(t, int64(1), pool.Stats().AcquireFailures)
}

func TestSessionPoolClosed(t *testing.T) {
	pool, err := newSessionPool(2, time.Second, emptySession)
	require.NoError(t, err)

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	pool.Destroy()
	pool.Destroy()

	_, err = pool.Acquire(context.Background())
	require.ErrorIs(t, err, ErrPoolClosed)

	require.NotPanics(t, func() { pool.Release(s) })
}

func TestSessionPoolFactoryError(t *testing.T) {
	calls := 0
	_, err := newSessionPool(3, time.Second, func() (*modelSession, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("no model")
		}
		return &modelSession{}, nil
	})
	require.ErrorContains(t, err, "no model")
	require.Equal(t, 2, calls)
}

func TestLogPoolStats(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	pool, err := newSessionPool(1, 10*time.Millisecond, emptySession)
	require.NoError(t, err)
	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	_, err = pool.Acquire(context.Background())
	require.Error(t, err)
	pool.Release(s)

	logPoolStats(logger, pool.Stats())
	pool.Destroy()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "Inference pool closed", entry.Message)
	require.Equal(t, int64(1), entry.Data["acquired"])
	require.Equal(t, int64(1), entry.Data["released"])
	require.Equal(t, int64(1), entry.Data["acquire_failures"])
}
