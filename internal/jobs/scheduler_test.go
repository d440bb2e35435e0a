package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTriggerRunsJobAndRecordsStatus(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	s.Every("sweep", time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	s.Every("broken", time.Hour, func(context.Context) error { return errors.New("boom") })

	require.NoError(t, s.Trigger(context.Background(), "sweep"))
	require.EqualError(t, s.Trigger(context.Background(), "broken"), "boom")
	require.ErrorIs(t, s.Trigger(context.Background(), "missing"), ErrUnknownJob)
	require.Equal(t, int32(1), calls.Load())

	st := s.Status()
	require.Len(t, st, 2)
	require.Equal(t, "broken", st[0].Name)
	require.Equal(t, "boom", st[0].LastError)
	require.Equal(t, "sweep", st[1].Name)
	require.Equal(t, 1, st[1].Runs)
	require.NotNil(t, st[1].LastRun)
	require.Equal(t, "1h0m0s", st[1].Interval)
}

func TestStartRunsOnTickerUntilStop(t *testing.T) {
	s := New(nil)
	ran := make(chan struct{}, 10)
	s.Every("tick", 10*time.Millisecond, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	require.False(t, s.Active())
	s.Start(context.Background())
	s.Start(context.Background())
	require.True(t, s.Active())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	s.Stop()
	require.False(t, s.Active())
	s.Stop()
}
