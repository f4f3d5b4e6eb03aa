package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	var runs, failures atomic.Int32
	s := New(
		Job{Name: "count", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}},
		Job{Name: "fail", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
			failures.Add(1)
			return errors.New("boom")
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	// 실패한 작업도 다음 주기에 다시 실행된다
	require.Eventually(t, func() bool { return failures.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(Job{Name: "prune"})
	require.Equal(t, time.Hour, s.jobs[0].Interval)
}
