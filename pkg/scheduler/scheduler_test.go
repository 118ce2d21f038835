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

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler()

	var runs int32
	require.NoError(t, s.Register("tick", "@every 1s", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("errors are logged, not fatal")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 1 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler()
	assert.Error(t, s.Register("bad", "every now and then", func(context.Context) error { return nil }))
}
