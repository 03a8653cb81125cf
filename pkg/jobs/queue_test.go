package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var calls int32
	failed := make(chan Job, 1)

	q := NewQueue("retry", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnFailure: func(_ context.Context, job Job, _ error) {
			failed <- job
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	select {
	case job := <-failed:
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook not invoked")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRecoversFromPanics(t *testing.T) {
	failed := make(chan error, 1)
	q := NewQueue("panic", func(context.Context, Job) error {
		panic("kaboom")
	}, QueueConfig{OnFailure: func(_ context.Context, _ Job, err error) { failed <- err }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "p"}))
	select {
	case err := <-failed:
		assert.Contains(t, err.Error(), "kaboom")
	case <-time.After(time.Second):
		t.Fatal("panic not converted to failure")
	}
}

func TestQueueRejectsWhenStopped(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "1"})
	require.ErrorIs(t, err, ErrQueueNotRunning)

	q.Start(context.Background())
	q.Stop()
	require.ErrorIs(t, q.Enqueue(Job{ID: "2"}), ErrQueueNotRunning)
}

func TestQueueBackoffIsCapped(t *testing.T) {
	q := NewQueue("b", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
}
