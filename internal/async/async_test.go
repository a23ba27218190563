package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

type fakeJobs struct {
	calls atomic.Int32
	errs  []error
}

func (f *fakeJobs) RunJob(_ context.Context, _ uuid.UUID, _ string) error {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) {
		return f.errs[n]
	}
	return nil
}

func fastPolicy() RetryPolicy { return RetryPolicy{MaxRetries: 2, Delay: time.Millisecond} }

func TestRunner_RetriesThenSucceeds(t *testing.T) {
	jobs := &fakeJobs{errs: []error{errors.New("boom"), errors.New("boom")}}
	r := NewRunner(jobs, fastPolicy(), nil)

	err := r.Run(context.Background(), Task{JobID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int32(3), jobs.calls.Load())
}

func TestRunner_ExhaustsRetries(t *testing.T) {
	last := errors.New("third")
	jobs := &fakeJobs{errs: []error{errors.New("one"), errors.New("two"), last, errors.New("never")}}
	r := NewRunner(jobs, fastPolicy(), nil)

	err := r.Run(context.Background(), Task{JobID: uuid.New()})
	require.ErrorIs(t, err, last)
	assert.Equal(t, int32(3), jobs.calls.Load())
}

func TestRunner_PermanentErrorsStopImmediately(t *testing.T) {
	for _, perm := range []error{common.ErrNotFound, common.ErrInvalidInput, constants.ErrIllegalTransition} {
		jobs := &fakeJobs{errs: []error{perm, perm, perm}}
		r := NewRunner(jobs, fastPolicy(), nil)

		err := r.Run(context.Background(), Task{JobID: uuid.New()})
		require.ErrorIs(t, err, perm)
		assert.Equal(t, int32(1), jobs.calls.Load(), "error %v", perm)
	}
}

func TestRunner_ZeroRetries(t *testing.T) {
	jobs := &fakeJobs{errs: []error{errors.New("boom")}}
	r := NewRunner(jobs, RetryPolicy{MaxRetries: 0, Delay: time.Millisecond}, nil)

	require.Error(t, r.Run(context.Background(), Task{JobID: uuid.New()}))
	assert.Equal(t, int32(1), jobs.calls.Load())
}

func TestRunner_StopsOnCancelledContext(t *testing.T) {
	jobs := &fakeJobs{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	r := NewRunner(jobs, RetryPolicy{MaxRetries: 2, Delay: time.Hour}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Run(ctx, Task{JobID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, int32(1), jobs.calls.Load())
}

func TestTaskCodec(t *testing.T) {
	task := Task{JobID: uuid.New(), Namespace: "ns1"}
	b, err := encodeTask(task)
	require.NoError(t, err)

	got, err := decodeTask(b)
	require.NoError(t, err)
	assert.Equal(t, task.JobID, got.JobID)
	assert.Equal(t, "ns1", got.Namespace)
	assert.False(t, got.SubmittedAt.IsZero())

	_, err = decodeTask([]byte(`{"namespace":"x"}`))
	require.Error(t, err)
	_, err = decodeTask([]byte(`not json`))
	require.Error(t, err)
}

func TestProcessorQueue_RunsTasks(t *testing.T) {
	var mu sync.Mutex
	seen := map[uuid.UUID]bool{}
	var wg sync.WaitGroup

	h := TaskHandlerFunc(func(_ context.Context, task Task) error {
		defer wg.Done()
		mu.Lock()
		seen[task.JobID] = true
		mu.Unlock()
		return nil
	})
	q := NewProcessorQueue(h, nil, WithWorkers(3), WithQueueSize(2))

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		wg.Add(1)
		require.NoError(t, q.Enqueue(context.Background(), Task{JobID: ids[i]}))
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	for _, id := range ids {
		assert.True(t, seen[id])
	}
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(TaskHandlerFunc(func(context.Context, Task) error { return nil }), nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Task{JobID: uuid.New()})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_AppliesTimeout(t *testing.T) {
	done := make(chan error, 1)
	h := TaskHandlerFunc(func(ctx context.Context, _ Task) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})
	q := NewProcessorQueue(h, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), Task{JobID: uuid.New()}))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not cancelled")
	}
}

func TestHeartbeatTouchesUntilStopped(t *testing.T) {
	var touches atomic.Int32
	stop := heartbeat(context.Background(), 10*time.Millisecond, func() error {
		touches.Add(1)
		return errors.New("ack wait extension refused")
	})

	require.Eventually(t, func() bool { return touches.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()
	after := touches.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, touches.Load(), "no touches after stop")
	stop()
}

func TestHeartbeatEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var touches atomic.Int32
	stop := heartbeat(ctx, time.Hour, func() error {
		touches.Add(1)
		return nil
	})
	cancel()
	stop()
	assert.Zero(t, touches.Load())

	noop := heartbeat(context.Background(), 0, func() error {
		t.Fatal("disabled heartbeat must not tick")
		return nil
	})
	noop()
}
