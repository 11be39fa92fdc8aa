// ABOUTME: Tests for the bounded worker pool
// ABOUTME: Concurrency cap, FIFO admission, queue-full rejection, shutdown draining

package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processorFunc adapts a function to the Processor interface.
type processorFunc func(ctx context.Context, job Job) error

func (f processorFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }

func TestPool_ConcurrencyCap(t *testing.T) {
	const (
		maxWorkers = 10
		totalJobs  = 15
	)

	var (
		inFlight int64
		peak     int64
		mu       sync.Mutex
	)
	release := make(chan struct{})
	var done sync.WaitGroup
	done.Add(totalJobs)

	proc := processorFunc(func(_ context.Context, _ Job) error {
		defer done.Done()
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		<-release
		atomic.AddInt64(&inFlight, -1)
		return nil
	})

	pool := NewPool(maxWorkers, totalJobs, proc, nil)
	pool.Start()

	for i := 0; i < totalJobs; i++ {
		require.NoError(t, pool.Enqueue(Job{ThreadID: "t"}))
	}

	// Let the pool saturate, then verify the cap held.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&inFlight) == maxWorkers
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.LessOrEqual(t, peak, int64(maxWorkers))
	mu.Unlock()

	// Remaining 5 start only as in-flight jobs complete.
	close(release)
	done.Wait()
	pool.Shutdown()

	mu.Lock()
	assert.LessOrEqual(t, peak, int64(maxWorkers))
	mu.Unlock()
}

func TestPool_QueueFull(t *testing.T) {
	block := make(chan struct{})
	proc := processorFunc(func(_ context.Context, _ Job) error {
		<-block
		return nil
	})

	pool := NewPool(1, 1, proc, nil)
	pool.Start()
	defer func() {
		close(block)
		pool.Shutdown()
	}()

	// First job occupies the single worker, second fills the queue.
	require.NoError(t, pool.Enqueue(Job{ThreadID: "a"}))
	assert.Eventually(t, func() bool {
		return pool.Enqueue(Job{ThreadID: "b"}) == nil
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, pool.Enqueue(Job{ThreadID: "c"}), ErrQueueFull)
}

func TestPool_ShutdownDrainsQueuedJobs(t *testing.T) {
	var processed int64
	proc := processorFunc(func(_ context.Context, _ Job) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})

	pool := NewPool(2, 16, proc, nil)
	pool.Start()

	for i := 0; i < 8; i++ {
		require.NoError(t, pool.Enqueue(Job{ThreadID: "t"}))
	}

	pool.Shutdown()
	assert.Equal(t, int64(8), atomic.LoadInt64(&processed))
}

func TestPool_ShutdownDoesNotCancelInFlightJobs(t *testing.T) {
	release := make(chan struct{})
	jobErr := make(chan error, 1)
	proc := processorFunc(func(ctx context.Context, _ Job) error {
		select {
		case <-ctx.Done():
			jobErr <- ctx.Err()
			return ctx.Err()
		case <-release:
			jobErr <- nil
			return nil
		}
	})

	pool := NewPool(1, 1, proc, nil)
	pool.Start()
	require.NoError(t, pool.Enqueue(Job{ThreadID: "t"}))

	// Shutdown while the job is in flight. It must block on the job, not
	// cancel it.
	shutdownDone := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(shutdownDone)
	}()

	select {
	case err := <-jobErr:
		t.Fatalf("job ended during shutdown before release: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-jobErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	select {
	case <-shutdownDone:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return")
	}
}

func TestPool_EnqueueAfterShutdown(t *testing.T) {
	pool := NewPool(1, 1, processorFunc(func(context.Context, Job) error { return nil }), nil)
	pool.Start()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Enqueue(Job{ThreadID: "t"}), ErrPoolClosed)
}

func TestPool_ProcessorErrorDoesNotStopWorkers(t *testing.T) {
	var calls int64
	proc := processorFunc(func(_ context.Context, job Job) error {
		atomic.AddInt64(&calls, 1)
		if job.ThreadID == "bad" {
			return assert.AnError
		}
		return nil
	})

	pool := NewPool(1, 4, proc, nil)
	pool.Start()

	require.NoError(t, pool.Enqueue(Job{ThreadID: "bad"}))
	require.NoError(t, pool.Enqueue(Job{ThreadID: "good"}))
	pool.Shutdown()

	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}
