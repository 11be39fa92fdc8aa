// ABOUTME: Bounded worker pool pulling conversation jobs from a FIFO queue
// ABOUTME: At most `workers` jobs execute concurrently; excess jobs queue behind the cap

package worker

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// DefaultWorkers is the system-wide concurrency cap for conversation
	// jobs.
	DefaultWorkers = 10

	// DefaultQueueSize bounds how many jobs may wait behind the cap.
	DefaultQueueSize = 256
)

// Processor handles one job. Implementations must be safe for concurrent
// calls.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// Pool executes jobs with bounded total concurrency. Jobs are admitted
// FIFO; once running, a job is never cancelled by client disconnects —
// it runs to completion or failure.
type Pool struct {
	jobs      chan Job
	workers   int
	processor Processor
	logger    *slog.Logger

	mu         sync.Mutex
	started    bool
	closed     bool
	cancelJobs context.CancelFunc
	wg         sync.WaitGroup
}

// NewPool creates a pool of `workers` goroutines over a queue of
// `queueSize` waiting jobs. Non-positive values fall back to the defaults.
// Pass nil logger for default.
func NewPool(workers, queueSize int, processor Processor, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		jobs:      make(chan Job, queueSize),
		workers:   workers,
		processor: processor,
		logger:    logger.With("component", "worker"),
	}
}

// Start launches the worker goroutines. Workers drain the queue until it
// is closed. Jobs run on a pool-owned context, not the caller's: an
// admitted job is never cancelled by server shutdown, only by its own
// deadline.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancelJobs = cancel
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("worker pool started", "workers", p.workers, "queue_size", cap(p.jobs))
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if err := p.processor.Process(ctx, job); err != nil {
			// Failures are fatal to the invocation; nothing here retries.
			p.logger.Error("job failed",
				"worker", id,
				"thread_id", job.ThreadID,
				"error", err)
		}
	}
}

// Enqueue admits a job behind the concurrency cap. It never blocks: a full
// queue returns ErrQueueFull, a closed pool ErrPoolClosed.
func (p *Pool) Enqueue(job Job) error {
	// The send stays under the lock so Shutdown cannot close the channel
	// between the closed check and the send. The select never blocks.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops admission and waits for queued and in-flight jobs to
// finish. The job context is cancelled only after the last worker exits.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	cancel := p.cancelJobs
	p.mu.Unlock()

	p.wg.Wait()
	if cancel != nil {
		cancel()
	}
	p.logger.Info("worker pool stopped")
}
