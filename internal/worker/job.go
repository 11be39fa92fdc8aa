// ABOUTME: Job type and queue errors for the conversation worker pool
// ABOUTME: One job is one inbound message batch for one thread

package worker

import (
	"errors"

	"github.com/bubble/bubble-relay/internal/session"
)

// ErrQueueFull means the job queue is at capacity and the enqueue was
// rejected rather than blocking the caller.
var ErrQueueFull = errors.New("job queue full")

// ErrPoolClosed means the pool has shut down and accepts no more jobs.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is one unit of conversation work: an inbound batch of user messages
// for a thread.
type Job struct {
	ThreadID string
	Messages []session.Message
}
