// Package worker executes conversation jobs with bounded concurrency.
//
// # Overview
//
// The worker package sits between the websocket gateway and the external
// assistant API. The gateway enqueues a typed Job per inbound message
// batch; a fixed pool of workers drains the queue and runs each job
// through the ChatProcessor.
//
// # Pool
//
// The Pool caps total concurrency across all jobs:
//
//	pool := worker.NewPool(10, 256, processor, logger)
//	pool.Start()
//	err := pool.Enqueue(worker.Job{ThreadID: id, Messages: msgs})
//
// Admission is FIFO. A full queue rejects with ErrQueueFull rather than
// blocking the caller. Once a job starts it runs to completion or failure;
// client disconnects never cancel it.
//
// # Processing
//
// One job executes strictly sequentially:
//
//  1. Resolve the external thread
//  2. Append the batch's messages in order
//  3. Start a run against the configured assistant
//  4. Poll the run with a wall-clock deadline
//  5. Take the most recent assistant message
//  6. Sanitize it
//  7. Update the cached session (capped to the most recent messages)
//  8. Publish the response on the thread's broker channel
//
// Any failure aborts the whole invocation; nothing is retried internally.
// Process is not idempotent: re-running a job appends the input again and
// starts a new run.
package worker
