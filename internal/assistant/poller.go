// ABOUTME: Polls an assistant run until it reaches a terminal state or a deadline
// ABOUTME: Fixed sleep between fetches; returns the last observed status on timeout

package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultPollInterval is the sleep between run status fetches.
const DefaultPollInterval = time.Second

// RunFetcher is what the poller needs from the assistant client.
type RunFetcher interface {
	RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error)
}

// Poller drives a run to completion by repeated status fetches.
type Poller struct {
	runs     RunFetcher
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller. A non-positive interval falls back to
// DefaultPollInterval. Pass nil logger for default.
func NewPoller(runs RunFetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		runs:     runs,
		interval: interval,
		logger:   logger.With("component", "poller"),
	}
}

// AwaitCompletion fetches the run's status until it is terminal or the
// wall clock passes deadline, sleeping between fetches. It returns the last
// observed status, which is non-terminal when the deadline was hit; callers
// must treat anything other than RunStatusCompleted as a hard failure.
// There is no fetch-count cap, only elapsed time.
func (p *Poller) AwaitCompletion(ctx context.Context, threadID, runID string, deadline time.Time) (RunStatus, error) {
	for {
		run, err := p.runs.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return "", fmt.Errorf("retrieving run %s: %w", runID, err)
		}

		if run.Status.Terminal() {
			return run.Status, nil
		}
		if time.Now().After(deadline) {
			p.logger.Warn("run poll deadline exceeded",
				"run_id", runID,
				"last_status", string(run.Status))
			return run.Status, nil
		}

		select {
		case <-ctx.Done():
			return run.Status, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}
