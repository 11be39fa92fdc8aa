// ABOUTME: Error taxonomy for the assistant boundary
// ABOUTME: Sentinel errors plus a typed run failure carrying a timeout flag

package assistant

import (
	"errors"
	"fmt"
)

// ErrThreadNotFound means the referenced external thread no longer exists.
var ErrThreadNotFound = errors.New("thread not found")

// ErrNoResponse means a completed run produced no assistant-authored message.
var ErrNoResponse = errors.New("no assistant response found")

// RunError reports a run that ended in a non-completed state. TimedOut is
// set when the poll deadline elapsed before the run reached a terminal
// state, in which case Status is the last observed (non-terminal) status.
type RunError struct {
	RunID    string
	Status   RunStatus
	TimedOut bool
}

func (e *RunError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("run %s timed out in status %q", e.RunID, e.Status)
	}
	return fmt.Sprintf("run %s ended in status %q", e.RunID, e.Status)
}

// APIError is a non-2xx response from the assistant API, decoded from the
// vendor's error envelope when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("assistant api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("assistant api: status %d: %s", e.StatusCode, e.Message)
}
