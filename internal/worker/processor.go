// ABOUTME: ChatProcessor orchestrates one conversation job end to end
// ABOUTME: Append messages, run the assistant, poll, sanitize, persist session, publish

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bubble/bubble-relay/internal/assistant"
	"github.com/bubble/bubble-relay/internal/relay"
	"github.com/bubble/bubble-relay/internal/sanitize"
	"github.com/bubble/bubble-relay/internal/session"
)

// DefaultRunTimeout is the wall-clock deadline for one assistant run.
const DefaultRunTimeout = 30 * time.Second

// AssistantClient defines what the processor needs from the assistant API.
type AssistantClient interface {
	RetrieveThread(ctx context.Context, threadID string) (*assistant.Thread, error)
	CreateMessage(ctx context.Context, threadID, role, content string, fileIDs []string) (*assistant.ThreadMessage, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error)
	ListMessages(ctx context.Context, threadID string) ([]assistant.ThreadMessage, error)
}

// RunAwaiter defines what the processor needs from the run poller.
type RunAwaiter interface {
	AwaitCompletion(ctx context.Context, threadID, runID string, deadline time.Time) (assistant.RunStatus, error)
}

// SessionStore defines what the processor needs from session storage.
type SessionStore interface {
	GetOrCreate(ctx context.Context, threadID string) (*session.Session, error)
	Update(ctx context.Context, threadID string, messages []session.Message) error
}

// ResponsePublisher defines what the processor needs from the broker.
type ResponsePublisher interface {
	Publish(ctx context.Context, threadID string, resp relay.Response) error
}

// ChatProcessor runs one conversation job: it mutates the external thread,
// drives a run to completion, and hands the sanitized reply to the broker.
// Steps are strictly sequential and any failure aborts the invocation.
// Process is NOT idempotent: re-running a job appends the input messages
// again and starts a new run.
type ChatProcessor struct {
	assistant   AssistantClient
	poller      RunAwaiter
	sessions    SessionStore
	publisher   ResponsePublisher
	assistantID string
	runTimeout  time.Duration
	logger      *slog.Logger
}

// NewChatProcessor creates a processor. A non-positive runTimeout falls
// back to DefaultRunTimeout. Pass nil logger for default.
func NewChatProcessor(
	client AssistantClient,
	poller RunAwaiter,
	sessions SessionStore,
	publisher ResponsePublisher,
	assistantID string,
	runTimeout time.Duration,
	logger *slog.Logger,
) *ChatProcessor {
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatProcessor{
		assistant:   client,
		poller:      poller,
		sessions:    sessions,
		publisher:   publisher,
		assistantID: assistantID,
		runTimeout:  runTimeout,
		logger:      logger.With("component", "processor"),
	}
}

// Process executes one job end to end.
func (p *ChatProcessor) Process(ctx context.Context, job Job) error {
	thread, err := p.assistant.RetrieveThread(ctx, job.ThreadID)
	if err != nil {
		return fmt.Errorf("resolving thread %s: %w", job.ThreadID, err)
	}

	for _, msg := range job.Messages {
		if _, err := p.assistant.CreateMessage(ctx, thread.ID, assistant.RoleUser, msg.Content, msg.FileIDs); err != nil {
			return fmt.Errorf("appending message to thread %s: %w", thread.ID, err)
		}
	}

	run, err := p.assistant.CreateRun(ctx, thread.ID, p.assistantID)
	if err != nil {
		return fmt.Errorf("starting run on thread %s: %w", thread.ID, err)
	}

	deadline := time.Now().Add(p.runTimeout)
	status, err := p.poller.AwaitCompletion(ctx, thread.ID, run.ID, deadline)
	if err != nil {
		return fmt.Errorf("polling run %s: %w", run.ID, err)
	}
	if status != assistant.RunStatusCompleted {
		return &assistant.RunError{
			RunID:    run.ID,
			Status:   status,
			TimedOut: !status.Terminal(),
		}
	}

	// Re-list rather than track the created message id: the most recent
	// assistant-authored message wins (list is newest first).
	threadMessages, err := p.assistant.ListMessages(ctx, thread.ID)
	if err != nil {
		return fmt.Errorf("listing messages on thread %s: %w", thread.ID, err)
	}

	var reply *assistant.ThreadMessage
	for i := range threadMessages {
		if threadMessages[i].Role == assistant.RoleAssistant {
			reply = &threadMessages[i]
			break
		}
	}
	if reply == nil {
		return fmt.Errorf("thread %s: %w", thread.ID, assistant.ErrNoResponse)
	}

	sanitized := sanitize.Sanitize(reply.TextValue())

	if err := p.updateSession(ctx, job, sanitized); err != nil {
		return err
	}

	if err := p.publisher.Publish(ctx, job.ThreadID, relay.Response{
		AIResponse: sanitized,
		ThreadID:   job.ThreadID,
	}); err != nil {
		return fmt.Errorf("publishing response for %s: %w", job.ThreadID, err)
	}

	p.logger.Info("conversation job completed",
		"thread_id", job.ThreadID,
		"run_id", run.ID,
		"input_messages", len(job.Messages))
	return nil
}

// updateSession appends the batch's user messages and the assistant reply
// to the cached session; the store truncates to its cap.
func (p *ChatProcessor) updateSession(ctx context.Context, job Job, reply string) error {
	sess, err := p.sessions.GetOrCreate(ctx, job.ThreadID)
	if err != nil {
		return fmt.Errorf("loading session %s: %w", job.ThreadID, err)
	}

	messages := sess.Messages
	for _, msg := range job.Messages {
		messages = append(messages, session.Message{Role: assistant.RoleUser, Content: msg.Content})
	}
	messages = append(messages, session.Message{Role: assistant.RoleAssistant, Content: reply})

	if err := p.sessions.Update(ctx, job.ThreadID, messages); err != nil {
		return fmt.Errorf("updating session %s: %w", job.ThreadID, err)
	}
	return nil
}
