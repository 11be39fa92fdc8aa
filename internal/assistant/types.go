// ABOUTME: Typed wire shapes for the external assistant API
// ABOUTME: Threads, messages, runs, and the RunStatus enum decoded at the boundary

package assistant

// RunStatus is the lifecycle state of an assistant run. Anything other than
// the two terminal states is treated as pending.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether the run has finished, successfully or not.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Thread is an external conversation resource.
type Thread struct {
	ID string `json:"id"`
}

// Run is one assistant execution cycle against a thread.
type Run struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Status   RunStatus `json:"status"`
}

// Message roles used on the external thread.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ThreadMessage is one entry of a thread's message list.
type ThreadMessage struct {
	ID      string           `json:"id"`
	Role    string           `json:"role"`
	Content []MessageContent `json:"content"`
}

// MessageContent is one typed content part of a thread message. Only text
// parts carry a payload we consume.
type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

// MessageText is the text payload of a content part.
type MessageText struct {
	Value string `json:"value"`
}

// TextValue returns the first text content of the message, or "" if the
// message has no text part.
func (m *ThreadMessage) TextValue() string {
	for _, part := range m.Content {
		if part.Type == "text" && part.Text != nil {
			return part.Text.Value
		}
	}
	return ""
}
