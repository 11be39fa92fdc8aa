// ABOUTME: Session and Message types for the locally cached conversation view
// ABOUTME: Stored as a JSON blob under session:<thread_id>

package session

// Message is one entry of a conversation. Immutable once created.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	FileIDs []string `json:"file_ids,omitempty"`
}

// Session is the cached, truncated view of a conversation's recent
// messages.
type Session struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`
}
