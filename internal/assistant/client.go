// ABOUTME: HTTP client for the external assistant API (threads, messages, runs)
// ABOUTME: Decodes every response into explicit types; 404 on threads maps to ErrThreadNotFound

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the external assistant API. All methods take a context
// and return decoded types; raw response shapes never leak to callers.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests and self-hosted
// deployments.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an assistant API client. Pass nil logger for default.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With("component", "assistant"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetrieveThread resolves an external thread by id. Returns
// ErrThreadNotFound if the thread no longer exists. Only this path maps
// 404 to the sentinel; a 404 on a run or message endpoint stays an
// *APIError so a bad run id cannot pass for a missing thread.
func (c *Client) RetrieveThread(ctx context.Context, threadID string) (*Thread, error) {
	var thread Thread
	err := c.do(ctx, http.MethodGet, "/threads/"+threadID, nil, &thread)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("thread %s: %w", threadID, ErrThreadNotFound)
		}
		return nil, err
	}
	return &thread, nil
}

// createMessageRequest is the body for appending a message to a thread.
type createMessageRequest struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	FileIDs []string `json:"file_ids,omitempty"`
}

// CreateMessage appends one message to the thread, carrying through any
// attached file references.
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string, fileIDs []string) (*ThreadMessage, error) {
	body := createMessageRequest{Role: role, Content: content, FileIDs: fileIDs}
	var msg ThreadMessage
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// createRunRequest is the body for starting a run.
type createRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

// CreateRun starts one assistant execution cycle against the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", createRunRequest{AssistantID: assistantID}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RetrieveRun fetches the current state of a run.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// messageList is the envelope around a thread's message list.
type messageList struct {
	Data []ThreadMessage `json:"data"`
}

// ListMessages returns the thread's messages, newest first (the API's
// default ordering).
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	var list messageList
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// apiErrorEnvelope is the vendor's error response shape.
type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// do issues one API request and decodes the response into out (when out is
// non-nil). Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope apiErrorEnvelope
		// Decode failure just means an empty message; status carries enough.
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
