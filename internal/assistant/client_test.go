// ABOUTME: Tests for the assistant API client against a stub HTTP server
// ABOUTME: Covers request shapes, typed decoding, 404 mapping, error envelopes

package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", nil, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestClient_RetrieveThread(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/threads/thread-1", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Thread{ID: "thread-1"})
	})

	thread, err := c.RetrieveThread(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-1", thread.ID)
}

func TestClient_RetrieveThread_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.RetrieveThread(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestClient_RetrieveRun_NotFoundStaysAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "No run found"}})
	})

	// A bad run id is not a missing thread.
	_, err := c.RetrieveRun(context.Background(), "thread-1", "run-bogus")
	assert.NotErrorIs(t, err, ErrThreadNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_CreateMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threads/thread-1/messages", r.URL.Path)

		var body createMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, RoleUser, body.Role)
		assert.Equal(t, "hello", body.Content)
		assert.Equal(t, []string{"file-1"}, body.FileIDs)

		json.NewEncoder(w).Encode(ThreadMessage{ID: "msg-1", Role: RoleUser})
	})

	msg, err := c.CreateMessage(context.Background(), "thread-1", RoleUser, "hello", []string{"file-1"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.ID)
}

func TestClient_CreateRun(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/threads/thread-1/runs", r.URL.Path)

		var body createRunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "asst-1", body.AssistantID)

		json.NewEncoder(w).Encode(Run{ID: "run-1", ThreadID: "thread-1", Status: RunStatusQueued})
	})

	run, err := c.CreateRun(context.Background(), "thread-1", "asst-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, RunStatusQueued, run.Status)
}

func TestClient_ListMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/threads/thread-1/messages", r.URL.Path)
		json.NewEncoder(w).Encode(messageList{Data: []ThreadMessage{
			{ID: "msg-2", Role: RoleAssistant, Content: []MessageContent{
				{Type: "text", Text: &MessageText{Value: "reply"}},
			}},
			{ID: "msg-1", Role: RoleUser},
		}})
	})

	msgs, err := c.ListMessages(context.Background(), "thread-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "reply", msgs[0].TextValue())
	assert.Equal(t, "", msgs[1].TextValue())
}

func TestClient_ErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	})

	_, err := c.CreateRun(context.Background(), "thread-1", "asst-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate limited", apiErr.Message)
}
