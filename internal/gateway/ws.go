// ABOUTME: WebSocket endpoint bridging clients to the worker pool and the relay
// ABOUTME: Parses inbound batches, enqueues jobs, and forwards relayed replies per thread

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/bubble/bubble-relay/internal/session"
	"github.com/bubble/bubble-relay/internal/worker"
)

// inboundBatch is the JSON shape of a client text frame.
type inboundBatch struct {
	ThreadID string           `json:"thread_id,omitempty"`
	Messages []inboundMessage `json:"messages"`
}

// inboundMessage is one message of an inbound batch.
type inboundMessage struct {
	Content string   `json:"content"`
	FileIDs []string `json:"file_ids,omitempty"`
}

// ackFrame acknowledges an accepted batch with its (possibly generated)
// thread id.
type ackFrame struct {
	ThreadID string `json:"threadId"`
}

// errorFrame reports a locally recovered validation error; the connection
// stays open.
type errorFrame struct {
	Error string `json:"error"`
}

// wsHandler serves one websocket endpoint. Split from Gateway so tests can
// wire fakes behind the Enqueuer and ThreadSubscriber interfaces.
type wsHandler struct {
	queue      Enqueuer
	subscriber ThreadSubscriber
	logger     *slog.Logger
}

// handleWebSocket upgrades the connection and serves it until the client
// disconnects.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h := &wsHandler{
		queue:      g.pool,
		subscriber: g.subscriber,
		logger:     g.logger,
	}
	h.ServeHTTP(w, r)
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", "error", err)
		return
	}

	// connCtx scopes every relay task to this connection; cancelling it on
	// return tears down all subscriptions.
	connCtx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	c := &clientConn{
		conn:       conn,
		handler:    h,
		subscribed: make(map[string]bool),
	}

	for {
		typ, data, err := conn.Read(connCtx)
		if err != nil {
			h.logger.Debug("websocket connection closed", "error", err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		c.handleFrame(connCtx, data)
	}
}

// clientConn is the per-connection state: the socket, a write lock (relay
// tasks and the read loop both write), and the set of thread ids this
// connection already subscribed to.
type clientConn struct {
	conn    *websocket.Conn
	handler *wsHandler

	writeMu    sync.Mutex
	subscribed map[string]bool // accessed only from the read loop
}

// handleFrame processes one inbound text frame: validate, enqueue,
// subscribe, ack.
func (c *clientConn) handleFrame(connCtx context.Context, data []byte) {
	batch, err := parseBatch(data)
	if err != nil {
		c.writeJSON(connCtx, errorFrame{Error: err.Error()})
		return
	}

	threadID := batch.ThreadID
	if threadID == "" {
		threadID = uuid.New().String()
	}

	messages := make([]session.Message, 0, len(batch.Messages))
	for _, m := range batch.Messages {
		messages = append(messages, session.Message{
			Role:    "user",
			Content: m.Content,
			FileIDs: m.FileIDs,
		})
	}

	if err := c.handler.queue.Enqueue(worker.Job{ThreadID: threadID, Messages: messages}); err != nil {
		c.writeJSON(connCtx, errorFrame{Error: err.Error()})
		return
	}

	// One relay task per thread id for the lifetime of the connection; a
	// repeated send on the same thread reuses the existing subscription.
	if !c.subscribed[threadID] {
		relayed, err := c.handler.subscriber.Subscribe(connCtx, threadID)
		if err != nil {
			c.writeJSON(connCtx, errorFrame{Error: err.Error()})
			return
		}
		c.subscribed[threadID] = true
		go c.relayLoop(connCtx, relayed)
	}

	c.writeJSON(connCtx, ackFrame{ThreadID: threadID})
}

// relayLoop forwards broker payloads verbatim to the client socket. It
// exits when the subscription channel closes, which happens when the
// connection context is cancelled.
func (c *clientConn) relayLoop(ctx context.Context, relayed <-chan string) {
	for payload := range relayed {
		c.writeMu.Lock()
		err := c.conn.Write(ctx, websocket.MessageText, []byte(payload))
		c.writeMu.Unlock()
		if err != nil {
			c.handler.logger.Debug("relay write failed", "error", err)
			return
		}
	}
}

func (c *clientConn) writeJSON(ctx context.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.handler.logger.Error("encoding frame", "error", err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.handler.logger.Debug("write failed", "error", err)
	}
}

// parseBatch decodes and validates an inbound frame.
func parseBatch(data []byte) (*inboundBatch, error) {
	var batch inboundBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(batch.Messages) == 0 {
		return nil, fmt.Errorf("messages is required")
	}
	for i, m := range batch.Messages {
		if m.Content == "" {
			return nil, fmt.Errorf("messages[%d].content is required", i)
		}
	}
	return &batch, nil
}
