// ABOUTME: Redis pub/sub relay handing finished responses back to live connections
// ABOUTME: Fire-and-forget publish; per-thread channels named chat_responses:<thread_id>

package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "chat_responses:"

	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Response is the payload handed from the worker back to the gateway.
// Field names are part of the client wire contract.
type Response struct {
	AIResponse string `json:"aiResponse"`
	ThreadID   string `json:"threadId"`
}

// ChannelFor returns the broker channel name for a thread.
func ChannelFor(threadID string) string {
	return channelPrefix + threadID
}

// Publisher publishes finished responses onto per-thread broker channels.
// A message published with no active subscriber is lost (at-most-once).
type Publisher struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewPublisher creates a publisher. Pass nil logger for default.
func NewPublisher(rdb *redis.Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		rdb:    rdb,
		logger: logger.With("component", "relay"),
	}
}

// Publish serializes resp and publishes it on the thread's channel. It does
// not confirm delivery; the returned error only covers serialization and
// the broker round-trip.
func (p *Publisher) Publish(ctx context.Context, threadID string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response for %s: %w", threadID, err)
	}
	if err := p.rdb.Publish(ctx, ChannelFor(threadID), data).Err(); err != nil {
		return fmt.Errorf("publishing response for %s: %w", threadID, err)
	}
	p.logger.Debug("response published", "thread_id", threadID)
	return nil
}

// Subscriber attaches to per-thread broker channels and fans payloads out
// to callers.
type Subscriber struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewSubscriber creates a subscriber. Pass nil logger for default.
func NewSubscriber(rdb *redis.Client, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		rdb:    rdb,
		logger: logger.With("component", "relay"),
	}
}

// Subscribe attaches to the thread's channel and returns a channel of raw
// payloads, forwarded verbatim. The subscription is torn down and the
// returned channel closed when ctx is cancelled. The initial attach is
// confirmed before returning, so a publish after Subscribe returns is
// observed.
func (s *Subscriber) Subscribe(ctx context.Context, threadID string) (<-chan string, error) {
	pubsub := s.rdb.Subscribe(ctx, ChannelFor(threadID))

	// Confirm the subscription so callers can rely on attach-before-ack.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", threadID, err)
	}

	out := make(chan string, subscriberBufferSize)
	msgs := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("subscriber removed", "thread_id", threadID)
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
					// Receiver is not keeping up — drop for this subscriber.
					s.logger.Debug("dropped payload for slow subscriber",
						"thread_id", threadID)
				}
			}
		}
	}()

	s.logger.Debug("subscriber added", "thread_id", threadID)
	return out, nil
}
