// ABOUTME: Redis-backed session store with get-or-create and capped update
// ABOUTME: Last-write-wins; concurrent first-writers for one thread can both create

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces session blobs in the shared keyspace.
	keyPrefix = "session:"

	// DefaultMaxMessages caps how many recent messages a session keeps.
	DefaultMaxMessages = 10
)

// Store caches conversation sessions in Redis. It is safe for concurrent
// use; synchronization is limited to the client's connection-pool checkout,
// so concurrent read-modify-write on one thread id is last-write-wins.
type Store struct {
	rdb         *redis.Client
	maxMessages int
	logger      *slog.Logger
}

// NewStore creates a session store. A non-positive maxMessages falls back
// to DefaultMaxMessages. Pass nil logger for default.
func NewStore(rdb *redis.Client, maxMessages int, logger *slog.Logger) *Store {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		rdb:         rdb,
		maxMessages: maxMessages,
		logger:      logger.With("component", "session"),
	}
}

// Key returns the storage key for a thread's session.
func Key(threadID string) string {
	return keyPrefix + threadID
}

// GetOrCreate fetches the session for threadID, creating and storing an
// empty one if absent. Idempotent: a second call returns the stored value.
// Not atomic against concurrent creators for the same thread id.
func (s *Store) GetOrCreate(ctx context.Context, threadID string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, Key(threadID)).Result()
	if err == nil {
		var sess Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("decoding session %s: %w", threadID, err)
		}
		return &sess, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("fetching session %s: %w", threadID, err)
	}

	sess := &Session{ThreadID: threadID, Messages: []Message{}}
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Debug("session created", "thread_id", threadID)
	return sess, nil
}

// Update replaces the session's message list with the most recent
// maxMessages entries of messages, preserving relative order, and stores
// the result. The session is created first if it does not exist.
func (s *Store) Update(ctx context.Context, threadID string, messages []Message) error {
	sess, err := s.GetOrCreate(ctx, threadID)
	if err != nil {
		return err
	}

	if len(messages) > s.maxMessages {
		messages = messages[len(messages)-s.maxMessages:]
	}
	sess.Messages = messages

	return s.put(ctx, sess)
}

func (s *Store) put(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sess.ThreadID, err)
	}
	if err := s.rdb.Set(ctx, Key(sess.ThreadID), data, 0).Err(); err != nil {
		return fmt.Errorf("storing session %s: %w", sess.ThreadID, err)
	}
	return nil
}
