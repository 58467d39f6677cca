package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPattern = "session:snapshot:%d"

// RedisStore persists conversation snapshots in Redis without expiration:
// sessions are logically eternal.
type RedisStore struct {
	client redis.Cmdable
	log    *slog.Logger
}

// NewRedisStore initializes a Redis-backed Store implementation.
func NewRedisStore(client redis.Cmdable, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

// Exists reports whether a snapshot is stored for the session.
func (s *RedisStore) Exists(ctx context.Context, chatID int64) (bool, error) {
	n, err := s.client.Exists(ctx, snapshotKey(chatID)).Result()
	if err != nil {
		s.log.Error("failed to check snapshot existence", "chat_id", chatID, "error", err)
		return false, err
	}

	return n > 0, nil
}

// Get returns the stored snapshot bytes.
func (s *RedisStore) Get(ctx context.Context, chatID int64) ([]byte, error) {
	data, err := s.client.Get(ctx, snapshotKey(chatID)).Bytes()
	if err != nil {
		s.log.Error("failed to get snapshot from redis", "chat_id", chatID, "error", err)
		return nil, err
	}

	return data, nil
}

// Put stores the snapshot bytes, replacing any previous value.
func (s *RedisStore) Put(ctx context.Context, chatID int64, snapshot []byte) error {
	if err := s.client.Set(ctx, snapshotKey(chatID), snapshot, 0).Err(); err != nil {
		s.log.Error("failed to save snapshot in redis", "chat_id", chatID, "error", err)
		return err
	}

	return nil
}

func snapshotKey(chatID int64) string {
	return fmt.Sprintf(snapshotKeyPattern, chatID)
}
