package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/ClareAI/astra-message-service/pkg/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisStore is a Store backed by Redis, for multi-pod deployments where the
// conversation handle has to survive a single process. Unlike the memory
// store, entries carry the configured TTL: a durable backend has to pick an
// expiry, and the agent's own session lifetime bounds it anyway.
type RedisStore struct {
	redisSvc redis.RedisServiceInterface
	ttl      time.Duration
}

func NewRedisStore(redisSvc redis.RedisServiceInterface, ttl time.Duration) *RedisStore {
	return &RedisStore{redisSvc: redisSvc, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return s.redisSvc.GenerateKey(redis.CHAT_SESSION, userID)
}

func (s *RedisStore) GetOrCreate(ctx context.Context, userID string) (string, error) {
	key := s.key(userID)

	id := uuid.NewString()
	created, err := s.redisSvc.SetValueNX(ctx, key, id, s.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to reserve session key: %w", err)
	}
	if created {
		logger.Base().Info("Session created in Redis",
			zap.String("user_id", userID),
			zap.String("session_id", id))
		return id, nil
	}

	// Lost the race or the mapping already existed: read the winner.
	existing, err := s.redisSvc.GetValue(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read session key: %w", err)
	}
	return existing, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.redisSvc.DelValue(ctx, s.key(userID))
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	return s.redisSvc.CountKeys(ctx, string(redis.CHAT_SESSION)+":*")
}

// Cleanup is a no-op for Redis: the per-key TTL handles expiry.
func (s *RedisStore) Cleanup(ctx context.Context) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	logger.Base().Info("Session cleanup pass (redis TTL handles expiry)",
		zap.Int("live_sessions", count))
	return nil
}
