package task

import (
	"context"
	"encoding/json"

	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/ClareAI/astra-message-service/pkg/redis"
	"go.uber.org/zap"
)

const (
	TaskChannel = "astra:message:tasks"
)

// RedisBus implements the Bus interface using Redis Pub/Sub, for multi-pod
// deployments where any pod may pick up a webhook delivery.
type RedisBus struct {
	redisSvc redis.RedisServiceInterface
}

// NewRedisBus creates a new Redis-based task bus
func NewRedisBus(redisSvc redis.RedisServiceInterface) *RedisBus {
	return &RedisBus{redisSvc: redisSvc}
}

// Publish sends a task to the bus
func (b *RedisBus) Publish(ctx context.Context, task MessageTask) error {
	logger.Base().Debug("Publishing message task",
		zap.String("sender", task.Sender),
		zap.String("correlation_id", task.CorrelationID))
	return b.redisSvc.Publish(ctx, TaskChannel, task)
}

// Subscribe listens for tasks on the bus
func (b *RedisBus) Subscribe(ctx context.Context, handler func(MessageTask)) error {
	logger.Base().Info("Subscribing to message tasks")
	return b.redisSvc.Subscribe(ctx, TaskChannel, func(payload string) {
		var t MessageTask
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			logger.Base().Error("Failed to unmarshal task payload", zap.Error(err))
			return
		}
		handler(t)
	})
}
