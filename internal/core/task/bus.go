package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/ClareAI/astra-message-service/pkg/logger"
	"go.uber.org/zap"
)

// LocalBus is an in-process Bus: a buffered channel drained by a fixed pool
// of worker goroutines. Each task runs to completion; there is no ordering
// guarantee between tasks, including tasks for the same sender.
type LocalBus struct {
	tasks   chan MessageTask
	workers int

	mu      sync.Mutex
	handler func(MessageTask)
	started bool
}

// NewLocalBus creates a local bus with the given queue depth and worker count.
func NewLocalBus(queueDepth, workers int) *LocalBus {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if workers <= 0 {
		workers = 4
	}
	return &LocalBus{
		tasks:   make(chan MessageTask, queueDepth),
		workers: workers,
	}
}

// Publish enqueues a task. It fails instead of blocking when the queue is
// full, so the webhook boundary can still acknowledge within its deadline.
func (b *LocalBus) Publish(ctx context.Context, task MessageTask) error {
	select {
	case b.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("task queue full, dropping task for %s", task.Sender)
	}
}

// Subscribe registers the handler and starts the worker pool. Only one
// subscriber is supported; subsequent calls fail.
func (b *LocalBus) Subscribe(ctx context.Context, handler func(MessageTask)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return fmt.Errorf("local task bus already has a subscriber")
	}
	b.handler = handler
	b.started = true

	for i := 0; i < b.workers; i++ {
		go b.worker(ctx, i)
	}
	logger.Base().Info("Local task bus started", zap.Int("workers", b.workers))
	return nil
}

func (b *LocalBus) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-b.tasks:
			b.run(t, id)
		}
	}
}

// run executes one task under a panic guard so a bad pass never takes the
// worker down with it.
func (b *LocalBus) run(t MessageTask, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Base().Error("Task handler panicked",
				zap.Int("worker", workerID),
				zap.String("sender", t.Sender),
				zap.String("correlation_id", t.CorrelationID),
				zap.Any("panic", r))
		}
	}()
	b.handler(t)
}
