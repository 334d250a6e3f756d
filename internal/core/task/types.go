package task

import (
	"context"
)

// MessageTask is the payload handed off from the webhook boundary to the
// background processing pass. The webhook has already been acknowledged by
// the time a task is published.
type MessageTask struct {
	Sender        string `json:"sender"`
	CorrelationID string `json:"correlation_id"` // gateway message id
	Payload       []byte `json:"payload"`        // JSON-encoded domain.InboundMessage
}

// Bus defines the interface for the task bus
type Bus interface {
	Publish(ctx context.Context, task MessageTask) error
	Subscribe(ctx context.Context, handler func(MessageTask)) error
}
