// Package tasks moves background work through the Redis list queue.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// OrderConfirmation is published after an order commits.
const OrderConfirmation = "orders.confirmation"

// Envelope is the queued representation of a task.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Queue is the broker surface used by publishers and the worker.
type Queue interface {
	Enqueue(ctx context.Context, queue string, payload []byte) error
	Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
	QueueLen(ctx context.Context, queue string) (int64, error)
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Name == "" {
		return nil, errors.New("task name is empty")
	}
	return &env, nil
}
