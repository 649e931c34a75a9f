package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Publisher serializes tasks onto a named queue.
type Publisher struct {
	queue Queue
	name  string
	now   func() time.Time
}

// NewPublisher builds a publisher for the named queue.
func NewPublisher(queue Queue, name string) (*Publisher, error) {
	if queue == nil {
		return nil, errors.New("task queue required")
	}
	if name == "" {
		return nil, errors.New("queue name required")
	}
	return &Publisher{queue: queue, name: name, now: time.Now}, nil
}

// Publish enqueues task with the JSON encoding of payload and returns the task id.
func (p *Publisher) Publish(ctx context.Context, task string, payload any) (string, error) {
	if task == "" {
		return "", errors.New("task name required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", task, err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Name:       task,
		Payload:    data,
		EnqueuedAt: p.now().UTC(),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode %s envelope: %w", task, err)
	}
	if err := p.queue.Enqueue(ctx, p.name, raw); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task, err)
	}
	return env.ID, nil
}
