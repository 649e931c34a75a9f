package tasks

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler processes one kind of task.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Registry maps task names to handlers.
type Registry struct {
	handlers map[string]Handler
	order    []string
}

// NewRegistry builds a registry preloaded with the provided handlers.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	registry := &Registry{handlers: map[string]Handler{}}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a handler. Names must be unique.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return nil
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("task handler has no name")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("task handler %q registered twice", name)
	}
	r.handlers[name] = h
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered task names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
