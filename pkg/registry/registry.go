// Package registry holds the action handlers a tick story can invoke by name.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/tickstory/pkg/domain"
)

// HandlerFunc is the business logic attached to an action.
// It receives a read-only view of the contexts and returns the contexts it produced.
type HandlerFunc func(ctx context.Context, contexts map[string]any) (map[string]any, error)

// Registry manages the available action handlers. It implements ports.ActionHandlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler to the registry.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Contains reports whether a handler is registered under name.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke looks up a handler by name and executes it.
// Returns an error wrapping domain.ErrHandlerNotFound if the handler is not registered.
func (r *Registry) Invoke(ctx context.Context, name string, contexts map[string]any) (map[string]any, error) {
	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHandlerNotFound, name)
	}

	out, err := fn(ctx, contexts)
	if err != nil {
		return nil, fmt.Errorf("handler %s failed: %w", name, err)
	}
	return out, nil
}
