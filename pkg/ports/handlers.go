package ports

import "context"

// ActionHandlers executes the business logic attached to actions.
// The host registers the handlers; the processor only knows them by name.
type ActionHandlers interface {
	// Invoke runs the named handler and returns the context values it produced.
	Invoke(ctx context.Context, name string, contexts map[string]any) (map[string]any, error)

	// Contains reports whether a handler is registered under name.
	Contains(name string) bool
}
