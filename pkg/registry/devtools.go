package registry

import (
	"context"
	"fmt"
)

// DevToolsNamespace prefixes the handlers used to prototype stories.
const DevToolsNamespace = "dev-tools:"

// devContextCount is the number of set_context_n handlers.
const devContextCount = 7

// RegisterDevTools registers the prototyping handlers:
// "dev-tools:do_nothing" and "dev-tools:set_context_1" to "dev-tools:set_context_7",
// the latter marking DEV_CONTEXT_n as known.
func RegisterDevTools(r *Registry) {
	r.Register(DevToolsNamespace+"do_nothing", func(context.Context, map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})
	for i := 1; i <= devContextCount; i++ {
		name := fmt.Sprintf("DEV_CONTEXT_%d", i)
		r.Register(fmt.Sprintf("%sset_context_%d", DevToolsNamespace, i), func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{name: nil}, nil
		})
	}
}
