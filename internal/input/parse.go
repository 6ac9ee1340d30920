package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/tickstory/pkg/domain"
)

// Parse reads a user action written as "intent [role=value ...]".
// Values that parse as numbers or booleans keep that type.
func Parse(line string) (*domain.UserAction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("empty input")
	}
	action := &domain.UserAction{Intent: fields[0]}
	for _, f := range fields[1:] {
		role, value, ok := strings.Cut(f, "=")
		if !ok || role == "" {
			return nil, fmt.Errorf("invalid entity %q, want role=value", f)
		}
		if action.Entities == nil {
			action.Entities = make(map[string]any)
		}
		action.Entities[role] = typed(value)
	}
	return action, nil
}

func typed(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
