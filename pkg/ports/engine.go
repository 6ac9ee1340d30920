package ports

import (
	"context"

	"github.com/aretw0/tickstory/pkg/domain"
)

// Processor runs one user turn of a tick story over a session.
// It never mutates the given session; the returned Success carries the new one.
// A nil user action continues the current plan without user input.
type Processor interface {
	Process(ctx context.Context, session *domain.Session, sender Sender, action *domain.UserAction) (domain.Result, error)
}
