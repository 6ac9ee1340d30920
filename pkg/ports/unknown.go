package ports

import (
	"context"

	"github.com/aretw0/tickstory/pkg/domain"
)

// UnknownRequest carries what an unknown-intent handler needs to decide.
type UnknownRequest struct {
	// Intent is the unknown intent that was detected.
	Intent string
	// LastAction is the last action that ran, empty when none did.
	LastAction string
	Config     domain.UnknownConfiguration
	Sender     Sender
	Step       *domain.UnknownStep
	Settings   domain.StorySettings
}

// UnknownOutcome is the decision of an unknown-intent handler.
// A non-nil Step ends the turn successfully; a RedirectStoryID hands the
// conversation over; neither means the handler declined and processing goes on.
type UnknownOutcome struct {
	Step            *domain.UnknownStep
	RedirectStoryID string
}

// UnknownHandler is invoked when the detected intent is registered as unknown.
type UnknownHandler interface {
	Handle(ctx context.Context, req UnknownRequest) (UnknownOutcome, error)
}
