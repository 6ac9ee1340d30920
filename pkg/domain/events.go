package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventActionExecuted EventType = "action_executed"
	EventTurnCompleted  EventType = "turn_completed"
)

// Outcome names how a processing call ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRedirect Outcome = "redirect"
	OutcomeUnknown  Outcome = "unknown"
	OutcomeLoop     Outcome = "abnormal_loop"
	OutcomeError    Outcome = "error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// ActionEvent is emitted after an action ran.
type ActionEvent struct {
	EventBase
	Action           string   `json:"action"`
	Handler          string   `json:"handler,omitempty"`
	PrimaryObjective string   `json:"primary_objective"`
	Candidates       []string `json:"candidates"`
	Silent           bool     `json:"silent,omitempty"`
}

// TurnEvent is emitted when a processing call ends.
type TurnEvent struct {
	EventBase
	Outcome  Outcome       `json:"outcome"`
	Rounds   int           `json:"rounds"`
	Redirect string        `json:"redirect,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for processor observability.
type LifecycleHooks struct {
	OnActionExecuted func(context.Context, *ActionEvent)
	OnTurnCompleted  func(context.Context, *TurnEvent)
}
