package domain

import (
	"maps"
	"slices"
	"time"
)

// HandlingStep records the last action executed and how many times in a row it was chosen.
type HandlingStep struct {
	Action   string `json:"action"`
	Repeated int    `json:"repeated"`
}

// UnknownStep records the unknown-intent answers sent after the same action.
type UnknownStep struct {
	Action   string `json:"action"`
	AnswerID string `json:"answer_id,omitempty"`
	Repeated int    `json:"repeated"`
}

// Session is the per-conversation state of a tick story, persisted between turns.
type Session struct {
	ID string `json:"id"`

	// CurrentState is the state the conversation stands in. Empty means Global.
	CurrentState string `json:"current_state,omitempty"`

	// Contexts holds the known contexts. A key with a nil value is known but unset.
	Contexts map[string]any `json:"contexts"`

	// RanHandlers lists, in order, the actions executed for the current objective.
	RanHandlers []string `json:"ran_handlers,omitempty"`

	// ObjectivesStack holds the pending primary objectives, top last.
	ObjectivesStack []string `json:"objectives_stack,omitempty"`

	HandlingStep *HandlingStep `json:"handling_step,omitempty"`
	UnknownStep  *UnknownStep  `json:"unknown_step,omitempty"`

	Finished bool `json:"finished,omitempty"`

	// Version and UpdatedAt increase on every save.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session for a conversation.
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		Contexts: make(map[string]any),
	}
}

// Clone returns a deep copy of the session. Context values are copied shallowly.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Contexts = maps.Clone(s.Contexts)
	if c.Contexts == nil {
		c.Contexts = make(map[string]any)
	}
	c.RanHandlers = slices.Clone(s.RanHandlers)
	c.ObjectivesStack = slices.Clone(s.ObjectivesStack)
	if s.HandlingStep != nil {
		step := *s.HandlingStep
		c.HandlingStep = &step
	}
	if s.UnknownStep != nil {
		step := *s.UnknownStep
		c.UnknownStep = &step
	}
	return &c
}

// Touch bumps the version and moves UpdatedAt forward, never backwards.
func (s *Session) Touch(now time.Time) {
	s.Version++
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Nanosecond)
	}
	s.UpdatedAt = now.UTC()
}

// LastRanHandler returns the last executed action, if any.
func (s *Session) LastRanHandler() string {
	if len(s.RanHandlers) == 0 {
		return ""
	}
	return s.RanHandlers[len(s.RanHandlers)-1]
}
