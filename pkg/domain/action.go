package domain

import (
	"slices"
	"strings"
)

// Action is a unit of conversational behavior. Its name is also the id of the
// leaf state that represents it in the intent state machine.
type Action struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	// AnswerID references the answer sent to the user when the action runs.
	AnswerID string `json:"answer_id,omitempty" yaml:"answer_id,omitempty" mapstructure:"answer_id"`

	// Handler names the business logic invoked through the handler registry.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty" mapstructure:"handler"`

	// Trigger is an intent fired right after the action, without user input.
	Trigger string `json:"trigger,omitempty" yaml:"trigger,omitempty" mapstructure:"trigger"`

	InputContextNames  []string `json:"input_contexts,omitempty" yaml:"input_contexts,omitempty" mapstructure:"input_contexts"`
	OutputContextNames []string `json:"output_contexts,omitempty" yaml:"output_contexts,omitempty" mapstructure:"output_contexts"`

	// Proceed forces a new processing round after the action.
	Proceed bool `json:"proceed,omitempty" yaml:"proceed,omitempty" mapstructure:"proceed"`

	// Final marks the end of the story.
	Final bool `json:"final,omitempty" yaml:"final,omitempty" mapstructure:"final"`

	// TargetStory hands the conversation over to another story once the action ran.
	TargetStory string `json:"target_story,omitempty" yaml:"target_story,omitempty" mapstructure:"target_story"`
}

// IsSilent reports whether the action never closes the turn.
// Silent actions always cause an immediate new processing round.
func (a Action) IsSilent() bool {
	return strings.TrimSpace(a.Handler) != "" || strings.TrimSpace(a.Trigger) != "" || a.Proceed
}

// HasHandler reports whether the action invokes business logic.
func (a Action) HasHandler() bool {
	return strings.TrimSpace(a.Handler) != ""
}

// Consumes reports whether name is one of the action's input contexts.
func (a Action) Consumes(name string) bool {
	return slices.Contains(a.InputContextNames, name)
}

// Produces reports whether name is one of the action's output contexts.
func (a Action) Produces(name string) bool {
	return slices.Contains(a.OutputContextNames, name)
}

// UserAction is the input of a processing round: an intent detected by the NLU
// layer and the entity values extracted with it, keyed by entity role.
type UserAction struct {
	Intent   string         `json:"intent"`
	Entities map[string]any `json:"entities,omitempty"`
}
