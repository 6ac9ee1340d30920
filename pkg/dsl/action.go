package dsl

import "github.com/aretw0/tickstory/pkg/domain"

// ActionBuilder provides a fluent API for configuring an action.
type ActionBuilder struct {
	action  domain.Action
	builder *Builder
}

// StateOption configures the state of an action.
type StateOption func(b *Builder, state string)

// On adds a transition leaving the action's state.
func On(intent, target string) StateOption {
	return func(b *Builder, state string) {
		b.TransitionFrom(state, intent, target)
	}
}

// Describe sets the action description.
func (a *ActionBuilder) Describe(d string) *ActionBuilder {
	a.action.Description = d
	return a
}

// Answer sets the answer sent when the action runs.
func (a *ActionBuilder) Answer(answerID string) *ActionBuilder {
	a.action.AnswerID = answerID
	return a
}

// Handler sets the business logic invoked through the handler registry.
// It makes the action silent.
func (a *ActionBuilder) Handler(name string) *ActionBuilder {
	a.action.Handler = name
	return a
}

// Trigger fires intent right after the action, without user input.
func (a *ActionBuilder) Trigger(intent string) *ActionBuilder {
	a.action.Trigger = intent
	return a
}

// Inputs adds the contexts the action needs.
func (a *ActionBuilder) Inputs(names ...string) *ActionBuilder {
	a.action.InputContextNames = append(a.action.InputContextNames, names...)
	return a
}

// Outputs adds the contexts the action produces.
func (a *ActionBuilder) Outputs(names ...string) *ActionBuilder {
	a.action.OutputContextNames = append(a.action.OutputContextNames, names...)
	return a
}

// Proceed forces a new round after the action.
func (a *ActionBuilder) Proceed() *ActionBuilder {
	a.action.Proceed = true
	return a
}

// Final marks the end of the story.
func (a *ActionBuilder) Final() *ActionBuilder {
	a.action.Final = true
	return a
}

// Redirect hands the conversation over to story once the action ran.
func (a *ActionBuilder) Redirect(story string) *ActionBuilder {
	a.action.TargetStory = story
	return a
}

// State configures the action's state in the state machine.
func (a *ActionBuilder) State(opts ...StateOption) *ActionBuilder {
	for _, opt := range opts {
		opt(a.builder, a.action.Name)
	}
	return a
}

// Done returns to the story builder.
func (a *ActionBuilder) Done() *Builder {
	return a.builder
}
