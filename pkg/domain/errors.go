package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrStoryNotFound is returned when a story cannot be found in a catalog.
var ErrStoryNotFound = errors.New("story not found")

// ErrInvalidStory is returned when a story fails validation.
var ErrInvalidStory = errors.New("invalid story")

// ErrNoSolution is returned when no action can be executed to reach an objective.
// A validated story never produces it; it signals a validation gap or a context bug.
var ErrNoSolution = errors.New("no eligible action found")

// ErrStateNotFound is returned when a state is missing from the state machine.
var ErrStateNotFound = errors.New("state not found")

// ErrActionNotFound is returned when an objective has no matching action.
var ErrActionNotFound = errors.New("action not found")

// ErrSelfTransition is returned when a direct transition leads back to the current state.
var ErrSelfTransition = errors.New("next state shouldn't be equal to the current state")

// ErrNoObjective is returned when a continuation round finds the objectives stack empty.
var ErrNoObjective = errors.New("objectives stack is empty")

// ErrMaxIterations is returned when silent actions chain beyond the configured limit.
var ErrMaxIterations = errors.New("maximum processing rounds exceeded")

// ErrHandlerNotFound is returned when an action handler is not registered.
var ErrHandlerNotFound = errors.New("action handler not found")
