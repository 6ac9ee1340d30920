package domain

import (
	"reflect"
	"slices"
)

// SessionDiff represents the changes between two sessions.
// It is serialized to JSON so clients can patch their local copy.
type SessionDiff struct {
	SessionID string `json:"session_id"`

	CurrentState *string `json:"current_state,omitempty"`

	// Contexts contains only changed, added or deleted keys.
	// A deleted key is reported under Removed since nil is a valid context value.
	Contexts map[string]any `json:"contexts,omitempty"`
	Removed  []string       `json:"removed,omitempty"`

	// Ran lists the actions appended to RanHandlers.
	Ran []string `json:"ran,omitempty"`

	// Objectives is the whole stack, present only when it changed.
	Objectives []string `json:"objectives,omitempty"`

	Finished *bool `json:"finished,omitempty"`
}

// Diff calculates the difference between two sessions.
// If oldSession is nil, the diff describes the entire new session.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}
	if oldSession == nil {
		oldSession = &Session{}
	}

	diff := &SessionDiff{SessionID: newSession.ID}

	if oldSession.CurrentState != newSession.CurrentState {
		diff.CurrentState = &newSession.CurrentState
	}
	if oldSession.Finished != newSession.Finished {
		diff.Finished = &newSession.Finished
	}

	diff.Contexts, diff.Removed = diffContexts(oldSession.Contexts, newSession.Contexts)
	diff.Ran = diffRan(oldSession.RanHandlers, newSession.RanHandlers)

	if !slices.Equal(oldSession.ObjectivesStack, newSession.ObjectivesStack) {
		diff.Objectives = slices.Clone(newSession.ObjectivesStack)
		if diff.Objectives == nil {
			diff.Objectives = []string{}
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffContexts(old, new map[string]any) (map[string]any, []string) {
	delta := make(map[string]any)
	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	var removed []string
	for k := range old {
		if _, exists := new[k]; !exists {
			removed = append(removed, k)
		}
	}
	slices.Sort(removed)

	if len(delta) == 0 {
		delta = nil
	}
	return delta, removed
}

// diffRan assumes RanHandlers is append-only unless it was cleared for a new objective,
// in which case the whole new list is reported.
func diffRan(old, new []string) []string {
	if len(new) == 0 {
		return nil
	}
	if len(new) >= len(old) && slices.Equal(old, new[:len(old)]) {
		if len(new) == len(old) {
			return nil
		}
		return slices.Clone(new[len(old):])
	}
	return slices.Clone(new)
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.CurrentState == nil &&
		d.Finished == nil &&
		len(d.Contexts) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Ran) == 0 &&
		d.Objectives == nil
}
