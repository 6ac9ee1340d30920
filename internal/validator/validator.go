// Package validator checks the consistency of tick stories before they are deployed.
//
// Every rule runs independently and the errors of all rules are merged, so an
// author sees every problem of a story at once.
package validator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/statemachine"
	"golang.org/x/sync/errgroup"
)

// HandlerSet reports which action handlers are registered.
type HandlerSet interface {
	Contains(name string) bool
}

// Validate returns the sorted, deduplicated errors of the story. An empty result
// means the story is valid. A nil handlers skips the handler check; a nil
// stories skips the target story check.
func Validate(ctx context.Context, story *domain.Story, handlers HandlerSet, stories ports.StoryOracle) []string {
	var errs []string

	sm, err := statemachine.New(story.StateMachine)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Invalid StateMachine: %v", err))
	} else {
		// Consistency between declared intents and the state machine transitions
		errs = append(errs, ValidateIntents(story, sm)...)
		errs = append(errs, ValidateTransitions(story, sm)...)
		errs = append(errs, ValidateTriggers(story, sm)...)

		// Consistency between declared actions and the state machine states
		errs = append(errs, ValidateActions(story, sm)...)
		errs = append(errs, ValidateStates(story, sm)...)
		errs = append(errs, ValidateGlobalState(sm)...)
		errs = append(errs, ValidateSelfTransitions(sm)...)
	}

	if handlers != nil {
		errs = append(errs, ValidateActionHandlers(story, handlers)...)
	}
	if stories != nil {
		errs = append(errs, ValidateTargetStories(ctx, story, stories)...)
	}

	// Consistency of contexts
	errs = append(errs, ValidateInputOutputContexts(story)...)
	errs = append(errs, ValidateDeclaredActionContexts(story)...)

	// Consistency of intent associations
	errs = append(errs, ValidateIntentNames(story)...)
	errs = append(errs, ValidateIntentAssociationActions(story)...)
	errs = append(errs, ValidateDeclaredIntentContexts(story)...)

	errs = append(errs, ValidateNames(story)...)

	slices.Sort(errs)
	return slices.Compact(errs)
}

// ValidateIntents requires every declared intent to be a transition of the machine.
func ValidateIntents(story *domain.Story, sm *statemachine.Machine) []string {
	var errs []string
	for _, intent := range story.AllIntents() {
		if !sm.ContainsTransition(intent) {
			errs = append(errs, fmt.Sprintf("Intent %s not found in StateMachine", intent))
		}
	}
	return errs
}

// ValidateTransitions requires every transition of the machine to be a declared intent.
func ValidateTransitions(story *domain.Story, sm *statemachine.Machine) []string {
	intents := story.AllIntents()
	var errs []string
	for _, transition := range sm.Transitions() {
		if !slices.Contains(intents, transition) {
			errs = append(errs, fmt.Sprintf("Transition %s not found in TickStory intents", transition))
		}
	}
	return errs
}

// ValidateTriggers requires every action trigger to be a transition of the machine.
func ValidateTriggers(story *domain.Story, sm *statemachine.Machine) []string {
	var errs []string
	for _, a := range story.Actions {
		trigger := strings.TrimSpace(a.Trigger)
		if trigger != "" && !sm.ContainsTransition(trigger) {
			errs = append(errs, fmt.Sprintf("Trigger %s of action %s not found in StateMachine", trigger, a.Name))
		}
	}
	return errs
}

// ValidateActions requires every action to name a state of the machine.
func ValidateActions(story *domain.Story, sm *statemachine.Machine) []string {
	var errs []string
	for _, a := range story.Actions {
		if _, ok := sm.State(a.Name); !ok {
			errs = append(errs, fmt.Sprintf("Action %s not found in StateMachine", a.Name))
		}
	}
	return errs
}

// ValidateStates requires every state that is not a group to have an action.
func ValidateStates(story *domain.Story, sm *statemachine.Machine) []string {
	var errs []string
	for _, id := range sm.LeafIDs() {
		if !slices.ContainsFunc(story.Actions, func(a domain.Action) bool { return a.Name == id }) {
			errs = append(errs, fmt.Sprintf("State %s not found in TickStory actions", id))
		}
	}
	return errs
}

// ValidateGlobalState requires the Global state every session starts from.
func ValidateGlobalState(sm *statemachine.Machine) []string {
	if _, ok := sm.State(domain.GlobalStateID); !ok {
		return []string{fmt.Sprintf("State %s not found in StateMachine", domain.GlobalStateID)}
	}
	return nil
}

// ValidateSelfTransitions rejects transitions declared on a state that lead back to it.
func ValidateSelfTransitions(sm *statemachine.Machine) []string {
	var errs []string
	for _, id := range sm.IDs() {
		state, _ := sm.State(id)
		for intent := range state.On {
			if next, ok := sm.Next(id, intent); ok && next == id && sm.IsDirectTransition(id, intent) {
				errs = append(errs, fmt.Sprintf("Transition %s of state %s leads back to the same state", intent, id))
			}
		}
	}
	return errs
}

// ValidateActionHandlers requires every action handler to be registered.
func ValidateActionHandlers(story *domain.Story, handlers HandlerSet) []string {
	var errs []string
	for _, a := range story.Actions {
		if a.HasHandler() && !handlers.Contains(a.Handler) {
			errs = append(errs, fmt.Sprintf("Action handler %s not found in handlers repository", a.Handler))
		}
	}
	return errs
}

// ValidateTargetStories requires every target story to exist.
func ValidateTargetStories(ctx context.Context, story *domain.Story, stories ports.StoryOracle) []string {
	var errs []string
	for _, a := range story.Actions {
		target := strings.TrimSpace(a.TargetStory)
		if target != "" && !stories.StoryExists(ctx, target) {
			errs = append(errs, fmt.Sprintf("Target story %s of action %s not found", target, a.Name))
		}
	}
	return errs
}

// ValidateInputOutputContexts checks the context closure in both directions.
// Contexts made known by intent associations count as produced and consumed by everyone.
func ValidateInputOutputContexts(story *domain.Story) []string {
	intentContexts := intentContexts(story)
	outputs := func(a domain.Action) []string { return union(a.OutputContextNames, intentContexts) }
	inputs := func(a domain.Action) []string { return union(a.InputContextNames, intentContexts) }

	var errs []string
	for _, orphan := range orphans(story.Actions, inputs, outputs) {
		errs = append(errs, fmt.Sprintf("Input context %s of action %s not found in output contexts of others", orphan.context, orphan.action))
	}
	for _, orphan := range orphans(story.Actions, outputs, inputs) {
		errs = append(errs, fmt.Sprintf("Output context %s of action %s not found in input contexts of others", orphan.context, orphan.action))
	}
	return errs
}

type orphan struct {
	context string
	action  string
}

// orphans returns, for each action, the contexts of first(action) that no other
// action has in second.
func orphans(actions []domain.Action, first, second func(domain.Action) []string) []orphan {
	var out []orphan
	for _, a := range actions {
		var others []string
		for _, o := range actions {
			if o.Name != a.Name {
				others = union(others, second(o))
			}
		}
		for _, c := range first(a) {
			if !slices.Contains(others, c) {
				out = append(out, orphan{context: c, action: a.Name})
			}
		}
	}
	return out
}

// ValidateDeclaredActionContexts requires every action context to be declared.
func ValidateDeclaredActionContexts(story *domain.Story) []string {
	declared := contextNames(story)
	var used []string
	for _, a := range story.Actions {
		used = union(used, union(a.InputContextNames, a.OutputContextNames))
	}
	var errs []string
	for _, c := range used {
		if !slices.Contains(declared, c) {
			errs = append(errs, fmt.Sprintf("Action context %s not found in declared contexts", c))
		}
	}
	return errs
}

// ValidateIntentNames requires intents carrying context associations to be secondary.
func ValidateIntentNames(story *domain.Story) []string {
	var errs []string
	for _, i := range story.IntentsContexts {
		if !slices.Contains(story.SecondaryIntents, i.Name) {
			errs = append(errs, fmt.Sprintf("Intent %s is not secondary, it cannot be associated to contexts", i.Name))
		}
	}
	return errs
}

// ValidateIntentAssociationActions requires association actions to be declared.
func ValidateIntentAssociationActions(story *domain.Story) []string {
	var errs []string
	for _, i := range story.IntentsContexts {
		for _, assoc := range i.Associations {
			if _, ok := actionByName(story, assoc.ActionName); !ok {
				errs = append(errs, fmt.Sprintf("Intent association action %s not found in declared actions", assoc.ActionName))
			}
		}
	}
	return errs
}

// ValidateDeclaredIntentContexts requires association contexts to be declared.
func ValidateDeclaredIntentContexts(story *domain.Story) []string {
	declared := contextNames(story)
	var errs []string
	for _, c := range intentContexts(story) {
		if !slices.Contains(declared, c) {
			errs = append(errs, fmt.Sprintf("Intent association context %s not found in declared contexts", c))
		}
	}
	return errs
}

// ValidateNames forbids a context and an action sharing a name.
func ValidateNames(story *domain.Story) []string {
	var errs []string
	for _, c := range contextNames(story) {
		if _, ok := actionByName(story, c); ok {
			errs = append(errs, fmt.Sprintf("The same name %s is used for Action handler and context", c))
		}
	}
	return errs
}

// ValidateCatalog validates every story of the catalog concurrently. Only
// invalid stories appear in the result, keyed by story key.
func ValidateCatalog(ctx context.Context, catalog ports.StoryCatalog, handlers HandlerSet) (map[string][]string, error) {
	keys, err := catalog.ListStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	var (
		mu     sync.Mutex
		report = make(map[string][]string)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, key := range keys {
		g.Go(func() error {
			story, err := catalog.GetStory(gctx, key)
			if err != nil {
				return fmt.Errorf("failed to load story %s: %w", key, err)
			}
			if errs := Validate(gctx, story, handlers, catalog); len(errs) > 0 {
				mu.Lock()
				report[key] = errs
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func intentContexts(story *domain.Story) []string {
	var out []string
	for _, i := range story.IntentsContexts {
		for _, assoc := range i.Associations {
			out = union(out, assoc.ContextNames)
		}
	}
	return out
}

func contextNames(story *domain.Story) []string {
	out := make([]string, 0, len(story.Contexts))
	for _, c := range story.Contexts {
		out = append(out, c.Name)
	}
	return out
}

func actionByName(story *domain.Story, name string) (domain.Action, bool) {
	for _, a := range story.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return domain.Action{}, false
}

// union appends the elements of b missing from a, keeping a's order.
func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
