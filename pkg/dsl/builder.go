package dsl

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/tickstory/pkg/domain"
)

// Builder manages the story construction.
type Builder struct {
	story   domain.Story
	actions []*ActionBuilder
	groups  []group
	on      map[string]map[string]string
	errs    []error
}

type group struct {
	id      string
	initial string
	members []string
}

// NewStory creates a new story builder. key becomes the story id.
func NewStory(key string) *Builder {
	return &Builder{
		story: domain.Story{StoryID: key, Name: key},
		on:    make(map[string]map[string]string),
	}
}

// Named sets the display name.
func (b *Builder) Named(name string) *Builder {
	b.story.Name = name
	return b
}

// Description sets the story description.
func (b *Builder) Description(d string) *Builder {
	b.story.Description = d
	return b
}

// Bot sets the owning bot.
func (b *Builder) Bot(id string) *Builder {
	b.story.BotID = id
	return b
}

// MainIntent sets the intent that starts the story.
func (b *Builder) MainIntent(intent string) *Builder {
	b.story.MainIntent = intent
	return b
}

// PrimaryIntents adds intents that can start or redirect the story.
func (b *Builder) PrimaryIntents(intents ...string) *Builder {
	b.story.PrimaryIntents = append(b.story.PrimaryIntents, intents...)
	return b
}

// SecondaryIntents adds intents only understood inside the story.
func (b *Builder) SecondaryIntents(intents ...string) *Builder {
	b.story.SecondaryIntents = append(b.story.SecondaryIntents, intents...)
	return b
}

// Context declares a context, filled from the entity of the given role when not empty.
func (b *Builder) Context(name, entityRole string) *Builder {
	b.story.Contexts = append(b.story.Contexts, domain.Context{Name: name, EntityRole: entityRole})
	return b
}

// Transition adds a transition on the Global state.
func (b *Builder) Transition(intent, target string) *Builder {
	return b.TransitionFrom(domain.GlobalStateID, intent, target)
}

// TransitionFrom adds a transition on any state: Global, a group or an action.
func (b *Builder) TransitionFrom(state, intent, target string) *Builder {
	if b.on[state] == nil {
		b.on[state] = make(map[string]string)
	}
	b.on[state][intent] = "#" + target
	return b
}

// Group nests the states of the member actions under a group state entered
// through initial.
func (b *Builder) Group(id, initial string, members ...string) *Builder {
	b.groups = append(b.groups, group{id: id, initial: initial, members: members})
	return b
}

// Action starts the definition of an action. Call Done to get back to the story.
func (b *Builder) Action(name string) *ActionBuilder {
	ab := &ActionBuilder{action: domain.Action{Name: name}, builder: b}
	b.actions = append(b.actions, ab)
	return ab
}

// Associate makes contexts known when intent is detected right after action ran.
func (b *Builder) Associate(intent, action string, contexts ...string) *Builder {
	for i := range b.story.IntentsContexts {
		if b.story.IntentsContexts[i].Name == intent {
			b.story.IntentsContexts[i].Associations = append(b.story.IntentsContexts[i].Associations,
				domain.IntentAssociation{ActionName: action, ContextNames: contexts})
			return b
		}
	}
	b.story.IntentsContexts = append(b.story.IntentsContexts, domain.Intent{
		Name:         intent,
		Associations: []domain.IntentAssociation{{ActionName: action, ContextNames: contexts}},
	})
	return b
}

// Unknown answers answerID when intent is detected right after action ran.
func (b *Builder) Unknown(intent, action, answerID string) *Builder {
	b.story.UnknownAnswerConfigs = append(b.story.UnknownAnswerConfigs, domain.UnknownAnswerConfig{
		Intent:   intent,
		Action:   action,
		AnswerID: answerID,
	})
	return b
}

// AnswerText registers the text of an answer id for text consoles.
func (b *Builder) AnswerText(answerID, text string) *Builder {
	if b.story.Answers == nil {
		b.story.Answers = make(map[string]string)
	}
	b.story.Answers[answerID] = text
	return b
}

// Debug enables the debug echo of contexts.
func (b *Builder) Debug() *Builder {
	b.story.Debug = true
	return b
}

// Build assembles the story and its state machine. It reports structural
// mistakes only; use the validator for the semantic checks.
func (b *Builder) Build() (*domain.Story, error) {
	errs := slices.Clone(b.errs)

	leaves := make(map[string]domain.StateNode)
	for _, ab := range b.actions {
		name := ab.action.Name
		if _, dup := leaves[name]; dup {
			errs = append(errs, fmt.Errorf("action %s declared twice", name))
			continue
		}
		leaves[name] = domain.StateNode{ID: name, On: b.on[name]}
	}

	root := domain.StateNode{
		ID:     domain.GlobalStateID,
		On:     b.on[domain.GlobalStateID],
		States: make(map[string]domain.StateNode),
	}
	grouped := make(map[string]string)
	for _, g := range b.groups {
		node := domain.StateNode{ID: g.id, Initial: g.initial, On: b.on[g.id], States: make(map[string]domain.StateNode)}
		for _, m := range g.members {
			leaf, ok := leaves[m]
			if !ok {
				errs = append(errs, fmt.Errorf("group %s: unknown action %s", g.id, m))
				continue
			}
			if owner, taken := grouped[m]; taken {
				errs = append(errs, fmt.Errorf("action %s belongs to groups %s and %s", m, owner, g.id))
				continue
			}
			grouped[m] = g.id
			node.States[m] = leaf
		}
		if !slices.Contains(g.members, g.initial) {
			errs = append(errs, fmt.Errorf("group %s: initial state %s is not a member", g.id, g.initial))
		}
		root.States[g.id] = node
	}
	for _, ab := range b.actions {
		if _, ok := grouped[ab.action.Name]; !ok {
			root.States[ab.action.Name] = leaves[ab.action.Name]
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	story := b.story
	story.StateMachine = root
	story.Actions = make([]domain.Action, 0, len(b.actions))
	for _, ab := range b.actions {
		story.Actions = append(story.Actions, ab.action)
	}
	return &story, nil
}

// MustBuild is like Build but panics on error. Meant for tests and examples.
func (b *Builder) MustBuild() *domain.Story {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
