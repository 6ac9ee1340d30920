package validator

import (
	"context"
	"testing"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/stretchr/testify/assert"
)

type handlerSet map[string]bool

func (h handlerSet) Contains(name string) bool { return h[name] }

type oracle map[string]bool

func (o oracle) StoryExists(_ context.Context, id string) bool { return o[id] }

// orderStory is a valid story: greet, ask the city, then order.
func orderStory() *domain.Story {
	return &domain.Story{
		StoryID:          "order",
		Name:             "Order",
		MainIntent:       "order",
		PrimaryIntents:   []string{"greet"},
		SecondaryIntents: []string{"city_given"},
		StateMachine: domain.StateNode{
			ID: domain.GlobalStateID,
			On: map[string]string{"greet": "#HELLO", "order": "#ORDER"},
			States: map[string]domain.StateNode{
				"HELLO":    {ID: "HELLO"},
				"ASK_CITY": {ID: "ASK_CITY", On: map[string]string{"city_given": "#ORDER"}},
				"ORDER":    {ID: "ORDER"},
			},
		},
		Contexts: []domain.Context{{Name: "city", EntityRole: "location"}},
		Actions: []domain.Action{
			{Name: "HELLO", AnswerID: "hello"},
			{Name: "ASK_CITY", AnswerID: "which_city", OutputContextNames: []string{"city"}},
			{Name: "ORDER", AnswerID: "ordered", Handler: "shop:order", InputContextNames: []string{"city"}},
		},
		IntentsContexts: []domain.Intent{{
			Name:         "city_given",
			Associations: []domain.IntentAssociation{{ActionName: "ASK_CITY", ContextNames: []string{"city"}}},
		}},
	}
}

func validate(story *domain.Story) []string {
	return Validate(context.Background(), story, handlerSet{"shop:order": true}, oracle{"support": true})
}

func actionIndex(story *domain.Story, name string) int {
	for i, a := range story.Actions {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func TestValidate_ValidStory(t *testing.T) {
	assert.Empty(t, validate(orderStory()))
}

func TestValidate_OneBrokenEdgePerRule(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *domain.Story)
		want   string
	}{
		{
			name: "Intent Without Transition",
			mutate: func(s *domain.Story) {
				s.StateMachine.States["ASK_CITY"] = domain.StateNode{ID: "ASK_CITY"}
			},
			want: "Intent city_given not found in StateMachine",
		},
		{
			name: "Transition Without Intent",
			mutate: func(s *domain.Story) {
				s.StateMachine.On["bye"] = "#HELLO"
			},
			want: "Transition bye not found in TickStory intents",
		},
		{
			name: "Action Without State",
			mutate: func(s *domain.Story) {
				s.Actions = append(s.Actions, domain.Action{Name: "GHOST", AnswerID: "boo"})
			},
			want: "Action GHOST not found in StateMachine",
		},
		{
			name: "State Without Action",
			mutate: func(s *domain.Story) {
				s.Actions = append(s.Actions[:0], s.Actions[1:]...)
			},
			want: "State HELLO not found in TickStory actions",
		},
		{
			name: "Unknown Handler",
			mutate: func(s *domain.Story) {
				s.Actions[actionIndex(s, "ORDER")].Handler = "shop:missing"
			},
			want: "Action handler shop:missing not found in handlers repository",
		},
		{
			name: "Input Context Without Producer",
			mutate: func(s *domain.Story) {
				s.Contexts = append(s.Contexts, domain.Context{Name: "x"})
				order := &s.Actions[actionIndex(s, "ORDER")]
				order.InputContextNames = append(order.InputContextNames, "x")
			},
			want: "Input context x of action ORDER not found in output contexts of others",
		},
		{
			name: "Output Context Without Consumer",
			mutate: func(s *domain.Story) {
				s.Contexts = append(s.Contexts, domain.Context{Name: "y"})
				ask := &s.Actions[actionIndex(s, "ASK_CITY")]
				ask.OutputContextNames = append(ask.OutputContextNames, "y")
			},
			want: "Output context y of action ASK_CITY not found in input contexts of others",
		},
		{
			name: "Undeclared Action Context",
			mutate: func(s *domain.Story) {
				ask := &s.Actions[actionIndex(s, "ASK_CITY")]
				ask.OutputContextNames = append(ask.OutputContextNames, "z")
				order := &s.Actions[actionIndex(s, "ORDER")]
				order.InputContextNames = append(order.InputContextNames, "z")
			},
			want: "Action context z not found in declared contexts",
		},
		{
			name: "Association On Primary Intent",
			mutate: func(s *domain.Story) {
				s.IntentsContexts = append(s.IntentsContexts, domain.Intent{
					Name:         "greet",
					Associations: []domain.IntentAssociation{{ActionName: "HELLO", ContextNames: []string{"city"}}},
				})
			},
			want: "Intent greet is not secondary, it cannot be associated to contexts",
		},
		{
			name: "Association On Undeclared Action",
			mutate: func(s *domain.Story) {
				s.IntentsContexts[0].Associations = append(s.IntentsContexts[0].Associations,
					domain.IntentAssociation{ActionName: "GHOST", ContextNames: []string{"city"}})
			},
			want: "Intent association action GHOST not found in declared actions",
		},
		{
			name: "Association On Undeclared Context",
			mutate: func(s *domain.Story) {
				s.IntentsContexts[0].Associations[0].ContextNames = []string{"city", "w"}
			},
			want: "Intent association context w not found in declared contexts",
		},
		{
			name: "Action And Context Share A Name",
			mutate: func(s *domain.Story) {
				s.Contexts = append(s.Contexts, domain.Context{Name: "HELLO"})
			},
			want: "The same name HELLO is used for Action handler and context",
		},
		{
			name: "Missing Target Story",
			mutate: func(s *domain.Story) {
				s.Actions[actionIndex(s, "ORDER")].TargetStory = "billing"
			},
			want: "Target story billing of action ORDER not found",
		},
		{
			name: "Trigger Without Transition",
			mutate: func(s *domain.Story) {
				s.Actions[actionIndex(s, "HELLO")].Trigger = "wave"
			},
			want: "Trigger wave of action HELLO not found in StateMachine",
		},
		{
			name: "Missing Global State",
			mutate: func(s *domain.Story) {
				s.StateMachine.ID = "Main"
			},
			want: "State Global not found in StateMachine",
		},
		{
			name: "Direct Self Transition",
			mutate: func(s *domain.Story) {
				s.StateMachine.States["HELLO"] = domain.StateNode{ID: "HELLO", On: map[string]string{"greet": "#HELLO"}}
			},
			want: "Transition greet of state HELLO leads back to the same state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			story := orderStory()
			tt.mutate(story)
			assert.Equal(t, []string{tt.want}, validate(story))
		})
	}
}

func TestValidate_ExistingTargetStory(t *testing.T) {
	story := orderStory()
	story.Actions[actionIndex(story, "ORDER")].TargetStory = "support"
	assert.Empty(t, validate(story))
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	story := orderStory()
	story.StateMachine.On["bye"] = "#HELLO"
	story.Actions[actionIndex(story, "ORDER")].Handler = "shop:missing"

	assert.Equal(t, []string{
		"Action handler shop:missing not found in handlers repository",
		"Transition bye not found in TickStory intents",
	}, validate(story))
}

func TestValidate_InvalidMachine(t *testing.T) {
	story := orderStory()
	story.StateMachine.States["ORDER"] = domain.StateNode{ID: "HELLO"}

	errs := validate(story)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Invalid StateMachine")
}

func TestValidate_NilCollaboratorsSkipChecks(t *testing.T) {
	story := orderStory()
	story.Actions[actionIndex(story, "ORDER")].Handler = "shop:missing"
	story.Actions[actionIndex(story, "ORDER")].TargetStory = "billing"

	assert.Empty(t, Validate(context.Background(), story, nil, nil))
}
