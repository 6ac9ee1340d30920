package domain

import "strings"

// GlobalStateID is the id of the root state every tick story starts from.
const GlobalStateID = "Global"

// DefaultRepetitionNb is the number of times the same action may run in a row
// before the conversation is redirected.
const DefaultRepetitionNb = 2

// StateNode is the declarative definition of a state of the intent state machine.
// A node with children is a group; its Initial names the child entered when the
// group is targeted. On maps an intent to a target reference ("#id" or "id").
type StateNode struct {
	ID      string               `json:"id" yaml:"id" mapstructure:"id"`
	Type    string               `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Initial string               `json:"initial,omitempty" yaml:"initial,omitempty" mapstructure:"initial"`
	States  map[string]StateNode `json:"states,omitempty" yaml:"states,omitempty" mapstructure:"states"`
	On      map[string]string    `json:"on,omitempty" yaml:"on,omitempty" mapstructure:"on"`
}

// Context is a named slot of conversation data, optionally filled from an NLU entity.
type Context struct {
	Name       string `json:"name" yaml:"name" mapstructure:"name"`
	EntityRole string `json:"entity_role,omitempty" yaml:"entity_role,omitempty" mapstructure:"entity_role"`
	EntityType string `json:"entity_type,omitempty" yaml:"entity_type,omitempty" mapstructure:"entity_type"`
}

// IntentAssociation lists the contexts that become known when the owning intent
// is detected right after ActionName ran.
type IntentAssociation struct {
	ActionName   string   `json:"action_name" yaml:"action_name" mapstructure:"action_name"`
	ContextNames []string `json:"context_names" yaml:"context_names" mapstructure:"context_names"`
}

// Intent binds a secondary intent to context associations.
type Intent struct {
	Name         string              `json:"intent_name" yaml:"intent_name" mapstructure:"intent_name"`
	Associations []IntentAssociation `json:"associations" yaml:"associations" mapstructure:"associations"`
}

// StorySettings holds the repetition policy shared by the stories of a bot.
type StorySettings struct {
	RepetitionNb  int    `json:"repetition_nb" yaml:"repetition_nb" mapstructure:"repetition_nb"`
	RedirectStory string `json:"redirect_story,omitempty" yaml:"redirect_story,omitempty" mapstructure:"redirect_story"`

	// UnknownRepetitionNb bounds the unknown-intent retries. Zero means RepetitionNb.
	UnknownRepetitionNb int `json:"unknown_repetition_nb,omitempty" yaml:"unknown_repetition_nb,omitempty" mapstructure:"unknown_repetition_nb"`
}

// DefaultStorySettings returns the settings used when a bot has none configured.
func DefaultStorySettings() StorySettings {
	return StorySettings{RepetitionNb: DefaultRepetitionNb}
}

// UnknownLimit returns the effective number of unknown-intent retries.
func (s StorySettings) UnknownLimit() int {
	if s.UnknownRepetitionNb > 0 {
		return s.UnknownRepetitionNb
	}
	return s.RepetitionNb
}

// UnknownAnswerConfig is the answer sent when Intent is detected right after Action ran.
type UnknownAnswerConfig struct {
	Intent   string `json:"intent" yaml:"intent" mapstructure:"intent"`
	Action   string `json:"action" yaml:"action" mapstructure:"action"`
	AnswerID string `json:"answer_id" yaml:"answer_id" mapstructure:"answer_id"`
}

// UnknownConfiguration gathers the unknown-intent answers of a story.
type UnknownConfiguration struct {
	AnswerConfigs []UnknownAnswerConfig `json:"answer_configs,omitempty" yaml:"answer_configs,omitempty" mapstructure:"answer_configs"`
}

// IsUnknown reports whether intent is handled as an unknown intent.
func (u UnknownConfiguration) IsUnknown(intent string) bool {
	if intent == "" {
		return false
	}
	for _, c := range u.AnswerConfigs {
		if c.Intent == intent {
			return true
		}
	}
	return false
}

// AnswerFor returns the unknown answer configured for intent detected after action.
func (u UnknownConfiguration) AnswerFor(intent, action string) (UnknownAnswerConfig, bool) {
	for _, c := range u.AnswerConfigs {
		if c.Intent == intent && c.Action == action {
			return c, true
		}
	}
	return UnknownAnswerConfig{}, false
}

// Configuration is the validated, immutable runtime view of a tick story.
type Configuration struct {
	StateMachine    StateNode            `json:"state_machine"`
	Actions         []Action             `json:"actions"`
	Contexts        []Context            `json:"contexts"`
	IntentsContexts []Intent             `json:"intents_contexts,omitempty"`
	Unknown         UnknownConfiguration `json:"unknown,omitempty"`
	Settings        StorySettings        `json:"settings"`
	Debug           bool                 `json:"debug,omitempty"`
}

// Action looks up an action by name.
func (c *Configuration) Action(name string) (Action, bool) {
	for _, a := range c.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// AssociatedContexts returns the contexts made known by intent when lastAction
// is the last action that ran.
func (c *Configuration) AssociatedContexts(intent, lastAction string) []string {
	for _, i := range c.IntentsContexts {
		if i.Name != intent {
			continue
		}
		for _, a := range i.Associations {
			if a.ActionName == lastAction {
				return a.ContextNames
			}
		}
		return nil
	}
	return nil
}

// Story is a tick story as authored: the configuration plus its intents and identity.
type Story struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	BotID       string `json:"bot_id" yaml:"bot_id" mapstructure:"bot_id"`
	StoryID     string `json:"story_id" yaml:"story_id" mapstructure:"story_id"`
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	StateMachine StateNode `json:"state_machine" yaml:"state_machine" mapstructure:"state_machine"`

	MainIntent       string   `json:"main_intent" yaml:"main_intent" mapstructure:"main_intent"`
	PrimaryIntents   []string `json:"primary_intents,omitempty" yaml:"primary_intents,omitempty" mapstructure:"primary_intents"`
	SecondaryIntents []string `json:"secondary_intents,omitempty" yaml:"secondary_intents,omitempty" mapstructure:"secondary_intents"`
	Triggers         []string `json:"triggers,omitempty" yaml:"triggers,omitempty" mapstructure:"triggers"`

	Contexts        []Context `json:"contexts,omitempty" yaml:"contexts,omitempty" mapstructure:"contexts"`
	Actions         []Action  `json:"actions" yaml:"actions" mapstructure:"actions"`
	IntentsContexts []Intent  `json:"intents_contexts,omitempty" yaml:"intents_contexts,omitempty" mapstructure:"intents_contexts"`

	UnknownAnswerConfigs []UnknownAnswerConfig `json:"unknown_answer_configs,omitempty" yaml:"unknown_answer_configs,omitempty" mapstructure:"unknown_answer_configs"`

	// Answers optionally maps answer ids to texts, for consoles that have no translator.
	Answers map[string]string `json:"answers,omitempty" yaml:"answers,omitempty" mapstructure:"answers"`

	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty" mapstructure:"debug"`
}

// Key returns the identifier other stories use to reference this one.
func (s *Story) Key() string {
	if s.StoryID != "" {
		return s.StoryID
	}
	return s.ID
}

// AllIntents returns the main, primary and secondary intents, deduplicated, in that order.
func (s *Story) AllIntents() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if strings.TrimSpace(n) == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	add(s.MainIntent)
	add(s.PrimaryIntents...)
	add(s.SecondaryIntents...)
	return out
}

// Configuration projects the story onto the runtime configuration.
func (s *Story) Configuration(settings StorySettings) Configuration {
	return Configuration{
		StateMachine:    s.StateMachine,
		Actions:         s.Actions,
		Contexts:        s.Contexts,
		IntentsContexts: s.IntentsContexts,
		Unknown:         UnknownConfiguration{AnswerConfigs: s.UnknownAnswerConfigs},
		Settings:        settings,
		Debug:           s.Debug,
	}
}
