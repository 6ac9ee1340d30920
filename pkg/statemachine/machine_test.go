package statemachine

import (
	"testing"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gameMachine mirrors a small two-level story:
//
//	root
//	└── Global (on bonjour -> #GROUP)
//	    └── GROUP (initial BYE, on yes/no -> #BYE)
//	        ├── HELLO
//	        ├── PLAY (on again -> #PLAY)
//	        └── BYE
func gameMachine() domain.StateNode {
	return domain.StateNode{
		ID:      "root",
		Initial: "Global",
		States: map[string]domain.StateNode{
			"Global": {
				ID:      "Global",
				Initial: "GROUP",
				On:      map[string]string{"bonjour": "#GROUP"},
				States: map[string]domain.StateNode{
					"GROUP": {
						ID:      "GROUP",
						Initial: "BYE",
						On:      map[string]string{"yes": "#BYE", "no": "#BYE"},
						States: map[string]domain.StateNode{
							"HELLO": {ID: "HELLO"},
							"PLAY":  {ID: "PLAY", On: map[string]string{"again": "#PLAY"}},
							"BYE":   {ID: "BYE"},
						},
					},
				},
			},
		},
	}
}

func TestMachine_Next(t *testing.T) {
	m, err := New(gameMachine())
	require.NoError(t, err)

	tests := []struct {
		name    string
		current string
		intent  string
		want    string
		found   bool
	}{
		{"Group Target Resolves To Initial Leaf", "Global", "bonjour", "BYE", true},
		{"Transition Inherited From Parent", "HELLO", "yes", "BYE", true},
		{"Transition Inherited From Grand Parent", "PLAY", "bonjour", "BYE", true},
		{"Direct Transition", "PLAY", "again", "PLAY", true},
		{"Unknown Intent", "HELLO", "nope", "", false},
		{"Unknown State", "GHOST", "yes", "", false},
		{"Siblings Do Not Share Transitions", "HELLO", "again", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Next(tt.current, tt.intent)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMachine_NextIsDeterministic(t *testing.T) {
	m, err := New(gameMachine())
	require.NoError(t, err)

	for _, state := range m.IDs() {
		for _, intent := range m.Transitions() {
			first, ok1 := m.Next(state, intent)
			second, ok2 := m.Next(state, intent)
			assert.Equal(t, ok1, ok2, "%s/%s", state, intent)
			assert.Equal(t, first, second, "%s/%s", state, intent)
		}
	}
}

func TestMachine_Introspection(t *testing.T) {
	m, err := New(gameMachine())
	require.NoError(t, err)

	assert.Equal(t, []string{"BYE", "HELLO", "PLAY"}, m.LeafIDs())
	assert.Equal(t, []string{"again", "bonjour", "no", "yes"}, m.Transitions())
	assert.True(t, m.ContainsTransition("again"))
	assert.False(t, m.ContainsTransition("missing"))

	assert.True(t, m.IsDirectTransition("PLAY", "again"))
	assert.False(t, m.IsDirectTransition("HELLO", "yes"), "inherited transitions are not direct")

	group, ok := m.State("GROUP")
	require.True(t, ok)
	assert.True(t, group.IsGroup())
	assert.Equal(t, "Global", group.Parent)
	assert.ElementsMatch(t, []string{"HELLO", "PLAY", "BYE"}, group.Children)

	parent, ok := m.Parent("HELLO")
	assert.True(t, ok)
	assert.Equal(t, "GROUP", parent)

	_, ok = m.Parent("root")
	assert.False(t, ok)
}

func TestMachine_Initial(t *testing.T) {
	m, err := New(gameMachine())
	require.NoError(t, err)

	leaf, ok := m.Initial("root")
	assert.True(t, ok)
	assert.Equal(t, "BYE", leaf)

	leaf, ok = m.Initial("HELLO")
	assert.True(t, ok)
	assert.Equal(t, "HELLO", leaf)

	broken, err := New(domain.StateNode{
		ID:      "Global",
		Initial: "ELSEWHERE",
		States:  map[string]domain.StateNode{"A": {ID: "A"}},
	})
	require.NoError(t, err)
	_, ok = broken.Initial("Global")
	assert.False(t, ok, "initial must name a direct child")
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := New(domain.StateNode{
		ID: "Global",
		States: map[string]domain.StateNode{
			"A": {ID: "A", States: map[string]domain.StateNode{"B": {ID: "B"}}},
			"C": {ID: "B"},
		},
	})
	assert.Error(t, err)
}
