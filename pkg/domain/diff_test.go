package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	t.Run("Initial Load", func(t *testing.T) {
		s := NewSession("sess-1")
		s.CurrentState = "A"
		s.Contexts["x"] = nil
		s.RanHandlers = []string{"A"}

		d := Diff(nil, s)
		require.NotNil(t, d)
		assert.Equal(t, "A", *d.CurrentState)
		assert.Equal(t, map[string]any{"x": nil}, d.Contexts)
		assert.Equal(t, []string{"A"}, d.Ran)
	})

	t.Run("No Changes", func(t *testing.T) {
		s := NewSession("sess-1")
		s.Contexts["x"] = 1
		assert.Nil(t, Diff(s, s.Clone()))
	})

	t.Run("Context Removed", func(t *testing.T) {
		old := NewSession("sess-1")
		old.Contexts["a"] = 1
		old.Contexts["b"] = 2
		next := old.Clone()
		delete(next.Contexts, "b")

		d := Diff(old, next)
		require.NotNil(t, d)
		assert.Empty(t, d.Contexts)
		assert.Equal(t, []string{"b"}, d.Removed)
	})

	t.Run("Ran Handlers Appended", func(t *testing.T) {
		old := NewSession("sess-1")
		old.RanHandlers = []string{"A"}
		next := old.Clone()
		next.RanHandlers = append(next.RanHandlers, "B", "C")

		d := Diff(old, next)
		require.NotNil(t, d)
		assert.Equal(t, []string{"B", "C"}, d.Ran)
	})

	t.Run("Ran Handlers Cleared For New Objective", func(t *testing.T) {
		old := NewSession("sess-1")
		old.RanHandlers = []string{"A", "B"}
		next := old.Clone()
		next.RanHandlers = []string{"C"}
		next.ObjectivesStack = []string{"D"}

		d := Diff(old, next)
		require.NotNil(t, d)
		assert.Equal(t, []string{"C"}, d.Ran)
		assert.Equal(t, []string{"D"}, d.Objectives)
	})

	t.Run("Finished", func(t *testing.T) {
		old := NewSession("sess-1")
		next := old.Clone()
		next.Finished = true

		d := Diff(old, next)
		require.NotNil(t, d)
		assert.True(t, *d.Finished)
	})
}

func TestDiffJSONSerialization(t *testing.T) {
	old := NewSession("sess-1")
	old.Contexts["a"] = 1
	next := old.Clone()
	next.CurrentState = "B"

	d := Diff(old, next)
	require.NotNil(t, d)

	bytes, err := json.Marshal(d)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(bytes), `"contexts"`), "unchanged contexts must be omitted: %s", bytes)
}

func TestSession_CloneIsolation(t *testing.T) {
	s := NewSession("sess-1")
	s.Contexts["a"] = "v"
	s.ObjectivesStack = []string{"X"}
	s.HandlingStep = &HandlingStep{Action: "X", Repeated: 1}

	c := s.Clone()
	c.Contexts["b"] = "w"
	c.ObjectivesStack[0] = "Y"
	c.HandlingStep.Repeated = 5

	assert.NotContains(t, s.Contexts, "b")
	assert.Equal(t, "X", s.ObjectivesStack[0])
	assert.Equal(t, 1, s.HandlingStep.Repeated)
}

func TestSession_TouchIsMonotonic(t *testing.T) {
	s := NewSession("sess-1")
	s.Touch(timeAt(10))
	first := s.UpdatedAt

	s.Touch(timeAt(5)) // clock went backwards
	assert.Equal(t, int64(2), s.Version)
	assert.True(t, s.UpdatedAt.After(first))
}

func TestAction_IsSilent(t *testing.T) {
	assert.False(t, Action{Name: "a", AnswerID: "x"}.IsSilent())
	assert.True(t, Action{Name: "a", Handler: "h"}.IsSilent())
	assert.True(t, Action{Name: "a", Trigger: "t"}.IsSilent())
	assert.True(t, Action{Name: "a", Proceed: true}.IsSilent())
	assert.False(t, Action{Name: "a", Handler: "  "}.IsSilent())
}

func timeAt(sec int64) time.Time {
	return time.Unix(sec, 0)
}
