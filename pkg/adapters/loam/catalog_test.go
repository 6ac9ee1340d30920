package loam_test

import (
	"context"
	"testing"

	"github.com/aretw0/tickstory/internal/testutils"
	"github.com/aretw0/tickstory/pkg/adapters/loam"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.StoryCatalog = (*loam.Catalog)(nil)

const greetings = `{
  "story_id": "greetings",
  "name": "Greetings",
  "main_intent": "hello",
  "state_machine": {
    "id": "root",
    "initial": "Global",
    "states": {
      "Global": {
        "id": "Global",
        "states": {"HELLO": {"id": "HELLO"}},
        "on": {"hello": "#HELLO"}
      }
    }
  },
  "actions": [
    {"name": "HELLO", "answer_id": "hello_answer", "final": true}
  ]
}`

const support = `{
  "name": "Support",
  "main_intent": "help",
  "actions": [{"name": "HELP", "final": true}]
}`

func TestCatalog_Contract(t *testing.T) {
	_, repo := testutils.SetupStoryRepo(t, map[string]string{
		"greetings.json": greetings,
		"support.json":   support,
	})

	tests.StoryCatalogContractTest(t, loam.New(repo), map[string]string{
		"greetings": "Greetings",
		"support":   "Support",
	})
}

func TestCatalog_DecodesStory(t *testing.T) {
	_, repo := testutils.SetupStoryRepo(t, map[string]string{"greetings.json": greetings})

	catalog := loam.New(repo)
	story, err := catalog.GetStory(context.Background(), "greetings")
	require.NoError(t, err)

	assert.Equal(t, "hello", story.MainIntent)
	require.Len(t, story.Actions, 1)
	assert.Equal(t, domain.Action{Name: "HELLO", AnswerID: "hello_answer", Final: true}, story.Actions[0])

	global, ok := story.StateMachine.States[domain.GlobalStateID]
	require.True(t, ok)
	assert.Equal(t, "#HELLO", global.On["hello"])
	assert.Contains(t, global.States, "HELLO")

	src, ok := catalog.Source("greetings")
	require.True(t, ok)
	assert.Contains(t, src, "greetings")
}

func TestCatalog_DetectsCollisions(t *testing.T) {
	_, repo := testutils.SetupStoryRepo(t, map[string]string{
		"a.json": `{"story_id": "same", "name": "A"}`,
		"b.json": `{"story_id": "same", "name": "B"}`,
	})

	catalog := loam.New(repo)
	err := catalog.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.False(t, catalog.StoryExists(context.Background(), "same"))
}

func TestCatalog_Refresh(t *testing.T) {
	dir, repo := testutils.SetupStoryRepo(t, map[string]string{"greetings.json": greetings})

	ctx := context.Background()
	catalog := loam.New(repo)
	keys, err := catalog.ListStories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"greetings"}, keys)

	testutils.WriteStories(t, dir, map[string]string{"support.json": support})
	keys, err = catalog.ListStories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"greetings"}, keys, "index is cached until refreshed")

	require.NoError(t, catalog.Refresh(ctx))
	keys, err = catalog.ListStories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"greetings", "support"}, keys)
}
