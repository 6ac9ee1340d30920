/*
Package tickstory orchestrates goal-driven dialogues ("tick stories").

A tick story pairs a hierarchical intent state machine with a set of actions that
consume and produce named contexts. When the user says something, the state
machine tells where the conversation must go (the primary objective) and a
planner picks an action that can run now to get there (the secondary
objective). Actions that do not answer the user chain new rounds until one does.

# Usage

Stories come from a catalog (a Loam directory, YAML/JSON files or memory) and
sessions are persisted through a session.Manager:

	catalog, err := loam.Open("./stories")
	if err != nil {
		log.Fatal(err)
	}
	eng, err := tickstory.New(catalog,
		tickstory.WithSessionManager(session.NewManager(file.New(""))),
		tickstory.WithSettings(domain.StorySettings{RepetitionNb: 2, RedirectStory: "human_agent"}),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Process(ctx, "order", "session-123", sender, &domain.UserAction{Intent: "order"})
	if err != nil {
		log.Fatal(err)
	}
	if r, ok := res.(domain.Redirect); ok {
		// hand the conversation over to r.StoryID
	}

Before serving a story, the engine validates it: every intent must be a
transition, every leaf state an action, every input context must have a
producer, and so on. An invalid story is never processed.
*/
package tickstory
