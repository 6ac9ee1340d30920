/*
Package dsl builds tick stories in Go instead of YAML or JSON files.

Every action becomes a leaf state of the intent state machine, directly under
Global unless a Group nests it:

	story := dsl.NewStory("weather").
		MainIntent("weather").
		SecondaryIntents("city_given").
		Context("city", "location").
		Transition("weather", "FORECAST").
		Action("ASK_CITY").Answer("which_city").Outputs("city").
		State(dsl.On("city_given", "FORECAST")).
		Done().
		Action("FORECAST").Answer("forecast").Inputs("city").Final().Done().
		Associate("city_given", "ASK_CITY", "city").
		MustBuild()
*/
package dsl
