package tickstory_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/tickstory"
	"github.com/aretw0/tickstory/pkg/adapters/memory"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/dsl"
	"github.com/aretw0/tickstory/pkg/sender"
)

// ExampleEngine_Process plays a two-step story held in memory.
func ExampleEngine_Process() {
	story := dsl.NewStory("weather").
		Named("Weather").
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

	catalog, err := memory.NewCatalog(story)
	if err != nil {
		log.Fatal(err)
	}
	engine, err := tickstory.New(catalog)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	rec := sender.NewRecorder()
	turns := []*domain.UserAction{
		{Intent: "weather"},
		{Intent: "city_given", Entities: map[string]any{"location": "Lyon"}},
	}
	for _, action := range turns {
		if _, err := engine.Process(ctx, "weather", "s1", rec, action); err != nil {
			log.Fatal(err)
		}
	}

	for _, m := range rec.Messages() {
		fmt.Println(m.Kind, m.Value)
	}
	s, _ := engine.Sessions().Load(ctx, "s1")
	fmt.Println("city:", s.Contexts["city"], "finished:", s.Finished)
	// Output:
	// end_by_id which_city
	// end_by_id forecast
	// city: Lyon finished: true
}
