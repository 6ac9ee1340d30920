package unknown

import (
	"context"
	"testing"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/sender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(rec *sender.Recorder, step *domain.UnknownStep) ports.UnknownRequest {
	return ports.UnknownRequest{
		Intent:     "unknown",
		LastAction: "ASK_CITY",
		Config: domain.UnknownConfiguration{AnswerConfigs: []domain.UnknownAnswerConfig{
			{Intent: "unknown", Action: "ASK_CITY", AnswerID: "city_not_understood"},
		}},
		Sender:   rec,
		Step:     step,
		Settings: domain.StorySettings{RepetitionNb: 2, RedirectStory: "human_agent"},
	}
}

func TestHandle_AnswersAndCounts(t *testing.T) {
	h := New()
	rec := sender.NewRecorder()

	out, err := h.Handle(context.Background(), request(rec, nil))
	require.NoError(t, err)
	require.NotNil(t, out.Step)
	assert.Equal(t, domain.UnknownStep{Action: "ASK_CITY", AnswerID: "city_not_understood", Repeated: 1}, *out.Step)
	assert.Empty(t, out.RedirectStoryID)

	out, err = h.Handle(context.Background(), request(rec, out.Step))
	require.NoError(t, err)
	require.NotNil(t, out.Step)
	assert.Equal(t, 2, out.Step.Repeated)

	assert.Equal(t, []string{"city_not_understood", "city_not_understood"}, rec.Values(sender.KindEndByID))
}

func TestHandle_RedirectsWhenExhausted(t *testing.T) {
	h := New()
	rec := sender.NewRecorder()

	out, err := h.Handle(context.Background(), request(rec, &domain.UnknownStep{Action: "ASK_CITY", Repeated: 2}))
	require.NoError(t, err)
	assert.Nil(t, out.Step)
	assert.Equal(t, "human_agent", out.RedirectStoryID)
	assert.Empty(t, rec.Messages())
}

func TestHandle_StepOfAnotherActionRestarts(t *testing.T) {
	h := New()
	rec := sender.NewRecorder()

	out, err := h.Handle(context.Background(), request(rec, &domain.UnknownStep{Action: "HELLO", Repeated: 5}))
	require.NoError(t, err)
	require.NotNil(t, out.Step)
	assert.Equal(t, 1, out.Step.Repeated)
}

func TestHandle_Declines(t *testing.T) {
	h := New()
	rec := sender.NewRecorder()

	req := request(rec, nil)
	req.LastAction = "HELLO"
	out, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ports.UnknownOutcome{}, out)
	assert.Empty(t, rec.Messages())
}
