package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollector_Hooks(t *testing.T) {
	c := metrics.NewCollector()
	hooks := c.Hooks()
	ctx := context.Background()

	hooks.OnActionExecuted(ctx, &domain.ActionEvent{Action: "BONJOUR", Silent: true, Candidates: []string{"BONJOUR"}})
	hooks.OnActionExecuted(ctx, &domain.ActionEvent{Action: "VEUX_TU_JOUER", Candidates: []string{"VEUX_TU_JOUER"}})
	hooks.OnTurnCompleted(ctx, &domain.TurnEvent{Outcome: domain.OutcomeSuccess, Rounds: 2, Duration: time.Millisecond})
	hooks.OnTurnCompleted(ctx, &domain.TurnEvent{Outcome: domain.OutcomeRedirect, Rounds: 1})

	body := scrape(t, c)
	assert.Contains(t, body, `tickstory_turns_total{outcome="redirect"} 1`)
	assert.Contains(t, body, `tickstory_turns_total{outcome="success"} 1`)
	assert.Contains(t, body, `tickstory_actions_executed_total{action="BONJOUR",silent="true"} 1`)
	assert.Contains(t, body, `tickstory_actions_executed_total{action="VEUX_TU_JOUER",silent="false"} 1`)
	assert.Contains(t, body, "tickstory_turn_rounds_count 2")
	assert.Contains(t, body, "tickstory_planner_candidates_count 2")
}

func TestCollector_Handler(t *testing.T) {
	c := metrics.NewCollector()
	c.Hooks().OnTurnCompleted(context.Background(), &domain.TurnEvent{Outcome: domain.OutcomeError})

	assert.Contains(t, scrape(t, c), `tickstory_turns_total{outcome="error"} 1`)
}

func TestCombine(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnTurnCompleted: func(context.Context, *domain.TurnEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnTurnCompleted:  func(context.Context, *domain.TurnEvent) { calls = append(calls, "b") },
		OnActionExecuted: func(context.Context, *domain.ActionEvent) { calls = append(calls, "b-action") },
	}

	hooks := metrics.Combine(a, domain.LifecycleHooks{}, b)
	hooks.OnTurnCompleted(context.Background(), &domain.TurnEvent{})
	hooks.OnActionExecuted(context.Background(), &domain.ActionEvent{})
	assert.Equal(t, []string{"a", "b", "b-action"}, calls)

	assert.Nil(t, metrics.Combine().OnTurnCompleted)
}
