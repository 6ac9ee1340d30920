package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tickstory"
	httpAdapter "github.com/aretw0/tickstory/pkg/adapters/http"
	"github.com/aretw0/tickstory/pkg/adapters/memory"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/dsl"
	"github.com/aretw0/tickstory/pkg/metrics"
	"github.com/aretw0/tickstory/pkg/sender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weather() *domain.Story {
	return dsl.NewStory("weather").
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
}

// broken declares an intent no transition uses.
func broken() *domain.Story {
	return dsl.NewStory("broken").
		MainIntent("start").
		PrimaryIntents("orphan").
		Transition("start", "A").
		Action("A").Answer("a").Done().
		MustBuild()
}

func newHandler(t *testing.T, opts ...httpAdapter.Option) (http.Handler, *tickstory.Engine) {
	t.Helper()
	catalog, err := memory.NewCatalog(weather(), broken())
	require.NoError(t, err)
	engine, err := tickstory.New(catalog)
	require.NoError(t, err)
	return httpAdapter.NewHandler(engine, engine.Sessions(), opts...), engine
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, &buf))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestProcess_Conversation(t *testing.T) {
	h, engine := newHandler(t)

	w := do(t, h, http.MethodPost, "/stories/weather/process", httpAdapter.ProcessRequest{SessionID: "s1", Intent: "weather"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[httpAdapter.ProcessResponse](t, w)
	assert.Equal(t, "success", resp.Outcome)
	assert.Equal(t, []sender.Message{{Kind: sender.KindEndByID, Value: "which_city"}}, resp.Messages)

	w = do(t, h, http.MethodPost, "/stories/weather/process", httpAdapter.ProcessRequest{
		SessionID: "s1",
		Intent:    "city_given",
		Entities:  map[string]any{"location": "Lyon"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[httpAdapter.ProcessResponse](t, w)
	assert.Equal(t, []sender.Message{{Kind: sender.KindEndByID, Value: "forecast"}}, resp.Messages)
	require.NotNil(t, resp.Session)
	assert.True(t, resp.Session.Finished)

	saved, err := engine.Sessions().Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Lyon", saved.Contexts["city"])
}

func TestProcess_GeneratesSessionID(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodPost, "/stories/weather/process", map[string]string{"intent": "weather"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[httpAdapter.ProcessResponse](t, w)
	assert.Len(t, resp.SessionID, 36)

	w = do(t, h, http.MethodGet, "/sessions/"+resp.SessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcess_Errors(t *testing.T) {
	h, _ := newHandler(t)

	tests := []struct {
		name   string
		target string
		body   any
		status int
	}{
		{name: "Unknown Story", target: "/stories/nope/process", body: map[string]string{"intent": "x"}, status: http.StatusNotFound},
		{name: "Invalid Story", target: "/stories/broken/process", body: map[string]string{"intent": "start"}, status: http.StatusUnprocessableEntity},
		{name: "Oversized Intent", target: "/stories/weather/process", body: map[string]string{"intent": strings.Repeat("a", 5000)}, status: http.StatusBadRequest},
		{name: "Malformed Body", target: "/stories/weather/process", body: "not an object", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestProcess_FailedTurnSendsFallback(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodPost, "/stories/broken/process", map[string]string{"session_id": "s1", "intent": "start"})
	resp := decode[httpAdapter.ProcessResponse](t, w)
	assert.Equal(t, "error", resp.Outcome)
	assert.Equal(t, []sender.Message{{Kind: sender.KindEndPlainText, Value: tickstory.DefaultFallbackMessage}}, resp.Messages)

	w = do(t, h, http.MethodGet, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStories(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodGet, "/stories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"broken", "weather"}, decode[[]string](t, w))

	w = do(t, h, http.MethodGet, "/stories/weather", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "weather", decode[domain.Story](t, w).MainIntent)

	w = do(t, h, http.MethodGet, "/stories/weather/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[httpAdapter.ValidationResponse](t, w).Valid)

	w = do(t, h, http.MethodGet, "/stories/broken/validate", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[httpAdapter.ValidationResponse](t, w).Errors, "Intent orphan not found in StateMachine")
}

func TestGraph(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodGet, "/stories/weather/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD\n"))
	assert.NotContains(t, w.Body.String(), "class")

	do(t, h, http.MethodPost, "/stories/weather/process", map[string]string{"session_id": "s1", "intent": "weather"})
	w = do(t, h, http.MethodGet, "/stories/weather/graph?session_id=s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "class ASK_CITY current;")

	w = do(t, h, http.MethodGet, "/stories/weather/graph?session_id=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessions(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodGet, "/sessions", nil)
	assert.Equal(t, "[]\n", w.Body.String())

	do(t, h, http.MethodPost, "/stories/weather/process", map[string]string{"session_id": "s1", "intent": "weather"})

	w = do(t, h, http.MethodGet, "/sessions", nil)
	assert.Equal(t, []string{"s1"}, decode[[]string](t, w))

	w = do(t, h, http.MethodGet, "/sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[domain.Session](t, w).Version)

	w = do(t, h, http.MethodDelete, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInfoAndHealth(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, w))

	w = do(t, h, http.MethodGet, "/info", nil)
	assert.Equal(t, tickstory.Version, decode[map[string]string](t, w)["version"])

	w = do(t, h, http.MethodOptions, "/stories", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	h, _ := newHandler(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", nil).Code)

	h, _ = newHandler(t, httpAdapter.WithMetrics(metrics.NewCollector().Handler()))
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", nil).Code)
}

func TestSubscribeEvents_StoryReloads(t *testing.T) {
	h, _ := newHandler(t, httpAdapter.WithWatch(func(context.Context) (<-chan string, error) {
		ch := make(chan string, 1)
		ch <- "weather"
		close(ch)
		return ch, nil
	}))

	w := do(t, h, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: ping")
	assert.Contains(t, w.Body.String(), "data: weather")
}

func TestSubscribeEvents_WatchDisabled(t *testing.T) {
	h, _ := newHandler(t)
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/events", nil).Code)
}

func TestSubscribeEvents_SessionDiffs(t *testing.T) {
	h, _ := newHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id=s1", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), "data: ") {
				return strings.TrimPrefix(lines.Text(), "data: ")
			}
		}
		return ""
	}
	// The subscription is registered before the ping is flushed.
	require.Equal(t, "connected", next())

	body := strings.NewReader(`{"session_id":"s1","intent":"weather"}`)
	post, err := http.Post(srv.URL+"/stories/weather/process", "application/json", body)
	require.NoError(t, err)
	post.Body.Close()

	var diff domain.SessionDiff
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	assert.Equal(t, "s1", diff.SessionID)
	require.NotNil(t, diff.CurrentState)
	assert.Equal(t, "ASK_CITY", *diff.CurrentState)
	assert.Equal(t, []string{"ASK_CITY"}, diff.Ran)
}
