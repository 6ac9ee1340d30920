// Package http exposes a tickstory engine as a JSON API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/tickstory"
	"github.com/aretw0/tickstory/internal/input"
	"github.com/aretw0/tickstory/internal/logging"
	"github.com/aretw0/tickstory/internal/presentation/graph"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/sender"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Engine is the part of tickstory.Engine the server drives.
type Engine interface {
	Catalog() ports.StoryCatalog
	Validate(ctx context.Context, storyKey string) ([]string, error)
	Process(ctx context.Context, storyKey, sessionID string, sender ports.Sender, action *domain.UserAction) (domain.Result, error)
}

// WatchFunc streams the keys of the stories that changed.
type WatchFunc func(ctx context.Context) (<-chan string, error)

// Server serves the engine routes.
type Server struct {
	engine   Engine
	sessions ports.SessionStore
	streams  *StreamManager
	logger   *slog.Logger
	metrics  http.Handler
	watch    WatchFunc
	maxInput int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithWatch enables the global reload stream of GET /events.
func WithWatch(w WatchFunc) Option {
	return func(s *Server) {
		s.watch = w
	}
}

// WithMaxInputSize bounds the intent and the string entities of a user action.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// ProcessRequest is the body of POST /stories/{story}/process.
type ProcessRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	Intent    string         `json:"intent"`
	Entities  map[string]any `json:"entities,omitempty"`
}

// ProcessResponse reports the outcome of a turn and what was sent to the user.
type ProcessResponse struct {
	SessionID     string           `json:"session_id"`
	Outcome       string           `json:"outcome"`
	RedirectStory string           `json:"redirect_story,omitempty"`
	Session       *domain.Session  `json:"session,omitempty"`
	Messages      []sender.Message `json:"messages"`
	Error         string           `json:"error,omitempty"`
}

// ValidationResponse lists the configuration errors of a story.
type ValidationResponse struct {
	Story  string   `json:"story"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// NewHandler creates the HTTP handler of the engine. sessions backs the
// session routes and the SSE diffs.
func NewHandler(engine Engine, sessions ports.SessionStore, opts ...Option) http.Handler {
	s := &Server{
		engine:   engine,
		sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Route("/stories", func(r chi.Router) {
		r.Get("/", s.ListStories)
		r.Route("/{story}", func(r chi.Router) {
			r.Get("/", s.GetStory)
			r.Get("/validate", s.ValidateStory)
			r.Get("/graph", s.GetGraph)
			r.Post("/process", s.Process)
		})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Get("/{session}", s.GetSession)
		r.Delete("/{session}", s.DeleteSession)
	})

	r.Get("/events", s.SubscribeEvents)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tickstory-http",
		"version": strings.TrimSpace(tickstory.Version),
	})
}

// ListStories handles GET /stories.
func (s *Server) ListStories(w http.ResponseWriter, r *http.Request) {
	keys, err := s.engine.Catalog().ListStories(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, keys)
}

// GetStory handles GET /stories/{story}.
func (s *Server) GetStory(w http.ResponseWriter, r *http.Request) {
	story, err := s.engine.Catalog().GetStory(r.Context(), chi.URLParam(r, "story"))
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, story)
}

// ValidateStory handles GET /stories/{story}/validate. Invalid stories answer 422.
func (s *Server) ValidateStory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "story")
	errs, err := s.engine.Validate(r.Context(), key)
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	resp := ValidationResponse{Story: key, Valid: len(errs) == 0, Errors: errs}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, resp)
}

// GetGraph handles GET /stories/{story}/graph, a Mermaid flowchart. The
// session_id query parameter overlays the state of that session.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	story, err := s.engine.Catalog().GetStory(r.Context(), chi.URLParam(r, "story"))
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		sess, err := s.sessions.Load(r.Context(), id)
		if err != nil {
			s.writeError(w, statusOf(err), err)
			return
		}
		overlay = graph.OverlayFromSession(sess)
	}

	out, err := graph.GenerateMermaid(story, overlay)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, out)
}

// Process handles POST /stories/{story}/process. A new session id is
// generated when the request carries none.
func (s *Server) Process(w http.ResponseWriter, r *http.Request) {
	var body ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("process: invalid request body", "error", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	intent, err := input.Sanitize(strings.TrimSpace(body.Intent), s.maxInput)
	if err == nil {
		err = input.SanitizeEntities(body.Entities, s.maxInput)
	}
	if err != nil {
		s.logger.Warn("process: input rejected", "error", err)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	storyKey := chi.URLParam(r, "story")

	previous, err := s.sessions.Load(r.Context(), sessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	rec := sender.NewRecorder()
	action := &domain.UserAction{Intent: intent, Entities: body.Entities}
	result, err := s.engine.Process(r.Context(), storyKey, sessionID, rec, action)

	resp := ProcessResponse{SessionID: sessionID, Messages: rec.Messages()}
	if resp.Messages == nil {
		resp.Messages = []sender.Message{}
	}
	if err != nil {
		s.logger.Error("process failed", "story", storyKey, "session_id", sessionID, "error", err)
		resp.Outcome = "error"
		resp.Error = err.Error()
		s.writeJSON(w, statusOf(err), resp)
		return
	}

	switch res := result.(type) {
	case domain.Success:
		resp.Outcome = "success"
		resp.Session = res.Session
		if diff := domain.Diff(previous, res.Session); diff != nil {
			s.broadcast(sessionID, diff)
		}
	case domain.Redirect:
		resp.Outcome = "redirect"
		resp.RedirectStory = res.StoryID
		s.broadcast(sessionID, map[string]string{"session_id": sessionID, "redirect_story": res.StoryID})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) broadcast(sessionID string, event any) {
	b, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to encode session event", "error", err)
		return
	}
	s.streams.Broadcast(sessionID, string(b))
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetSession handles GET /sessions/{session}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{session}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "session")); err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /events (SSE). With a session_id it streams the
// diffs of that session, otherwise the keys of reloaded stories.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	var events <-chan string
	if sessionID == "" {
		if s.watch == nil {
			s.writeError(w, http.StatusNotImplemented, errors.New("story watching is disabled"))
			return
		}
		ch, err := s.watch(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		events = ch
		s.logger.Info("SSE: subscribing to story reloads")
	} else {
		ch, cancel := s.streams.Subscribe(sessionID)
		defer cancel()
		events = ch
		s.logger.Info("SSE: subscribing to session updates", "session_id", sessionID)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrStoryNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
