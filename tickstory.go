package tickstory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/tickstory/internal/logging"
	"github.com/aretw0/tickstory/internal/runtime"
	"github.com/aretw0/tickstory/internal/validator"
	"github.com/aretw0/tickstory/pkg/adapters/memory"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/planner"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/registry"
	"github.com/aretw0/tickstory/pkg/session"
)

// DefaultFallbackMessage is sent to the user when a turn fails.
const DefaultFallbackMessage = "Sorry, something went wrong. Please try again later."

// Engine is the high-level entry point of the library. It serves the stories of
// a catalog, keeps one processor per story and persists sessions between turns.
type Engine struct {
	catalog  ports.StoryCatalog
	sessions *session.Manager
	handlers ports.ActionHandlers
	settings domain.StorySettings
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	fallback string

	processorOpts []runtime.Option

	mu         sync.Mutex
	processors map[string]*runtime.Processor
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSessionManager sets where sessions are persisted (default: in memory).
func WithSessionManager(m *session.Manager) Option {
	return func(e *Engine) {
		e.sessions = m
	}
}

// WithHandlers sets the action handlers (default: a registry holding the dev tools).
func WithHandlers(h ports.ActionHandlers) Option {
	return func(e *Engine) {
		e.handlers = h
	}
}

// WithSettings sets the repetition policy shared by every story.
func WithSettings(s domain.StorySettings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithFallbackMessage sets the message sent when a turn fails. Empty disables it.
func WithFallbackMessage(msg string) Option {
	return func(e *Engine) {
		e.fallback = msg
	}
}

// WithChooser replaces the random choice among eligible actions.
func WithChooser(c planner.Chooser) Option {
	return func(e *Engine) {
		e.processorOpts = append(e.processorOpts, runtime.WithChooser(c))
	}
}

// WithUnknownHandler replaces the default unknown-intent handler.
func WithUnknownHandler(h ports.UnknownHandler) Option {
	return func(e *Engine) {
		e.processorOpts = append(e.processorOpts, runtime.WithUnknownHandler(h))
	}
}

// WithEndingStoryRule tells the processors an ending story follows final actions.
func WithEndingStoryRule(exists bool) Option {
	return func(e *Engine) {
		e.processorOpts = append(e.processorOpts, runtime.WithEndingStoryRule(exists))
	}
}

// WithDebug forces the debug echo on every story.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		if debug {
			e.processorOpts = append(e.processorOpts, runtime.WithDebug(true))
		}
	}
}

// WithMaxIterations bounds the rounds of a single turn.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		e.processorOpts = append(e.processorOpts, runtime.WithMaxIterations(n))
	}
}

// New creates an engine serving the stories of catalog.
func New(catalog ports.StoryCatalog, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("a story catalog is required")
	}
	e := &Engine{
		catalog:    catalog,
		settings:   domain.DefaultStorySettings(),
		fallback:   DefaultFallbackMessage,
		processors: make(map[string]*runtime.Processor),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.handlers == nil {
		r := registry.NewRegistry()
		registry.RegisterDevTools(r)
		e.handlers = r
	}
	if e.sessions == nil {
		e.sessions = session.NewManager(memory.NewStore(), session.WithLogger(e.logger))
	}
	return e, nil
}

// Catalog returns the served stories.
func (e *Engine) Catalog() ports.StoryCatalog {
	return e.catalog
}

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Handlers returns the action handlers.
func (e *Engine) Handlers() ports.ActionHandlers {
	return e.handlers
}

// Validate returns the configuration errors of a story.
func (e *Engine) Validate(ctx context.Context, storyKey string) ([]string, error) {
	story, err := e.catalog.GetStory(ctx, storyKey)
	if err != nil {
		return nil, err
	}
	return validator.Validate(ctx, story, e.handlers, e.catalog), nil
}

// ValidateAll validates every story of the catalog, keyed by story.
func (e *Engine) ValidateAll(ctx context.Context) (map[string][]string, error) {
	return validator.ValidateCatalog(ctx, e.catalog, e.handlers)
}

// Processor returns the processor of a story, validating the story on first use.
func (e *Engine) Processor(ctx context.Context, storyKey string) (*runtime.Processor, error) {
	e.mu.Lock()
	p, ok := e.processors[storyKey]
	e.mu.Unlock()
	if ok {
		return p, nil
	}

	story, err := e.catalog.GetStory(ctx, storyKey)
	if err != nil {
		return nil, err
	}
	if errs := validator.Validate(ctx, story, e.handlers, e.catalog); len(errs) > 0 {
		return nil, fmt.Errorf("%w %s: %s", domain.ErrInvalidStory, storyKey, strings.Join(errs, "; "))
	}

	opts := []runtime.Option{
		runtime.WithLogger(e.logger.With("story", storyKey)),
		runtime.WithLifecycleHooks(e.hooks),
	}
	p, err = runtime.NewProcessor(story.Configuration(e.settings), e.handlers, append(opts, e.processorOpts...)...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.processors[storyKey]; ok {
		return existing, nil
	}
	e.processors[storyKey] = p
	return p, nil
}

// Reset drops the cached processors, e.g. after the catalog changed.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.processors)
}

// Process runs one turn of storyKey for the session, serialized with the other
// turns of that session. A Success is persisted; a Redirect deletes the session.
// On error nothing is persisted and the fallback message is sent.
func (e *Engine) Process(ctx context.Context, storyKey, sessionID string, sender ports.Sender, action *domain.UserAction) (domain.Result, error) {
	logger := e.logger.With("story", storyKey, "session_id", sessionID)

	var result domain.Result
	_, err := e.sessions.Turn(ctx, sessionID, func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
		p, err := e.Processor(ctx, storyKey)
		if err != nil {
			return nil, err
		}
		res, err := p.Process(ctx, current, sender, action)
		if err != nil {
			return nil, err
		}
		result = res
		switch r := res.(type) {
		case domain.Success:
			return r.Session, nil
		case domain.Redirect:
			logger.Info("conversation redirected", "target", r.StoryID)
			return nil, nil
		default:
			return nil, fmt.Errorf("unexpected result %T", res)
		}
	})
	if err != nil {
		logger.Error("turn failed", "error", err)
		e.sendFallback(ctx, sender, logger)
		return nil, err
	}
	return result, nil
}

func (e *Engine) sendFallback(ctx context.Context, sender ports.Sender, logger *slog.Logger) {
	if e.fallback == "" || sender == nil {
		return
	}
	// The turn may have failed because ctx is done; the user still gets an answer.
	if err := sender.EndPlainText(context.WithoutCancel(ctx), e.fallback); err != nil {
		logger.Warn("failed to send fallback message", "error", err)
	}
}
