// Package runtime runs the turns of a tick story.
//
// A turn starts from a user action (an intent and its entities) and alternates
// between the intent state machine, which tells where the conversation must go
// (the primary objective), and the planner, which tells which action can run now
// to get there (the secondary objective). Silent actions chain new rounds inside
// the same turn until an action answers the user.
//
// Each user action starts a new plan. Contexts associated to its intent are
// marked known but never overwrite a value, so an entity bound by the same
// action keeps it.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tickstory/internal/logging"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/planner"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/registry"
	"github.com/aretw0/tickstory/pkg/statemachine"
	"github.com/aretw0/tickstory/pkg/unknown"
)

// DefaultMaxIterations bounds the rounds of a single turn.
const DefaultMaxIterations = 32

// Processor executes tick story turns. It holds no conversation state and is
// safe for concurrent use on distinct sessions.
type Processor struct {
	config   domain.Configuration
	machine  *statemachine.Machine
	handlers ports.ActionHandlers
	unknown  ports.UnknownHandler
	chooser  planner.Chooser

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	endingStoryRule bool
	debug           bool
	maxIterations   int
}

// Option configures the Processor.
type Option func(*Processor)

// WithLogger configures a logger for the Processor.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Processor) {
		p.hooks = hooks
	}
}

// WithChooser replaces the random choice among eligible actions.
func WithChooser(chooser planner.Chooser) Option {
	return func(p *Processor) {
		p.chooser = chooser
	}
}

// WithUnknownHandler replaces the default unknown-intent handler.
func WithUnknownHandler(h ports.UnknownHandler) Option {
	return func(p *Processor) {
		p.unknown = h
	}
}

// WithEndingStoryRule tells the processor an ending story follows final actions,
// so their answers must not close the turn.
func WithEndingStoryRule(exists bool) Option {
	return func(p *Processor) {
		p.endingStoryRule = exists
	}
}

// WithDebug echoes the contexts before and after every action.
func WithDebug(debug bool) Option {
	return func(p *Processor) {
		p.debug = debug
	}
}

// WithMaxIterations bounds the rounds of a single turn.
func WithMaxIterations(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxIterations = n
		}
	}
}

// NewProcessor creates a processor for a validated configuration.
// A zero repetition number falls back to domain.DefaultRepetitionNb.
func NewProcessor(config domain.Configuration, handlers ports.ActionHandlers, opts ...Option) (*Processor, error) {
	machine, err := statemachine.New(config.StateMachine)
	if err != nil {
		return nil, fmt.Errorf("invalid state machine: %w", err)
	}
	if config.Settings.RepetitionNb <= 0 {
		config.Settings.RepetitionNb = domain.DefaultRepetitionNb
	}

	p := &Processor{
		config:        config,
		machine:       machine,
		handlers:      handlers,
		chooser:       planner.RandomChooser(nil),
		logger:        logging.NewNop(),
		debug:         config.Debug,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.handlers == nil {
		p.handlers = registry.NewRegistry()
	}
	if p.unknown == nil {
		p.unknown = unknown.New(unknown.WithLogger(p.logger))
	}
	return p, nil
}

// Machine returns the state machine of the processed story.
func (p *Processor) Machine() *statemachine.Machine {
	return p.machine
}

// Configuration returns the processed configuration.
func (p *Processor) Configuration() domain.Configuration {
	return p.config
}

// Process runs one turn. The given session is never modified: a Success carries
// an updated copy that the caller must persist, a Redirect means the session
// must be discarded. On error, nothing must be persisted.
func (p *Processor) Process(ctx context.Context, session *domain.Session, sender ports.Sender, action *domain.UserAction) (domain.Result, error) {
	start := time.Now()

	s := session.Clone()
	if s == nil {
		s = domain.NewSession("")
	}

	t := &turn{p: p, session: s, sender: sender, logger: p.logger.With("session_id", s.ID)}
	res, outcome, err := t.run(ctx, action)

	event := &domain.TurnEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTurnCompleted, SessionID: s.ID},
		Outcome:   outcome,
		Rounds:    t.rounds,
		Duration:  time.Since(start),
		Err:       err,
	}
	if r, ok := res.(domain.Redirect); ok {
		event.Redirect = r.StoryID
	}
	if p.hooks.OnTurnCompleted != nil {
		p.hooks.OnTurnCompleted(ctx, event)
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}
