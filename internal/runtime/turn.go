package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/planner"
	"github.com/aretw0/tickstory/pkg/ports"
)

// turn is the working state of one Process call.
type turn struct {
	p       *Processor
	session *domain.Session
	sender  ports.Sender
	logger  *slog.Logger
	rounds  int
}

// round is the decision taken at the end of a processing round.
type round struct {
	result  domain.Result
	outcome domain.Outcome
	// next is the action of the following round when again is set.
	next  *domain.UserAction
	again bool
}

func (t *turn) run(ctx context.Context, action *domain.UserAction) (domain.Result, domain.Outcome, error) {
	if t.session.CurrentState == "" {
		if _, ok := t.p.machine.State(domain.GlobalStateID); !ok {
			return nil, domain.OutcomeError, fmt.Errorf("%w: %s", domain.ErrStateNotFound, domain.GlobalStateID)
		}
		t.session.CurrentState = domain.GlobalStateID
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, domain.OutcomeError, err
		}
		if t.rounds >= t.p.maxIterations {
			return nil, domain.OutcomeError, fmt.Errorf("%w: %d", domain.ErrMaxIterations, t.p.maxIterations)
		}
		t.rounds++

		r, err := t.round(ctx, action)
		if err != nil {
			return nil, domain.OutcomeError, err
		}
		if !r.again {
			return r.result, r.outcome, nil
		}
		action = r.next
	}
}

func (t *turn) round(ctx context.Context, action *domain.UserAction) (round, error) {
	s := t.session
	t.logger.Debug("processing round", "round", t.rounds, "state", s.CurrentState, "action", action)

	if r, handled, err := t.handleUnknown(ctx, action); err != nil || handled {
		return r, err
	}

	// lastRan is the action the user is answering.
	lastRan := s.LastRanHandler()
	if action != nil {
		t.updateContexts(action)
	}

	primary, err := t.primaryObjective(action)
	if err != nil {
		return round{}, err
	}
	if action != nil && t.rounds == 1 {
		// A user action starts a new plan. Triggered rounds keep the current one.
		s.RanHandlers = nil
	}
	target, ok := t.p.config.Action(primary)
	if !ok {
		return round{}, fmt.Errorf("%w: %s", domain.ErrActionNotFound, primary)
	}
	t.logger.Debug("primary objective", "objective", primary)

	candidates, err := t.plan(target, lastRan)
	if err != nil {
		return round{}, err
	}
	secondary := t.p.chooser(candidates)
	t.logger.Debug("secondary objective", "objective", secondary, "candidates", candidates)

	if step := s.HandlingStep; step != nil && step.Action == secondary {
		if action == nil {
			t.logger.Warn("abnormal end of processing with success result (infinite loop)", "action", secondary)
			if err := t.sender.End(ctx); err != nil {
				return round{}, err
			}
			return round{result: domain.Success{Session: s}, outcome: domain.OutcomeLoop}, nil
		}
		step.Repeated++
		if settings := t.p.config.Settings; step.Repeated > settings.RepetitionNb {
			t.logger.Debug("repetition limit reached", "action", secondary, "redirect", settings.RedirectStory)
			return round{result: domain.Redirect{StoryID: settings.RedirectStory}, outcome: domain.OutcomeRedirect}, nil
		}
	} else {
		s.HandlingStep = &domain.HandlingStep{Action: secondary, Repeated: 1}
	}

	executed, ok := t.p.config.Action(secondary)
	if !ok {
		return round{}, fmt.Errorf("%w: %s", domain.ErrActionNotFound, secondary)
	}
	if err := t.execute(ctx, executed); err != nil {
		return round{}, err
	}
	t.emitAction(ctx, executed, primary, candidates)

	if executed.TargetStory != "" {
		t.logger.Debug("action target story", "action", executed.Name, "redirect", executed.TargetStory)
		return round{result: domain.Redirect{StoryID: executed.TargetStory}, outcome: domain.OutcomeRedirect}, nil
	}

	t.advance(primary, secondary)

	switch {
	case strings.TrimSpace(executed.Trigger) != "":
		t.logger.Debug("event triggered, restarting a processing round", "trigger", executed.Trigger)
		return round{again: true, next: &domain.UserAction{Intent: executed.Trigger}}, nil
	case executed.IsSilent():
		t.logger.Debug("silent action, restarting a processing round", "action", executed.Name)
		return round{again: true}, nil
	}

	s.Finished = executed.Final
	s.UnknownStep = nil
	t.logger.Debug("end of processing with success result", "state", s.CurrentState, "finished", s.Finished)
	return round{result: domain.Success{Session: s}, outcome: domain.OutcomeSuccess}, nil
}

// plan solves for the target without replaying the action that just ran. That
// action is only planned again when nothing else leads to the target.
func (t *turn) plan(target domain.Action, lastRan string) ([]string, error) {
	s := t.session
	current := s.LastRanHandler()
	if current == "" {
		current = lastRan
	}
	problem := planner.Problem{
		Actions:     t.p.config.Actions,
		Contexts:    s.Contexts,
		Target:      target,
		RanHandlers: s.RanHandlers,
		Current:     current,
	}
	candidates, err := planner.Solve(problem)
	if err == nil || current == "" || !errors.Is(err, domain.ErrNoSolution) {
		return candidates, err
	}
	t.logger.Debug("replanning with the last action", "action", current, "objective", target.Name)
	problem.Current = ""
	return planner.Solve(problem)
}

// handleUnknown delegates unknown intents. handled is false when the handler declined.
func (t *turn) handleUnknown(ctx context.Context, action *domain.UserAction) (round, bool, error) {
	if action == nil || !t.p.config.Unknown.IsUnknown(action.Intent) {
		return round{}, false, nil
	}

	s := t.session
	out, err := t.p.unknown.Handle(ctx, ports.UnknownRequest{
		Intent:     action.Intent,
		LastAction: s.LastRanHandler(),
		Config:     t.p.config.Unknown,
		Sender:     t.sender,
		Step:       s.UnknownStep,
		Settings:   t.p.config.Settings,
	})
	if err != nil {
		return round{}, false, fmt.Errorf("unknown intent handling failed: %w", err)
	}

	switch {
	case out.Step != nil:
		s.UnknownStep = out.Step
		return round{result: domain.Success{Session: s}, outcome: domain.OutcomeUnknown}, true, nil
	case out.RedirectStoryID != "":
		return round{result: domain.Redirect{StoryID: out.RedirectStoryID}, outcome: domain.OutcomeRedirect}, true, nil
	}
	t.logger.Debug("unknown intent declined", "intent", action.Intent)
	return round{}, false, nil
}

// updateContexts binds entity values and the contexts associated to the intent.
// Associated contexts are marked known without overwriting a bound value.
func (t *turn) updateContexts(action *domain.UserAction) {
	s := t.session
	for _, c := range t.p.config.Contexts {
		if c.EntityRole == "" {
			continue
		}
		if value, ok := action.Entities[c.EntityRole]; ok {
			s.Contexts[c.Name] = value
		}
	}
	for _, name := range t.p.config.AssociatedContexts(action.Intent, s.LastRanHandler()) {
		if _, known := s.Contexts[name]; !known {
			s.Contexts[name] = nil
		}
	}
}

// primaryObjective asks the state machine where to go, or resumes the pending
// objective when the round has no user action.
func (t *turn) primaryObjective(action *domain.UserAction) (string, error) {
	s := t.session
	if action == nil {
		if len(s.ObjectivesStack) == 0 {
			return "", domain.ErrNoObjective
		}
		s.CurrentState = s.ObjectivesStack[len(s.ObjectivesStack)-1]
		return s.CurrentState, nil
	}

	next, ok := t.p.machine.Next(s.CurrentState, action.Intent)
	if !ok {
		// Keep the current state when the intent leads nowhere.
		next = s.CurrentState
	} else if next == s.CurrentState && t.p.machine.IsDirectTransition(s.CurrentState, action.Intent) {
		return "", fmt.Errorf("%w: %s", domain.ErrSelfTransition, s.CurrentState)
	}

	if n := len(s.ObjectivesStack); n == 0 || s.ObjectivesStack[n-1] != next {
		s.ObjectivesStack = append(s.ObjectivesStack, next)
		// A new objective starts a new plan.
		s.RanHandlers = nil
	}
	return next, nil
}

// execute sends the answer of the action, runs its handler and records it.
func (t *turn) execute(ctx context.Context, a domain.Action) error {
	s := t.session
	if err := t.debugInput(ctx, a); err != nil {
		return err
	}

	switch {
	case a.AnswerID != "":
		var err error
		if (t.p.endingStoryRule && a.Final) || t.p.debug || a.IsSilent() {
			err = t.sender.SendByID(ctx, a.AnswerID)
		} else {
			err = t.sender.EndByID(ctx, a.AnswerID)
		}
		if err != nil {
			return fmt.Errorf("failed to send answer %s: %w", a.AnswerID, err)
		}
	case !t.p.endingStoryRule && a.Final && !t.p.debug:
		if err := t.sender.End(ctx); err != nil {
			return err
		}
	}

	if a.HasHandler() {
		t.logger.Debug("invoking action handler", "handler", a.Handler, "contexts", s.Contexts)
		out, err := t.p.handlers.Invoke(ctx, a.Handler, maps.Clone(s.Contexts))
		if err != nil {
			return fmt.Errorf("action %s: %w", a.Name, err)
		}
		maps.Copy(s.Contexts, out)
	}

	if err := t.debugOutput(ctx, a); err != nil {
		return err
	}

	s.RanHandlers = append(s.RanHandlers, a.Name)
	return nil
}

// advance pops the objective once reached, otherwise moves to the executed action.
func (t *turn) advance(primary, secondary string) {
	s := t.session
	if primary == secondary {
		s.CurrentState = s.ObjectivesStack[len(s.ObjectivesStack)-1]
		s.ObjectivesStack = s.ObjectivesStack[:len(s.ObjectivesStack)-1]
		return
	}
	s.CurrentState = secondary
}

func (t *turn) debugInput(ctx context.Context, a domain.Action) error {
	if !t.p.debug {
		return nil
	}
	return t.sender.SendPlainText(ctx, t.debugMessage(a, "INPUT"))
}

func (t *turn) debugOutput(ctx context.Context, a domain.Action) error {
	if !t.p.debug {
		return nil
	}
	if err := t.sender.SendPlainText(ctx, t.debugMessage(a, "OUTPUT")); err != nil {
		return err
	}
	if a.IsSilent() {
		return nil
	}
	if t.p.endingStoryRule && a.Final {
		return t.sender.SendPlainText(ctx, "---")
	}
	return t.sender.EndPlainText(ctx, "---")
}

// debugMessage lists the contexts in key order, e.g.
// "[DEBUG] ASK : INPUT CONTEXTS [ city : Lyon | greeted : null ]".
func (t *turn) debugMessage(a domain.Action, kind string) string {
	keys := slices.Sorted(maps.Keys(t.session.Contexts))
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := t.session.Contexts[k]
		if v == nil {
			pairs = append(pairs, k+" : null")
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s : %v", k, v))
	}
	msg := fmt.Sprintf("[DEBUG] %s : %s CONTEXTS [ %s ]", a.Name, kind, strings.Join(pairs, " | "))
	t.logger.Info(msg)
	return msg
}

func (t *turn) emitAction(ctx context.Context, a domain.Action, primary string, candidates []string) {
	if t.p.hooks.OnActionExecuted == nil {
		return
	}
	t.p.hooks.OnActionExecuted(ctx, &domain.ActionEvent{
		EventBase:        domain.EventBase{Timestamp: time.Now(), Type: domain.EventActionExecuted, SessionID: t.session.ID},
		Action:           a.Name,
		Handler:          a.Handler,
		PrimaryObjective: primary,
		Candidates:       candidates,
		Silent:           a.IsSilent(),
	})
}
