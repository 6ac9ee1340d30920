// Package unknown provides the default bounded-retry strategy for unknown intents.
//
// When an unknown intent is detected right after an action that has an answer
// configured for it, the answer is sent and the attempt is counted. Once the
// attempts exceed the story's limit, the conversation is redirected.
package unknown

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/tickstory/internal/logging"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
)

// Handler implements ports.UnknownHandler.
type Handler struct {
	logger *slog.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger configures a logger for the Handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates the default unknown-intent handler.
func New(opts ...Option) *Handler {
	h := &Handler{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle answers the unknown intent or decides to redirect.
// It declines when no answer is configured for the last action, or when the
// retries are exhausted and no redirect story is configured.
func (h *Handler) Handle(ctx context.Context, req ports.UnknownRequest) (ports.UnknownOutcome, error) {
	answer, ok := req.Config.AnswerFor(req.Intent, req.LastAction)
	if !ok {
		h.logger.Debug("no unknown answer configured", "intent", req.Intent, "action", req.LastAction)
		return ports.UnknownOutcome{}, nil
	}

	repeated := 1
	if req.Step != nil && req.Step.Action == req.LastAction {
		repeated = req.Step.Repeated + 1
	}

	if limit := req.Settings.UnknownLimit(); repeated > limit {
		h.logger.Debug("unknown retries exhausted", "action", req.LastAction, "limit", limit, "redirect", req.Settings.RedirectStory)
		return ports.UnknownOutcome{RedirectStoryID: req.Settings.RedirectStory}, nil
	}

	if err := req.Sender.EndByID(ctx, answer.AnswerID); err != nil {
		return ports.UnknownOutcome{}, fmt.Errorf("failed to send unknown answer %s: %w", answer.AnswerID, err)
	}

	return ports.UnknownOutcome{Step: &domain.UnknownStep{
		Action:   req.LastAction,
		AnswerID: answer.AnswerID,
		Repeated: repeated,
	}}, nil
}
