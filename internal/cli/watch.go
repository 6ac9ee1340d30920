package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/tickstory"
	"github.com/aretw0/tickstory/internal/validator"
)

// ReloadOnChange drops the cached processors of engine whenever a story of the
// catalog changes, and logs the validation errors of the changed stories.
// It blocks until ctx is done.
func ReloadOnChange(ctx context.Context, w Watcher, engine *tickstory.Engine, logger *slog.Logger) error {
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching stories for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			engine.Reset()
			logger.Info("stories reloaded", "document", id)

			invalid, err := validator.ValidateCatalog(ctx, engine.Catalog(), engine.Handlers())
			if err != nil {
				logger.Warn("failed to validate stories", "error", err)
				continue
			}
			for key, errs := range invalid {
				logger.Warn("invalid story", "story", key, "errors", errs)
			}
		}
	}
}
