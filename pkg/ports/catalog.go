package ports

import (
	"context"

	"github.com/aretw0/tickstory/pkg/domain"
)

// StoryOracle answers whether a story exists. It is used to validate redirects.
type StoryOracle interface {
	StoryExists(ctx context.Context, storyID string) bool
}

// StoryCatalog retrieves tick stories by key.
// Returns domain.ErrStoryNotFound if the story does not exist.
type StoryCatalog interface {
	StoryOracle

	GetStory(ctx context.Context, storyID string) (*domain.Story, error)

	// ListStories returns the keys of every available story, sorted.
	ListStories(ctx context.Context) ([]string, error)
}
