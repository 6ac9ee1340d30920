package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/tickstory/pkg/domain"
)

// Catalog implements ports.StoryCatalog over a fixed set of stories.
type Catalog struct {
	stories map[string]*domain.Story
}

// NewCatalog indexes the stories by key. Keys must be unique.
func NewCatalog(stories ...*domain.Story) (*Catalog, error) {
	c := &Catalog{stories: make(map[string]*domain.Story)}
	for _, s := range stories {
		key := s.Key()
		if key == "" {
			return nil, fmt.Errorf("story %q missing story_id", s.Name)
		}
		if _, dup := c.stories[key]; dup {
			return nil, fmt.Errorf("duplicate story %s", key)
		}
		c.stories[key] = s
	}
	return c, nil
}

// GetStory returns the story registered under key.
func (c *Catalog) GetStory(_ context.Context, key string) (*domain.Story, error) {
	s, ok := c.stories[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoryNotFound, key)
	}
	return s, nil
}

// StoryExists reports whether a story is registered under key.
func (c *Catalog) StoryExists(_ context.Context, key string) bool {
	_, ok := c.stories[key]
	return ok
}

// ListStories returns all story keys.
func (c *Catalog) ListStories(context.Context) ([]string, error) {
	keys := make([]string, 0, len(c.stories))
	for k := range c.stories {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
