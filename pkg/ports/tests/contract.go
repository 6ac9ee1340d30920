package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
)

// StoryCatalogContractTest is a reusable test suite that verifies if an adapter complies with ports.StoryCatalog.
// want maps each story key the catalog was seeded with to its expected name.
func StoryCatalogContractTest(t *testing.T, catalog ports.StoryCatalog, want map[string]string) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetStory_Success", func(t *testing.T) {
		for key, name := range want {
			story, err := catalog.GetStory(ctx, key)
			if err != nil {
				t.Fatalf("unexpected error getting story %s: %v", key, err)
			}
			if story.Name != name {
				t.Errorf("name mismatch for %s. got %q, want %q", key, story.Name, name)
			}
			if story.Key() != key {
				t.Errorf("key mismatch. got %q, want %q", story.Key(), key)
			}
		}
	})

	t.Run("GetStory_NotFound", func(t *testing.T) {
		_, err := catalog.GetStory(ctx, "non-existent-story")
		if !errors.Is(err, domain.ErrStoryNotFound) {
			t.Errorf("expected ErrStoryNotFound, got %v", err)
		}
	})

	t.Run("StoryExists", func(t *testing.T) {
		for key := range want {
			if !catalog.StoryExists(ctx, key) {
				t.Errorf("story %s should exist", key)
			}
		}
		if catalog.StoryExists(ctx, "non-existent-story") {
			t.Error("unexpected story non-existent-story")
		}
	})

	t.Run("ListStories", func(t *testing.T) {
		keys, err := catalog.ListStories(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing stories: %v", err)
		}

		if len(keys) != len(want) {
			t.Errorf("expected %d stories, got %d", len(want), len(keys))
		}

		lookup := make(map[string]bool)
		for _, key := range keys {
			lookup[key] = true
		}
		for key := range want {
			if !lookup[key] {
				t.Errorf("story %s missing from list", key)
			}
		}
	})
}
