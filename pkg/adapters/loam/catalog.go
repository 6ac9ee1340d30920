// Package loam serves tick stories stored as documents in a Loam repository
// (a directory of JSON, YAML or Markdown-frontmatter files).
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/aretw0/tickstory/pkg/domain"
)

// Catalog implements ports.StoryCatalog over a Loam repository.
// Documents are indexed by story key on first use and on Refresh.
type Catalog struct {
	Repo *loam.TypedRepository[domain.Story]

	mu      sync.RWMutex
	stories map[string]*domain.Story
	sources map[string]string
	loaded  bool
}

// New creates a catalog over an initialized repository.
func New(repo core.Repository) *Catalog {
	return &Catalog{Repo: loam.NewTypedRepository[domain.Story](repo)}
}

// Open initializes a read-only repository rooted at dir and wraps it in a catalog.
func Open(dir string) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number whatever the file format.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(repo), nil
}

// Refresh re-reads every document of the repository.
func (c *Catalog) Refresh(ctx context.Context) error {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loam list failed: %w", err)
	}

	stories := make(map[string]*domain.Story, len(docs))
	sources := make(map[string]string, len(docs))
	for _, doc := range docs {
		story := doc.Data
		if story.ID == "" {
			story.ID = trimExtension(doc.ID)
		}
		key := story.Key()
		if existing, ok := sources[key]; ok {
			return fmt.Errorf("collision detected: story '%s' is defined in both '%s' and '%s'", key, existing, doc.ID)
		}
		sources[key] = doc.ID
		stories[key] = &story
	}

	c.mu.Lock()
	c.stories = stories
	c.sources = sources
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func (c *Catalog) ensure(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Refresh(ctx)
}

// GetStory returns the story registered under key.
func (c *Catalog) GetStory(ctx context.Context, key string) (*domain.Story, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stories[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoryNotFound, key)
	}
	return s, nil
}

// StoryExists reports whether a story is registered under key.
// A repository that cannot be read has no stories.
func (c *Catalog) StoryExists(ctx context.Context, key string) bool {
	_, err := c.GetStory(ctx, key)
	return err == nil
}

// ListStories returns all story keys, sorted.
func (c *Catalog) ListStories(ctx context.Context) ([]string, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.stories))
	for k := range c.stories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Source returns the document a story was read from.
func (c *Catalog) Source(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.sources[key]
	return src, ok
}

// Watch refreshes the catalog whenever a story document changes and reports
// the changed document ids. The channel closes when ctx is done.
func (c *Catalog) Watch(ctx context.Context) (<-chan string, error) {
	events, err := c.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				// A broken edit keeps the previous index.
				if err := c.Refresh(ctx); err != nil {
					continue
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
