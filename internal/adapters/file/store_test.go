package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/tickstory/internal/adapters/file"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	s := domain.NewSession("session-1")
	s.Contexts["count"] = 42
	require.NoError(t, store.Save(ctx, "session-1", s))

	_, err := os.Stat(filepath.Join(dir, "session-1.json"))
	require.NoError(t, err, "session should be stored as <id>.json")

	// No temp file left behind; List ignores foreign files.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"session-1"}, ids)

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	// JSON decodes numbers as float64.
	assert.Equal(t, float64(42), loaded.Contexts["count"])
}

func TestFileStore_RejectsUnsafeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", `a\b`, ".."} {
		assert.Error(t, store.Save(ctx, id, domain.NewSession(id)), "id %q", id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
