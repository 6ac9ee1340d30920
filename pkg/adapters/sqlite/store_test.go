package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tickstory/pkg/adapters/sqlite"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*sqlite.Store)(nil)

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, open(t, sqlite.MemoryPath))
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "sessions.db")
	ctx := context.Background()

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	s := domain.NewSession("s1")
	s.ObjectivesStack = []string{"ORDER"}
	s.Touch(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, store.Save(ctx, "s1", s))
	require.NoError(t, store.Close())

	reopened := open(t, path)
	loaded, err := reopened.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORDER"}, loaded.ObjectivesStack)
	assert.Equal(t, int64(1), loaded.Version)
}

func TestSQLiteStore_ListMostRecentFirst(t *testing.T) {
	store := open(t, sqlite.MemoryPath)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new"} {
		s := domain.NewSession(id)
		s.Touch(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, store.Save(ctx, id, s))
	}

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids)
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := sqlite.Open("")
	assert.Error(t, err)
}
