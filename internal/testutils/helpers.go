// Package testutils holds helpers shared by tests across packages.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupStoryRepo writes files (name to content) into a temporary directory and
// opens a strict, unversioned Loam repository over it.
// It returns the absolute directory so tests can add files later with WriteStories.
func SetupStoryRepo(t *testing.T, files map[string]string) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")
	WriteStories(t, dir, files)

	repo, err := loam.Init(dir, loam.WithStrict(true), loam.WithVersioning(false))
	require.NoError(t, err, "Failed to init loam repo")
	return dir, repo
}

// WriteStories writes each story document under dir.
func WriteStories(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}
