// Package testutils holds fixtures shared by adapter tests.
package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo initializes a Loam repository in a fresh temp directory
// and returns its absolute path.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)

	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "loam init")
	return dir, repo
}

// SaveDocuments stores files (name to raw content, front matter included)
// through the repository.
func SaveDocuments(t *testing.T, repo core.Repository, files map[string]string) {
	t.Helper()
	ctx := context.Background()
	for name, content := range files {
		require.NoError(t, repo.Save(ctx, core.Document{ID: name, Content: content}), "save %s", name)
	}
}
