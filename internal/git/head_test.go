package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	// No commits yet.
	commit, err := HeadCommit(dir)
	require.NoError(t, err)
	assert.Empty(t, commit)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "index.md"), []byte("# Home\n"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("docs/index.md")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Docs", Email: "docs@example.com", When: time.Unix(0, 0)},
	})
	require.NoError(t, err)

	// Discovered from a subdirectory.
	commit, err = HeadCommit(filepath.Join(dir, "docs"))
	require.NoError(t, err)
	assert.Equal(t, hash.String(), commit)
}

func TestHeadCommit_NotARepository(t *testing.T) {
	commit, err := HeadCommit(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, commit)
}
