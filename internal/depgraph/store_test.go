package depgraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Dependents(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()
	require.NoError(t, store.BeginBuild(ctx, "b1", "abc123", time.Unix(100, 0)))

	// index -> guide -> api, other -> api
	require.NoError(t, store.ReplaceEdges(ctx, "b1", map[string][]string{
		"index.md": {"guide.md"},
		"guide.md": {"api.yml", "guide.md"},
		"other.md": {"api.yml"},
	}))

	deps, err := store.Dependents(ctx, "api.yml")
	require.NoError(t, err)
	assert.Equal(t, []string{"guide.md", "index.md", "other.md"}, deps)

	direct, err := store.Dependencies(ctx, "guide.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"api.yml"}, direct)

	none, err := store.Dependents(ctx, "index.md")
	require.NoError(t, err)
	assert.Empty(t, none)

	last, err := store.LastBuild(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "b1", last.ID)
	assert.Equal(t, "abc123", last.Commit)
	assert.Equal(t, 3, last.Edges)
}

func TestStore_DependentsHandlesCycles(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()
	require.NoError(t, store.BeginBuild(ctx, "b1", "", time.Now()))
	require.NoError(t, store.ReplaceEdges(ctx, "b1", map[string][]string{
		"a.md": {"b.md"},
		"b.md": {"a.md"},
	}))

	deps, err := store.Dependents(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, deps)
}

func TestStore_UpdateFingerprints(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.BeginBuild(ctx, "b1", "", time.Unix(1, 0)))
	changed, err := store.UpdateFingerprints(ctx, "b1", map[string]string{"a.md": "1", "b.md": "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, changed)

	require.NoError(t, store.BeginBuild(ctx, "b2", "", time.Unix(2, 0)))
	changed, err = store.UpdateFingerprints(ctx, "b2", map[string]string{"a.md": "1", "b.md": "3", "c.md": "4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md", "c.md"}, changed)

	last, err := store.LastBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b2", last.ID)
	assert.Equal(t, 3, last.Files)
}

func TestStore_Affected(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()
	require.NoError(t, store.BeginBuild(ctx, "b1", "", time.Now()))
	require.NoError(t, store.ReplaceEdges(ctx, "b1", map[string][]string{
		"index.md": {"api.yml"},
	}))

	affected, err := store.Affected(ctx, []string{"api.yml", "lonely.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"api.yml", "index.md", "lonely.md"}, affected)
}

func TestStore_LastBuildEmpty(t *testing.T) {
	last, err := openTestStore(t).LastBuild(t.Context())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a := Fingerprint([]byte("---\nuid: a\n---\n# A\n"))
	b := Fingerprint([]byte("---\nuid: a\n---\n# B\n"))
	again := Fingerprint([]byte("---\nuid: a\n---\n# A\n"))

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)

	assert.NotEmpty(t, Fingerprint([]byte("references: []\n")))
	assert.NotEmpty(t, Fingerprint([]byte("---\nuid: broken\n")))
}
