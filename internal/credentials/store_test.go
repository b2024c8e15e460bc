package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	return store, path
}

func TestStorePutGet(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Put("job-1", "tok-1"))

	token, ok := store.Get("job-1")
	require.True(t, ok)
	require.Equal(t, "tok-1", token)

	_, ok = store.Get("job-2")
	require.False(t, ok)
}

func TestStoreMergePreservesOtherJobs(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Put("job-1", "tok-1"))
	require.NoError(t, store.Merge(map[string]string{
		"job-2": "tok-2",
		"job-3": "tok-3",
	}))

	// job-1 survives a merge that never mentioned it
	token, ok := store.Get("job-1")
	require.True(t, ok)
	require.Equal(t, "tok-1", token)
	require.Equal(t, 3, store.Len())

	// merging the same job replaces its token only
	require.NoError(t, store.Merge(map[string]string{"job-2": "tok-2b"}))
	token, _ = store.Get("job-2")
	require.Equal(t, "tok-2b", token)
	require.Equal(t, 3, store.Len())
}

func TestStorePersistsAcrossReload(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, store.Put("job-1", "tok-1"))
	require.NoError(t, store.Put("job-2", "tok-2"))
	require.NoError(t, store.Delete("job-2"))

	reloaded, err := NewStore(path)
	require.NoError(t, err)

	token, ok := reloaded.Get("job-1")
	require.True(t, ok)
	require.Equal(t, "tok-1", token)
	_, ok = reloaded.Get("job-2")
	require.False(t, ok)
}

func TestStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.Equal(t, 0, store.Len())

	// first write creates the directory
	require.NoError(t, store.Put("job-1", "tok-1"))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewStore(path)
	require.Error(t, err)
}
