package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/authflow/pkg/client"
)

func TestFileStore_RoundTripAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first := client.NewFileStore(path)
	require.NoError(t, first.Set(client.KeyToken, "jwt-abc"))
	require.NoError(t, first.Set(client.KeyUser, `{"id":"u-1"}`))

	second := client.NewFileStore(path)
	token, err := second.Get(client.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)

	require.NoError(t, second.Remove(client.KeyToken))
	token, err = first.Get(client.KeyToken)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := client.NewFileStore(path)
	require.NoError(t, store.Set(client.KeyToken, "jwt"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_MissingAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	missing := client.NewFileStore(filepath.Join(dir, "absent.json"))
	v, err := missing.Get(client.KeyToken)
	require.NoError(t, err)
	assert.Empty(t, v)
	require.NoError(t, missing.Remove(client.KeyToken))

	corruptPath := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{oops"), 0o600))
	corrupt := client.NewFileStore(corruptPath)
	v, err = corrupt.Get(client.KeyToken)
	require.NoError(t, err)
	assert.Empty(t, v)
	require.NoError(t, corrupt.Set(client.KeyToken, "fresh"))
	v, err = corrupt.Get(client.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestMemoryStore(t *testing.T) {
	store := client.NewMemoryStore()
	v, err := store.Get(client.KeyToken)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, store.Set(client.KeyToken, "x"))
	v, _ = store.Get(client.KeyToken)
	assert.Equal(t, "x", v)

	require.NoError(t, store.Remove(client.KeyToken))
	v, _ = store.Get(client.KeyToken)
	assert.Empty(t, v)
}
