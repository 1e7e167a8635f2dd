package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyring(t *testing.T) *FileKeyring {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keyring.json")
	return NewFileKeyring(path, "test-master-password")
}

func TestFileKeyringSetGet(t *testing.T) {
	fk := newTestKeyring(t)

	require.NoError(t, fk.Set("dbbridge", "master-key", "super-secret"))

	value, err := fk.Get("dbbridge", "master-key")
	require.NoError(t, err)
	assert.Equal(t, "super-secret", value)
}

func TestFileKeyringOverwrite(t *testing.T) {
	fk := newTestKeyring(t)

	require.NoError(t, fk.Set("dbbridge", "master-key", "first"))
	require.NoError(t, fk.Set("dbbridge", "master-key", "second"))

	value, err := fk.Get("dbbridge", "master-key")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}

func TestFileKeyringMultipleEntries(t *testing.T) {
	fk := newTestKeyring(t)

	require.NoError(t, fk.Set("dbbridge", "alpha", "one"))
	require.NoError(t, fk.Set("dbbridge", "beta", "two"))
	require.NoError(t, fk.Set("other-service", "alpha", "three"))

	value, err := fk.Get("dbbridge", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "one", value)

	value, err = fk.Get("other-service", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "three", value)
}

func TestFileKeyringGetMissing(t *testing.T) {
	fk := newTestKeyring(t)

	_, err := fk.Get("dbbridge", "nothing-here")
	assert.Error(t, err)

	require.NoError(t, fk.Set("dbbridge", "present", "value"))
	_, err = fk.Get("dbbridge", "still-nothing")
	assert.Error(t, err)
}

func TestFileKeyringDelete(t *testing.T) {
	fk := newTestKeyring(t)

	require.NoError(t, fk.Set("dbbridge", "master-key", "secret"))
	require.NoError(t, fk.Delete("dbbridge", "master-key"))

	_, err := fk.Get("dbbridge", "master-key")
	assert.Error(t, err)

	// Deleting an entry that never existed is not an error.
	assert.NoError(t, fk.Delete("dbbridge", "never-existed"))
}

func TestFileKeyringWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")

	fk := NewFileKeyring(path, "right-password")
	require.NoError(t, fk.Set("dbbridge", "master-key", "secret"))

	other := NewFileKeyring(path, "wrong-password")
	_, err := other.Get("dbbridge", "master-key")
	assert.Error(t, err)
}

func TestFileKeyringPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")

	fk := NewFileKeyring(path, "test-master-password")
	require.NoError(t, fk.Set("dbbridge", "master-key", "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("DBBRIDGE_KEYRING_PATH", "/custom/keyring.json")
	assert.Equal(t, "/custom/keyring.json", DefaultPath())

	t.Setenv("DBBRIDGE_KEYRING_PATH", "")
	assert.Contains(t, DefaultPath(), "dbbridge")
}

func TestMasterPasswordFromEnv(t *testing.T) {
	t.Setenv("DBBRIDGE_KEYRING_PASSWORD", "from-env")
	assert.Equal(t, "from-env", MasterPasswordFromEnv())

	t.Setenv("DBBRIDGE_KEYRING_PASSWORD", "")
	assert.NotEmpty(t, MasterPasswordFromEnv())
}
