package secret_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/talismancer/seedtrace/internal/secret"
)

func TestFromFileStripsTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pass")
	require.NoError(t, os.WriteFile(path, []byte("hunter2\nextra ignored\n"), 0o600))

	got, err := secret.FromFile(path)
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)
}

func TestFromFileNoTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pass")
	require.NoError(t, os.WriteFile(path, []byte("hunter2"), 0o600))

	got, err := secret.FromFile(path)
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)
}

func TestFromFileTooLong(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pass")
	require.NoError(t, os.WriteFile(path, make([]byte, secret.MaxLen), 0o600))

	_, err := secret.FromFile(path)
	require.Error(t, err)
}
