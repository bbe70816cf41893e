// Package testutil provides shared test helpers used across integration,
// e2e, and unit test packages.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/require"

	"generic-exporter/internal/adapters"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// WriteFile writes content below dir and returns the full path.
func WriteFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// SealSecret writes an identity file to dir and encrypts plaintext for it
// under the file name the age secret source expects for secretID. It
// returns the identity file path.
func SealSecret(t *testing.T, dir string, secretID string, plaintext string) string {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	identityPath := WriteFile(t, dir, "identity.txt", identity.String()+"\n")

	var buf bytes.Buffer
	writer, err := age.Encrypt(&buf, identity.Recipient())
	require.NoError(t, err)
	_, err = writer.Write([]byte(plaintext))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, adapters.SecretFilename(secretID)), buf.Bytes(), 0600))
	return identityPath
}
