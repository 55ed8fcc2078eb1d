package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialsFile(t *testing.T, content string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".encapsia")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(content), 0o600))
}

func TestDiscoverFromLabel(t *testing.T) {
	writeCredentialsFile(t, `
[mytrial]
token = "tok-1"

[other]
url = "https://other.example.com/"
token = "tok-2"
`)

	t.Run("default URL derived from the label", func(t *testing.T) {
		creds, err := Discover("mytrial")
		require.NoError(t, err)
		assert.Equal(t, "mytrial", creds.Label)
		assert.Equal(t, "https://mytrial.encapsia.com", creds.URL)
		assert.Equal(t, "tok-1", creds.Token)
	})

	t.Run("explicit URL kept, trailing slash trimmed", func(t *testing.T) {
		creds, err := Discover("other")
		require.NoError(t, err)
		assert.Equal(t, "https://other.example.com", creds.URL)
		assert.Equal(t, "tok-2", creds.Token)
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := Discover("nosuch")
		assert.ErrorContains(t, err, "nosuch")
	})
}

func TestDiscoverFromURL(t *testing.T) {
	t.Run("URL host pairs with the token env var", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "tok-env")
		creds, err := Discover("https://trial.example.com")
		require.NoError(t, err)
		assert.Empty(t, creds.Label)
		assert.Equal(t, "https://trial.example.com", creds.URL)
		assert.Equal(t, "tok-env", creds.Token)
	})

	t.Run("dotted host counts as a URL and gets a scheme", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "tok-env")
		creds, err := Discover("trial.example.com")
		require.NoError(t, err)
		assert.Equal(t, "https://trial.example.com", creds.URL)
	})

	t.Run("URL host without the token env var fails", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "")
		_, err := Discover("https://trial.example.com")
		assert.ErrorContains(t, err, TokenEnvVar)
	})
}

func TestDiscoverHostFallback(t *testing.T) {
	t.Run("empty host falls back to the env var", func(t *testing.T) {
		writeCredentialsFile(t, `
[fromenv]
token = "tok-3"
`)
		t.Setenv(HostEnvVar, "fromenv")
		creds, err := Discover("")
		require.NoError(t, err)
		assert.Equal(t, "fromenv", creds.Label)
	})

	t.Run("empty host falls back to the URL env var", func(t *testing.T) {
		t.Setenv(HostEnvVar, "")
		t.Setenv(URLEnvVar, "https://trial.example.com/")
		t.Setenv(TokenEnvVar, "tok-url")
		creds, err := Discover("")
		require.NoError(t, err)
		assert.Empty(t, creds.Label)
		assert.Equal(t, "https://trial.example.com", creds.URL)
		assert.Equal(t, "tok-url", creds.Token)
	})

	t.Run("host env var beats the URL env var", func(t *testing.T) {
		writeCredentialsFile(t, `
[fromenv]
token = "tok-3"
`)
		t.Setenv(HostEnvVar, "fromenv")
		t.Setenv(URLEnvVar, "https://ignored.example.com")
		creds, err := Discover("")
		require.NoError(t, err)
		assert.Equal(t, "fromenv", creds.Label)
	})

	t.Run("URL env var without a token fails", func(t *testing.T) {
		t.Setenv(HostEnvVar, "")
		t.Setenv(URLEnvVar, "https://trial.example.com")
		t.Setenv(TokenEnvVar, "")
		_, err := Discover("")
		assert.ErrorContains(t, err, TokenEnvVar)
	})

	t.Run("no host anywhere fails", func(t *testing.T) {
		t.Setenv(HostEnvVar, "")
		t.Setenv(URLEnvVar, "")
		_, err := Discover("")
		assert.ErrorContains(t, err, HostEnvVar)
	})
}

func TestDiscoverMissingToken(t *testing.T) {
	writeCredentialsFile(t, `
[broken]
url = "https://broken.example.com"
`)
	_, err := Discover("broken")
	assert.ErrorContains(t, err, "no token")
}
