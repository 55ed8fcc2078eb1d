package cmd_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encapsia/encapsia-cli/cmd/internal/test"
)

func Test_Version_Command(t *testing.T) {
	logs := test.NewJSONLogReader()
	_, err := test.Encapsia(t, test.WithArgs("version", "--format", "json"), test.WithOutput(logs))
	require.NoError(t, err)

	var payload struct {
		Version string `json:"version"`
		Go      string `json:"go"`
	}
	require.NoError(t, json.Unmarshal(logs.Bytes(), &payload))
	assert.NotEmpty(t, payload.Version)
	assert.NotEmpty(t, payload.Go)
}

func Test_Plugins_Build_And_Add(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "plugin.toml"),
		[]byte("name = \"launch\"\nversion = \"1.5.0\"\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "views"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "views", "example.sql"),
		[]byte("select 1;\n"), 0o644))

	buildStore := t.TempDir()
	var out bytes.Buffer
	_, err := test.Encapsia(t, test.WithArgs("plugins", "--plugins-dir", buildStore, "build", src),
		test.WithOutput(&out))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Built: plugin-launch-1.5.0.tar.gz")

	artifact := filepath.Join(buildStore, "plugin-launch-1.5.0.tar.gz")
	require.FileExists(t, artifact)

	t.Run("rebuild is skipped without force", func(t *testing.T) {
		var out bytes.Buffer
		_, err := test.Encapsia(t, test.WithArgs("plugins", "--plugins-dir", buildStore, "build", src),
			test.WithOutput(&out))
		require.NoError(t, err)
		assert.Contains(t, out.String(), "skipping")
	})

	t.Run("add copies the artifact into another store", func(t *testing.T) {
		addStore := t.TempDir()
		var out bytes.Buffer
		_, err := test.Encapsia(t, test.WithArgs("plugins", "--plugins-dir", addStore, "add", artifact),
			test.WithOutput(&out))
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Added: plugin-launch-1.5.0.tar.gz")
		assert.FileExists(t, filepath.Join(addStore, "plugin-launch-1.5.0.tar.gz"))
	})
}

func Test_Plugins_Status_Against_Server(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/views/pluginsmanager/plugins", r.URL.Path)
		fmt.Fprint(w, `{"result": [
			{"name": "launch", "version": "1.5.0", "description": "the launch plugin",
			 "manifest": {"tags": []}, "when": "2026-02-03T10:20:30"}
		]}`)
	}))
	defer server.Close()
	t.Setenv("ENCAPSIA_TOKEN", "tok")

	var out bytes.Buffer
	_, err := test.Encapsia(t,
		test.WithArgs("--host", server.URL, "plugins", "status", "--output", "json"),
		test.WithOutput(&out))
	require.NoError(t, err)

	var rows []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "launch", rows[0].Name)
	assert.Equal(t, "1.5.0", rows[0].Version)
}

func Test_Plugins_Upgrade_Leaves_Prerelease_Only_Plugins_Alone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/views/pluginsmanager/plugins", r.URL.Path)
		fmt.Fprint(w, `{"result": [
			{"name": "launch", "version": "1.0.0", "manifest": {"tags": []},
			 "when": "2026-02-03T10:20:30"}
		]}`)
	}))
	defer server.Close()
	t.Setenv("ENCAPSIA_TOKEN", "tok")

	// The only candidate for the installed plugin is a prerelease, which
	// loses resolution by default. The plugin is left alone rather than
	// failing the whole upgrade.
	store := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(store, "plugin-launch-2.0.0-beta.1.tar.gz"), []byte("x"), 0o644))

	var out bytes.Buffer
	_, err := test.Encapsia(t,
		test.WithArgs("--host", server.URL, "plugins", "--plugins-dir", store, "upgrade"),
		test.WithOutput(&out))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "All plugins are up to date.")
}

func Test_Plugins_Add_Rejects_Bad_Spec(t *testing.T) {
	store := t.TempDir()
	_, err := test.Encapsia(t, test.WithArgs("plugins", "--plugins-dir", store, "add", "Not-A-Spec"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid plugin spec")
}
