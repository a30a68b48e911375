package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readSettings(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestSaveSetting_UpdatesExistingKeyPreservingComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SaveSetting(path, "watch.debounce", "5s"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# c360cfg settings")
	require.Contains(t, string(data), "# Watch mode")
	require.Contains(t, string(data), "debounce: 5s")
	require.Equal(t, 1, strings.Count(string(data), "debounce:"))
}

func TestSaveSetting_CreatesMissingFileAndParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new", "config.yaml")

	require.NoError(t, SaveSetting(path, "tracing.exporter", "stdout"))
	require.NoError(t, SaveSetting(path, "tracing.enabled", "true"))
	require.NoError(t, SaveSetting(path, "home", "/srv/job"))

	got := readSettings(t, path)
	require.Equal(t, "/srv/job", got["home"])
	tracing, ok := got["tracing"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "stdout", tracing["exporter"])
	require.Equal(t, true, tracing["enabled"])
}

func TestSaveSetting_ReplacesNullParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watch:\n"), 0o600))

	require.NoError(t, SaveSetting(path, "watch.debounce", "2s"))

	watch, ok := readSettings(t, path)["watch"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2s", watch["debounce"])
}

func TestSaveSetting_WritesFlushedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, SaveSetting(path, "dry_run", "true"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "dry_run: true\n", string(data))
}

func TestSaveSetting_Errors(t *testing.T) {
	dir := t.TempDir()

	require.Error(t, SaveSetting(filepath.Join(dir, "a.yaml"), "", "x"))

	scalarParent := filepath.Join(dir, "scalar.yaml")
	require.NoError(t, os.WriteFile(scalarParent, []byte("watch: fast\n"), 0o600))
	err := SaveSetting(scalarParent, "watch.debounce", "1s")
	require.Error(t, err)
	require.Contains(t, err.Error(), "watch is not a mapping")

	listRoot := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(listRoot, []byte("- a\n- b\n"), 0o600))
	err = SaveSetting(listRoot, "home", "/x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "root must be a mapping")

	// Nothing left behind from the failed writes.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp.")
	}
}
