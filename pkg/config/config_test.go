package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTOML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadPluginsDecodesKnownPlugin(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, `
[[plugins]]
name = "node-remove"
versions = ["1.0.0"]
`)

	settings, err := LoadPlugins(path, DefaultCatalog())
	if err != nil {
		t.Fatalf("LoadPlugins() error = %v", err)
	}
	if len(settings) != 1 {
		t.Fatalf("len(settings) = %d, want 1", len(settings))
	}
}

func TestLoadPluginsUnknownNameFails(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, `
[[plugins]]
name = "not-a-real-plugin"
`)

	if _, err := LoadPlugins(path, DefaultCatalog()); err == nil {
		t.Error("LoadPlugins() error = nil, want error for unknown plugin name")
	}
}

func TestLoadPluginsEmptyDocument(t *testing.T) {
	t.Parallel()

	path := writeTOML(t, "")

	settings, err := LoadPlugins(path, DefaultCatalog())
	if err != nil {
		t.Fatalf("LoadPlugins() error = %v", err)
	}
	if len(settings) != 0 {
		t.Errorf("len(settings) = %d, want 0", len(settings))
	}
}
