package credentials

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, host, auth string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"auths":{"` + host + `":{"auth":"` + auth + `"}}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestReadKnownHost(t *testing.T) {
	t.Parallel()

	auth := base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
	path := writeConfig(t, "registry.example.com", auth)

	creds, err := Read(path, "https://registry.example.com")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if creds.Username != "alice" || creds.Password != "hunter2" {
		t.Errorf("creds = %+v, want alice/hunter2", creds)
	}
}

func TestReadUnknownHostIsAnonymous(t *testing.T) {
	t.Parallel()

	auth := base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
	path := writeConfig(t, "registry.example.com", auth)

	creds, err := Read(path, "other.example.com")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if creds.Username != "" || creds.Password != "" {
		t.Errorf("creds = %+v, want empty for unknown host", creds)
	}
}

func TestReadEmptyPathIsAnonymous(t *testing.T) {
	t.Parallel()

	creds, err := Read("", "registry.example.com")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if creds.Username != "" || creds.Password != "" {
		t.Errorf("creds = %+v, want empty", creds)
	}
}

func TestTrimProtocol(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://registry.example.com": "registry.example.com",
		"http://registry.example.com":  "registry.example.com",
		"registry.example.com":         "registry.example.com",
	}
	for in, want := range cases {
		if got := TrimProtocol(in); got != want {
			t.Errorf("TrimProtocol(%q) = %q, want %q", in, got, want)
		}
	}
}
