package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type mapStore map[string]string

func (m mapStore) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func TestResolvePrefersSecretStore(t *testing.T) {
	r := Resolver{
		Secrets: mapStore{"OPENAI_API_KEY": "from-secrets"},
		Env:     mapStore{"OPENAI_API_KEY": "from-env"},
	}
	got, err := r.Resolve("OPENAI_API_KEY")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "from-secrets" {
		t.Fatalf("expected secret store value, got %q", got)
	}
}

func TestResolveFallsBackToEnv(t *testing.T) {
	r := Resolver{
		Secrets: mapStore{"OPENAI_API_KEY": "   "},
		Env:     mapStore{"OPENAI_API_KEY": "from-env"},
	}
	got, err := r.Resolve("OPENAI_API_KEY")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestResolveMissing(t *testing.T) {
	r := Resolver{Secrets: mapStore{}, Env: mapStore{}}
	_, err := r.Resolve("OPENAI_API_KEY")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected key name in error, got %v", err)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	fs, err := LoadFileStore(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, ok := fs.Lookup("OPENAI_API_KEY"); ok {
		t.Fatalf("expected empty store")
	}
}

func TestFileStoreSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.yaml")
	fs, err := LoadFileStore(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.Save("OPENAI_API_KEY", "sk-test"); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	reloaded, err := LoadFileStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if v, ok := reloaded.Lookup("OPENAI_API_KEY"); !ok || v != "sk-test" {
		t.Fatalf("expected saved key, got %q (ok=%v)", v, ok)
	}
}

func TestFileStoreRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(path, []byte("OPENAI_API_KEY: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFileStore(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestInstructionsNameKeyAndPath(t *testing.T) {
	msg := Instructions("OPENAI_API_KEY", "/etc/lexdraft/secrets.yaml")
	for _, want := range []string{"OPENAI_API_KEY", "/etc/lexdraft/secrets.yaml", "lexdraft setup"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in instructions:\n%s", want, msg)
		}
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/counsel")

	got, err := ExpandHome("~/.lexdraft/secrets.yaml")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != filepath.Join("/home/counsel", ".lexdraft", "secrets.yaml") {
		t.Fatalf("unexpected path %q", got)
	}
	if got, _ := ExpandHome("/etc/lexdraft.yaml"); got != "/etc/lexdraft.yaml" {
		t.Fatalf("absolute paths must be left alone, got %q", got)
	}
}
