package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey means neither the secret store nor the environment holds
// the requested key.
var ErrMissingAPIKey = errors.New("api key not configured")

// DefaultSecretsPath is where `lexdraft setup` writes secrets.
const DefaultSecretsPath = "~/.lexdraft/secrets.yaml"

// SecretStore is a read-only key lookup.
type SecretStore interface {
	Lookup(key string) (string, bool)
}

// FileStore is a flat YAML map of secret names to values.
type FileStore struct {
	Path    string
	secrets map[string]string
}

// LoadFileStore reads path. A missing file yields an empty store.
func LoadFileStore(path string) (*FileStore, error) {
	resolved, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	fs := &FileStore{Path: resolved, secrets: map[string]string{}}

	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fs.secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", resolved, err)
	}
	if fs.secrets == nil {
		fs.secrets = map[string]string{}
	}
	return fs, nil
}

func (f *FileStore) Lookup(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.secrets[key]
	return v, ok
}

// Save sets key and rewrites the file with owner-only permissions.
func (f *FileStore) Save(key, value string) error {
	if f.secrets == nil {
		f.secrets = map[string]string{}
	}
	f.secrets[key] = value

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(f.secrets)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

// EnvStore reads the process environment.
type EnvStore struct{}

func (EnvStore) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Resolver finds an API key in Secrets first, then Env.
type Resolver struct {
	Secrets SecretStore
	Env     SecretStore
}

// Resolve returns the first non-blank value for key.
func (r Resolver) Resolve(key string) (string, error) {
	for _, store := range []SecretStore{r.Secrets, r.Env} {
		if store == nil {
			continue
		}
		if v, ok := store.Lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingAPIKey, key)
}

// Instructions is the message shown when key cannot be resolved.
func Instructions(key, secretsPath string) string {
	if secretsPath == "" {
		secretsPath = DefaultSecretsPath
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Please set your %s before drafting.\n", key)
	fmt.Fprintf(&b, "  - add \"%s: <key>\" to %s, or\n", key, secretsPath)
	fmt.Fprintf(&b, "  - export %s=<key> (a .env file in the working directory also works), or\n", key)
	b.WriteString("  - run `lexdraft setup`.\n")
	return b.String()
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
