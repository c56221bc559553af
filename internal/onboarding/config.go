package onboarding

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"lexdraft/internal/credentials"
)

// DefaultConfigPath is where setup writes the configuration.
const DefaultConfigPath = "~/.lexdraft/config.json"

// MiddlewareSetting holds the user's choice for a specific middleware.
type MiddlewareSetting struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// Config is everything lexdraft reads at startup besides the API key.
type Config struct {
	Provider    string              `json:"provider"`
	Model       string              `json:"model"`
	BaseURL     string              `json:"base_url,omitempty"`
	SecretsFile string              `json:"secrets_file,omitempty"`
	Middlewares []MiddlewareSetting `json:"middlewares,omitempty"`

	MaxRetries      int `json:"max_retries,omitempty"`
	TimeoutSeconds  int `json:"timeout_seconds,omitempty"`
	MaxTokens       int `json:"max_tokens,omitempty"`
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty"` // 0 disables the suggestion cache

	DebugLog string `json:"debug_log,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
	LogJSON  bool   `json:"log_json,omitempty"`

	Port              int  `json:"port,omitempty"`
	SessionTTLMinutes int  `json:"session_ttl_minutes,omitempty"`
	Metrics           bool `json:"metrics,omitempty"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	return &Config{
		Provider:          "openai",
		SecretsFile:       credentials.DefaultSecretsPath,
		TimeoutSeconds:    120,
		LogLevel:          "info",
		Port:              8501,
		SessionTTLMinutes: 120,
	}
}

// DisabledMiddlewares lists the ids switched off in the config.
func (c *Config) DisabledMiddlewares() []string {
	var out []string
	for _, m := range c.Middlewares {
		if !m.Enabled {
			out = append(out, m.ID)
		}
	}
	return out
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// LoadFromFile overlays the JSON file at path onto Defaults.
func LoadFromFile(path string) (*Config, error) {
	path, err := credentials.ExpandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) SaveToFile(path string) error {
	path, err := credentials.ExpandHome(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
