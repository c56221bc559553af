package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lexdraft/internal/assistant"
	"lexdraft/internal/credentials"
	"lexdraft/internal/llm"
	"lexdraft/internal/middleware"
	"lexdraft/internal/onboarding"
	_ "lexdraft/middlewares/autoload" // Auto-load all middlewares
	"lexdraft/middlewares/localcache"
	"lexdraft/middlewares/tokenbudget"
)

const retryBackoff = 500 * time.Millisecond

// CredentialError reports a provider key that could not be resolved.
type CredentialError struct {
	Key         string
	SecretsPath string
	Err         error
}

func (e *CredentialError) Error() string { return e.Err.Error() }
func (e *CredentialError) Unwrap() error { return e.Err }

// Instructions is the user-facing help for configuring the key.
func (e *CredentialError) Instructions() string {
	return credentials.Instructions(e.Key, e.SecretsPath)
}

type Gateway struct {
	ConfigPath string
	Log        *zap.Logger

	// Env is consulted after the secrets file. Defaults to the process env.
	Env credentials.SecretStore
	// NewAdapter builds the model client. Defaults to llm.NewAdapter.
	NewAdapter func(llm.Options) (assistant.Adapter, error)
}

func New(configPath string, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		ConfigPath: configPath,
		Log:        log,
		Env:        credentials.EnvStore{},
		NewAdapter: llm.NewAdapter,
	}
}

// LoadConfig reads .env, then the config file (optional), then LEXDRAFT_*
// environment overrides.
func (g *Gateway) LoadConfig() (*onboarding.Config, error) {
	_ = godotenv.Load()

	path := g.ConfigPath
	if path == "" {
		path = onboarding.DefaultConfigPath
	}
	cfg, err := onboarding.LoadFromFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = onboarding.Defaults()
	case err != nil:
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *onboarding.Config) {
	if v := os.Getenv("LEXDRAFT_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("LEXDRAFT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("LEXDRAFT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("LEXDRAFT_SECRETS_FILE"); v != "" {
		cfg.SecretsFile = v
	}
	if v := os.Getenv("LEXDRAFT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LEXDRAFT_DEBUG_LOG"); v != "" {
		cfg.DebugLog = v
	}
	if v := os.Getenv("LEXDRAFT_LOG_JSON"); v != "" {
		cfg.LogJSON, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("LEXDRAFT_METRICS"); v != "" {
		cfg.Metrics, _ = strconv.ParseBool(v)
	}
	envInt("LEXDRAFT_MAX_RETRIES", &cfg.MaxRetries, 0)
	envInt("LEXDRAFT_TIMEOUT_SECONDS", &cfg.TimeoutSeconds, 1)
	envInt("LEXDRAFT_MAX_TOKENS", &cfg.MaxTokens, 0)
	envInt("LEXDRAFT_CACHE_TTL_SECONDS", &cfg.CacheTTLSeconds, 0)
	envInt("LEXDRAFT_PORT", &cfg.Port, 1)
	envInt("LEXDRAFT_SESSION_TTL_MINUTES", &cfg.SessionTTLMinutes, 1)
}

func envInt(name string, dst *int, min int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n >= min {
		*dst = n
	}
}

// InitService resolves the provider credential, builds the adapter and the
// middleware chain, and returns the drafting service. A missing credential
// returns a *CredentialError before any client is constructed. Extra
// observers receive every call event alongside the log observer.
func (g *Gateway) InitService(_ context.Context, cfg *onboarding.Config, observers ...assistant.Observer) (*assistant.Service, func(), error) {
	provider := llm.Provider(cfg.Provider)
	if provider == "" {
		provider = llm.ProviderOpenAI
	}
	model := cfg.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	apiKey, err := g.resolveKey(provider, cfg.SecretsFile)
	if err != nil {
		return nil, nil, err
	}

	newAdapter := g.NewAdapter
	if newAdapter == nil {
		newAdapter = llm.NewAdapter
	}
	adapter, err := newAdapter(llm.Options{
		Provider: provider,
		Model:    model,
		BaseURL:  cfg.BaseURL,
		APIKey:   apiKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize adapter: %w", err)
	}

	var (
		debugW  io.Writer
		cleanup = func() {}
	)
	if cfg.DebugLog != "" {
		f, err := openDebugLog(cfg.DebugLog)
		if err != nil {
			g.Log.Warn("failed to open middleware debug log", zap.String("path", cfg.DebugLog), zap.Error(err))
		} else {
			debugW = f
			cleanup = func() { _ = f.Close() }
		}
	}
	chain := middleware.NewChainFromRegistry(cfg.DisabledMiddlewares(), debugW)

	svcOpts := []assistant.ServiceOption{
		assistant.WithModel(model),
		assistant.WithMiddlewareContext(map[string]any{
			tokenbudget.ContextKey: cfg.MaxTokens,
			localcache.EnabledKey:  cfg.CacheTTLSeconds > 0,
			localcache.TTLKey:      cfg.CacheTTL(),
		}),
		assistant.WithObserver(append(assistant.MultiObserver{assistant.NewLogObserver(g.Log)}, observers...)),
		assistant.WithTimeout(cfg.Timeout()),
		assistant.WithRetries(cfg.MaxRetries, retryBackoff),
	}
	if chain != nil {
		svcOpts = append(svcOpts, assistant.WithMiddlewareChain(chain))
	}

	g.Log.Info("drafting service ready",
		zap.String("provider", string(provider)),
		zap.String("model", model),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("timeout", cfg.Timeout()),
	)
	return assistant.NewService(adapter, svcOpts...), cleanup, nil
}

func (g *Gateway) resolveKey(provider llm.Provider, secretsPath string) (string, error) {
	keyName := provider.APIKeyName()
	if keyName == "" {
		return "", nil
	}
	if secretsPath == "" {
		secretsPath = credentials.DefaultSecretsPath
	}

	secrets, err := credentials.LoadFileStore(secretsPath)
	if err != nil {
		return "", err
	}
	env := g.Env
	if env == nil {
		env = credentials.EnvStore{}
	}

	key, err := credentials.Resolver{Secrets: secrets, Env: env}.Resolve(keyName)
	if err != nil {
		return "", &CredentialError{Key: keyName, SecretsPath: secrets.Path, Err: err}
	}
	return key, nil
}

func openDebugLog(path string) (*os.File, error) {
	path, err := credentials.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
