package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lexdraft/internal/assistant"
	"lexdraft/internal/credentials"
	"lexdraft/internal/gateway"
	"lexdraft/internal/llm"
	"lexdraft/internal/logging"
	"lexdraft/internal/onboarding"
)

// App holds what every command needs: I/O streams, terminal detection and
// the configuration loaded before the command runs.
type App struct {
	ConfigPath    string
	In            io.Reader
	Out           io.Writer
	Err           io.Writer
	IsInteractive func() bool

	// Optional overrides for the model client and credential environment.
	NewAdapter func(llm.Options) (assistant.Adapter, error)
	Env        credentials.SecretStore

	cfg *onboarding.Config
	log *zap.Logger
	gw  *gateway.Gateway
}

func NewApp() *App {
	return &App{
		In:            os.Stdin,
		Out:           os.Stdout,
		Err:           os.Stderr,
		IsInteractive: func() bool { return false },
	}
}

// NewRootCmd creates the top-level "lexdraft" command. Without a subcommand
// it opens the drafting TUI on a terminal and prints help otherwise.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "lexdraft",
		Short:         "Draft replies to client emails in a chosen legal tone",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app.log != nil {
				_ = app.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.IsInteractive() {
				return runTUI(cmd.Context(), app)
			}
			return cmd.Help()
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.PersistentFlags().StringVar(&app.ConfigPath, "config", app.ConfigPath, "Path to config.json (default ~/.lexdraft/config.json)")

	root.AddCommand(
		newServeCmd(app),
		newTUICmd(app),
		newSetupCmd(app),
		newTonesCmd(app),
		newSuggestCmd(app),
		newDraftCmd(app),
	)
	return root
}

func (a *App) load() error {
	gw := gateway.New(a.ConfigPath, nil)
	cfg, err := gw.LoadConfig()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}

	gw.Log = log
	if a.NewAdapter != nil {
		gw.NewAdapter = a.NewAdapter
	}
	if a.Env != nil {
		gw.Env = a.Env
	}
	a.cfg, a.log, a.gw = cfg, log, gw
	return nil
}

func (a *App) service(ctx context.Context, observers ...assistant.Observer) (*assistant.Service, func(), error) {
	if a.gw == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	return a.gw.InitService(ctx, a.cfg, observers...)
}

func (a *App) secretsPath() string {
	if a.cfg != nil && a.cfg.SecretsFile != "" {
		return a.cfg.SecretsFile
	}
	return credentials.DefaultSecretsPath
}
