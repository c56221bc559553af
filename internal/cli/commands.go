package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lexdraft/internal/assistant"
	"lexdraft/internal/metrics"
	"lexdraft/internal/onboarding"
	"lexdraft/internal/session"
	"lexdraft/internal/tone"
	"lexdraft/internal/tui"
	"lexdraft/internal/webui"
)

func newServeCmd(app *App) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var (
				observers []assistant.Observer
				opts      = []webui.Option{webui.WithLogger(app.log), webui.WithModel(app.cfg.Model)}
			)
			if app.cfg.Metrics {
				m := metrics.New()
				observers = append(observers, m)
				opts = append(opts, webui.WithMetrics(m))
			}

			svc, cleanup, err := app.service(ctx, observers...)
			if err != nil {
				return err
			}
			defer cleanup()

			if cmd.Flags().Changed("port") {
				app.cfg.Port = port
			}
			store := session.NewStore(app.cfg.SessionTTL(), app.log)
			return webui.NewServer(svc, store, app.cfg.Port, opts...).Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8501, "Port to listen on")
	return cmd
}

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Draft replies in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), app)
		},
	}
}

func runTUI(ctx context.Context, app *App) error {
	// Log lines would tear the alternate screen.
	app.gw.Log = zap.NewNop()

	svc, cleanup, err := app.service(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return tui.Run(ctx, svc)
}

func newSetupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Choose a provider and store its API key",
		RunE: func(*cobra.Command, []string) error {
			path := app.ConfigPath
			if path == "" {
				path = onboarding.DefaultConfigPath
			}
			return onboarding.RunTUI(path, app.secretsPath())
		},
	}
}

func newTonesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tones",
		Short: "List the available reply tones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, e := range tone.Catalog() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s\n", e.Name, e.Instruction)
			}
			return nil
		},
	}
}

func newSuggestCmd(app *App) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest the three best-fitting tones for an email",
		Long:  "Reads the client email from --file or standard input and prints the suggested tones.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := app.service(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			email, err := readEmail(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			out, err := svc.SuggestTones(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the email from this file instead of stdin")
	return cmd
}

func newDraftCmd(app *App) *cobra.Command {
	var (
		file      string
		toneName  string
		notes     string
		signature string
	)

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft a reply to an email in the chosen tone",
		Long:  "Reads the client email from --file or standard input. Without --tone an interactive terminal is asked to pick one.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if toneName != "" && !tone.Valid(toneName) {
				return fmt.Errorf("%w: %q (see `lexdraft tones`)", tone.ErrUnknownTone, toneName)
			}

			// Resolve the credential before asking for anything.
			svc, cleanup, err := app.service(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if toneName == "" {
				toneName = tone.Default()
				if app.IsInteractive() {
					if toneName, err = pickTone(); err != nil {
						return err
					}
				}
			}
			email, err := readEmail(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			out, err := svc.DraftReply(cmd.Context(), assistant.DraftRequest{
				Email:     email,
				Tone:      toneName,
				CaseNotes: notes,
				Signature: signature,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the email from this file instead of stdin")
	cmd.Flags().StringVar(&toneName, "tone", "", "Tone name (see `lexdraft tones`)")
	cmd.Flags().StringVar(&notes, "notes", "", "Case notes to work into the reply")
	cmd.Flags().StringVar(&signature, "signature", "", "Signature to close the reply with")
	return cmd
}

func pickTone() (string, error) {
	choice := tone.Default()
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tone").
				Options(huh.NewOptions(tone.Names()...)...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

func readEmail(file string, stdin io.Reader) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading email: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading email from stdin: %w", err)
	}
	return string(data), nil
}
