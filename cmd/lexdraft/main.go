package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"lexdraft/internal/cli"
	"lexdraft/internal/gateway"
)

func main() {
	app := cli.NewApp()
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	if err := cli.NewRootCmd(app).Execute(); err != nil {
		var credErr *gateway.CredentialError
		if errors.As(err, &credErr) {
			fmt.Fprint(os.Stderr, credErr.Instructions())
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
