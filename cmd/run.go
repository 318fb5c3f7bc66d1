package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/app"
	"github.com/abhisek/campus/internal/screens"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	e, err := openEnv(cmd, "campus.log")
	if err != nil {
		return err
	}
	defer e.Close()

	deps := screens.Deps{
		UserID: e.cfg.UserID,
		Repo:   e.st,
		Events: e.st,
		Writer: e.writer,
		Reader: e.reader,
		Log:    e.log,
	}

	rl, err := e.newRelay(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Chat assistant not configured:", err)
		fmt.Fprintln(os.Stderr, "The assistant will be unavailable.")
	} else {
		deps.Relay = rl
	}

	skip, _ := cmd.Flags().GetBool("skip-welcome")
	return app.Run(deps, app.Options{SkipWelcome: skip})
}
