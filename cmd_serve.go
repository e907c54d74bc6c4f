package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portfolio-engine/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	Long: `Serves the dashboard API over HTTP.

Collections are read from API_BASE_URL, or from the SQLite snapshot at
SNAPSHOT_PATH when no API is configured. The process stops gracefully
on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx)
	},
}
