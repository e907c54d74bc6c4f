package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"portfolio-engine/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "portfolio-engine",
	Short:         "Filter and aggregation engine for the insurance book-of-business dashboards",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		// logs go to stderr so report output stays clean JSON
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, reportCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
