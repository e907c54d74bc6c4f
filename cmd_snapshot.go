package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"portfolio-engine/internal/source"
	"portfolio-engine/internal/source/remote"
	"portfolio-engine/internal/source/sqlite"
)

var snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy every collection from the remote API into a SQLite file",
	Long: `Reads clients, policies, claims, complaints and every client's notes
from API_BASE_URL and replaces the contents of the snapshot file with them.
The file can then be served with SNAPSHOT_PATH when the API is offline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.APIBaseURL == "" {
			return errors.New("API_BASE_URL is required to take a snapshot")
		}
		out := snapshotOut
		if out == "" {
			out = cfg.SnapshotPath
		}
		if out == "" {
			return errors.New("--out or SNAPSHOT_PATH is required")
		}

		ctx := cmd.Context()
		data, err := source.Collect(ctx, remote.New(cfg.APIBaseURL, cfg.FetchTimeout))
		if err != nil {
			return err
		}

		db, err := sqlite.Open(out)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Write(ctx, data); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}

		slog.Info("snapshot written",
			"path", out,
			"clients", len(data.Clients),
			"policies", len(data.Policies),
			"claims", len(data.Claims),
			"complaints", len(data.Complaints),
			"notes", len(data.Notes),
		)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "snapshot file (default SNAPSHOT_PATH)")
}
