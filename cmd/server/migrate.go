package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/webbase/adminapi/internal/config"
	"github.com/webbase/adminapi/internal/store"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.MigrateUp(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("migrations applied", "count", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateDown(cmd.Context()); err != nil {
				return err
			}
			slog.Info("migration rolled back")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			statuses, err := db.MigrationStatuses(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				_, _ = fmt.Fprintf(out, "%05d  %-8s %s\n", s.Version, state, s.Source)
			}
			return nil
		},
	})

	return cmd
}

// openDatabase loads the database settings only, so schema and seed
// commands run without a signing secret.
func openDatabase(cmd *cobra.Command) (*config.Config, *store.DB, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	setupLogger(cfg.LogLevel)

	db, err := store.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
