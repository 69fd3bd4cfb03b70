package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/stokaro/ptah/dbschema"
	"github.com/stokaro/ptah/migration/migrator"
	"github.com/tendant/stay-concierge/internal/config"
	"github.com/tendant/stay-concierge/migrations"
)

const stepsFlag = "steps"

var downFlags = map[string]cobraflags.Flag{
	stepsFlag: &cobraflags.StringFlag{
		Name:  stepsFlag,
		Value: "1",
		Usage: "Number of migrations to roll back",
	},
}

func newMigrateCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), logger, func(ctx context.Context, m *migrator.Migrator) error {
				return m.MigrateUp(ctx)
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, err := strconv.Atoi(downFlags[stepsFlag].GetString())
			if err != nil || steps < 1 {
				return fmt.Errorf("--%s must be a positive integer", stepsFlag)
			}
			return withMigrator(cmd.Context(), logger, func(ctx context.Context, m *migrator.Migrator) error {
				n, err := migrations.Down(ctx, m, steps)
				if err != nil {
					return err
				}
				logger.Info("migrations rolled back", "count", n)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(down, downFlags)

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current version and pending migrations as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), logger, func(ctx context.Context, m *migrator.Migrator) error {
				st, err := m.GetMigrationStatus(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			})
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func withMigrator(ctx context.Context, logger *slog.Logger, fn func(context.Context, *migrator.Migrator) error) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	conn, err := dbschema.ConnectToDatabase(dbConfig(cfg).DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	m, err := migrations.NewMigrator(conn, logger)
	if err != nil {
		return err
	}
	return fn(ctx, m)
}
