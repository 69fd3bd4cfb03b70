// Package migrations embeds the ordered SQL schema migrations and runs them
// with the ptah migrator.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/stokaro/ptah/dbschema"
	"github.com/stokaro/ptah/migration/migrator"
)

// FS holds NNNNNNNNNN_name.up.sql / NNNNNNNNNN_name.down.sql pairs.
//
//go:embed *.sql
var FS embed.FS

// NewMigrator returns a migrator over the embedded schema.
func NewMigrator(conn *dbschema.DatabaseConnection, logger *slog.Logger) (*migrator.Migrator, error) {
	m, err := migrator.NewFSMigrator(conn, FS)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if logger != nil {
		m = m.WithLogger(logger)
	}
	return m, nil
}

// Up connects to url and applies every pending migration.
func Up(ctx context.Context, url string, logger *slog.Logger) error {
	conn, err := dbschema.ConnectToDatabase(url)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	m, err := NewMigrator(conn, logger)
	if err != nil {
		return err
	}
	return m.MigrateUp(ctx)
}

// Down rolls back up to steps migrations and returns how many were rolled back.
func Down(ctx context.Context, m *migrator.Migrator, steps int) (int, error) {
	n := 0
	for ; n < steps; n++ {
		current, err := m.GetCurrentVersion(ctx)
		if err != nil {
			return n, fmt.Errorf("failed to get current version: %w", err)
		}
		if current == 0 {
			break
		}
		if err := m.MigrateDown(ctx); err != nil {
			return n, err
		}
	}
	return n, nil
}
