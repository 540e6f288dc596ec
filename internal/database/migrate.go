package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every embedded migration in lexical order. Migrations are written to be idempotent.
func Migrate(ctx context.Context, dbConn Connection) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err = dbConn.DB().ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("could not apply migration %s: %w", name, err)
		}
	}
	return nil
}
