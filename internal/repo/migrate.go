package repo

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplyMigrations executes SQL files against the provided pool in lexicographical order.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, filesystem fs.FS) error {
	return walkMigrations(filesystem, func(_, stmt string) error {
		return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, stmt)
			return err
		})
	})
}

// ApplySQLiteMigrations is ApplyMigrations for a database/sql handle.
func ApplySQLiteMigrations(ctx context.Context, db *sql.DB, filesystem fs.FS) error {
	return walkMigrations(filesystem, func(_, stmt string) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func walkMigrations(filesystem fs.FS, apply func(name, stmt string) error) error {
	entries, err := fs.ReadDir(filesystem, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		sqlBytes, err := fs.ReadFile(filesystem, entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if len(sqlBytes) == 0 {
			continue
		}

		if err := apply(entry.Name(), string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}
