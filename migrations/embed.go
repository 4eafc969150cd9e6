package migrations

import (
	"embed"
	"io/fs"
)

// Files exposes embedded SQL migration files ordered lexicographically.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS

// Postgres returns the migrations for the pgx backend.
func Postgres() fs.FS {
	sub, err := fs.Sub(Files, "postgres")
	if err != nil {
		panic(err)
	}
	return sub
}

// SQLite returns the migrations for the sqlite backend.
func SQLite() fs.FS {
	sub, err := fs.Sub(Files, "sqlite")
	if err != nil {
		panic(err)
	}
	return sub
}
