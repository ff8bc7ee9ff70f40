// Package migrations embeds the catalog schema per SQL dialect.
package migrations

import "embed"

// SqliteMigrations holds the schema for go-sqlite3 databases.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds the schema for lib/pq databases.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
