// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	migrate "github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  This runs "outside" the normal snapshot flow, either at
// initial startup or from an external tool.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1-snapshot",
			Up: []string{
				`CREATE TABLE ` + snapshotTable + `(
					key TEXT PRIMARY KEY,
					saved TIMESTAMP WITH TIME ZONE NOT NULL,
					data BYTEA NOT NULL
				)`,
			},
			Down: []string{
				`DROP TABLE ` + snapshotTable,
			},
		},
		{
			Id: "2-snapshot-saved-index",
			Up: []string{
				`CREATE INDEX ` + snapshotTable + `_saved ON ` + snapshotTable + `(saved)`,
			},
			Down: []string{
				`DROP INDEX ` + snapshotTable + `_saved`,
			},
		},
	},
}

// Upgrade upgrades a database to the latest database schema version.
func Upgrade(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Up)
	return err
}

// Drop clears a database by running all of the migrations in reverse,
// ultimately resulting in dropping all of the tables.
func Drop(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Down)
	return err
}
