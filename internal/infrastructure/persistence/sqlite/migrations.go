package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"
)

func RunMigrations(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			aggregate_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload BLOB NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS outbox_events_aggregate
			ON outbox_events (aggregate_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "Failed run migration")
		}
	}

	return nil
}
