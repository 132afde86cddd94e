package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Open opens the journal database. A single connection keeps ":memory:"
// databases shared across callers.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "Failed open sqlite")
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Failed ping sqlite")
	}

	return db, nil
}
