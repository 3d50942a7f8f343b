// Package store persists resolved page snapshots in SQLite. A snapshot
// is the fully resolved content for one (network, contract, path,
// viewer) tuple, kept so a viewer can show the last known render while
// a fresh resolution is in flight.
package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lumenweave/lumen/errors"
)

// Store wraps the snapshot database.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens the SQLite database at path, applies pragmas and pending
// migrations. If logger is nil the store operates silently.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger.Debugw("opening snapshot store", "path", path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// WAL allows concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infow("snapshot store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
