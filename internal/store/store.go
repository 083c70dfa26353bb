package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragmas configure every journal connection. A journal is written by one
// run at a time and read by trace while that run may still be writing.
var pragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migrations upgrade journals written by older builds. Entry i moves a
// journal from user_version i to i+1. schema.sql always holds the newest
// layout: a journal created by it skips the migrations and only has its
// version stamped.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_items_seq ON items(seq)`,
	`CREATE INDEX IF NOT EXISTS idx_items_outcome ON items(run_id, status, stage)`,
}

var currentSchemaVersion = len(migrations)

// Store is the run journal.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path, then configures the
// connection and brings the schema up to date. Opening the same path
// repeatedly is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// one connection, so the pragmas below hold for every statement
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %s: %w", p.name, err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	fresh, err := isEmpty(db)
	if err != nil {
		return err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	version := currentSchemaVersion
	if !fresh {
		if version, err = schemaVersion(db); err != nil {
			return err
		}
		for v := version; v < currentSchemaVersion; v++ {
			if _, err := db.Exec(migrations[v]); err != nil {
				return fmt.Errorf("migrate to v%d: %w", v+1, err)
			}
		}
		if version == currentSchemaVersion {
			return nil
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// isEmpty reports whether the database has no journal tables yet.
func isEmpty(db *sql.DB) (bool, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'runs'").Scan(&n); err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return n == 0, nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return 0, fmt.Errorf("journal schema v%d is newer than this build (v%d)", version, currentSchemaVersion)
	}
	return version, nil
}
