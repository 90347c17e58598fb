// Package storage is the SQLite record store: decks, cards with their
// scheduling state, session snapshots and the vault import ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/session"
)

// Scheduling columns are nullable: rows written before a field existed load
// with defaults.
const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS decks (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	created_at      DATETIME NOT NULL,
	last_studied_at DATETIME
);

CREATE TABLE IF NOT EXISTS cards (
	id            TEXT PRIMARY KEY,
	deck_id       TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
	question      TEXT NOT NULL,
	answer        TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	interval_days INTEGER,
	ease_factor   REAL,
	repetition    INTEGER,
	due_date      DATETIME,
	last_reviewed DATETIME,
	source        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id);
CREATE INDEX IF NOT EXISTS idx_cards_source ON cards(source);

CREATE TABLE IF NOT EXISTS sessions (
	deck_id    TEXT PRIMARY KEY REFERENCES decks(id) ON DELETE CASCADE,
	snapshot   TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS vault_files (
	path     TEXT PRIMARY KEY,
	checksum TEXT NOT NULL,
	deck_id  TEXT NOT NULL
);
`

// DB wraps a sql.DB with memoracard record operations.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ session.RecordStore = (*DB)(nil)

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for recovered record corruption.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		db.logger = l
	}
}

// WithClock replaces time.Now for due counts.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply fts schema: %w", err)
	}
	db := &DB{conn: conn, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// inTx runs fn inside a transaction, committing when it returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap("commit", err)
	}
	return nil
}

// wrap classifies a driver error. Constraint violations become domain
// errors; everything else is a storage failure.
func wrap(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrStorage) ||
		errors.Is(err, apperr.ErrAlreadyExists) {
		return fmt.Errorf("storage: %s: %w", op, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("storage: %s: %w", op, apperr.ErrNotFound)
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("storage: %s: %w", op, apperr.ErrAlreadyExists)
		}
	}
	return fmt.Errorf("storage: %s: %w: %w", op, apperr.ErrStorage, err)
}

// utc normalizes times before they are written so text ordering in SQLite
// matches chronological order.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: utc(*t), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
