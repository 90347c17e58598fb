package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/starford/memoracard/internal/models"
)

// GetSessionSnapshot returns the saved session for deckID, or nil when there
// is none. A snapshot that no longer decodes is discarded and reported as
// absent.
func (db *DB) GetSessionSnapshot(ctx context.Context, deckID string) (*models.SessionSnapshot, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE deck_id = ?`, deckID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get session", err)
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || snap.DeckID != deckID {
		attrs := []any{slog.String("deck_id", deckID)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		db.logger.Warn("discarding unreadable session snapshot", attrs...)
		if cerr := db.ClearSessionSnapshot(ctx, deckID); cerr != nil {
			db.logger.Warn("clear unreadable session snapshot failed",
				slog.String("deck_id", deckID),
				slog.String("error", cerr.Error()))
		}
		return nil, nil
	}
	return &snap, nil
}

// PutSessionSnapshot replaces the saved session for the snapshot's deck.
func (db *DB) PutSessionSnapshot(ctx context.Context, snap models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return wrap("encode session", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO sessions (deck_id, snapshot, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(deck_id) DO UPDATE SET
			snapshot   = excluded.snapshot,
			updated_at = excluded.updated_at
	`, snap.DeckID, string(data), utc(snap.UpdatedAt))
	if err != nil {
		return wrap("put session", err)
	}
	return nil
}

// ClearSessionSnapshot removes the saved session for deckID, if any.
func (db *DB) ClearSessionSnapshot(ctx context.Context, deckID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE deck_id = ?`, deckID); err != nil {
		return wrap("clear session", err)
	}
	return nil
}
