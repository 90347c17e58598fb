package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/models"
)

const deckSelect = `
	SELECT d.id, d.name, d.created_at, d.last_studied_at,
	       (SELECT count(*) FROM cards c WHERE c.deck_id = d.id),
	       (SELECT count(*) FROM cards c WHERE c.deck_id = d.id
	            AND (c.due_date IS NULL OR c.due_date <= ?))
	FROM decks d`

func scanDeck(row interface{ Scan(...any) error }) (models.Deck, error) {
	var (
		d       models.Deck
		studied sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt, &studied, &d.CardCount, &d.DueCount); err != nil {
		return models.Deck{}, err
	}
	d.LastStudiedAt = timePtr(studied)
	return d, nil
}

// CreateDeck inserts a new deck. A duplicate id is apperr.ErrAlreadyExists.
func (db *DB) CreateDeck(ctx context.Context, d models.Deck) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO decks (id, name, created_at, last_studied_at) VALUES (?, ?, ?, ?)`,
		d.ID, d.Name, utc(d.CreatedAt), nullTime(d.LastStudiedAt))
	if err != nil {
		return wrap("create deck", err)
	}
	return nil
}

// UpsertDeck inserts the deck or renames the existing one with the same id.
func (db *DB) UpsertDeck(ctx context.Context, d models.Deck) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO decks (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, d.ID, d.Name, utc(d.CreatedAt))
	if err != nil {
		return wrap("upsert deck", err)
	}
	return nil
}

// GetDeck returns one deck with computed card and due counts.
func (db *DB) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	row := db.conn.QueryRowContext(ctx, deckSelect+` WHERE d.id = ?`, utc(db.now()), id)
	d, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deck %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get deck", err)
	}
	return &d, nil
}

// ListDecks returns every deck, newest first.
func (db *DB) ListDecks(ctx context.Context) ([]models.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, deckSelect+` ORDER BY d.created_at DESC, d.id`, utc(db.now()))
	if err != nil {
		return nil, wrap("list decks", err)
	}
	defer rows.Close()

	out := []models.Deck{}
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, wrap("scan deck", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list decks", err)
	}
	return out, nil
}

// RenameDeck changes a deck's name.
func (db *DB) RenameDeck(ctx context.Context, id, name string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE decks SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return wrap("rename deck", err)
	}
	return expectRow(res, "deck", id)
}

// DeleteDeck removes a deck together with its cards and session snapshot.
func (db *DB) DeleteDeck(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if err := ftsDeleteDeck(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
		if err != nil {
			return wrap("delete deck", err)
		}
		if err := expectRow(res, "deck", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vault_files WHERE deck_id = ?`, id); err != nil {
			return wrap("delete deck vault files", err)
		}
		return nil
	})
}

// TouchDeckLastStudied records when a session for the deck last finished.
func (db *DB) TouchDeckLastStudied(ctx context.Context, deckID string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE decks SET last_studied_at = ? WHERE id = ?`, utc(at), deckID)
	if err != nil {
		return wrap("touch deck", err)
	}
	return expectRow(res, "deck", deckID)
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
	}
	return nil
}
