package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/models"
	"github.com/starford/memoracard/internal/review"
)

const cardColumns = `id, deck_id, question, answer, created_at,
	interval_days, ease_factor, repetition, due_date, last_reviewed, source`

// scanCard reads one card row. Missing scheduling columns are filled in by
// review.Normalize.
func scanCard(row interface{ Scan(...any) error }) (models.Flashcard, error) {
	var (
		c        models.Flashcard
		interval sql.NullInt64
		ease     sql.NullFloat64
		rep      sql.NullInt64
		due      sql.NullTime
		reviewed sql.NullTime
	)
	err := row.Scan(&c.ID, &c.DeckID, &c.Question, &c.Answer, &c.CreatedAt,
		&interval, &ease, &rep, &due, &reviewed, &c.Source)
	if err != nil {
		return models.Flashcard{}, err
	}
	c.Interval = int(interval.Int64)
	c.EaseFactor = ease.Float64
	c.Repetition = int(rep.Int64)
	if due.Valid {
		c.DueDate = due.Time
	}
	c.LastReviewed = timePtr(reviewed)
	return review.Normalize(c), nil
}

func (db *DB) queryCards(ctx context.Context, op, query string, args ...any) ([]models.Flashcard, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := []models.Flashcard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

// GetCard returns the card with id or apperr.ErrNotFound.
func (db *DB) GetCard(ctx context.Context, id string) (*models.Flashcard, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get card", err)
	}
	return &c, nil
}

// PutCard inserts or overwrites the full card record. A card whose deck
// does not exist is apperr.ErrNotFound.
func (db *DB) PutCard(ctx context.Context, c models.Flashcard) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (`+cardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				deck_id       = excluded.deck_id,
				question      = excluded.question,
				answer        = excluded.answer,
				interval_days = excluded.interval_days,
				ease_factor   = excluded.ease_factor,
				repetition    = excluded.repetition,
				due_date      = excluded.due_date,
				last_reviewed = excluded.last_reviewed,
				source        = excluded.source
		`, c.ID, c.DeckID, c.Question, c.Answer, utc(c.CreatedAt),
			c.Interval, c.EaseFactor, c.Repetition, utc(c.DueDate),
			nullTime(c.LastReviewed), c.Source)
		if err != nil {
			return wrap("put card", err)
		}
		return ftsUpsert(ctx, tx, c.ID, c.Question, c.Answer)
	})
}

// UpsertCardContent writes question, answer and source, keeping the
// scheduling state of an existing card. New cards get c's scheduling.
func (db *DB) UpsertCardContent(ctx context.Context, c models.Flashcard) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (`+cardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				question = excluded.question,
				answer   = excluded.answer,
				source   = excluded.source
		`, c.ID, c.DeckID, c.Question, c.Answer, utc(c.CreatedAt),
			c.Interval, c.EaseFactor, c.Repetition, utc(c.DueDate),
			nullTime(c.LastReviewed), c.Source)
		if err != nil {
			return wrap("upsert card content", err)
		}
		return ftsUpsert(ctx, tx, c.ID, c.Question, c.Answer)
	})
}

// GetCardsForDeck returns the deck's cards in creation order.
func (db *DB) GetCardsForDeck(ctx context.Context, deckID string) ([]models.Flashcard, error) {
	return db.queryCards(ctx, "cards for deck",
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? ORDER BY created_at, id`, deckID)
}

// CardsBySource returns the cards imported from one vault file.
func (db *DB) CardsBySource(ctx context.Context, source string) ([]models.Flashcard, error) {
	return db.queryCards(ctx, "cards by source",
		`SELECT `+cardColumns+` FROM cards WHERE source = ? ORDER BY created_at, id`, source)
}

// DeleteCard removes one card.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
		if err != nil {
			return wrap("delete card", err)
		}
		if err := expectRow(res, "card", id); err != nil {
			return err
		}
		return ftsDelete(ctx, tx, id)
	})
}

// DeleteCardsBySourceExcept removes cards imported from source whose ids
// are not in keep. It returns the number of cards removed.
func (db *DB) DeleteCardsBySourceExcept(ctx context.Context, source string, keep []string) (int, error) {
	query := `SELECT id FROM cards WHERE source = ?`
	args := []any{source}
	if len(keep) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(", ?", len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}

	var removed int
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return wrap("stale cards", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return wrap("scan stale card", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return wrap("stale cards", err)
		}

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id); err != nil {
				return wrap("delete stale card", err)
			}
			if err := ftsDelete(ctx, tx, id); err != nil {
				return err
			}
		}
		removed = len(ids)
		return nil
	})
	return removed, err
}

// DueCount returns how many of the deck's cards are due now.
func (db *DB) DueCount(ctx context.Context, deckID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT count(*) FROM cards
		WHERE deck_id = ? AND (due_date IS NULL OR due_date <= ?)
	`, deckID, utc(db.now())).Scan(&n)
	if err != nil {
		return 0, wrap("due count", err)
	}
	return n, nil
}

// prefixed qualifies every card column with a table alias.
func prefixed(alias string) string {
	cols := strings.Split(cardColumns, ",")
	for i, c := range cols {
		cols[i] = alias + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
