//go:build sqlite_fts5

package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/starford/memoracard/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS cards_fts USING fts5(
			card_id UNINDEXED,
			question,
			answer,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, id, question, answer string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM cards_fts WHERE card_id = ?`, id)
	_, err := tx.ExecContext(ctx, `INSERT INTO cards_fts (card_id, question, answer) VALUES (?, ?, ?)`,
		id, question, answer)
	if err != nil {
		return wrap("upsert fts", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cards_fts WHERE card_id = ?`, id); err != nil {
		return wrap("delete fts", err)
	}
	return nil
}

func ftsDeleteDeck(ctx context.Context, tx *sql.Tx, deckID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM cards_fts WHERE card_id IN (SELECT id FROM cards WHERE deck_id = ?)`, deckID)
	if err != nil {
		return wrap("delete deck fts", err)
	}
	return nil
}

func ftsDeleteSource(ctx context.Context, tx *sql.Tx, source string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM cards_fts WHERE card_id IN (SELECT id FROM cards WHERE source = ?)`, source)
	if err != nil {
		return wrap("delete source fts", err)
	}
	return nil
}

// SearchCards performs an FTS5 match over questions and answers.
func (db *DB) SearchCards(ctx context.Context, query string, limit int) ([]models.Flashcard, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryCards(ctx, "search cards", `
		SELECT `+prefixed("c.")+`
		FROM cards_fts f JOIN cards c ON c.id = f.card_id
		WHERE cards_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchQuery(query), limit)
}

// matchQuery quotes each term so punctuation in user input is not read as
// FTS5 query syntax. Terms are ANDed.
func matchQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
