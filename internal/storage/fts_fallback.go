//go:build !sqlite_fts5

package storage

import (
	"context"
	"database/sql"

	"github.com/starford/memoracard/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the cards table.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) error { return nil }

func ftsDeleteDeck(_ context.Context, _ *sql.Tx, _ string) error { return nil }

func ftsDeleteSource(_ context.Context, _ *sql.Tx, _ string) error { return nil }

// SearchCards performs a LIKE search (fallback when FTS5 is not compiled in).
func (db *DB) SearchCards(ctx context.Context, query string, limit int) ([]models.Flashcard, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	return db.queryCards(ctx, "search cards", `
		SELECT `+prefixed("c.")+`
		FROM cards c
		WHERE c.question LIKE ? OR c.answer LIKE ?
		ORDER BY c.due_date, c.id
		LIMIT ?
	`, like, like, limit)
}
