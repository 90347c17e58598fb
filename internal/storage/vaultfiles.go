package storage

import (
	"context"
	"database/sql"
)

// VaultFile records which deck a vault file was imported into.
type VaultFile struct {
	Path     string
	Checksum string
	DeckID   string
}

// VaultFiles returns every imported vault file keyed by path.
func (db *DB) VaultFiles(ctx context.Context) (map[string]VaultFile, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum, deck_id FROM vault_files`)
	if err != nil {
		return nil, wrap("vault files", err)
	}
	defer rows.Close()

	out := make(map[string]VaultFile)
	for rows.Next() {
		var f VaultFile
		if err := rows.Scan(&f.Path, &f.Checksum, &f.DeckID); err != nil {
			return nil, wrap("scan vault file", err)
		}
		out[f.Path] = f
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("vault files", err)
	}
	return out, nil
}

// PutVaultFile records a successful import of f.
func (db *DB) PutVaultFile(ctx context.Context, f VaultFile) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO vault_files (path, checksum, deck_id) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum = excluded.checksum,
			deck_id  = excluded.deck_id
	`, f.Path, f.Checksum, f.DeckID)
	if err != nil {
		return wrap("put vault file", err)
	}
	return nil
}

// DeleteVaultFile forgets a vault file and removes the cards imported from
// it. The deck itself is removed when no cards remain in it.
func (db *DB) DeleteVaultFile(ctx context.Context, path string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		var deckID string
		err := tx.QueryRowContext(ctx, `SELECT deck_id FROM vault_files WHERE path = ?`, path).Scan(&deckID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return wrap("get vault file", err)
		}

		if err := ftsDeleteSource(ctx, tx, path); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE source = ?`, path); err != nil {
			return wrap("delete vault cards", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vault_files WHERE path = ?`, path); err != nil {
			return wrap("delete vault file", err)
		}

		var remaining int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM cards WHERE deck_id = ?`, deckID).Scan(&remaining); err != nil {
			return wrap("count deck cards", err)
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, deckID); err != nil {
				return wrap("delete empty deck", err)
			}
		}
		return nil
	})
}
