package vault

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/memoracard/internal/models"
	"github.com/starford/memoracard/internal/storage"
)

// Result counts the work done by a Sync pass.
type Result struct {
	Imported int
	Removed  int
	// Stale lists the vault paths whose cards were removed.
	Stale []string
}

// DeckID derives a stable deck id from a vault path.
func DeckID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("memoracard:deck:"+path)).String()
}

// CardID derives a stable card id from the deck and question text, so
// editing an answer keeps the card's review history. n distinguishes
// repeated questions within one deck.
func CardID(deckID, question string, n int) string {
	key := deckID + "\n" + strings.ToLower(strings.TrimSpace(question))
	if n > 0 {
		key += "\n" + strconv.Itoa(n)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("memoracard:card:"+key)).String()
}

// Sync walks the vault and brings the store up to date:
//   - new/changed files are parsed and imported
//   - files removed from disk have their cards removed
func Sync(ctx context.Context, db *storage.DB, fsys *FS, logger *slog.Logger) (Result, error) {
	var res Result

	metas, err := fsys.List()
	if err != nil {
		return res, err
	}
	known, err := db.VaultFiles(ctx)
	if err != nil {
		return res, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if known[m.Path].Checksum == m.Checksum {
			continue
		}

		data, err := fsys.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := ImportFile(ctx, db, m.Path, data, time.Now()); err != nil {
			logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		res.Imported++
		logger.Debug("sync: imported", slog.String("path", m.Path))
	}

	for p := range known {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteVaultFile(ctx, p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		res.Removed++
		res.Stale = append(res.Stale, p)
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return res, nil
}

// ImportFile parses one deck file and writes its deck and cards. Existing
// cards keep their scheduling state; cards no longer in the file are
// removed. It returns the deck id.
func ImportFile(ctx context.Context, db *storage.DB, path string, data []byte, now time.Time) (string, error) {
	df, err := Parse(path, data)
	if err != nil {
		return "", err
	}

	deckID := df.ID
	if deckID == "" {
		deckID = DeckID(path)
	}
	if err := db.UpsertDeck(ctx, models.Deck{ID: deckID, Name: df.Name, CreatedAt: now}); err != nil {
		return "", fmt.Errorf("import %s: %w", path, err)
	}

	seen := make(map[string]int, len(df.Cards))
	ids := make([]string, 0, len(df.Cards))
	for i, entry := range df.Cards {
		norm := strings.ToLower(strings.TrimSpace(entry.Question))
		id := CardID(deckID, entry.Question, seen[norm])
		seen[norm]++

		// Offset creation times so cards keep their file order.
		card := models.NewFlashcard(id, deckID, entry.Question, entry.Answer, now.Add(time.Duration(i)*time.Millisecond))
		card.Source = path
		if err := db.UpsertCardContent(ctx, card); err != nil {
			return "", fmt.Errorf("import %s: %w", path, err)
		}
		ids = append(ids, id)
	}

	if _, err := db.DeleteCardsBySourceExcept(ctx, path, ids); err != nil {
		return "", fmt.Errorf("import %s: %w", path, err)
	}
	if err := db.PutVaultFile(ctx, storage.VaultFile{Path: path, Checksum: checksum(data), DeckID: deckID}); err != nil {
		return "", fmt.Errorf("import %s: %w", path, err)
	}
	return deckID, nil
}

// Export renders a deck and its cards in the vault file format.
func Export(ctx context.Context, db *storage.DB, deckID string) ([]byte, error) {
	deck, err := db.GetDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	cards, err := db.GetCardsForDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	df := DeckFile{ID: deck.ID, Name: deck.Name, Cards: make([]CardEntry, 0, len(cards))}
	for _, c := range cards {
		df.Cards = append(df.Cards, CardEntry{Question: c.Question, Answer: c.Answer})
	}
	return Render(df), nil
}
