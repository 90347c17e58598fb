// Package session implements the study-session engine: the ordered card
// queue of one sitting and the coordinator that drives it against a
// RecordStore.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/models"
)

// RecordStore is the durable storage the session engine needs.
// Implementations return apperr.ErrNotFound for missing cards and wrap
// driver failures in apperr.ErrStorage.
type RecordStore interface {
	GetCard(ctx context.Context, id string) (*models.Flashcard, error)
	// PutCard overwrites the full card record.
	PutCard(ctx context.Context, card models.Flashcard) error
	GetCardsForDeck(ctx context.Context, deckID string) ([]models.Flashcard, error)
	// GetSessionSnapshot returns nil, nil when no snapshot exists for deckID.
	GetSessionSnapshot(ctx context.Context, deckID string) (*models.SessionSnapshot, error)
	PutSessionSnapshot(ctx context.Context, snap models.SessionSnapshot) error
	ClearSessionSnapshot(ctx context.Context, deckID string) error
	TouchDeckLastStudied(ctx context.Context, deckID string, at time.Time) error
}

// DroppedCardError is returned by Rate when the current card no longer
// exists in the store. The card was removed from the queue unrated and the
// session moved on. It matches apperr.ErrNotFound.
type DroppedCardError struct {
	CardID string
}

func (e *DroppedCardError) Error() string {
	return fmt.Sprintf("card %s dropped: %v", e.CardID, apperr.ErrNotFound)
}

func (e *DroppedCardError) Unwrap() error { return apperr.ErrNotFound }

// Notifier receives session lifecycle events.
type Notifier interface {
	PublishSessionEvent(kind, deckID, sessionID string)
}

// Event kinds passed to Notifier.
const (
	EventStarted  = "session.started"
	EventRated    = "session.rated"
	EventFinished = "session.finished"
	EventExited   = "session.exited"
)
