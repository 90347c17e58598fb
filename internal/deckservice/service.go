// Package deckservice implements deck and card management on top of the
// record store.
package deckservice

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/models"
	"github.com/starford/memoracard/internal/storage"
)

// Length limits for user-entered text, counted in characters after trimming.
const (
	MaxDeckNameLength = 100
	MaxQuestionLength = 500
	MaxAnswerLength   = 1000
)

// Notifier receives deck change events.
type Notifier interface {
	PublishDeckEvent(kind, deckID, path string)
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the receiver of deck change events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service validates input and coordinates deck and card storage.
type Service struct {
	db       *storage.DB
	notifier Notifier
	now      func() time.Time
}

// NewService creates a new deck service.
func NewService(db *storage.DB, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type deckInput struct {
	Name string
}

func (d deckInput) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required, validation.RuneLength(1, MaxDeckNameLength)),
	)
}

type cardInput struct {
	Question string
	Answer   string
}

func (c cardInput) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Question, validation.Required, validation.RuneLength(1, MaxQuestionLength)),
		validation.Field(&c.Answer, validation.Required, validation.RuneLength(1, MaxAnswerLength)),
	)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

// ListDecks returns every deck, newest first, with computed counts.
func (s *Service) ListDecks(ctx context.Context) ([]models.Deck, error) {
	return s.db.ListDecks(ctx)
}

// GetDeck returns one deck.
func (s *Service) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	return s.db.GetDeck(ctx, id)
}

// CreateDeck creates an empty deck named name.
func (s *Service) CreateDeck(ctx context.Context, name string) (*models.Deck, error) {
	in := deckInput{Name: strings.TrimSpace(name)}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	d := models.Deck{ID: uuid.NewString(), Name: in.Name, CreatedAt: s.now()}
	if err := s.db.CreateDeck(ctx, d); err != nil {
		return nil, err
	}
	s.notify("created", d.ID)
	return s.db.GetDeck(ctx, d.ID)
}

// RenameDeck changes a deck's name.
func (s *Service) RenameDeck(ctx context.Context, id, name string) (*models.Deck, error) {
	in := deckInput{Name: strings.TrimSpace(name)}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.db.RenameDeck(ctx, id, in.Name); err != nil {
		return nil, err
	}
	s.notify("updated", id)
	return s.db.GetDeck(ctx, id)
}

// DeleteDeck removes a deck and all of its cards.
func (s *Service) DeleteDeck(ctx context.Context, id string) error {
	if err := s.db.DeleteDeck(ctx, id); err != nil {
		return err
	}
	s.notify("deleted", id)
	return nil
}

// ListCards returns a deck's cards ordered by due date, soonest first, with
// newer cards first among equal due dates.
func (s *Service) ListCards(ctx context.Context, deckID string) ([]models.Flashcard, error) {
	if _, err := s.db.GetDeck(ctx, deckID); err != nil {
		return nil, err
	}
	cards, err := s.db.GetCardsForDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(cards, func(a, b models.Flashcard) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return cards, nil
}

// GetCard returns a card that belongs to deckID.
func (s *Service) GetCard(ctx context.Context, deckID, cardID string) (*models.Flashcard, error) {
	c, err := s.db.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if c.DeckID != deckID {
		return nil, fmt.Errorf("card %s in deck %s: %w", cardID, deckID, apperr.ErrNotFound)
	}
	return c, nil
}

// AddCard creates a new card that is due immediately.
func (s *Service) AddCard(ctx context.Context, deckID, question, answer string) (*models.Flashcard, error) {
	in := cardInput{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	c := models.NewFlashcard(uuid.NewString(), deckID, in.Question, in.Answer, s.now())
	if err := s.db.PutCard(ctx, c); err != nil {
		return nil, err
	}
	s.notify("updated", deckID)
	return &c, nil
}

// UpdateCard replaces a card's question and answer. Scheduling is kept.
func (s *Service) UpdateCard(ctx context.Context, deckID, cardID, question, answer string) (*models.Flashcard, error) {
	in := cardInput{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	c, err := s.GetCard(ctx, deckID, cardID)
	if err != nil {
		return nil, err
	}
	c.Question = in.Question
	c.Answer = in.Answer
	if err := s.db.PutCard(ctx, *c); err != nil {
		return nil, err
	}
	s.notify("updated", deckID)
	return c, nil
}

// DeleteCard removes a card from its deck.
func (s *Service) DeleteCard(ctx context.Context, deckID, cardID string) error {
	if _, err := s.GetCard(ctx, deckID, cardID); err != nil {
		return err
	}
	if err := s.db.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	s.notify("updated", deckID)
	return nil
}

// StudyCards returns every card of the deck for a study session. Cards that
// are not yet due are included so the deck can be reviewed ahead.
func (s *Service) StudyCards(ctx context.Context, deckID string) ([]models.Flashcard, error) {
	if _, err := s.db.GetDeck(ctx, deckID); err != nil {
		return nil, err
	}
	return s.db.GetCardsForDeck(ctx, deckID)
}

// DueCards returns the deck's cards that are due now, soonest first.
func (s *Service) DueCards(ctx context.Context, deckID string) ([]models.Flashcard, error) {
	cards, err := s.ListCards(ctx, deckID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return slices.DeleteFunc(cards, func(c models.Flashcard) bool { return !c.IsDue(now) }), nil
}

// SearchCards finds cards whose question or answer matches query.
func (s *Service) SearchCards(ctx context.Context, query string, limit int) ([]models.Flashcard, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrInvalidInput)
	}
	return s.db.SearchCards(ctx, query, limit)
}

func (s *Service) notify(kind, deckID string) {
	if s.notifier != nil {
		s.notifier.PublishDeckEvent(kind, deckID, "")
	}
}
