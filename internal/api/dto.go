package api

import (
	"time"

	"github.com/starford/memoracard/internal/models"
	"github.com/starford/memoracard/internal/session"
)

// DeckRequest is the request body for creating or renaming a deck.
type DeckRequest struct {
	Name string `json:"name" example:"Spanish verbs" validate:"required"`
}

// CardRequest is the request body for creating or editing a card.
type CardRequest struct {
	Question string `json:"question" example:"to eat" validate:"required"`
	Answer   string `json:"answer" example:"comer" validate:"required"`
}

// RateRequest is the request body for rating the current card.
type RateRequest struct {
	Rating models.CardRating `json:"rating" swaggertype:"string" enums:"again,hard,good,easy" validate:"required"`
}

// DeckListResponse wraps deck listings.
type DeckListResponse struct {
	Decks []models.Deck `json:"decks" validate:"required"`
}

// CardListResponse wraps card listings.
type CardListResponse struct {
	Cards []models.Flashcard `json:"cards" validate:"required"`
}

// SessionCard is the card currently shown in a session.
type SessionCard struct {
	ID       string    `json:"id" validate:"required"`
	Question string    `json:"question" validate:"required"`
	Answer   string    `json:"answer" validate:"required"`
	DueDate  time.Time `json:"due_date" validate:"required"`
	// ReviewingAhead is true when the card is not due yet.
	ReviewingAhead bool `json:"reviewing_ahead"`
}

// SessionView describes a study session.
type SessionView struct {
	ID        string              `json:"id" validate:"required"`
	DeckID    string              `json:"deck_id" validate:"required"`
	State     string              `json:"state" example:"active" validate:"required"`
	Card      *SessionCard        `json:"card,omitempty"`
	Progress  float64             `json:"progress" example:"0.5"`
	Remaining int                 `json:"remaining" example:"3"`
	Total     int                 `json:"total" example:"6"`
	Finished  bool                `json:"finished"`
	Stats     models.SessionStats `json:"stats"`
	// Warning is set when the last operation succeeded but the session
	// could not be checkpointed.
	Warning string `json:"warning,omitempty"`
	// DroppedCard names a card that was deleted while it was being studied.
	// It was skipped unrated and the session moved on.
	DroppedCard string `json:"dropped_card,omitempty"`
}

func newSessionView(c *session.Coordinator, now time.Time) SessionView {
	v := SessionView{
		ID:        c.ID(),
		DeckID:    c.DeckID(),
		State:     c.State().String(),
		Progress:  c.Progress(),
		Remaining: c.Remaining(),
		Total:     c.Total(),
		Finished:  c.IsFinished(),
		Stats:     c.Stats(),
	}
	if card, ok := c.CurrentCard(); ok {
		v.Card = &SessionCard{
			ID:             card.ID,
			Question:       card.Question,
			Answer:         card.Answer,
			DueDate:        card.DueDate,
			ReviewingAhead: !card.IsDue(now),
		}
	}
	return v
}
