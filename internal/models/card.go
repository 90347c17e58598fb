// Package models defines the domain types for memoracard.
package models

import "time"

// Scheduling defaults for a card that has never been reviewed.
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// Flashcard is a single question/answer pair with its scheduling state.
type Flashcard struct {
	ID           string     `json:"id"`
	DeckID       string     `json:"deck_id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	CreatedAt    time.Time  `json:"created_at"`
	Interval     int        `json:"interval"`
	EaseFactor   float64    `json:"ease_factor"`
	Repetition   int        `json:"repetition"`
	DueDate      time.Time  `json:"due_date"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
	// Source is the vault file the card was imported from; empty for cards
	// created through the API.
	Source string `json:"source,omitempty"`
}

// NewFlashcard returns a card that is immediately due.
func NewFlashcard(id, deckID, question, answer string, now time.Time) Flashcard {
	return Flashcard{
		ID:         id,
		DeckID:     deckID,
		Question:   question,
		Answer:     answer,
		CreatedAt:  now,
		Interval:   0,
		EaseFactor: DefaultEaseFactor,
		Repetition: 0,
		DueDate:    now,
	}
}

// IsDue reports whether the card's due date is at or before now.
func (c Flashcard) IsDue(now time.Time) bool {
	return !c.DueDate.After(now)
}

// Clone returns a copy that shares no memory with c.
func (c Flashcard) Clone() Flashcard {
	out := c
	if c.LastReviewed != nil {
		v := *c.LastReviewed
		out.LastReviewed = &v
	}
	return out
}
