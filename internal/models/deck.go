package models

import "time"

// Deck groups flashcards. CardCount is computed from the card table on read.
type Deck struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CreatedAt     time.Time  `json:"created_at"`
	LastStudiedAt *time.Time `json:"last_studied_at"`
	CardCount     int        `json:"card_count"`
	DueCount      int        `json:"due_count"`
}
