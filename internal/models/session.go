package models

import (
	"math"
	"time"
)

// RatingCounts tallies ratings given during a session.
type RatingCounts struct {
	Again int `json:"again"`
	Hard  int `json:"hard"`
	Good  int `json:"good"`
	Easy  int `json:"easy"`
}

// Add increments the counter for r.
func (c *RatingCounts) Add(r CardRating) {
	switch r {
	case RatingAgain:
		c.Again++
	case RatingHard:
		c.Hard++
	case RatingGood:
		c.Good++
	case RatingEasy:
		c.Easy++
	}
}

// SessionStats are the running statistics of one sitting.
// Duration is whole seconds since the session started.
type SessionStats struct {
	TotalStudied   int          `json:"total_studied"`
	CorrectCount   int          `json:"correct_count"`
	IncorrectCount int          `json:"incorrect_count"`
	Duration       int64        `json:"duration_seconds"`
	ByRating       RatingCounts `json:"by_rating"`
}

// Record applies one rating to the statistics.
func (s *SessionStats) Record(r CardRating) {
	s.TotalStudied++
	if r.Passed() {
		s.CorrectCount++
	} else {
		s.IncorrectCount++
	}
	s.ByRating.Add(r)
}

// SessionSnapshot is the durable form of an in-progress session.
type SessionSnapshot struct {
	DeckID            string       `json:"deck_id"`
	Queue             []Flashcard  `json:"queue"`
	TotalSessionCards int          `json:"total_session_cards"`
	Stats             SessionStats `json:"stats"`
	StartedAt         time.Time    `json:"started_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// SessionSummary is reported once a session finishes.
type SessionSummary struct {
	DeckID         string       `json:"deck_id"`
	TotalStudied   int          `json:"total_studied"`
	CorrectCount   int          `json:"correct_count"`
	IncorrectCount int          `json:"incorrect_count"`
	Accuracy       int          `json:"accuracy"`
	Duration       int64        `json:"duration_seconds"`
	ByRating       RatingCounts `json:"by_rating"`
}

// Summarize builds a summary from final statistics. Accuracy is a rounded
// percentage, zero when nothing was studied.
func Summarize(deckID string, s SessionStats) SessionSummary {
	acc := 0
	if s.TotalStudied > 0 {
		acc = int(math.Round(float64(s.CorrectCount) / float64(s.TotalStudied) * 100))
	}
	return SessionSummary{
		DeckID:         deckID,
		TotalStudied:   s.TotalStudied,
		CorrectCount:   s.CorrectCount,
		IncorrectCount: s.IncorrectCount,
		Accuracy:       acc,
		Duration:       s.Duration,
		ByRating:       s.ByRating,
	}
}
