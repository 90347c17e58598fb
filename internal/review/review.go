// Package review implements the SM-2 derived scheduling policy.
//
// Apply is pure: it reads nothing but its arguments and never fails.
// Records persisted before scheduling fields existed are repaired by
// Normalize before the update is computed.
package review

import (
	"math"
	"time"

	"github.com/starford/memoracard/internal/models"
)

// Day is the length of one interval unit.
const Day = 24 * time.Hour

// Apply computes the card's next scheduling state after it was rated at now.
// Invalid ratings are treated as RatingAgain.
func Apply(card models.Flashcard, rating models.CardRating, now time.Time) models.Flashcard {
	next := Normalize(card)
	if !rating.IsValid() {
		rating = models.RatingAgain
	}
	q := float64(rating.Quality())

	if rating == models.RatingAgain {
		next.Repetition = 0
		next.Interval = 1
	} else {
		switch next.Repetition {
		case 0:
			next.Interval = 1
		case 1:
			next.Interval = 6
		default:
			next.Interval = max(1, int(math.Round(float64(next.Interval)*next.EaseFactor)))
		}
		next.Repetition++
	}

	next.EaseFactor = nextEase(next.EaseFactor, q)
	next.DueDate = now.Add(time.Duration(next.Interval) * Day)
	reviewed := now
	next.LastReviewed = &reviewed
	return next
}

// nextEase applies the SM-2 ease adjustment, floored at MinEaseFactor.
func nextEase(ease, quality float64) float64 {
	d := 5 - quality
	ease += 0.1 - d*(0.08+d*0.02)
	return math.Max(models.MinEaseFactor, ease)
}

// Normalize substitutes defaults for missing or malformed scheduling fields.
// A zero ease factor is read as absent; a positive one below the floor is
// clamped to it.
func Normalize(card models.Flashcard) models.Flashcard {
	out := card.Clone()
	if out.Interval < 0 {
		out.Interval = 0
	}
	if out.Repetition < 0 {
		out.Repetition = 0
	}
	switch {
	case out.EaseFactor <= 0 || math.IsNaN(out.EaseFactor) || math.IsInf(out.EaseFactor, 0):
		out.EaseFactor = models.DefaultEaseFactor
	case out.EaseFactor < models.MinEaseFactor:
		out.EaseFactor = models.MinEaseFactor
	}
	if out.DueDate.IsZero() {
		out.DueDate = out.CreatedAt
	}
	return out
}
