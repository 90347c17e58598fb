package session

import (
	"slices"
	"time"

	"github.com/starford/memoracard/internal/models"
)

// Queue is the ordered working set of one sitting. It holds copies of the
// cards it was given; the head is the current card.
type Queue struct {
	cards []models.Flashcard
}

// NewQueue orders cards due-first, then by ascending due date. Ties keep
// their input order, so the result is deterministic for a fixed input and now.
func NewQueue(cards []models.Flashcard, now time.Time) *Queue {
	q := ResumeQueue(cards)
	slices.SortStableFunc(q.cards, func(a, b models.Flashcard) int {
		aDue, bDue := a.IsDue(now), b.IsDue(now)
		switch {
		case aDue && !bDue:
			return -1
		case !aDue && bDue:
			return 1
		}
		return a.DueDate.Compare(b.DueDate)
	})
	return q
}

// ResumeQueue keeps the given order verbatim.
func ResumeQueue(cards []models.Flashcard) *Queue {
	out := make([]models.Flashcard, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return &Queue{cards: out}
}

// Head returns the current card, or false when the queue is empty.
func (q *Queue) Head() (models.Flashcard, bool) {
	if len(q.cards) == 0 {
		return models.Flashcard{}, false
	}
	return q.cards[0].Clone(), true
}

// ReplaceHead swaps the head for a fresher copy of the same card.
func (q *Queue) ReplaceHead(c models.Flashcard) bool {
	if len(q.cards) == 0 {
		return false
	}
	q.cards[0] = c.Clone()
	return true
}

// Advance removes the head when pass is true and otherwise rotates it to the
// tail. The relative order of every other card is unchanged.
func (q *Queue) Advance(pass bool) bool {
	if len(q.cards) == 0 {
		return false
	}
	head := q.cards[0]
	q.cards = slices.Delete(q.cards, 0, 1)
	if !pass {
		q.cards = append(q.cards, head)
	}
	return true
}

// Len returns the number of cards still to clear.
func (q *Queue) Len() int { return len(q.cards) }

// IsEmpty reports whether every card has been cleared.
func (q *Queue) IsEmpty() bool { return len(q.cards) == 0 }

// Cards returns a copy of the remaining cards in order.
func (q *Queue) Cards() []models.Flashcard {
	out := make([]models.Flashcard, len(q.cards))
	for i, c := range q.cards {
		out[i] = c.Clone()
	}
	return out
}

// Progress is the share of the session's cards that have been cleared.
// An empty session counts as complete.
func Progress(total, remaining int) float64 {
	if total <= 0 {
		return 1
	}
	p := float64(total-remaining) / float64(total)
	return min(1, max(0, p))
}
