package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/models"
)

// memStore is an in-memory RecordStore with failure injection.
type memStore struct {
	mu      sync.Mutex
	cards   map[string]models.Flashcard
	snaps   map[string]models.SessionSnapshot
	touched map[string]time.Time

	putCardErr error
	putSnapErr error
	getSnapErr error
	// beforePutCard runs (outside the lock) at the start of PutCard.
	beforePutCard func()
	// beforeGetSnap runs (outside the lock) at the start of GetSessionSnapshot.
	beforeGetSnap func()
}

func newMemStore(cards ...models.Flashcard) *memStore {
	s := &memStore{
		cards:   make(map[string]models.Flashcard),
		snaps:   make(map[string]models.SessionSnapshot),
		touched: make(map[string]time.Time),
	}
	for _, c := range cards {
		s.cards[c.ID] = c.Clone()
	}
	return s
}

func (s *memStore) GetCard(_ context.Context, id string) (*models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, apperr.ErrNotFound)
	}
	out := c.Clone()
	return &out, nil
}

func (s *memStore) PutCard(_ context.Context, card models.Flashcard) error {
	if s.beforePutCard != nil {
		s.beforePutCard()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putCardErr != nil {
		return s.putCardErr
	}
	s.cards[card.ID] = card.Clone()
	return nil
}

func (s *memStore) GetCardsForDeck(_ context.Context, deckID string) ([]models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Flashcard
	for _, c := range s.cards {
		if c.DeckID == deckID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *memStore) GetSessionSnapshot(_ context.Context, deckID string) (*models.SessionSnapshot, error) {
	if s.beforeGetSnap != nil {
		s.beforeGetSnap()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getSnapErr != nil {
		return nil, s.getSnapErr
	}
	snap, ok := s.snaps[deckID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memStore) PutSessionSnapshot(_ context.Context, snap models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putSnapErr != nil {
		return s.putSnapErr
	}
	s.snaps[snap.DeckID] = snap
	return nil
}

func (s *memStore) ClearSessionSnapshot(_ context.Context, deckID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, deckID)
	return nil
}

func (s *memStore) TouchDeckLastStudied(_ context.Context, deckID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[deckID] = at
	return nil
}

func (s *memStore) card(id string) models.Flashcard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cards[id]
}

func (s *memStore) snapshot(deckID string) (models.SessionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[deckID]
	return snap, ok
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
