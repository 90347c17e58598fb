package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/models"
)

// Manager tracks live coordinators by handle. Each deck has at most one
// live session; starting another one detaches the previous coordinator and
// resumes from its snapshot.
type Manager struct {
	store RecordStore
	opts  []Option

	mu       sync.Mutex
	sessions map[string]*Coordinator
	byDeck   map[string]string
	starting map[string]*deckLock
}

// deckLock serializes StartSession calls for one deck. refs counts holders
// and waiters so the entry can be dropped once idle.
type deckLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a manager whose coordinators use store and opts.
func NewManager(store RecordStore, opts ...Option) *Manager {
	return &Manager{
		store:    store,
		opts:     opts,
		sessions: make(map[string]*Coordinator),
		byDeck:   make(map[string]string),
		starting: make(map[string]*deckLock),
	}
}

func (m *Manager) lockDeck(deckID string) (unlock func()) {
	m.mu.Lock()
	l, ok := m.starting[deckID]
	if !ok {
		l = &deckLock{}
		m.starting[deckID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.starting, deckID)
		}
		m.mu.Unlock()
	}
}

// StartSession starts (or resumes) a session for deckID over cards.
// Concurrent starts for the same deck run one after another, so each one
// detaches the coordinator registered by the previous.
func (m *Manager) StartSession(ctx context.Context, deckID string, cards []models.Flashcard) (*Coordinator, error) {
	unlock := m.lockDeck(deckID)
	defer unlock()

	m.mu.Lock()
	prev := m.sessions[m.byDeck[deckID]]
	m.mu.Unlock()

	if prev != nil {
		prev.detach()
	}

	c := NewCoordinator(m.store, m.opts...)
	startErr := c.Start(ctx, deckID, cards)

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev != nil {
		delete(m.sessions, prev.ID())
		delete(m.byDeck, deckID)
	}
	if startErr != nil {
		return nil, startErr
	}
	m.sessions[c.ID()] = c
	m.byDeck[deckID] = c.ID()
	return c, nil
}

// Get returns the coordinator for handle.
func (m *Manager) Get(handle string) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[handle]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", handle, apperr.ErrNotFound)
	}
	return c, nil
}

// Exit abandons the session and forgets the handle.
func (m *Manager) Exit(ctx context.Context, handle string) error {
	c, err := m.Get(handle)
	if err != nil {
		return err
	}
	if err := c.Exit(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, handle)
	if m.byDeck[c.DeckID()] == handle {
		delete(m.byDeck, c.DeckID())
	}
	return nil
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
