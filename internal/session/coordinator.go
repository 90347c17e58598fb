package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/models"
	"github.com/starford/memoracard/internal/review"
)

// State is the lifecycle position of a Coordinator.
type State int

const (
	StateInitializing State = iota
	StateActive
	StateFinished
	// StateClosed follows Exit; nothing can be done with the session anymore.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithNotifier sets the receiver of session events.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// Coordinator drives one study session for one deck.
//
// A single caller is expected to issue one rating at a time. Rate rejects a
// second rating with apperr.ErrBusy while the first is still persisting;
// Exit and Restart wait for it to finish.
type Coordinator struct {
	id       string
	store    RecordStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	rating atomic.Bool

	mu        sync.RWMutex
	state     State
	deckID    string
	original  []models.Flashcard
	queue     *Queue
	total     int
	stats     models.SessionStats
	startedAt time.Time
	summary   *models.SessionSummary
}

// NewCoordinator returns a coordinator in StateInitializing.
func NewCoordinator(store RecordStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		id:     uuid.NewString(),
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		queue:  ResumeQueue(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the session handle.
func (c *Coordinator) ID() string { return c.id }

// DeckID returns the deck being studied.
func (c *Coordinator) DeckID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deckID
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Start initializes the session. A stored snapshot for deckID is resumed
// with its queue order untouched; otherwise cards are ordered due-first.
func (c *Coordinator) Start(ctx context.Context, deckID string, cards []models.Flashcard) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInitializing {
		return fmt.Errorf("start in state %s: %w", c.state, apperr.ErrInvalidState)
	}

	snap, err := c.store.GetSessionSnapshot(ctx, deckID)
	if err != nil {
		return storageErr("load session snapshot", err)
	}

	now := c.now()
	c.deckID = deckID
	c.original = ResumeQueue(cards).Cards()

	if snap != nil && snap.DeckID == deckID && len(snap.Queue) > 0 {
		c.queue = ResumeQueue(snap.Queue)
		c.total = max(len(cards), len(snap.Queue))
		c.stats = snap.Stats
		c.startedAt = snap.StartedAt
		if c.startedAt.IsZero() {
			c.startedAt = now
		}
		c.logger.Info("session resumed",
			slog.String("session", c.id),
			slog.String("deck_id", deckID),
			slog.Int("remaining", c.queue.Len()))
	} else {
		c.queue = NewQueue(cards, now)
		c.total = len(cards)
		c.stats = models.SessionStats{}
		c.startedAt = now
	}

	if !c.queue.IsEmpty() {
		if err := c.store.PutSessionSnapshot(ctx, c.snapshotLocked(now)); err != nil {
			return storageErr("save session snapshot", err)
		}
	}

	c.state = StateActive
	c.notify(EventStarted)
	return nil
}

// CurrentCard returns the head of the queue while the session is active.
func (c *Coordinator) CurrentCard() (models.Flashcard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateActive {
		return models.Flashcard{}, false
	}
	return c.queue.Head()
}

// Rate applies rating to the current card.
//
// The updated card is written before any in-memory state changes; if that
// write fails the session is left untouched and the error wraps
// apperr.ErrStorage. A failure to save the session snapshot afterwards is
// reported as apperr.ErrCheckpoint: the rating itself stands. A current
// card that no longer exists is skipped and reported as *DroppedCardError.
func (c *Coordinator) Rate(ctx context.Context, rating models.CardRating) error {
	if !rating.IsValid() {
		return fmt.Errorf("rating %d: %w", int(rating), apperr.ErrInvalidInput)
	}
	if !c.rating.CompareAndSwap(false, true) {
		return apperr.ErrBusy
	}
	defer c.rating.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return fmt.Errorf("rate in state %s: %w", c.state, apperr.ErrInvalidState)
	}
	head, ok := c.queue.Head()
	if !ok {
		return fmt.Errorf("rate with empty queue: %w", apperr.ErrInvalidState)
	}

	current, err := c.store.GetCard(ctx, head.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		// The card was deleted mid-session; drop it without counting it.
		c.logger.Warn("session card vanished",
			slog.String("session", c.id),
			slog.String("card_id", head.ID))
		c.queue.Advance(true)
		dropped := &DroppedCardError{CardID: head.ID}
		if aerr := c.afterAdvance(ctx, c.now()); aerr != nil {
			return errors.Join(dropped, aerr)
		}
		return dropped
	}
	if err != nil {
		return storageErr("load card", err)
	}

	now := c.now()
	updated := review.Apply(*current, rating, now)
	if err := c.store.PutCard(ctx, updated); err != nil {
		return storageErr("save card", err)
	}

	c.stats.Record(rating)
	c.stats.Duration = c.elapsed(now)
	c.queue.ReplaceHead(updated)
	c.queue.Advance(rating.Passed())

	c.logger.Debug("card rated",
		slog.String("session", c.id),
		slog.String("card_id", updated.ID),
		slog.String("rating", rating.String()),
		slog.Int("interval", updated.Interval),
		slog.Int("remaining", c.queue.Len()))
	c.notify(EventRated)

	return c.afterAdvance(ctx, now)
}

// Finish ends an active session early, running the same sequence as when
// the last card is cleared.
func (c *Coordinator) Finish(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return fmt.Errorf("finish in state %s: %w", c.state, apperr.ErrInvalidState)
	}
	return c.finishLocked(ctx, c.now())
}

// Exit abandons the session: the stored snapshot is removed and no summary
// is produced. It waits for an in-flight rating to complete.
func (c *Coordinator) Exit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return nil
	case StateActive:
		if err := c.store.ClearSessionSnapshot(ctx, c.deckID); err != nil {
			return storageErr("clear session snapshot", err)
		}
	}
	c.state = StateClosed
	c.notify(EventExited)
	return nil
}

// Restart discards the queue and statistics and begins again from the card
// list originally passed to Start, in that order.
func (c *Coordinator) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateInitializing || c.state == StateClosed {
		return fmt.Errorf("restart in state %s: %w", c.state, apperr.ErrInvalidState)
	}

	now := c.now()
	c.queue = ResumeQueue(c.original)
	c.total = len(c.original)
	c.stats = models.SessionStats{}
	c.startedAt = now
	c.summary = nil
	c.state = StateActive
	c.notify(EventStarted)

	if c.queue.IsEmpty() {
		return nil
	}
	if err := c.store.PutSessionSnapshot(ctx, c.snapshotLocked(now)); err != nil {
		c.logger.Warn("session checkpoint failed",
			slog.String("session", c.id),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", apperr.ErrCheckpoint, err)
	}
	return nil
}

// Progress is the fraction of session cards cleared, in [0, 1].
func (c *Coordinator) Progress() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Progress(c.total, c.queue.Len())
}

// Remaining returns the number of cards left in the queue.
func (c *Coordinator) Remaining() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.Len()
}

// Total returns the progress denominator fixed at start.
func (c *Coordinator) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// Stats returns the running statistics.
func (c *Coordinator) Stats() models.SessionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// IsFinished reports whether the session reached StateFinished.
func (c *Coordinator) IsFinished() bool {
	return c.State() == StateFinished
}

// Summary is only available once the session is finished.
func (c *Coordinator) Summary() (models.SessionSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateFinished || c.summary == nil {
		return models.SessionSummary{}, fmt.Errorf("summary in state %s: %w", c.state, apperr.ErrInvalidState)
	}
	return *c.summary, nil
}

// Snapshot returns the state that would be persisted right now.
func (c *Coordinator) Snapshot() models.SessionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(c.now())
}

// detach closes the coordinator without touching storage. Used when another
// coordinator takes over the same deck and resumes its snapshot.
func (c *Coordinator) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
}

func (c *Coordinator) afterAdvance(ctx context.Context, now time.Time) error {
	if c.queue.IsEmpty() {
		return c.finishLocked(ctx, now)
	}
	if err := c.store.PutSessionSnapshot(ctx, c.snapshotLocked(now)); err != nil {
		c.logger.Warn("session checkpoint failed",
			slog.String("session", c.id),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", apperr.ErrCheckpoint, err)
	}
	return nil
}

func (c *Coordinator) finishLocked(ctx context.Context, now time.Time) error {
	c.stats.Duration = c.elapsed(now)
	summary := models.Summarize(c.deckID, c.stats)
	c.summary = &summary
	c.state = StateFinished

	err := errors.Join(
		c.store.TouchDeckLastStudied(ctx, c.deckID, now),
		c.store.ClearSessionSnapshot(ctx, c.deckID),
	)

	c.logger.Info("session finished",
		slog.String("session", c.id),
		slog.String("deck_id", c.deckID),
		slog.Int("studied", summary.TotalStudied),
		slog.Int("accuracy", summary.Accuracy))
	c.notify(EventFinished)

	if err != nil {
		c.logger.Warn("session finish bookkeeping failed",
			slog.String("session", c.id),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", apperr.ErrCheckpoint, err)
	}
	return nil
}

func (c *Coordinator) snapshotLocked(now time.Time) models.SessionSnapshot {
	return models.SessionSnapshot{
		DeckID:            c.deckID,
		Queue:             c.queue.Cards(),
		TotalSessionCards: c.total,
		Stats:             c.stats,
		StartedAt:         c.startedAt,
		UpdatedAt:         now,
	}
}

func (c *Coordinator) elapsed(now time.Time) int64 {
	return int64(now.Sub(c.startedAt) / time.Second)
}

func (c *Coordinator) notify(kind string) {
	if c.notifier != nil {
		c.notifier.PublishSessionEvent(kind, c.deckID, c.id)
	}
}

func storageErr(op string, err error) error {
	if errors.Is(err, apperr.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorage, err)
}
