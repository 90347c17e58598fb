package deckservice

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/memoracard/internal/apperr"
	"github.com/starford/memoracard/internal/storage"
)

type recorder struct {
	events []string
}

func (r *recorder) PublishDeckEvent(kind, deckID, _ string) {
	r.events = append(r.events, kind+":"+deckID)
}

func testService(t *testing.T, opts ...Option) (*Service, *time.Time) {
	t.Helper()
	f, err := os.CreateTemp("", "memoracard-deckservice-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	db, err := storage.Open(f.Name(), storage.WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewService(db, opts...), &now
}

func TestCreateDeck_Validation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	for _, name := range []string{"", "   ", strings.Repeat("x", MaxDeckNameLength+1)} {
		if _, err := svc.CreateDeck(ctx, name); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("CreateDeck(%q) err = %v, want invalid input", name, err)
		}
	}

	d, err := svc.CreateDeck(ctx, "  Biology  ")
	if err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}
	if d.Name != "Biology" || d.ID == "" || d.CardCount != 0 {
		t.Errorf("deck = %+v", d)
	}
}

func TestRenameAndDeleteDeck(t *testing.T) {
	rec := &recorder{}
	svc, _ := testService(t, WithNotifier(rec))
	ctx := context.Background()

	d, _ := svc.CreateDeck(ctx, "Old")
	renamed, err := svc.RenameDeck(ctx, d.ID, "New")
	if err != nil {
		t.Fatalf("RenameDeck: %v", err)
	}
	if renamed.Name != "New" {
		t.Errorf("name = %q", renamed.Name)
	}
	if _, err := svc.RenameDeck(ctx, d.ID, ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank rename err = %v", err)
	}
	if _, err := svc.AddCard(ctx, d.ID, "q", "a"); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDeck(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDeck: %v", err)
	}
	if _, err := svc.GetDeck(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deck survived delete: %v", err)
	}
	if _, err := svc.ListCards(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cards of deleted deck listed: %v", err)
	}

	want := []string{"created:" + d.ID, "updated:" + d.ID, "updated:" + d.ID, "deleted:" + d.ID}
	if strings.Join(rec.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestAddCard(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()
	d, _ := svc.CreateDeck(ctx, "Deck")

	c, err := svc.AddCard(ctx, d.ID, "  What is 2+2? ", " 4 ")
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if c.Question != "What is 2+2?" || c.Answer != "4" {
		t.Errorf("not trimmed: %+v", c)
	}
	if c.Interval != 0 || c.Repetition != 0 || c.EaseFactor != 2.5 || !c.DueDate.Equal(*now) {
		t.Errorf("defaults = %+v", c)
	}

	cases := []struct{ q, a string }{
		{"", "a"},
		{"q", "  "},
		{strings.Repeat("q", MaxQuestionLength+1), "a"},
		{"q", strings.Repeat("a", MaxAnswerLength+1)},
	}
	for _, tc := range cases {
		if _, err := svc.AddCard(ctx, d.ID, tc.q, tc.a); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("AddCard(%d, %d chars) err = %v", len(tc.q), len(tc.a), err)
		}
	}
	if _, err := svc.AddCard(ctx, "missing", "q", "a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing deck err = %v", err)
	}

	deck, _ := svc.GetDeck(ctx, d.ID)
	if deck.CardCount != 1 || deck.DueCount != 1 {
		t.Errorf("counts = %d/%d", deck.CardCount, deck.DueCount)
	}
}

func TestUpdateCardKeepsScheduling(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	d, _ := svc.CreateDeck(ctx, "Deck")
	c, _ := svc.AddCard(ctx, d.ID, "q", "a")

	c.Repetition = 2
	c.Interval = 6
	if err := svc.db.PutCard(ctx, *c); err != nil {
		t.Fatal(err)
	}

	got, err := svc.UpdateCard(ctx, d.ID, c.ID, "q2", "a2")
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if got.Question != "q2" || got.Answer != "a2" || got.Repetition != 2 || got.Interval != 6 {
		t.Errorf("card = %+v", got)
	}

	other, _ := svc.CreateDeck(ctx, "Other")
	if _, err := svc.UpdateCard(ctx, other.ID, c.ID, "q", "a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-deck update err = %v", err)
	}
	if err := svc.DeleteCard(ctx, other.ID, c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-deck delete err = %v", err)
	}
	if err := svc.DeleteCard(ctx, d.ID, c.ID); err != nil {
		t.Errorf("DeleteCard: %v", err)
	}
}

func TestListCardsOrdering(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()
	d, _ := svc.CreateDeck(ctx, "Deck")

	first, _ := svc.AddCard(ctx, d.ID, "first", "a")
	*now = now.Add(time.Minute)
	second, _ := svc.AddCard(ctx, d.ID, "second", "a")
	*now = now.Add(time.Minute)
	later, _ := svc.AddCard(ctx, d.ID, "later", "a")

	// Same due date for first and second; later is due before both.
	first.DueDate = now.Add(time.Hour)
	second.DueDate = now.Add(time.Hour)
	later.DueDate = now.Add(-time.Hour)
	_ = svc.db.PutCard(ctx, *first)
	_ = svc.db.PutCard(ctx, *second)
	_ = svc.db.PutCard(ctx, *later)

	cards, err := svc.ListCards(ctx, d.ID)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	got := []string{cards[0].Question, cards[1].Question, cards[2].Question}
	want := []string{"later", "second", "first"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}

	due, err := svc.DueCards(ctx, d.ID)
	if err != nil || len(due) != 1 || due[0].ID != later.ID {
		t.Errorf("due = %+v, %v", due, err)
	}
}

func TestSearchCards(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	d, _ := svc.CreateDeck(ctx, "Deck")
	_, _ = svc.AddCard(ctx, d.ID, "photosynthesis", "light to sugar")

	if _, err := svc.SearchCards(ctx, "  ", 10); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank query err = %v", err)
	}
	res, err := svc.SearchCards(ctx, "photosynthesis", 10)
	if err != nil || len(res) != 1 {
		t.Errorf("results = %+v, %v", res, err)
	}
}
