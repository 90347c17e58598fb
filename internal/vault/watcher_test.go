package vault

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/memoracard/internal/storage"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileImported(t *testing.T) {
	fsys, db := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, fsys, quietLogger(), func(kind, path, _ string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(fsys.Root(), "new.md"), []byte(capitals), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		d, err := db.GetDeck(context.Background(), DeckID("new.md"))
		return err == nil && d.CardCount == 2
	}, "new deck file not imported by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" || e == "updated:new.md" {
				return true
			}
		}
		return false
	}, "expected callback for new.md")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	fsys, db := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, fsys, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(fsys.Root(), "subdir")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte(capitals), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetDeck(context.Background(), DeckID("subdir/deep.md"))
		return err == nil
	}, "file in new subdir not imported by watcher")
}

func TestWatcher_DeleteRemovesDeck(t *testing.T) {
	fsys, db := testEnv(t)
	_ = fsys.Write("del.md", []byte(capitals))
	if _, err := Sync(context.Background(), db, fsys, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, fsys, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(fsys.Root(), "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetDeck(context.Background(), DeckID("del.md"))
		return err != nil
	}, "deck of deleted file still present")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	fsys, db := testEnv(t)
	_ = fsys.Write("old.md", []byte(capitals))
	if _, err := Sync(context.Background(), db, fsys, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, fsys, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(fsys.Root(), "old.md"), filepath.Join(fsys.Root(), "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		files, err := db.VaultFiles(context.Background())
		if err != nil {
			return false
		}
		_, hasOld := files["old.md"]
		_, hasNew := files["renamed.md"]
		return !hasOld && hasNew
	}, "rename reconciliation failed")
}

func TestWatcher_DeleteEmitsDeletedEvent(t *testing.T) {
	fsys, db := testEnv(t)
	_ = fsys.Write("gone.md", []byte(capitals))
	if _, err := Sync(context.Background(), db, fsys, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, fsys, quietLogger(), func(kind, path, _ string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(fsys.Root(), "gone.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "deleted:gone.md" {
				return true
			}
		}
		return false
	}, "expected deleted callback for gone.md")
}

// studiedCard syncs capitals into path and gives its first card some
// review history.
func studiedCard(t *testing.T, fsys *FS, db *storage.DB, path string) string {
	t.Helper()
	ctx := context.Background()
	_ = fsys.Write(path, []byte(capitals))
	if _, err := Sync(ctx, db, fsys, quietLogger()); err != nil {
		t.Fatal(err)
	}
	cards, err := db.GetCardsForDeck(ctx, DeckID(path))
	if err != nil || len(cards) == 0 {
		t.Fatalf("GetCardsForDeck: %v (%d cards)", err, len(cards))
	}
	c := cards[0]
	c.Repetition = 2
	c.Interval = 6
	if err := db.PutCard(ctx, c); err != nil {
		t.Fatal(err)
	}
	return c.ID
}

func assertScheduleKept(t *testing.T, db *storage.DB, path, id string) {
	t.Helper()
	ctx := context.Background()
	got, err := db.GetCard(ctx, id)
	if err != nil {
		t.Fatalf("card lost after save: %v", err)
	}
	if got.Repetition != 2 || got.Interval != 6 {
		t.Errorf("scheduling reset: repetition=%d interval=%d", got.Repetition, got.Interval)
	}
	files, _ := db.VaultFiles(ctx)
	if _, ok := files[path]; !ok {
		t.Errorf("vault file %s forgotten", path)
	}
}

func TestWatcher_RenameAsideSaveKeepsScheduling(t *testing.T) {
	fsys, db := testEnv(t)
	id := studiedCard(t, fsys, db, "deck.md")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, fsys, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	root := fsys.Root()
	_ = os.Rename(filepath.Join(root, "deck.md"), filepath.Join(root, "deck.md~"))
	_ = os.WriteFile(filepath.Join(root, "deck.md"), []byte(capitals), 0o644)

	// Outlast the reconcile debounce.
	time.Sleep(700 * time.Millisecond)
	assertScheduleKept(t, db, "deck.md", id)
}

func TestWatcher_DeleteRecreateKeepsScheduling(t *testing.T) {
	fsys, db := testEnv(t)
	id := studiedCard(t, fsys, db, "deck.md")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, fsys, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(fsys.Root(), "deck.md")
	_ = os.Remove(path)
	_ = os.WriteFile(path, []byte(capitals), 0o644)

	time.Sleep(700 * time.Millisecond)
	assertScheduleKept(t, db, "deck.md", id)
}
