package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/memoracard/internal/storage"
)

// EventCallback is called after a watcher-driven import change.
// kind is one of "created", "updated", "deleted"; deckID is empty for
// deletions.
type EventCallback func(kind, path, deckID string)

// Watch starts an fsnotify watcher on the vault root and imports deck file
// changes until ctx is cancelled. It calls cb (if non-nil) after each
// successful change.
//
// New directories created at runtime are added to the watch list. Remove
// and Rename events never delete inline; they trigger a debounced Sync pass,
// which imports files present on disk first and only then drops decks whose
// files are gone. A file replaced under the same name keeps its cards'
// scheduling.
func Watch(ctx context.Context, db *storage.DB, fsys *FS, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := fsys.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	importPath := func(rel, kind string) {
		data, err := fsys.Read(rel)
		if err != nil {
			logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if len(data) == 0 {
			// Create fires before the writer fills the file; a file that
			// stays empty is imported by the reconcile pass.
			scheduleReconcile()
			return
		}
		deckID, err := ImportFile(ctx, db, rel, data, time.Now())
		if err != nil {
			logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: imported", slog.String("path", rel), slog.String("op", kind))
		if cb != nil {
			cb(kind, rel, deckID)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			res, err := Sync(ctx, db, fsys, logger)
			if err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
				break
			}
			if cb == nil {
				break
			}
			for _, p := range res.Stale {
				logger.Debug("watcher: deleted", slog.String("path", p))
				cb("deleted", p, "")
			}
			if res.Imported > 0 {
				cb("updated", "", "")
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if strings.HasPrefix(filepath.Base(ev.Name), ".") {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			if !isDeckFile(filepath.Base(ev.Name)) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				importPath(rel, kind)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify reports Rename on the old path only; the new
				// path arrives as a Create if it stays inside the vault.
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
