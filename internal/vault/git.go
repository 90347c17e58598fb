package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
)

// GitSync clones url into dir when dir does not exist yet, and pulls the
// latest changes when it does.
func GitSync(ctx context.Context, url, dir string, logger *slog.Logger) error {
	_, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		logger.Info("git: cloning", slog.String("url", url), slog.String("dir", dir))
		if _, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: url}); err != nil {
			return fmt.Errorf("vault: clone %s: %w", url, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("vault: stat %s: %w", dir, err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("vault: open repo %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("vault: worktree %s: %w", dir, err)
	}

	logger.Info("git: pulling", slog.String("dir", dir))
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("vault: pull %s: %w", dir, err)
	}
	return nil
}
