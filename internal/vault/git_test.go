package vault

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
)

func TestGitSync_ExistingDirNotARepo(t *testing.T) {
	err := GitSync(context.Background(), "https://example.invalid/decks.git", t.TempDir(), quietLogger())
	if err == nil {
		t.Error("expected error for a directory that is not a repository")
	}
}

func TestGitSync_RepoWithoutRemote(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "decks")
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	if err := GitSync(context.Background(), "", dir, quietLogger()); err == nil {
		t.Error("expected pull error for a repository without origin")
	}
}
