// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/memoracard/internal/storage"
	"github.com/starford/memoracard/internal/vault"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
// A non-nil now pins the database clock.
func TestDB(t *testing.T, now func() time.Time) *storage.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "memoracard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	var opts []storage.Option
	if now != nil {
		opts = append(opts, storage.WithClock(now))
	}
	db, err := storage.Open(dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory.
func TestVault(t *testing.T) (string, *vault.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	fsys, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, fsys
}
