// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/taskvault/internal/searchindex"
	"github.com/starford/taskvault/internal/storage"
)

// DiscardLogger returns a slog.Logger that writes nowhere, for tests that
// need to satisfy a logger parameter without asserting on its output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite-backed search index that is
// automatically cleaned up.
func TestDB(t *testing.T) *searchindex.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "taskvault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := searchindex.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with an *storage.FS rooted
// at it.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir, "Tasks/Completed", "Tasks/Deleted")
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
