// Package testutil provides shared test helpers for setting up vaults,
// databases, and a wired filing service.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/similarity"
	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/vaultservice"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestService wires a full filing service over a temporary vault and index,
// rooted at "Knowledge" and without an oracle or event broker.
func TestService(t *testing.T) *vaultservice.Service {
	t.Helper()
	_, store := TestVault(t)
	db := TestDB(t)
	logger := slog.New(slog.DiscardHandler)
	engine := graph.NewEngine(store, &similarity.Resolver{Logger: logger}, "Knowledge", logger)
	return vaultservice.NewService(store, db, engine, nil, logger)
}
