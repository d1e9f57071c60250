package testsupport

import (
	"context"
	"testing"

	"versecast/internal/config"
	"versecast/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedPoem registers a poem in the ledger for tests using the provided store.
func SeedPoem(t testing.TB, store *ledger.Store, id, title, author, body string) *ledger.Item {
	t.Helper()

	item, err := store.Upsert(context.Background(), &ledger.Item{
		ID:     id,
		Title:  title,
		Author: author,
		Body:   body,
	})
	if err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return item
}
