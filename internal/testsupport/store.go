package testsupport

import (
	"context"
	"testing"

	"docket/internal/config"
	"docket/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// TrackFile registers a file with the store for tests.
func TrackFile(t testing.TB, st *store.Store, path string) *store.TrackedFile {
	t.Helper()

	tracked, err := st.EnsureTracked(context.Background(), path)
	if err != nil {
		t.Fatalf("store.EnsureTracked: %v", err)
	}
	return tracked
}
