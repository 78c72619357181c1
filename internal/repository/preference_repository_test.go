package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/database"
)

var _ connectors.Preferences = (*PreferenceRepository)(nil)

func setupPreferences(t *testing.T) *PreferenceRepository {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.ApplyMigrations(db, filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPreferenceRepository(db)
}

func TestPreferenceRoundTrip(t *testing.T) {
	repo := setupPreferences(t)
	ctx := context.Background()

	if _, ok, err := repo.GetString(ctx, "kunmanga", connectors.PreferenceBaseURL); err != nil || ok {
		t.Fatalf("expected missing preference, got ok=%v err=%v", ok, err)
	}

	if err := repo.SetString(ctx, "KunManga", connectors.PreferenceBaseURL, "https://mirror.test"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetString(ctx, "kunmanga", connectors.PreferenceBaseURL, "https://mirror2.test"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := repo.GetString(ctx, "kunmanga", connectors.PreferenceBaseURL)
	if err != nil || !ok || value != "https://mirror2.test" {
		t.Fatalf("expected overwritten value, got %q ok=%v err=%v", value, ok, err)
	}

	if err := repo.SetBool(ctx, "mangadex", "data_saver", true); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	enabled, ok, err := repo.GetBool(ctx, "mangadex", "data_saver")
	if err != nil || !ok || !enabled {
		t.Fatalf("expected data saver on, got %v ok=%v err=%v", enabled, ok, err)
	}

	if err := repo.SetString(ctx, "mangadex", "broken", "maybe"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, _, err := repo.GetBool(ctx, "mangadex", "broken"); err == nil {
		t.Fatalf("expected non boolean value to fail")
	}

	if err := repo.SetString(ctx, "", "x", "y"); err == nil {
		t.Fatalf("expected empty connector key to be rejected")
	}
}

func TestPreferenceListAndDelete(t *testing.T) {
	repo := setupPreferences(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		if err := repo.SetString(ctx, "site", name, name+"-value"); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	if err := repo.SetString(ctx, "other", "a", "x"); err != nil {
		t.Fatalf("set other: %v", err)
	}

	items, err := repo.List(ctx, "site")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 || items[0].Name != "a" || items[2].Value != "c-value" {
		t.Fatalf("unexpected list %+v", items)
	}

	removed, err := repo.Delete(ctx, "site", "a", "b", "missing")
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d err=%v", removed, err)
	}
	removed, err = repo.Delete(ctx, "site")
	if err != nil || removed != 1 {
		t.Fatalf("expected remaining preference removed, got %d err=%v", removed, err)
	}

	items, err = repo.List(ctx, "other")
	if err != nil || len(items) != 1 {
		t.Fatalf("expected other connector untouched, got %+v err=%v", items, err)
	}
}

func TestSQLPlaceholders(t *testing.T) {
	cases := map[int]string{0: "", 1: "?", 3: "?,?,?"}
	for count, want := range cases {
		if got := sqlPlaceholders(count); got != want {
			t.Fatalf("sqlPlaceholders(%d) = %q, want %q", count, got, want)
		}
	}
}
