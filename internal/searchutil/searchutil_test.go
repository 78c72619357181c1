package searchutil

import "testing"

func TestNormalizeFoldsCaseAndPunctuation(t *testing.T) {
	if got := Normalize("  Tokyo Ghoul:RE  (Official) "); got != "tokyo ghoul re official" {
		t.Fatalf("unexpected normalized value %q", got)
	}
	if got := Normalize("ŞİMDİ"); got == "" {
		t.Fatalf("expected non-empty fold for non-ascii input")
	}
}

func TestQueryMatches(t *testing.T) {
	q := NewQuery("solo level")
	if !q.Matches("Solo Leveling") {
		t.Fatalf("expected substring match")
	}
	if !NewQuery("leveling solo").Matches("Solo-Leveling: Ragnarok") {
		t.Fatalf("expected token match regardless of order")
	}
	if q.Matches("Omniscient Reader") {
		t.Fatalf("did not expect a match")
	}
	if !NewQuery("   ").Matches("anything") {
		t.Fatalf("empty query matches everything")
	}
}

func TestUniqueNonEmptyKeepsFirstSpelling(t *testing.T) {
	got := UniqueNonEmpty([]string{"Action", " action ", "", "Slice of Life", "slice-of-life", "Drama"})
	want := []string{"Action", "Slice of Life", "Drama"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	if got := Normalize("Pokémon Adventures!"); got != "pokemon adventures" {
		t.Fatalf("unexpected normalized value %q", got)
	}
	if !NewQuery("pokemon").Matches("Pokémon") {
		t.Fatalf("expected accent-insensitive match")
	}
}
