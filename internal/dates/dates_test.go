package dates

import (
	"errors"
	"testing"
	"time"
)

var ref = time.Date(2024, time.March, 31, 15, 4, 5, 0, time.UTC)

func TestParseAtRelativeHoursIsExactAndRepeatable(t *testing.T) {
	n := New(LocaleFor("en"))

	first := n.ParseAt("2 hours ago", ref)
	second := n.ParseAt("2 hours ago", ref)
	if first != ref.Add(-2*time.Hour).UnixMilli() {
		t.Fatalf("expected ref-2h, got %s", time.UnixMilli(first).UTC())
	}
	if first != second {
		t.Fatalf("expected identical results, got %d and %d", first, second)
	}
}

func TestParseRelativeUnits(t *testing.T) {
	tests := []struct {
		locale string
		text   string
		want   time.Time
	}{
		{"en", "5 minutes ago", ref.Add(-5 * time.Minute)},
		{"en", "30 secs ago", ref.Add(-30 * time.Second)},
		{"en", "an hour ago", ref.Add(-time.Hour)},
		{"en", "3 days ago", ref.AddDate(0, 0, -3)},
		{"en", "2 weeks ago", ref.AddDate(0, 0, -14)},
		{"en", "1 month ago", time.Date(2024, time.February, 29, 15, 4, 5, 0, time.UTC)},
		{"en", "2 years ago", time.Date(2022, time.March, 31, 15, 4, 5, 0, time.UTC)},
		{"en", "Just now", ref},
		{"en", "0 days ago", ref},
		{"en", "-3 hours ago", ref},
		{"en", "Yesterday", time.Date(2024, time.March, 30, 0, 0, 0, 0, time.UTC)},
		{"en", "Today 10:30", time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)},
		{"es", "hace 3 días", ref.AddDate(0, 0, -3)},
		{"es", "Hace 2 Meses", time.Date(2024, time.January, 31, 15, 4, 5, 0, time.UTC)},
		{"pt", "há 4 horas", ref.Add(-4 * time.Hour)},
		{"fr", "il y a 1 an", time.Date(2023, time.March, 31, 15, 4, 5, 0, time.UTC)},
		{"id", "6 jam yang lalu", ref.Add(-6 * time.Hour)},
		{"tr", "3 gün önce", ref.AddDate(0, 0, -3)},
		{"vi", "2 giờ trước", ref.Add(-2 * time.Hour)},
		{"it", "10 minuti fa", ref.Add(-10 * time.Minute)},
		{"ru", "5 минут назад", ref.Add(-5 * time.Minute)},
		{"ru", "2 недели назад", ref.AddDate(0, 0, -14)},
	}

	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.text, func(t *testing.T) {
			n := New(LocaleFor(tt.locale))
			got, err := n.ParseRelative(tt.text, ref)
			if err != nil {
				t.Fatalf("parse relative: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseRelativeWithoutUnit(t *testing.T) {
	n := New(LocaleFor("en"))
	if _, err := n.ParseRelative("12 bananas", ref); !errors.Is(err, ErrNoUnit) {
		t.Fatalf("expected ErrNoUnit, got %v", err)
	}
	if got := n.ParseAt("12 bananas", ref); got != Unknown {
		t.Fatalf("expected sentinel, got %d", got)
	}
	if got := n.ParseAt("   ", ref); got != Unknown {
		t.Fatalf("expected sentinel for blank text, got %d", got)
	}
	for _, text := range []string{"Unknown", "unknown date"} {
		if got := n.ParseAt(text, ref); got != Unknown {
			t.Fatalf("expected sentinel for %q, got %d", text, got)
		}
	}
	for _, text := range []string{"Just now", "now!"} {
		if got := n.ParseAt(text, ref); got != ref.UnixMilli() {
			t.Fatalf("expected %q to resolve to the reference time, got %d", text, got)
		}
	}
}

func TestParseAbsoluteLayouts(t *testing.T) {
	tests := []struct {
		locale string
		text   string
		want   time.Time
	}{
		{"en", "December 5th, 2019", time.Date(2019, time.December, 5, 0, 0, 0, 0, time.UTC)},
		{"en", "Jan. 3, 2021", time.Date(2021, time.January, 3, 0, 0, 0, 0, time.UTC)},
		{"en", "2023-04-05", time.Date(2023, time.April, 5, 0, 0, 0, 0, time.UTC)},
		{"en", "2023-04-05T10:20:30Z", time.Date(2023, time.April, 5, 10, 20, 30, 0, time.UTC)},
		{"es", "5 de enero de 2023", time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC)},
		{"fr", "12 février 2022", time.Date(2022, time.February, 12, 0, 0, 0, 0, time.UTC)},
		{"tr", "14.02.2021", time.Date(2021, time.February, 14, 0, 0, 0, 0, time.UTC)},
		{"ru", "3 марта 2020", time.Date(2020, time.March, 3, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.text, func(t *testing.T) {
			n := New(LocaleFor(tt.locale))
			got, err := n.ParseAbsolute(tt.text)
			if err != nil {
				t.Fatalf("parse absolute: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCustomLayoutsAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	n := New(LocaleFor("en").WithLayouts("02 Jan 2006 15:04").WithLocation(loc))

	got, err := n.ParseAbsolute("09 Feb 2024 18:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Date(2024, time.February, 9, 18, 30, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestParseUsesInjectedClock(t *testing.T) {
	n := New(LocaleFor("en"), WithClock(func() time.Time { return ref }))
	if got := n.Parse("1 day ago"); got != ref.AddDate(0, 0, -1).UnixMilli() {
		t.Fatalf("unexpected timestamp %d", got)
	}
}

func TestLocaleForFallsBackToEnglish(t *testing.T) {
	if got := LocaleFor("pt-BR").Name; got != "pt" {
		t.Fatalf("expected pt, got %q", got)
	}
	if got := LocaleFor("xx").Name; got != "en" {
		t.Fatalf("expected en fallback, got %q", got)
	}
}
