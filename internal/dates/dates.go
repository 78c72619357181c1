package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
)

// Unknown is the timestamp reported when a date cannot be read.
const Unknown int64 = 0

var (
	ErrEmpty   = errors.New("empty date")
	ErrNoUnit  = errors.New("no time unit found")
	ErrNoMatch = errors.New("no layout matched")
)

var (
	integerPattern = regexp.MustCompile(`-?\d+`)
	ordinalPattern = regexp.MustCompile(`(\d+)(st|nd|rd|th|er)\b`)
	meridiemDots   = strings.NewReplacer("a.m.", "am", "p.m.", "pm")
)

// Normalizer turns free-text timestamps into instants using one locale.
type Normalizer struct {
	locale Locale
	now    func() time.Time
}

type Option func(*Normalizer)

// WithClock replaces time.Now as the reference for relative dates.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

func New(locale Locale, opts ...Option) *Normalizer {
	if locale.Location == nil {
		locale.Location = time.UTC
	}
	n := &Normalizer{
		locale: locale,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) Locale() Locale {
	return n.locale
}

// Parse reads text against the normalizer clock and returns epoch millis, or
// Unknown when nothing matched.
func (n *Normalizer) Parse(text string) int64 {
	return n.ParseAt(text, n.now())
}

// ParseAt reads text relative to ref. Absolute layouts are tried first, then
// relative phrases. Failures produce Unknown, never an error.
func (n *Normalizer) ParseAt(text string, ref time.Time) int64 {
	if parsed, err := n.ParseAbsolute(text); err == nil {
		return parsed.UnixMilli()
	}
	if parsed, err := n.ParseRelative(text, ref); err == nil {
		return parsed.UnixMilli()
	}
	return Unknown
}

// ParseAbsolute tries the common machine layouts and then each locale layout.
func (n *Normalizer) ParseAbsolute(text string) (time.Time, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, ErrEmpty
	}

	for _, layout := range commonLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, n.locale.Location); err == nil {
			return parsed, nil
		}
	}

	cleaned := cleanAbsolute(raw)
	for _, candidate := range []string{cleaned, n.translateMonths(cleaned)} {
		for _, layout := range n.locale.Layouts {
			if parsed, err := time.ParseInLocation(layout, candidate, n.locale.Location); err == nil {
				return parsed, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrNoMatch, raw)
}

// ParseRelative reads "N units ago" style phrases plus the locale's words for
// now, today and yesterday. Today and yesterday resolve to local midnight.
func (n *Normalizer) ParseRelative(text string, ref time.Time) (time.Time, error) {
	folded := strings.Join(strings.Fields(fold(text)), " ")
	if folded == "" {
		return time.Time{}, ErrEmpty
	}
	ref = ref.In(n.locale.Location)

	switch {
	case n.hasPrefix(folded, n.locale.Yesterday):
		return midnight(ref).AddDate(0, 0, -1), nil
	case n.hasPrefix(folded, n.locale.Today):
		return midnight(ref), nil
	}

	number := integerPattern.FindString(folded)
	if number == "" && n.containsPhrase(folded, n.locale.Now) {
		return ref, nil
	}

	unit, ok := n.unitIn(folded)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNoUnit, text)
	}

	magnitude := 0
	if number != "" {
		parsed, err := strconv.Atoi(number)
		if err != nil {
			return time.Time{}, fmt.Errorf("read magnitude %q: %w", number, err)
		}
		magnitude = parsed
	} else if n.startsWithWord(folded, n.locale.One) {
		magnitude = 1
	}

	return Subtract(ref, magnitude, unit), nil
}

// Subtract moves ref back by magnitude units. Seconds through hours are fixed
// durations, days and weeks use the calendar so DST shifts keep wall time, and
// months and years clamp to the last day of the target month. A non-positive
// magnitude returns ref unchanged.
func Subtract(ref time.Time, magnitude int, unit Unit) time.Time {
	if magnitude <= 0 {
		return ref
	}
	switch unit {
	case Seconds:
		return ref.Add(-time.Duration(magnitude) * time.Second)
	case Minutes:
		return ref.Add(-time.Duration(magnitude) * time.Minute)
	case Hours:
		return ref.Add(-time.Duration(magnitude) * time.Hour)
	case Days:
		return ref.AddDate(0, 0, -magnitude)
	case Weeks:
		return ref.AddDate(0, 0, -7*magnitude)
	case Months:
		return addMonthsClamped(ref, -magnitude)
	case Years:
		return addMonthsClamped(ref, -12*magnitude)
	default:
		return ref
	}
}

func addMonthsClamped(ref time.Time, months int) time.Time {
	year, month, day := ref.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, ref.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, minute, sec := ref.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, ref.Nanosecond(), ref.Location())
}

func midnight(ref time.Time) time.Time {
	year, month, day := ref.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, ref.Location())
}

func (n *Normalizer) unitIn(folded string) (Unit, bool) {
	for _, unitWords := range n.locale.Units {
		if n.containsAny(folded, unitWords.Words) {
			return unitWords.Unit, true
		}
	}
	return 0, false
}

func (n *Normalizer) containsAny(folded string, words []string) bool {
	for _, word := range words {
		if word = fold(word); word != "" && strings.Contains(folded, word) {
			return true
		}
	}
	return false
}

// containsPhrase matches whole words only, so "now" does not match "unknown".
func (n *Normalizer) containsPhrase(folded string, phrases []string) bool {
	padded := " " + wordsOf(folded) + " "
	for _, phrase := range phrases {
		if phrase = wordsOf(fold(phrase)); phrase != "" && strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}

func wordsOf(text string) string {
	return strings.Join(strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}), " ")
}

func (n *Normalizer) hasPrefix(folded string, words []string) bool {
	for _, word := range words {
		if word = fold(word); word != "" && strings.HasPrefix(folded, word) {
			return true
		}
	}
	return false
}

func (n *Normalizer) startsWithWord(folded string, words []string) bool {
	fields := strings.Fields(folded)
	if len(fields) == 0 {
		return false
	}
	for _, word := range words {
		if fields[0] == fold(word) {
			return true
		}
	}
	return false
}

// cleanAbsolute lower-cases text and drops ordinal suffixes and dotted meridiems.
func cleanAbsolute(raw string) string {
	cleaned := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	cleaned = meridiemDots.Replace(cleaned)
	return ordinalPattern.ReplaceAllString(cleaned, "$1")
}

// translateMonths rewrites localized or abbreviated month names as full English
// names so Go layouts can read them.
func (n *Normalizer) translateMonths(cleaned string) string {
	fields := strings.Fields(cleaned)
	for i, field := range fields {
		core := strings.TrimRight(field, ".,")
		suffix := strings.TrimPrefix(field[len(core):], ".")
		if month, ok := n.monthFor(core); ok {
			fields[i] = month + suffix
		}
	}
	return strings.Join(fields, " ")
}

func (n *Normalizer) monthFor(word string) (string, bool) {
	if word == "" {
		return "", false
	}
	for i, spellings := range n.locale.Months {
		for _, spelling := range spellings {
			if word == spelling {
				return englishMonths[i], true
			}
		}
	}
	for i, english := range englishMonths {
		if word == english {
			return englishMonths[i], true
		}
	}
	return "", false
}

// fold builds a fresh Caser per call; Casers keep state and must not be shared
// between goroutines.
func fold(text string) string {
	return cases.Fold().String(text)
}
