package searchutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize case-folds value, strips diacritics and collapses punctuation and
// symbols into single spaces. "Tokyo Ghoul:RE" and "tokyo-ghoul re" compare
// equal.
func Normalize(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), clean)
	if err == nil {
		clean = stripped
	}
	clean = folder.String(clean)
	clean = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, clean)
	return strings.Join(strings.Fields(clean), " ")
}

// Query is a search string prepared once and matched against many titles.
type Query struct {
	Normalized string
	Tokens     []string
}

func NewQuery(raw string) Query {
	normalized := Normalize(raw)
	return Query{Normalized: normalized, Tokens: UniqueNonEmpty(strings.Fields(normalized))}
}

func (q Query) Empty() bool {
	return q.Normalized == ""
}

// Matches reports whether any candidate contains the whole query or, failing
// that, every query token in any order.
func (q Query) Matches(candidates ...string) bool {
	if q.Empty() {
		return true
	}
	for _, candidate := range candidates {
		if q.matchOne(Normalize(candidate)) {
			return true
		}
	}
	return false
}

func (q Query) matchOne(candidate string) bool {
	if candidate == "" {
		return false
	}
	if strings.Contains(candidate, q.Normalized) {
		return true
	}
	for _, token := range q.Tokens {
		if !strings.Contains(candidate, token) {
			return false
		}
	}
	return len(q.Tokens) > 0
}

// UniqueNonEmpty trims values and drops blanks and normalized duplicates, keeping
// the first spelling seen.
func UniqueNonEmpty(values []string) []string {
	var unique []string
	seen := map[string]bool{}
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		key := Normalize(trimmed)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, trimmed)
	}
	return unique
}
