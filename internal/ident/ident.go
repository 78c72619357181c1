package ident

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates packed parts. Parts must never contain it.
const Delimiter = "#"

var ErrDelimiterInPart = errors.New("identifier part contains delimiter")

// Pack joins parts with delim. It refuses parts that contain delim, since the
// result could not be split back.
func Pack(delim string, parts ...string) (string, error) {
	if delim == "" {
		return "", fmt.Errorf("empty delimiter")
	}
	for i, part := range parts {
		if strings.Contains(part, delim) {
			return "", fmt.Errorf("%w: part %d %q", ErrDelimiterInPart, i, part)
		}
	}
	return strings.Join(parts, delim), nil
}

// Unpack is the inverse of Pack for exactly n parts.
func Unpack(packed string, delim string, n int) ([]string, error) {
	if delim == "" {
		return nil, fmt.Errorf("empty delimiter")
	}
	parts := strings.Split(packed, delim)
	if len(parts) != n {
		return nil, fmt.Errorf("identifier %q: expected %d parts, got %d", packed, n, len(parts))
	}
	return parts, nil
}

// ChapterRef threads a series slug, the chapter number and the upstream chapter
// id through the single chapter identifier the host stores.
type ChapterRef struct {
	Series string
	Number string
	ID     string
}

func (r ChapterRef) Encode() (string, error) {
	return Pack(Delimiter, r.Series, r.Number, r.ID)
}

func ParseChapterRef(packed string) (ChapterRef, error) {
	parts, err := Unpack(packed, Delimiter, 3)
	if err != nil {
		return ChapterRef{}, err
	}
	return ChapterRef{Series: parts[0], Number: parts[1], ID: parts[2]}, nil
}

// SeriesRef pairs a human readable slug with a numeric or opaque id.
type SeriesRef struct {
	Slug string
	ID   string
}

func (r SeriesRef) Encode() (string, error) {
	return Pack(Delimiter, r.Slug, r.ID)
}

func ParseSeriesRef(packed string) (SeriesRef, error) {
	parts, err := Unpack(packed, Delimiter, 2)
	if err != nil {
		return SeriesRef{}, err
	}
	return SeriesRef{Slug: parts[0], ID: parts[1]}, nil
}

// Named is a packed identifier whose parts are named by a site profile, for
// example ["slug", "number", "id"].
type Named struct {
	Names  []string
	Values map[string]string
}

func (n Named) Encode() (string, error) {
	if len(n.Names) == 1 {
		return n.Values[n.Names[0]], nil
	}
	values := make([]string, len(n.Names))
	for i, name := range n.Names {
		values[i] = n.Values[name]
	}
	return Pack(Delimiter, values...)
}

func ParseNamed(packed string, names []string) (Named, error) {
	if len(names) <= 1 {
		values := map[string]string{}
		if len(names) == 1 {
			values[names[0]] = packed
		}
		return Named{Names: names, Values: values}, nil
	}
	parts, err := Unpack(packed, Delimiter, len(names))
	if err != nil {
		return Named{}, err
	}
	values := make(map[string]string, len(names))
	for i, name := range names {
		values[name] = parts[i]
	}
	return Named{Names: names, Values: values}, nil
}
