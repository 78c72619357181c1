package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/searchutil"
)

var ErrNoChapterNumber = errors.New("no chapter number")

// MissingFieldError reports a required field that was absent or empty.
type MissingFieldError struct {
	Field    string
	Selector string
}

func (e *MissingFieldError) Error() string {
	if e == nil {
		return "missing field"
	}
	if e.Selector == "" {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("missing required field %q (selector %q)", e.Field, e.Selector)
}

// DecodeError reports an upstream body that could not be parsed at all.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	chapterKeywordPattern = regexp.MustCompile(`(?i)(?:chapter|chap|ch\.?|cap[ií]tulo|cap\.?|chapitre|episode|ep\.?|bölüm|chương|глава)\s*#?\s*(\d+(?:[.,-]\d+)?)`)
	numberPattern         = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// ChapterNumber pulls the chapter number out of a label. A number following a
// chapter keyword wins over the first number in the text. "240-2" and "240,2"
// read as 240.2.
func ChapterNumber(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrNoChapterNumber
	}

	raw := ""
	if match := chapterKeywordPattern.FindStringSubmatch(text); len(match) == 2 {
		raw = match[1]
	} else {
		raw = numberPattern.FindString(text)
	}
	if raw == "" {
		return 0, fmt.Errorf("%w in %q", ErrNoChapterNumber, text)
	}

	raw = strings.NewReplacer(",", ".", "-", ".").Replace(raw)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse chapter number %q: %w", raw, err)
	}
	return value, nil
}

// ChapterNumberOr returns models.UnknownChapterNumber when text has no number.
func ChapterNumberOr(text string) float64 {
	value, err := ChapterNumber(text)
	if err != nil {
		return models.UnknownChapterNumber
	}
	return value
}

// MergeGenres concatenates lists, dropping blanks and case-insensitive
// duplicates while keeping first-seen order.
func MergeGenres(lists ...[]string) []string {
	var all []string
	for _, list := range lists {
		all = append(all, list...)
	}
	return searchutil.UniqueNonEmpty(all)
}

// Series trims a scraped series and checks its required fields.
func Series(raw models.Series) (models.Series, error) {
	raw.ID = strings.TrimSpace(raw.ID)
	raw.Title = strings.Join(strings.Fields(raw.Title), " ")
	raw.ThumbnailURL = strings.TrimSpace(raw.ThumbnailURL)
	raw.Synopsis = strings.TrimSpace(raw.Synopsis)
	raw.Authors = searchutil.UniqueNonEmpty(raw.Authors)
	raw.Artists = searchutil.UniqueNonEmpty(raw.Artists)
	raw.Genres = MergeGenres(raw.Genres)

	if raw.ID == "" {
		return raw, &MissingFieldError{Field: "id"}
	}
	if raw.Title == "" {
		return raw, &MissingFieldError{Field: "title"}
	}
	return raw, nil
}

// Chapter trims a scraped chapter. A missing name falls back to the number.
func Chapter(raw models.Chapter) (models.Chapter, error) {
	raw.ID = strings.TrimSpace(raw.ID)
	raw.Name = strings.Join(strings.Fields(raw.Name), " ")
	raw.Scanlator = strings.TrimSpace(raw.Scanlator)

	if raw.ID == "" {
		return raw, &MissingFieldError{Field: "id"}
	}
	if raw.Name == "" {
		if raw.Number < 0 {
			return raw, &MissingFieldError{Field: "name"}
		}
		raw.Name = "Chapter " + strconv.FormatFloat(raw.Number, 'f', -1, 64)
	}
	if raw.UploadedAt < 0 {
		raw.UploadedAt = models.UnknownUploadTime
	}
	return raw, nil
}

// SeriesList validates every entry of a listing page. Bad entries are logged and
// skipped, duplicates by ID keep the first occurrence.
func SeriesList(entries []models.Series, logger *slog.Logger) []models.Series {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]models.Series, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for index, entry := range entries {
		series, err := Series(entry)
		if err != nil {
			logger.Debug("skipping listing entry", "index", index, "error", err)
			continue
		}
		if _, ok := seen[series.ID]; ok {
			continue
		}
		seen[series.ID] = struct{}{}
		out = append(out, series)
	}
	return out
}

// ChapterList validates chapters, drops bad and duplicate entries and sorts the
// result for display.
func ChapterList(seriesID string, entries []models.Chapter, logger *slog.Logger) []models.Chapter {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]models.Chapter, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for index, entry := range entries {
		entry.SeriesID = seriesID
		chapter, err := Chapter(entry)
		if err != nil {
			logger.Debug("skipping chapter entry", "series", seriesID, "index", index, "error", err)
			continue
		}
		if _, ok := seen[chapter.ID]; ok {
			continue
		}
		seen[chapter.ID] = struct{}{}
		out = append(out, chapter)
	}
	SortChapters(out)
	return out
}

// SortChapters orders by number then upload time, newest first. Unknown numbers
// (-1) end up last.
func SortChapters(chapters []models.Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].Number != chapters[j].Number {
			return chapters[i].Number > chapters[j].Number
		}
		return chapters[i].UploadedAt > chapters[j].UploadedAt
	})
}

// Pages numbers image references from zero in reader order, skipping blanks.
// When tokens is true the values are kept as URL for a later ResolveImage call.
func Pages(refs []string, tokens bool) []models.Page {
	pages := make([]models.Page, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		page := models.Page{Index: len(pages)}
		if tokens {
			page.URL = ref
		} else {
			page.ImageURL = ref
		}
		pages = append(pages, page)
	}
	return pages
}
