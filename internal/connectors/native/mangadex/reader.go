package mangadex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/ident"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
	"github.com/gabriel/source-connectors/internal/pagination"
)

func (c *Connector) FetchDetails(ctx context.Context, series models.Series) (models.Series, error) {
	result, err := c.fetchDetails(ctx, series)
	return result, connectors.Wrap(key, "details", err)
}

func (c *Connector) fetchDetails(ctx context.Context, series models.Series) (models.Series, error) {
	mangaID, err := c.seriesID(series.ID)
	if err != nil {
		return models.Series{}, err
	}

	values := url.Values{"includes[]": {"author", "artist", "cover_art"}}
	var payload mangaResponse
	if err := c.getJSON(ctx, "/manga/"+mangaID, values, &payload); err != nil {
		return models.Series{}, err
	}

	data := payload.Data
	title := c.pickLocalized(data.Attributes.Title)
	if title == "" {
		return models.Series{}, &normalize.MissingFieldError{Field: "title", Selector: "data.attributes.title"}
	}

	details := models.Series{
		ID:           mangaID,
		Title:        title,
		ThumbnailURL: c.coverURL(data),
		Synopsis:     c.pickLocalized(data.Attributes.Description),
		Status:       c.status.Status(data.Attributes.Status),
		Initialized:  true,
	}
	if details.ThumbnailURL == "" {
		details.ThumbnailURL = series.ThumbnailURL
	}
	for _, rel := range data.Relationships {
		switch rel.Type {
		case "author":
			details.Authors = append(details.Authors, rel.Attributes.Name)
		case "artist":
			details.Artists = append(details.Artists, rel.Attributes.Name)
		}
	}
	for _, tag := range data.Attributes.Tags {
		details.Genres = append(details.Genres, c.pickLocalized(tag.Attributes.Name))
	}

	return normalize.Series(details)
}

// FetchChapters walks the chapter feed page by page until the reported total is
// reached.
func (c *Connector) FetchChapters(ctx context.Context, series models.Series) ([]models.Chapter, error) {
	chapters, err := c.fetchChapters(ctx, series)
	return chapters, connectors.Wrap(key, "chapters", err)
}

func (c *Connector) fetchChapters(ctx context.Context, series models.Series) ([]models.Chapter, error) {
	mangaID, err := c.seriesID(series.ID)
	if err != nil {
		return nil, err
	}

	var entries []models.Chapter
	for page := 0; page < maxFeedPages; page++ {
		values := url.Values{
			"limit":                {strconv.Itoa(feedLimit)},
			"offset":               {strconv.Itoa(page * feedLimit)},
			"translatedLanguage[]": {c.language},
			"order[chapter]":       {"desc"},
			"includes[]":           {"scanlation_group"},
			"contentRating[]":      {"safe", "suggestive", "erotica", "pornographic"},
		}
		var payload feedResponse
		if err := c.getJSON(ctx, "/manga/"+mangaID+"/feed", values, &payload); err != nil {
			return nil, err
		}

		for _, item := range payload.Data {
			if entry, ok := c.chapterEntry(mangaID, item); ok {
				entries = append(entries, entry)
			}
		}
		if len(payload.Data) == 0 || !pagination.CountFromOffset(payload.Offset, payload.Limit, payload.Total) {
			break
		}
	}

	return normalize.ChapterList(mangaID, entries, c.logger), nil
}

// chapterEntry packs series, number and chapter id into one identifier.
// Chapters hosted elsewhere have no pages here and are left out.
func (c *Connector) chapterEntry(mangaID string, item chapterData) (models.Chapter, bool) {
	attrs := item.Attributes
	if deref(attrs.ExternalURL) != "" {
		return models.Chapter{}, false
	}

	number := strings.TrimSpace(deref(attrs.Chapter))
	id, err := ident.ChapterRef{Series: mangaID, Number: number, ID: item.ID}.Encode()
	if err != nil {
		c.logger.Debug("skipping chapter", "chapter", item.ID, "error", err)
		return models.Chapter{}, false
	}

	var scanlators []string
	for _, rel := range item.Relationships {
		if rel.Type == "scanlation_group" && rel.Attributes.Name != "" {
			scanlators = append(scanlators, rel.Attributes.Name)
		}
	}

	return models.Chapter{
		ID:         id,
		Name:       chapterName(deref(attrs.Volume), number, deref(attrs.Title)),
		Number:     normalize.ChapterNumberOr(number),
		UploadedAt: c.dates.Parse(attrs.PublishAt),
		Scanlator:  strings.Join(scanlators, ", "),
	}, true
}

func chapterName(volume, number, title string) string {
	var parts []string
	if volume = strings.TrimSpace(volume); volume != "" {
		parts = append(parts, "Vol."+volume)
	}
	if number != "" {
		parts = append(parts, "Ch."+number)
	}
	name := strings.Join(parts, " ")
	title = strings.TrimSpace(title)
	switch {
	case title == "" && name == "":
		return "Oneshot"
	case title == "":
		return name
	case name == "":
		return title
	default:
		return name + " - " + title
	}
}

// FetchPages asks the at-home endpoint for a delivery node and composes one
// absolute image URL per file.
func (c *Connector) FetchPages(ctx context.Context, chapter models.Chapter) ([]models.Page, error) {
	pages, err := c.fetchPages(ctx, chapter)
	return pages, connectors.Wrap(key, "pages", err)
}

func (c *Connector) fetchPages(ctx context.Context, chapter models.Chapter) ([]models.Page, error) {
	ref, err := ident.ParseChapterRef(chapter.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connectors.ErrInvalidInput, err)
	}
	if !titleIDPattern.MatchString(ref.ID) {
		return nil, fmt.Errorf("%w: invalid chapter id %q", connectors.ErrInvalidInput, ref.ID)
	}

	var payload atHomeResponse
	if err := c.getJSON(ctx, "/at-home/server/"+ref.ID, nil, &payload); err != nil {
		return nil, err
	}
	if payload.BaseURL == "" || payload.Chapter.Hash == "" {
		return nil, &normalize.MissingFieldError{Field: "baseUrl", Selector: "/at-home/server"}
	}

	quality, files := "data", payload.Chapter.Data
	if c.dataSaver(ctx) && len(payload.Chapter.DataSaver) > 0 {
		quality, files = "data-saver", payload.Chapter.DataSaver
	}

	base := strings.TrimRight(payload.BaseURL, "/")
	refs := make([]string, 0, len(files))
	for _, file := range files {
		refs = append(refs, fmt.Sprintf("%s/%s/%s/%s", base, quality, payload.Chapter.Hash, file))
	}
	return normalize.Pages(refs, false), nil
}

// ResolveImage only passes through direct URLs. Every page this connector
// returns already carries one.
func (c *Connector) ResolveImage(_ context.Context, page models.Page) (string, error) {
	if page.ImageURL != "" {
		return page.ImageURL, nil
	}
	return "", connectors.Unsupported(key, "image")
}
