package profile

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/document"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
	"github.com/gabriel/source-connectors/internal/pagination"
)

func (c *Connector) FetchChapters(ctx context.Context, series models.Series) ([]models.Chapter, error) {
	chapters, err := c.fetchChapters(ctx, series)
	return chapters, connectors.Wrap(c.config.Key, "chapters", err)
}

func (c *Connector) fetchChapters(ctx context.Context, series models.Series) ([]models.Chapter, error) {
	base, err := c.seriesVars(series.ID)
	if err != nil {
		return nil, err
	}

	spec := c.config.Chapters
	var entries []models.Chapter
	for page := 1; page <= spec.MaxPages; page++ {
		v := base.with(map[string]string{"page": strconv.Itoa(page)})

		root, _, err := c.load(ctx, spec.Request, v, nil)
		if err != nil {
			return nil, err
		}

		scope, found, err := c.chapterScope(root, v)
		if err != nil {
			return nil, err
		}
		if !found {
			if page == 1 {
				return nil, &normalize.MissingFieldError{Field: "chapters", Selector: specLocation(c.config.Chapters.Container)}
			}
			break
		}

		items := scope.items(spec.Items)
		for _, item := range items {
			entries = append(entries, c.chapterEntry(item, v))
		}

		if pagination.Strategy(spec.Pagination.Strategy) == pagination.StrategyNone || len(items) == 0 {
			break
		}
		if !c.hasNext(root, spec.Pagination, page, len(items)) {
			break
		}
	}

	return normalize.ChapterList(series.ID, entries, c.logger), nil
}

// chapterScope narrows the page to the chapter list. Some sites ship the list
// as HTML inside an attribute value, which is parsed as its own fragment.
// found is false when the container is absent.
func (c *Connector) chapterScope(root node, v vars) (node, bool, error) {
	container := c.config.Chapters.Container
	if container.empty() || !root.isHTML() {
		return root, true, nil
	}
	markup := c.extract.first(root, container, v)
	if markup == "" {
		return node{}, false, nil
	}
	fragment, err := document.Fragment(markup, root.pageURL)
	if err != nil {
		return node{}, false, fmt.Errorf("parse chapter container: %w", err)
	}
	return node{sel: fragment.Selection, pageURL: root.pageURL, siteURL: root.siteURL}, true, nil
}

func (c *Connector) chapterEntry(item node, v vars) models.Chapter {
	fields := c.config.Chapters.Fields
	entry := models.Chapter{
		ID:        c.extract.first(item, fields["id"], v),
		Name:      c.extract.first(item, fields["name"], v),
		Scanlator: c.extract.first(item, fields["scanlator"], v),
	}
	if parts := c.config.Chapters.Identifier.Parts; len(parts) > 0 {
		entry.ID = c.packIdentifier(item, parts, fields, v)
	}

	numberText := entry.Name
	if spec, ok := fields["number"]; ok {
		numberText = c.extract.first(item, spec, v)
	}
	entry.Number = normalize.ChapterNumberOr(numberText)

	if spec, ok := fields["date"]; ok {
		entry.UploadedAt = c.dates.Parse(c.extract.first(item, spec, v))
	}
	return entry
}

// chapterVars exposes the chapter identifier, its parts and the owning series
// identifier to page request templates.
func (c *Connector) chapterVars(chapter models.Chapter) (vars, error) {
	if chapter.ID == "" {
		return nil, fmt.Errorf("%w: chapter id is required", connectors.ErrInvalidInput)
	}
	v, err := identifierVars("id", chapter.ID, c.config.Chapters.Identifier.Parts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connectors.ErrInvalidInput, err)
	}
	if chapter.SeriesID != "" {
		if series, err := identifierVars("series", chapter.SeriesID, c.seriesParts()); err == nil {
			v = v.with(series)
		}
	}
	return v, nil
}
