package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
)

func (c *Connector) seriesParts() []string {
	return c.config.Popular.Identifier.Parts
}

func (c *Connector) seriesVars(id string) (vars, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: series id is required", connectors.ErrInvalidInput)
	}
	v, err := identifierVars("id", id, c.seriesParts())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connectors.ErrInvalidInput, err)
	}
	return v, nil
}

func (c *Connector) FetchDetails(ctx context.Context, series models.Series) (models.Series, error) {
	result, err := c.fetchDetails(ctx, series)
	return result, connectors.Wrap(c.config.Key, "details", err)
}

func (c *Connector) fetchDetails(ctx context.Context, series models.Series) (models.Series, error) {
	v, err := c.seriesVars(series.ID)
	if err != nil {
		return models.Series{}, err
	}

	root, _, err := c.load(ctx, c.config.Details.Request, v, nil)
	if err != nil {
		return models.Series{}, err
	}

	spec := c.config.Details
	title := c.extract.first(root, spec.Title, v)
	if title == "" {
		return models.Series{}, &normalize.MissingFieldError{Field: "title", Selector: specLocation(spec.Title)}
	}

	result := series
	result.Title = title
	if thumbnail := c.extract.first(root, spec.Thumbnail, v); thumbnail != "" {
		result.ThumbnailURL = thumbnail
	}
	result.Authors = c.extract.values(root, spec.Authors, v)
	result.Artists = c.extract.values(root, spec.Artists, v)

	genreLists := make([][]string, 0, len(spec.Genres))
	for _, genreSpec := range spec.Genres {
		genreLists = append(genreLists, c.extract.values(root, genreSpec, v))
	}
	result.Genres = normalize.MergeGenres(genreLists...)
	result.Synopsis = strings.Join(c.extract.values(root, spec.Synopsis, v), "\n\n")

	result.Status = c.status.Status(c.extract.first(root, spec.Status, v))
	for _, rule := range spec.StatusWhen {
		if root.exists(rule.Selector) {
			result.Status = models.ParseStatus(rule.Status)
			break
		}
	}
	result.Initialized = true

	return normalize.Series(result)
}

func specLocation(spec FieldSpec) string {
	if spec.Selector != "" {
		return spec.Selector
	}
	return spec.Path
}
