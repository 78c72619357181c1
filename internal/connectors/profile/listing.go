package profile

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/ident"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
	"github.com/gabriel/source-connectors/internal/pagination"
	"github.com/gabriel/source-connectors/internal/searchutil"
)

func (c *Connector) ListPopular(ctx context.Context, page int) (models.SeriesPage, error) {
	result, err := c.list(ctx, c.config.Popular, page, "", nil)
	return result, connectors.Wrap(c.config.Key, "popular", err)
}

func (c *Connector) ListLatest(ctx context.Context, page int) (models.SeriesPage, error) {
	if c.config.Latest == nil {
		return models.SeriesPage{}, connectors.Unsupported(c.config.Key, "latest")
	}
	result, err := c.list(ctx, c.config.Latest, page, "", nil)
	return result, connectors.Wrap(c.config.Key, "latest", err)
}

func (c *Connector) Search(ctx context.Context, page int, query string, selections facets.Selections) (models.SeriesPage, error) {
	if c.config.Search == nil {
		return models.SeriesPage{}, connectors.Unsupported(c.config.Key, "search")
	}
	query = strings.TrimSpace(query)
	described := c.filters.Describe()
	if err := facets.CheckSelections(described, selections); err != nil {
		return models.SeriesPage{}, connectors.Wrap(c.config.Key, "search", fmt.Errorf("%w: %v", connectors.ErrInvalidInput, err))
	}
	extra := facets.Encode(described, selections)

	result, err := c.list(ctx, c.config.Search, page, query, extra)
	if err != nil {
		return models.SeriesPage{}, connectors.Wrap(c.config.Key, "search", err)
	}

	if c.config.Search.LocalFilter {
		matcher := searchutil.NewQuery(query)
		filtered := result.Items[:0]
		for _, series := range result.Items {
			if matcher.Matches(series.Title) {
				filtered = append(filtered, series)
			}
		}
		result.Items = filtered
	}
	return result, nil
}

func (c *Connector) list(ctx context.Context, listing *ListingConfig, page int, query string, extra url.Values) (models.SeriesPage, error) {
	if page < 1 {
		page = 1
	}
	perPage := listing.Pagination.PerPage
	v := vars{
		"page":   strconv.Itoa(page),
		"query":  query,
		"offset": strconv.Itoa((page - 1) * perPage),
		"limit":  strconv.Itoa(perPage),
	}

	root, _, err := c.load(ctx, listing.Request, v, extra)
	if err != nil {
		return models.SeriesPage{}, err
	}

	items := root.items(listing.Items)
	entries := make([]models.Series, 0, len(items))
	for _, item := range items {
		entries = append(entries, c.seriesEntry(item, listing, v))
	}

	return models.SeriesPage{
		Items:       normalize.SeriesList(entries, c.logger),
		HasNextPage: c.hasNext(root, listing.Pagination, page, len(items)),
	}, nil
}

func (c *Connector) seriesEntry(item node, listing *ListingConfig, v vars) models.Series {
	entry := models.Series{
		ID:           c.extract.first(item, listing.Fields["id"], v),
		Title:        c.extract.first(item, listing.Fields["title"], v),
		ThumbnailURL: c.extract.first(item, listing.Fields["thumbnail"], v),
	}
	if len(listing.Identifier.Parts) > 0 {
		entry.ID = c.packIdentifier(item, listing.Identifier.Parts, listing.Fields, v)
	}
	return entry
}

// packIdentifier joins the named fields into one identifier. An empty result
// makes the entry fail normalization and get skipped.
func (c *Connector) packIdentifier(item node, parts []string, fields map[string]FieldSpec, v vars) string {
	named := ident.Named{Names: parts, Values: map[string]string{}}
	for _, part := range parts {
		value := c.extract.first(item, fields[part], v)
		if value == "" {
			return ""
		}
		named.Values[part] = value
	}
	packed, err := named.Encode()
	if err != nil {
		c.logger.Debug("skipping identifier", "parts", parts, "error", err)
		return ""
	}
	return packed
}

// identifierVars exposes an identifier and its named parts to request templates
// as {prefix} and {prefix.part}. Parts of the "id" prefix are also available
// bare unless the name is taken, so {id} always stays the packed value.
func identifierVars(prefix string, id string, parts []string) (vars, error) {
	v := vars{prefix: id}
	if len(parts) == 0 {
		return v, nil
	}
	named, err := ident.ParseNamed(id, parts)
	if err != nil {
		return nil, err
	}
	for name, value := range named.Values {
		v[prefix+"."+name] = value
		if _, taken := v[name]; prefix == "id" && !taken {
			v[name] = value
		}
	}
	return v, nil
}

func (c *Connector) hasNext(root node, p PaginationConfig, page int, returned int) bool {
	strategy := pagination.Strategy(p.Strategy)
	signals := pagination.Signals{
		Page:       page,
		PerPage:    p.PerPage,
		Returned:   returned,
		Requested:  p.PerPage,
		CurrentURL: root.pageURL,
		Disabled:   p.DisabledClass,
	}

	switch strategy {
	case pagination.StrategyCount:
		signals.Total, _ = c.extract.intValue(root, p.Total, nil)
		if !p.Offset.empty() {
			if offset, ok := c.extract.intValue(root, p.Offset, nil); ok {
				signals.StartIndex = offset + 1
			}
		}
	case pagination.StrategyPageTotal:
		signals.TotalPages, _ = c.extract.intValue(root, p.TotalPages, nil)
	case pagination.StrategyNextElement:
		if !root.isHTML() {
			next := strings.ToLower(c.extract.first(root, FieldSpec{Path: p.NextSelector}, nil))
			return next != "" && next != "false" && next != "null" && next != "0"
		}
		signals.NextSelector = root.sel.Find(p.NextSelector)
	}
	return pagination.Oracle{Strategy: strategy}.HasNext(signals)
}
