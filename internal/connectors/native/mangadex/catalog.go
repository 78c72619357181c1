package mangadex

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/facets"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
	"github.com/gabriel/source-connectors/internal/pagination"
)

const (
	sortParam = "order"
	tagsKey   = "tags"
)

var defaultContentRating = []string{"safe", "suggestive"}

func baseFacets() []facets.Facet {
	return []facets.Facet{
		{
			Key:   "sort",
			Label: "Sort",
			Kind:  facets.KindSelect,
			Param: sortParam,
			Options: []facets.Option{
				{Label: "Relevance", Value: "relevance"},
				{Label: "Popularity", Value: "followedCount"},
				{Label: "Latest upload", Value: "latestUploadedChapter"},
				{Label: "Rating", Value: "rating"},
				{Label: "Recently added", Value: "createdAt"},
				{Label: "Title", Value: "title"},
				{Label: "Year", Value: "year"},
			},
		},
		{
			Key:   "status",
			Label: "Status",
			Kind:  facets.KindMulti,
			Param: "status[]",
			Options: []facets.Option{
				{Label: "Ongoing", Value: "ongoing"},
				{Label: "Completed", Value: "completed"},
				{Label: "Hiatus", Value: "hiatus"},
				{Label: "Cancelled", Value: "cancelled"},
			},
		},
		{
			Key:   "rating",
			Label: "Content rating",
			Kind:  facets.KindMulti,
			Param: "contentRating[]",
			Options: []facets.Option{
				{Label: "Safe", Value: "safe"},
				{Label: "Suggestive", Value: "suggestive"},
				{Label: "Erotica", Value: "erotica"},
				{Label: "Pornographic", Value: "pornographic"},
			},
		},
		{
			Key:   "tag_mode",
			Label: "Included tags mode",
			Kind:  facets.KindSelect,
			Param: "includedTagsMode",
			Options: []facets.Option{
				{Label: "All", Value: "AND"},
				{Label: "Any", Value: "OR"},
			},
		},
		facets.Placeholder(tagsKey, "Tags"),
	}
}

func (c *Connector) ListPopular(ctx context.Context, page int) (models.SeriesPage, error) {
	result, err := c.listManga(ctx, page, url.Values{"order[followedCount]": {"desc"}})
	return result, connectors.Wrap(key, "popular", err)
}

func (c *Connector) ListLatest(ctx context.Context, page int) (models.SeriesPage, error) {
	result, err := c.listManga(ctx, page, url.Values{"order[latestUploadedChapter]": {"desc"}})
	return result, connectors.Wrap(key, "latest", err)
}

func (c *Connector) Search(ctx context.Context, page int, query string, selections facets.Selections) (models.SeriesPage, error) {
	described := c.filters.Describe()
	if err := facets.CheckSelections(described, selections); err != nil {
		return models.SeriesPage{}, connectors.Wrap(key, "search", fmt.Errorf("%w: %v", connectors.ErrInvalidInput, err))
	}
	values := facets.Encode(described, selections)

	if field := values.Get(sortParam); field != "" {
		values.Del(sortParam)
		values.Set("order["+field+"]", sortDirection(field))
	}
	query = strings.TrimSpace(query)
	if query != "" {
		values.Set("title", query)
		if !hasOrder(values) {
			values.Set("order[relevance]", "desc")
		}
	}
	if !hasOrder(values) {
		values.Set("order[followedCount]", "desc")
	}

	result, err := c.listManga(ctx, page, values)
	return result, connectors.Wrap(key, "search", err)
}

func sortDirection(field string) string {
	if field == "title" {
		return "asc"
	}
	return "desc"
}

func hasOrder(values url.Values) bool {
	for name := range values {
		if strings.HasPrefix(name, "order[") {
			return true
		}
	}
	return false
}

func (c *Connector) listManga(ctx context.Context, page int, values url.Values) (models.SeriesPage, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * listingLimit

	values.Set("limit", strconv.Itoa(listingLimit))
	values.Set("offset", strconv.Itoa(offset))
	values.Add("includes[]", "cover_art")
	values.Set("availableTranslatedLanguage[]", c.language)
	if len(values["contentRating[]"]) == 0 {
		values["contentRating[]"] = append([]string(nil), defaultContentRating...)
	}

	var payload mangaListResponse
	if err := c.getJSON(ctx, "/manga", values, &payload); err != nil {
		return models.SeriesPage{}, err
	}

	entries := make([]models.Series, 0, len(payload.Data))
	for _, item := range payload.Data {
		entries = append(entries, models.Series{
			ID:           item.ID,
			Title:        c.pickLocalized(item.Attributes.Title),
			ThumbnailURL: c.coverURL(item),
		})
	}

	return models.SeriesPage{
		Items:       normalize.SeriesList(entries, c.logger),
		HasNextPage: pagination.CountFromOffset(payload.Offset, payload.Limit, payload.Total),
	}, nil
}

func (c *Connector) coverURL(item mangaData) string {
	for _, rel := range item.Relationships {
		if rel.Type == "cover_art" && rel.Attributes.FileName != "" {
			return fmt.Sprintf("%s/covers/%s/%s.256.jpg", c.coversURL, item.ID, rel.Attributes.FileName)
		}
	}
	return ""
}

// DescribeFilters serves the static facets right away and starts loading the
// tag list in the background.
func (c *Connector) DescribeFilters() []facets.Facet {
	c.filters.TriggerPopulate()
	return c.filters.Describe()
}

func (c *Connector) RefreshFilters() {
	c.filters.Invalidate()
	c.filters.TriggerPopulate()
}

func (c *Connector) loadTags(ctx context.Context) ([]facets.Facet, error) {
	var payload tagListResponse
	if err := c.getJSON(ctx, "/manga/tag", nil, &payload); err != nil {
		return nil, err
	}

	options := make([]facets.Option, 0, len(payload.Data))
	for _, tag := range payload.Data {
		label := c.pickLocalized(tag.Attributes.Name)
		if tag.ID == "" || label == "" {
			continue
		}
		options = append(options, facets.Option{Label: label, Value: tag.ID})
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("tag list is empty")
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Label < options[j].Label
	})

	return []facets.Facet{{
		Key:     tagsKey,
		Label:   "Tags",
		Kind:    facets.KindToggle,
		Options: options,
		Toggle: facets.ToggleEncoding{
			Style:        facets.ToggleParams,
			IncludeParam: "includedTags[]",
			ExcludeParam: "excludedTags[]",
		},
	}}, nil
}
