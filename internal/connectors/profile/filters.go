package profile

import (
	"context"
	"fmt"

	"github.com/gabriel/source-connectors/internal/facets"
)

func (c *Connector) newFilterRegistry(opts Options) *facets.Registry {
	if c.config.Filters == nil {
		return facets.NewRegistry(nil, nil, facets.Options{Name: c.config.Key, Logger: c.logger})
	}

	base := make([]facets.Facet, 0, len(c.config.Filters.Facets))
	remote := false
	for _, facet := range c.config.Filters.Facets {
		if facet.Source != nil {
			remote = true
			base = append(base, facets.Placeholder(facet.Key, facet.Label))
			continue
		}
		base = append(base, facet.static())
	}

	var loader facets.Loader
	if remote {
		loader = c.loadFacets
	}
	return facets.NewRegistry(base, loader, facets.Options{
		Name:        c.config.Key,
		MaxAttempts: opts.FilterAttempts,
		Timeout:     opts.FilterTimeout,
		Logger:      c.logger,
	})
}

// DescribeFilters returns what is known right now and kicks off a background
// fetch of remote options when they are still missing.
func (c *Connector) DescribeFilters() []facets.Facet {
	c.filters.TriggerPopulate()
	return c.filters.Describe()
}

func (c *Connector) RefreshFilters() {
	c.filters.Invalidate()
	c.filters.TriggerPopulate()
}

// loadFacets scrapes option lists for every facet with a source. A facet that
// yields no options fails the whole load so the attempt counts.
func (c *Connector) loadFacets(ctx context.Context) ([]facets.Facet, error) {
	root, _, err := c.load(ctx, c.config.Filters.Request, nil, nil)
	if err != nil {
		return nil, err
	}

	var loaded []facets.Facet
	for _, cfg := range c.config.Filters.Facets {
		if cfg.Source == nil {
			continue
		}
		facet := cfg.static()
		valueSpec := cfg.Source.Value
		if cfg.Source.ValueAttr != "" {
			valueSpec = FieldSpec{Attr: cfg.Source.ValueAttr}
		}

		scraped := 0
		for _, item := range root.items(cfg.Source.Items) {
			value := c.extract.first(item, valueSpec, nil)
			label := c.extract.first(item, cfg.Source.Label, nil)
			if value == "" && cfg.Source.SkipEmpty {
				continue
			}
			if label == "" {
				label = value
			}
			if label == "" {
				continue
			}
			facet.Options = append(facet.Options, facets.Option{Label: label, Value: value})
			scraped++
		}
		if scraped == 0 {
			return nil, fmt.Errorf("facet %q: no options found at %q", cfg.Key, cfg.Source.Items)
		}
		loaded = append(loaded, facet)
	}
	return loaded, nil
}
