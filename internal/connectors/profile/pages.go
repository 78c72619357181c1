package profile

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/models"
	"github.com/gabriel/source-connectors/internal/normalize"
)

func (c *Connector) FetchPages(ctx context.Context, chapter models.Chapter) ([]models.Page, error) {
	pages, err := c.fetchPages(ctx, chapter)
	return pages, connectors.Wrap(c.config.Key, "pages", err)
}

func (c *Connector) fetchPages(ctx context.Context, chapter models.Chapter) ([]models.Page, error) {
	v, err := c.chapterVars(chapter)
	if err != nil {
		return nil, err
	}

	spec := c.config.Pages
	if spec.Prepare != nil {
		if v, err = c.prepare(ctx, spec.Prepare, v); err != nil {
			return nil, fmt.Errorf("prepare: %w", err)
		}
	}

	root, _, err := c.load(ctx, spec.Request, v, nil)
	if err != nil {
		return nil, err
	}
	v = v.with(c.extractVars(root, spec.Vars, v))

	var refs []string
	for _, item := range root.items(spec.Items) {
		value := c.extract.first(item, spec.Image, v)
		if value == "" {
			continue
		}
		if spec.ImageTemplate != "" {
			value = expandValue(spec.ImageTemplate, v.with(map[string]string{"value": value}))
		}
		refs = append(refs, value)
	}
	return normalize.Pages(refs, spec.Tokens), nil
}

// prepare runs the preliminary request and returns v extended with its
// extracted vars and the requested cookies as cookie.<name> plus a combined
// "cookies" header value.
func (c *Connector) prepare(ctx context.Context, spec *PrepareConfig, v vars) (vars, error) {
	root, res, err := c.load(ctx, spec.Request, v, nil)
	if err != nil {
		return nil, err
	}
	out := v.with(c.extractVars(root, spec.Vars, v))

	if len(spec.Cookies) > 0 {
		wanted := map[string]bool{}
		for _, name := range spec.Cookies {
			wanted[name] = true
		}
		var pairs []string
		for _, cookie := range (&http.Response{Header: res.Header}).Cookies() {
			if !wanted[cookie.Name] {
				continue
			}
			out["cookie."+cookie.Name] = cookie.Value
			pairs = append(pairs, cookie.Name+"="+cookie.Value)
		}
		out["cookies"] = strings.Join(pairs, "; ")
	}
	return out, nil
}

func (c *Connector) extractVars(root node, specs map[string]FieldSpec, v vars) map[string]string {
	out := make(map[string]string, len(specs))
	for name, spec := range specs {
		out[name] = c.extract.first(root, spec, v)
	}
	return out
}

func (c *Connector) ResolveImage(ctx context.Context, page models.Page) (string, error) {
	if page.ImageURL != "" {
		return page.ImageURL, nil
	}
	if c.config.Image == nil {
		return "", connectors.Unsupported(c.config.Key, "image")
	}
	if strings.TrimSpace(page.URL) == "" {
		return "", connectors.Wrap(c.config.Key, "image", fmt.Errorf("%w: page url is required", connectors.ErrInvalidInput))
	}

	root, _, err := c.load(ctx, c.config.Image.Request, vars{"url": page.URL}, nil)
	if err != nil {
		return "", connectors.Wrap(c.config.Key, "image", err)
	}
	image := c.extract.first(root, c.config.Image.Image, nil)
	if image == "" {
		return "", connectors.Wrap(c.config.Key, "image", &normalize.MissingFieldError{Field: "image", Selector: specLocation(c.config.Image.Image)})
	}
	return image, nil
}
