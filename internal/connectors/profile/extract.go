package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabriel/source-connectors/internal/attr"
	"github.com/gabriel/source-connectors/internal/document"
)

// node is either an HTML selection or a decoded JSON value, plus the URLs
// relative references resolve against.
type node struct {
	sel     *goquery.Selection
	json    any
	pageURL string
	siteURL string
}

func (n node) isHTML() bool {
	return n.sel != nil
}

func (n node) items(path string) []node {
	var out []node
	if n.isHTML() {
		n.sel.Find(path).Each(func(_ int, s *goquery.Selection) {
			out = append(out, node{sel: s, pageURL: n.pageURL, siteURL: n.siteURL})
		})
		return out
	}

	value := n.json
	if strings.TrimSpace(path) != "" {
		value = document.Lookup(value, path)
	}
	list, ok := value.([]any)
	if !ok {
		if value == nil {
			return nil
		}
		list = []any{value}
	}
	for _, item := range list {
		out = append(out, node{json: item, pageURL: n.pageURL, siteURL: n.siteURL})
	}
	return out
}

func (n node) exists(path string) bool {
	if n.isHTML() {
		return n.sel.Find(path).Length() > 0
	}
	return document.Lookup(n.json, path) != nil
}

// extractor holds the compiled regexes and attribute candidates of a profile.
type extractor struct {
	patterns   map[string]*regexp.Regexp
	candidates map[string][]attr.Candidate
}

func newExtractor() *extractor {
	return &extractor{patterns: map[string]*regexp.Regexp{}, candidates: map[string][]attr.Candidate{}}
}

func candidateKey(specs []string) string {
	return strings.Join(specs, "\x00")
}

func (e *extractor) compile(spec FieldSpec) error {
	if spec.Regex != "" {
		if _, ok := e.patterns[spec.Regex]; !ok {
			pattern, err := regexp.Compile(spec.Regex)
			if err != nil {
				return fmt.Errorf("compile regex %q: %w", spec.Regex, err)
			}
			e.patterns[spec.Regex] = pattern
		}
	}
	if len(spec.Attrs) > 0 {
		key := candidateKey(spec.Attrs)
		if _, ok := e.candidates[key]; !ok {
			candidates, err := attr.ParseCandidates(spec.Attrs)
			if err != nil {
				return err
			}
			e.candidates[key] = candidates
		}
	}
	return nil
}

func (e *extractor) values(n node, spec FieldSpec, v vars) []string {
	var raw []string
	switch {
	case !spec.hasSource():
	case spec.From != "":
		raw = []string{v[spec.From]}
	case n.isHTML():
		sel := n.sel
		if spec.Selector != "" {
			sel = sel.Find(spec.Selector)
		}
		if !spec.All {
			sel = sel.First()
		}
		sel.Each(func(_ int, s *goquery.Selection) {
			if value, ok := e.htmlValue(s, spec); ok {
				raw = append(raw, value)
			}
		})
	default:
		raw = e.jsonValues(n.json, spec)
	}

	if !spec.All && len(raw) > 1 {
		raw = raw[:1]
	}
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		out = append(out, e.post(n, spec, value)...)
	}
	if len(out) == 0 && spec.Default != "" {
		out = []string{spec.Default}
	}
	return out
}

func (e *extractor) first(n node, spec FieldSpec, v vars) string {
	values := e.values(n, spec, v)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (e *extractor) intValue(n node, spec FieldSpec, v vars) (int, bool) {
	raw := strings.ReplaceAll(e.first(n, spec, v), ",", "")
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func (e *extractor) htmlValue(s *goquery.Selection, spec FieldSpec) (string, bool) {
	switch {
	case len(spec.Attrs) > 0:
		return attr.Resolve(s, e.candidates[candidateKey(spec.Attrs)])
	case spec.Attr != "":
		value, ok := s.Attr(spec.Attr)
		return value, ok
	case spec.OwnText:
		return document.OwnText(s), true
	default:
		return document.Text(s), true
	}
}

func (e *extractor) jsonValues(value any, spec FieldSpec) []string {
	if len(spec.Attrs) > 0 {
		target := value
		if spec.Path != "" {
			target = document.Lookup(value, spec.Path)
		}
		object, ok := document.AsObject(target)
		if !ok {
			return nil
		}
		resolved, ok := attr.Resolve(object, e.candidates[candidateKey(spec.Attrs)])
		if !ok {
			return nil
		}
		return []string{resolved}
	}
	return lookupAll(value, spec.Path)
}

// lookupAll walks a dotted path where "[]" fans out over every element of an
// array, so "tags[].attributes.name.en" yields one value per tag.
func lookupAll(value any, path string) []string {
	head, rest, fanOut := strings.Cut(path, "[]")
	if !fanOut {
		target := value
		if path != "" {
			target = document.Lookup(value, path)
		}
		return document.AsStrings(target, "")
	}

	target := value
	if head != "" {
		target = document.Lookup(value, head)
	}
	list, ok := target.([]any)
	if !ok {
		return nil
	}
	rest = strings.TrimPrefix(rest, ".")
	var out []string
	for _, item := range list {
		out = append(out, lookupAll(item, rest)...)
	}
	return out
}

func (e *extractor) post(n node, spec FieldSpec, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if spec.Regex != "" {
		match := e.patterns[spec.Regex].FindStringSubmatch(value)
		if match == nil {
			return nil
		}
		value = match[0]
		if len(match) > 1 {
			value = match[1]
		}
		value = strings.TrimSpace(value)
	}
	if spec.Trim != "" {
		value = strings.TrimSpace(strings.TrimPrefix(value, spec.Trim))
	}

	parts := []string{value}
	if spec.Split != "" {
		parts = strings.Split(value, spec.Split)
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if spec.Absolute || spec.Relative {
			part = document.ResolveURL(n.pageURL, part)
		}
		if spec.Relative {
			part = relativeTo(n.siteURL, part)
		}
		out = append(out, part)
	}
	return out
}

// fieldSpecs lists every field of the profile so they can be compiled up front.
func (c *Config) fieldSpecs() []FieldSpec {
	var specs []FieldSpec
	listing := func(l *ListingConfig) {
		if l == nil {
			return
		}
		for _, spec := range l.Fields {
			specs = append(specs, spec)
		}
		specs = append(specs, l.Pagination.Total, l.Pagination.TotalPages, l.Pagination.Offset)
	}
	listing(c.Popular)
	listing(c.Latest)
	listing(c.Search)

	if c.Filters != nil {
		for _, facet := range c.Filters.Facets {
			if facet.Source != nil {
				specs = append(specs, facet.Source.Value, facet.Source.Label)
			}
		}
	}

	d := c.Details
	specs = append(specs, d.Title, d.Thumbnail, d.Authors, d.Artists, d.Synopsis, d.Status)
	specs = append(specs, d.Genres...)

	specs = append(specs, c.Chapters.Container, c.Chapters.Pagination.Total, c.Chapters.Pagination.TotalPages, c.Chapters.Pagination.Offset)
	for _, spec := range c.Chapters.Fields {
		specs = append(specs, spec)
	}

	if c.Pages.Prepare != nil {
		for _, spec := range c.Pages.Prepare.Vars {
			specs = append(specs, spec)
		}
	}
	for _, spec := range c.Pages.Vars {
		specs = append(specs, spec)
	}
	specs = append(specs, c.Pages.Image)

	if c.Image != nil {
		specs = append(specs, c.Image.Image)
	}
	return specs
}
