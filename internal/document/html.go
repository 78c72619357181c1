package document

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// HTML is a parsed page together with the URL relative links resolve against.
type HTML struct {
	*goquery.Document
	base *url.URL
}

// ParseHTML parses body as HTML. charset names a non UTF-8 encoding declared by
// the site (for example "shift_jis"); empty means the body is already UTF-8.
func ParseHTML(body []byte, baseURL string, charset string) (*HTML, error) {
	var reader io.Reader = bytes.NewReader(body)

	charset = strings.TrimSpace(charset)
	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "utf8") {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
		}
		reader = transform.NewReader(reader, enc.NewDecoder())
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var base *url.URL
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		base = parsed
	}

	return &HTML{Document: doc, base: base}, nil
}

// Fragment parses a snippet that is not a full page (for example HTML stored in
// an attribute value).
func Fragment(markup string, baseURL string) (*HTML, error) {
	return ParseHTML([]byte("<div>"+markup+"</div>"), baseURL, "")
}

func (h *HTML) BaseURL() string {
	if h.base == nil {
		return ""
	}
	return h.base.String()
}

func (h *HTML) Resolve(ref string) string {
	if h.base == nil {
		return strings.TrimSpace(ref)
	}
	return resolveAgainst(h.base, ref)
}

// ResolveURL makes ref absolute against base. Unparseable input is returned trimmed.
func ResolveURL(base string, ref string) string {
	parsed, err := url.Parse(strings.TrimSpace(base))
	if err != nil || strings.TrimSpace(base) == "" {
		return strings.TrimSpace(ref)
	}
	return resolveAgainst(parsed, ref)
}

func resolveAgainst(base *url.URL, ref string) string {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		return trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	return base.ResolveReference(parsed).String()
}

// Text returns the whitespace-collapsed text of a selection.
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// OwnText returns only the text nodes that are direct children of the first node.
func OwnText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var parts []string
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			parts = append(parts, child.Data)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
