package pagination

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Strategy string

const (
	StrategyCount       Strategy = "count"
	StrategyPageTotal   Strategy = "page_total"
	StrategyNextElement Strategy = "next_element"
	StrategyPageSize    Strategy = "page_size"
	StrategyNone        Strategy = "none"
)

func ParseStrategy(raw string) (Strategy, error) {
	switch strategy := Strategy(strings.ToLower(strings.TrimSpace(raw))); strategy {
	case StrategyCount, StrategyPageTotal, StrategyNextElement, StrategyPageSize, StrategyNone:
		return strategy, nil
	case "":
		return StrategyNextElement, nil
	default:
		return "", fmt.Errorf("unknown pagination strategy %q", raw)
	}
}

// CountBased reports whether results remain after the window that starts at the
// 1-based, inclusive startIndex.
func CountBased(startIndex, itemsPerPage, totalResults int) bool {
	return startIndex+itemsPerPage <= totalResults
}

// CountFromOffset is CountBased for APIs that report a 0-based offset.
func CountFromOffset(offset, limit, total int) bool {
	return CountBased(offset+1, limit, total)
}

func PageVsTotal(currentPage, totalPages int) bool {
	return currentPage < totalPages
}

// FixedPageSize assumes another page exists only when the page came back full.
// A short page ends pagination.
func FixedPageSize(returned, requested int) bool {
	return requested > 0 && returned == requested
}

// NextElement checks the last node of sel. It must not be disabled and must not
// link back to currentURL.
func NextElement(sel *goquery.Selection, currentURL string, disabledClass string) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	node := sel.Last()

	if disabledClass == "" {
		disabledClass = "disabled"
	}
	if node.HasClass(disabledClass) || node.Parent().HasClass(disabledClass) {
		return false
	}
	if _, ok := node.Attr("disabled"); ok {
		return false
	}
	if value, ok := node.Attr("aria-disabled"); ok && strings.EqualFold(strings.TrimSpace(value), "true") {
		return false
	}

	href, ok := node.Attr("href")
	if !ok {
		href, ok = node.Find("a[href]").First().Attr("href")
	}
	if !ok {
		// A bare "next" button without a link still counts as present.
		return true
	}
	return !selfReferential(href, currentURL)
}

func selfReferential(href string, currentURL string) bool {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || href == "#" || strings.HasPrefix(lower, "javascript:") {
		return true
	}
	if currentURL == "" {
		return false
	}

	base, err := url.Parse(currentURL)
	if err != nil {
		return false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return false
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	current := *base
	current.Fragment = ""
	return strings.TrimRight(resolved.String(), "/") == strings.TrimRight(current.String(), "/")
}

// Signals carries whatever a listing response exposed. Each strategy reads only
// the fields it needs.
type Signals struct {
	Page         int
	PerPage      int
	StartIndex   int
	Total        int
	TotalPages   int
	Returned     int
	Requested    int
	NextSelector *goquery.Selection
	CurrentURL   string
	Disabled     string
}

// Oracle applies a single strategy chosen when the listing is configured.
type Oracle struct {
	Strategy Strategy
}

func (o Oracle) HasNext(s Signals) bool {
	switch o.Strategy {
	case StrategyCount:
		start := s.StartIndex
		if start <= 0 {
			start = (max(s.Page, 1)-1)*s.PerPage + 1
		}
		return s.PerPage > 0 && CountBased(start, s.PerPage, s.Total)
	case StrategyPageTotal:
		return PageVsTotal(s.Page, s.TotalPages)
	case StrategyNextElement:
		return NextElement(s.NextSelector, s.CurrentURL, s.Disabled)
	case StrategyPageSize:
		return FixedPageSize(s.Returned, s.Requested)
	default:
		return false
	}
}
