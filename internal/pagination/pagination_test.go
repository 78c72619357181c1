package pagination

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestCountBasedBoundaries(t *testing.T) {
	if CountBased(1, 20, 20) {
		t.Fatalf("expected no next page when the first window covers all results")
	}
	if !CountBased(1, 20, 21) {
		t.Fatalf("expected next page when one result remains")
	}
	if CountBased(41, 20, 60) {
		t.Fatalf("expected last window 41..60 to end pagination")
	}
}

func TestCountBasedMatchesFormulaAcrossGrid(t *testing.T) {
	for start := 1; start <= 30; start++ {
		for perPage := 1; perPage <= 12; perPage++ {
			for total := 0; total <= 45; total++ {
				want := start+perPage <= total
				if got := CountBased(start, perPage, total); got != want {
					t.Fatalf("CountBased(%d, %d, %d) = %v, want %v", start, perPage, total, got, want)
				}
			}
		}
	}
}

func TestCountFromOffset(t *testing.T) {
	if CountFromOffset(0, 20, 20) {
		t.Fatalf("offset 0 limit 20 total 20 must be the last page")
	}
	if !CountFromOffset(0, 20, 21) {
		t.Fatalf("offset 0 limit 20 total 21 must have a next page")
	}
}

func TestPageVsTotalAndFixedPageSize(t *testing.T) {
	if !PageVsTotal(1, 3) || PageVsTotal(3, 3) {
		t.Fatalf("unexpected page-vs-total result")
	}
	if !FixedPageSize(24, 24) {
		t.Fatalf("expected a full page to continue")
	}
	if FixedPageSize(23, 24) || FixedPageSize(25, 24) || FixedPageSize(0, 0) {
		t.Fatalf("expected short, oversized or unsized pages to stop")
	}
}

func doc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestNextElement(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		selector string
		want     bool
	}{
		{"present", `<a class="next" href="/list?page=3">Next</a>`, "a.next", true},
		{"absent", `<span>end</span>`, "a.next", false},
		{"disabled parent", `<ul class="pagination"><li class="page-item"><a href="?page=1">1</a></li><li class="page-item disabled"><a href="#">»</a></li></ul>`, ".pagination .page-item", false},
		{"last item enabled", `<ul class="pagination"><li class="page-item disabled"><a href="#">«</a></li><li class="page-item"><a href="/list?page=3">»</a></li></ul>`, ".pagination .page-item", true},
		{"aria disabled", `<a class="next" aria-disabled="true" href="/list?page=3">Next</a>`, "a.next", false},
		{"self link", `<a class="next" href="/list?page=2">Next</a>`, "a.next", false},
		{"hash link", `<a class="next" href="#">Next</a>`, "a.next", false},
		{"javascript link", `<a class="next" href="javascript:void(0)">Next</a>`, "a.next", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := doc(t, tt.markup)
			if got := NextElement(d.Find(tt.selector), "https://example.com/list?page=2", ""); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestOracleDispatchesToOneStrategy(t *testing.T) {
	count := Oracle{Strategy: StrategyCount}
	if count.HasNext(Signals{Page: 1, PerPage: 20, Total: 20}) {
		t.Fatalf("expected count oracle to stop at total")
	}
	if !count.HasNext(Signals{Page: 2, PerPage: 20, Total: 41}) {
		t.Fatalf("expected count oracle to continue")
	}

	size := Oracle{Strategy: StrategyPageSize}
	if size.HasNext(Signals{Returned: 5, Requested: 20, Total: 1000}) {
		t.Fatalf("page size oracle must ignore totals")
	}

	none := Oracle{Strategy: StrategyNone}
	if none.HasNext(Signals{Page: 1, TotalPages: 9}) {
		t.Fatalf("none oracle never continues")
	}
}

func TestParseStrategy(t *testing.T) {
	if got, err := ParseStrategy(""); err != nil || got != StrategyNextElement {
		t.Fatalf("expected default next_element, got %q (%v)", got, err)
	}
	if got, err := ParseStrategy("Page_Total"); err != nil || got != StrategyPageTotal {
		t.Fatalf("expected page_total, got %q (%v)", got, err)
	}
	if _, err := ParseStrategy("guess"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
