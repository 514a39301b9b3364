// Package pages parses page-selection expressions such as "1-5,8" and
// validates them against a document's page count.
package pages

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidSelection is wrapped by every parse or range failure.
var ErrInvalidSelection = errors.New("invalid page selection")

// CountMode decides how range tokens contribute to the effective page count.
type CountMode string

const (
	// CountSpan counts every distinct page covered by the selection.
	CountSpan CountMode = "span"
	// CountToken counts each comma separated token as one page, ranges
	// included.
	CountToken CountMode = "token"
)

// ParseCountMode maps a configuration value onto a CountMode, defaulting to
// CountSpan for anything unrecognised.
func ParseCountMode(v string) CountMode {
	if CountMode(strings.ToLower(strings.TrimSpace(v))) == CountToken {
		return CountToken
	}
	return CountSpan
}

// Range is an inclusive span of 1-based page numbers. Single pages have
// Start == End.
type Range struct {
	Start int
	End   int
}

// Selection is a validated page selection for a document of Total pages.
type Selection struct {
	All    bool
	Ranges []Range
	Total  int
}

// Parse validates expr against a document of total pages. An empty
// expression and the keyword "all" select every page. Page numbers are
// unsigned decimals; leading zeros are accepted, so "03" parses as 3.
func Parse(expr string, total int) (Selection, error) {
	if total < 1 {
		return Selection{}, fmt.Errorf("%w: document has no pages", ErrInvalidSelection)
	}
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" || strings.EqualFold(trimmed, "all") {
		return Selection{All: true, Total: total}, nil
	}
	tokens := strings.Split(trimmed, ",")
	sel := Selection{Total: total, Ranges: make([]Range, 0, len(tokens))}
	for _, tok := range tokens {
		r, err := parseToken(strings.TrimSpace(tok), total)
		if err != nil {
			return Selection{}, err
		}
		sel.Ranges = append(sel.Ranges, r)
	}
	return sel, nil
}

func parseToken(tok string, total int) (Range, error) {
	if tok == "" {
		return Range{}, fmt.Errorf("%w: empty token", ErrInvalidSelection)
	}
	start, end, isRange := strings.Cut(tok, "-")
	a, err := parsePage(start, total)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidSelection, tok, err)
	}
	if !isRange {
		return Range{Start: a, End: a}, nil
	}
	b, err := parsePage(end, total)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidSelection, tok, err)
	}
	if a > b {
		return Range{}, fmt.Errorf("%w: %q: start is after end", ErrInvalidSelection, tok)
	}
	return Range{Start: a, End: b}, nil
}

func parsePage(s string, total int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, errors.New("not a page number")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("not a page number")
	}
	if n < 1 || n > total {
		return 0, fmt.Errorf("page %d outside 1-%d", n, total)
	}
	return n, nil
}

// Pages returns the effective page count used for pricing. In span mode
// overlapping and repeated tokens count each page once.
func (s Selection) Pages(mode CountMode) int {
	if s.All {
		return s.Total
	}
	if mode == CountToken {
		return len(s.Ranges)
	}
	n := 0
	for _, r := range merge(s.Ranges) {
		n += r.End - r.Start + 1
	}
	return n
}

// merge returns ranges sorted by start with overlapping and adjacent spans
// joined.
func merge(ranges []Range) []Range {
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b Range) int { return a.Start - b.Start })
	out := make([]Range, 0, len(sorted))
	for _, r := range sorted {
		if last := len(out) - 1; last >= 0 && r.Start <= out[last].End+1 {
			out[last].End = max(out[last].End, r.End)
			continue
		}
		out = append(out, r)
	}
	return out
}

// String renders the selection in canonical form.
func (s Selection) String() string {
	if s.All {
		return "all"
	}
	parts := make([]string, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		if r.Start == r.End {
			parts = append(parts, strconv.Itoa(r.Start))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d-%d", r.Start, r.End))
	}
	return strings.Join(parts, ",")
}
