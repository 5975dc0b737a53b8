package page

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/net/html"
)

// DefaultMinChars is the minimum trimmed length for a qualifying unit.
// Shorter fragments are excluded: per-unit network overhead dominates and
// the language heuristic collapses on short strings.
const DefaultMinChars = 15

// skipElements are non-renderable or control elements whose text content
// never qualifies. Descendants are skipped wholesale.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"svg":      true,
	"math":     true,
	"canvas":   true,
	"textarea": true,
	"select":   true,
	"button":   true,
	"head":     true,
}

// ScanOptions controls unit discovery.
type ScanOptions struct {
	// MinChars overrides DefaultMinChars when positive.
	MinChars int
}

// Scan walks the tree and yields qualifying text units as a finite,
// one-shot sequence. A unit qualifies when its trimmed text is non-empty,
// at least MinChars long, not inside a skipped element, and passes the
// German-language heuristic. Scanning never mutates the document.
func Scan(root *html.Node, opts ScanOptions) iter.Seq[Unit] {
	minChars := opts.MinChars
	if minChars <= 0 {
		minChars = DefaultMinChars
	}

	return func(yield func(Unit) bool) {
		walk(root, nil, minChars, yield)
	}
}

// walk descends depth-first, tracking the child-index path from the root.
func walk(n *html.Node, loc Locator, minChars int, yield func(Unit) bool) bool {
	if n.Type == html.ElementNode && skipElements[n.Data] {
		return true
	}

	if n.Type == html.TextNode {
		trimmed := strings.TrimSpace(n.Data)
		if trimmed == "" || utf8.RuneCountInString(trimmed) < minChars {
			return true
		}
		if !LooksGerman(trimmed) {
			return true
		}
		unit := Unit{
			ID:       ulid.Make().String(),
			Loc:      append(Locator(nil), loc...),
			Original: n.Data,
		}
		return yield(unit)
	}

	idx := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, append(loc, idx), minChars, yield) {
			return false
		}
		idx++
	}
	return true
}
