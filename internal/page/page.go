// Package page discovers and mutates natural-language text units in an
// HTML document tree. Scanning never modifies the tree; all mutation goes
// through locators resolved at apply time.
package page

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Unit is an addressable reference to one contiguous text region in the
// document. Original holds the raw node text so a restore is byte-exact.
type Unit struct {
	ID       string
	Loc      Locator
	Original string
}

// Parse reads an HTML document into a tree.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// Render serializes the tree back to HTML.
func Render(w io.Writer, root *html.Node) error {
	return html.Render(w, root)
}

// Locator is a structural address: the child-index path from the root to a
// text node. It is stable only for the lifetime of the current tree; live
// node pointers are never reused across scans.
type Locator []int

// String renders the locator as a slash-joined child-index path, usable as
// a map key for per-location bookkeeping.
func (l Locator) String() string {
	var b strings.Builder
	for i, idx := range l {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// Resolve walks the locator path from root. Returns nil if any step is out
// of range, which callers treat as a silently-skipped unit.
func Resolve(root *html.Node, loc Locator) *html.Node {
	n := root
	for _, idx := range loc {
		child := n.FirstChild
		for i := 0; i < idx && child != nil; i++ {
			child = child.NextSibling
		}
		if child == nil {
			return nil
		}
		n = child
	}
	return n
}

// SetText resolves the locator and replaces the text node's content.
// Returns false when the node is gone or is no longer a text node.
func SetText(root *html.Node, loc Locator, text string) bool {
	n := Resolve(root, loc)
	if n == nil || n.Type != html.TextNode {
		return false
	}
	n.Data = text
	return true
}
