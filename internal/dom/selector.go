package dom

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Select returns the elements matching a CSS selector group, in document
// order. Selectors that do not compile are an error, as in a browser.
func (d *Document) Select(selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel.MatchAll(d.root), nil
}

// SelectFirst returns the first element matching selector, or nil.
func (d *Document) SelectFirst(selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel.MatchFirst(d.root), nil
}

// QuerySelectorAll is Select for callers that treat an invalid selector as
// matching nothing.
func (d *Document) QuerySelectorAll(selector string) []*html.Node {
	nodes, _ := d.Select(selector)
	return nodes
}

// QuerySelector is SelectFirst for callers that treat an invalid selector as
// matching nothing.
func (d *Document) QuerySelector(selector string) *html.Node {
	n, _ := d.SelectFirst(selector)
	return n
}
