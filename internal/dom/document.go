// Package dom provides an in-memory HTML document used as a headless
// rendering surface. The tree is a golang.org/x/net/html node tree, so it
// renders to real markup; the package adds the pieces the tree lacks: stable
// head/body handles, attachment checks, DOM-style event dispatch and the
// default actions browsers run for links and forms.
//
// A Document is not safe for concurrent use; its owner serializes access.
package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a mutable HTML document.
type Document struct {
	root *html.Node
	html *html.Node
	head *html.Node
	body *html.Node

	listeners map[*html.Node][]*listener
	nextID    uint64
	onDefault func(Action)
}

// New returns an empty document: doctype, html, head and body.
func New() *Document {
	d := &Document{
		root:      &html.Node{Type: html.DocumentNode},
		listeners: make(map[*html.Node][]*listener),
	}
	d.root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	d.html = d.CreateElement("html")
	d.head = d.CreateElement("head")
	d.body = d.CreateElement("body")
	d.root.AppendChild(d.html)
	d.html.AppendChild(d.head)
	d.html.AppendChild(d.body)
	return d
}

// Root returns the document node. Listeners registered on it see every event.
func (d *Document) Root() *html.Node { return d.root }

// Head returns the head element.
func (d *Document) Head() *html.Node { return d.head }

// Body returns the body element.
func (d *Document) Body() *html.Node { return d.body }

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// CreateStyle creates a detached <style> element holding css verbatim.
func (d *Document) CreateStyle(css string) *html.Node {
	n := d.CreateElement("style")
	n.AppendChild(d.CreateText(css))
	return n
}

// Append attaches child as the last child of parent. A child that is
// attached elsewhere is moved.
func (d *Document) Append(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

// Attached reports whether n is currently part of this document's tree.
func (d *Document) Attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// Remove detaches n from its parent. It reports false, and does nothing, when
// n has no parent.
func (d *Document) Remove(n *html.Node) bool {
	if n == nil || n.Parent == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

// ClearChildren detaches every child of n.
func (d *Document) ClearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, mostly for logs and tests.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

// Styles returns the text of every <style> element in head, in document order.
func (d *Document) Styles() []string {
	var out []string
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Style {
			out = append(out, TextContent(c))
		}
	}
	return out
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets attribute key on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether n carries class token c.
func HasClass(n *html.Node, c string) bool {
	for _, tok := range strings.Fields(Attr(n, "class")) {
		if tok == c {
			return true
		}
	}
	return false
}

// AddClass appends class tokens missing from n.
func AddClass(n *html.Node, classes ...string) {
	tokens := strings.Fields(Attr(n, "class"))
	for _, c := range classes {
		if c != "" && !HasClass(n, c) {
			tokens = append(tokens, c)
			SetAttr(n, "class", strings.Join(tokens, " "))
		}
	}
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// TextContent concatenates all text below n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
