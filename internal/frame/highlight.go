package frame

import "vellum/internal/protocol"

// injectHighlight attaches the selection stylesheet. The zero selection still
// gets a stylesheet; its selector matches nothing.
func injectHighlight(doc Document, sel protocol.Selection, border string) Node {
	n := doc.CreateStyle(sel.HighlightRule(border))
	doc.AppendToHead(n)
	return n
}
