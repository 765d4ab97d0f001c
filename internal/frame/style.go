package frame

// detach drops the node held in *slot, removing it from the document when it
// is still attached. A node that is already gone is simply forgotten.
func detach(doc Document, slot *Node) {
	if *slot == nil {
		return
	}
	if doc.Attached(*slot) {
		doc.Remove(*slot)
	}
	*slot = nil
}

// injectStyles attaches the author's stylesheet verbatim.
func injectStyles(doc Document, css string) Node {
	n := doc.CreateStyle(css)
	doc.AppendToHead(n)
	return n
}
