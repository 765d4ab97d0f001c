package protocol

import "strings"

// Selection identifies the component the author currently has selected.
// The zero value means nothing is selected.
type Selection struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ParseSelection parses the "type:id" form used on the command line.
func ParseSelection(s string) (Selection, bool) {
	if s == "" {
		return Selection{}, true
	}
	typ, id, ok := strings.Cut(s, ":")
	if !ok || typ == "" || id == "" {
		return Selection{}, false
	}
	return Selection{Type: typ, ID: id}, true
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return s.Type == "" && s.ID == ""
}

// ClassToken is the class name a rendering runtime puts on the element it
// renders for the component.
func (s Selection) ClassToken() string {
	return s.Type + "-" + s.ID
}

// Selector is the CSS selector matching the selected component. For the zero
// selection it is ".-", which no rendered element carries.
func (s Selection) Selector() string {
	return "." + s.ClassToken()
}

// HighlightRule returns the single rule of the selection stylesheet.
func (s Selection) HighlightRule(border string) string {
	if border == "" {
		border = DefaultHighlightBorder
	}
	return s.Selector() + "{border:" + border + ";}"
}

func (s Selection) String() string {
	if s.IsZero() {
		return ""
	}
	return s.Type + ":" + s.ID
}
