package dom

import "testing"

func TestQuerySelectorAll(t *testing.T) {
	d := New()
	list := d.CreateElement("ul")
	SetAttr(list, "id", "items")
	for _, cls := range []string{"component button button-42", "component text text-7", "component button button-43"} {
		li := d.CreateElement("li")
		SetAttr(li, "class", cls)
		d.Append(list, li)
	}
	d.Append(d.Body(), list)

	tests := []struct {
		selector string
		want     int
	}{
		{".button-42", 1},
		{".button", 2},
		{".component.button-42", 1},
		{"li", 3},
		{"#items", 1},
		{"ul li.text", 1},
		{"body .text-7", 1},
		{"body > ul", 1},
		{"body > li", 0},
		{"li:first-child", 1},
		{"li:not(.text)", 2},
		{"li[class~=button-43]", 1},
		{".button-42, .text-7", 2},
		{"ul ul", 0},
		{".-", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			if got := len(d.QuerySelectorAll(tt.selector)); got != tt.want {
				t.Errorf("QuerySelectorAll(%q) = %d matches, want %d", tt.selector, got, tt.want)
			}
		})
	}

	if d.QuerySelector(".missing") != nil {
		t.Error("QuerySelector(.missing) should be nil")
	}
	if first := d.QuerySelector("li"); Attr(first, "class") != "component button button-42" {
		t.Errorf("QuerySelector(li) = %q, want the first item", Attr(first, "class"))
	}
}

func TestSelectInvalid(t *testing.T) {
	d := New()
	for _, sel := range []string{"div[", "::", "li:no-such-pseudo"} {
		if _, err := d.Select(sel); err == nil {
			t.Errorf("Select(%q) accepted an invalid selector", sel)
		}
		if _, err := d.SelectFirst(sel); err == nil {
			t.Errorf("SelectFirst(%q) accepted an invalid selector", sel)
		}
	}
}
