package protocol

import "testing"

func TestSelectionSelector(t *testing.T) {
	tests := []struct {
		sel      Selection
		selector string
		rule     string
	}{
		{Selection{Type: "button", ID: "42"}, ".button-42", ".button-42{border:2px solid #0055ff;}"},
		{Selection{Type: "text", ID: "7"}, ".text-7", ".text-7{border:2px solid #0055ff;}"},
		{Selection{}, ".-", ".-{border:2px solid #0055ff;}"},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			if got := tt.sel.Selector(); got != tt.selector {
				t.Errorf("Selector() = %q, want %q", got, tt.selector)
			}
			if got := tt.sel.HighlightRule(""); got != tt.rule {
				t.Errorf("HighlightRule() = %q, want %q", got, tt.rule)
			}
		})
	}
}

func TestHighlightRuleCustomBorder(t *testing.T) {
	sel := Selection{Type: "image", ID: "a1"}
	want := ".image-a1{border:1px dashed red;}"
	if got := sel.HighlightRule("1px dashed red"); got != want {
		t.Errorf("HighlightRule() = %q, want %q", got, want)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in   string
		want Selection
		ok   bool
	}{
		{"button:42", Selection{Type: "button", ID: "42"}, true},
		{"", Selection{}, true},
		{"button", Selection{}, false},
		{":42", Selection{}, false},
		{"button:", Selection{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseSelection(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSelection(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
