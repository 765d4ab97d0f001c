// Package protocol defines the preview bridge wire format shared by the
// authoring side and the rendering side.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ReadyEvent is the global event a rendering context dispatches once after it
// has installed its handlers.
const ReadyEvent = "vellum:ready"

// DefaultHighlightBorder is the border declaration applied to the selected component.
const DefaultHighlightBorder = "2px solid #0055ff"

// PreviewMessage is the envelope pushed from the authoring context to the
// rendering context. Every message fully replaces the previous one.
type PreviewMessage struct {
	FrontendDefinition    json.RawMessage `json:"frontendDefinition,omitempty"`
	Styles                string          `json:"styles,omitempty"`
	SelectedComponentType string          `json:"selectedComponentType,omitempty"`
	SelectedComponentID   string          `json:"selectedComponentId,omitempty"`
}

// Selection returns the selection descriptor carried by the message.
// A message carrying only one half of the descriptor has no selection.
func (m PreviewMessage) Selection() Selection {
	if m.SelectedComponentType == "" || m.SelectedComponentID == "" {
		return Selection{}
	}
	return Selection{Type: m.SelectedComponentType, ID: m.SelectedComponentID}
}

// WithSelection returns a copy of m selecting the given component.
func (m PreviewMessage) WithSelection(sel Selection) PreviewMessage {
	m.SelectedComponentType = sel.Type
	m.SelectedComponentID = sel.ID
	return m
}

// Encode serializes the message into bridge payload text.
func (m PreviewMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode preview message: %w", err)
	}
	return data, nil
}

// Decode parses a bridge payload. It reports false for empty payloads and for
// payloads that are not a JSON object; callers drop those without touching
// their state. Unknown fields are ignored.
func Decode(data []byte) (PreviewMessage, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return PreviewMessage{}, false
	}

	var msg PreviewMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return PreviewMessage{}, false
	}
	if bytes.Equal(msg.FrontendDefinition, []byte("null")) {
		msg.FrontendDefinition = nil
	}

	sel := msg.Selection()
	msg.SelectedComponentType, msg.SelectedComponentID = sel.Type, sel.ID
	return msg, true
}
