package protocol

import "encoding/json"

// Control message types exchanged on the websocket relay next to raw preview
// payloads.
const (
	TypeReady = "ready"
	TypePing  = "ping"
	TypePong  = "pong"
	TypeError = "error"
)

// TypeSession tells an author which session it joined.
const TypeSession = "session"

var controlTypes = map[string]bool{
	TypeReady:   true,
	TypePing:    true,
	TypePong:    true,
	TypeError:   true,
	TypeSession: true,
}

// previewKeys are the PreviewMessage fields; a payload carrying any of them
// is a preview message whatever else it carries.
var previewKeys = []string{
	"frontendDefinition",
	"styles",
	"selectedComponentType",
	"selectedComponentId",
}

// Control is a relay control message.
type Control struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ParseControl reports whether data is a control message: a JSON object whose
// "type" is a known control type and which has none of the preview fields.
// Anything else is left to Decode.
func ParseControl(data []byte) (Control, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Control{}, false
	}
	for _, key := range previewKeys {
		if _, ok := fields[key]; ok {
			return Control{}, false
		}
	}

	var c Control
	if err := json.Unmarshal(data, &c); err != nil || !controlTypes[c.Type] {
		return Control{}, false
	}
	return c, true
}

// Marshal encodes the control message, which cannot fail for this type.
func (c Control) Marshal() []byte {
	data, _ := json.Marshal(c)
	return data
}
