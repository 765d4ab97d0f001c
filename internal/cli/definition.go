package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vellum/internal/protocol"
)

// messageFlags are the inputs a preview message is built from.
type messageFlags struct {
	Definition string
	Styles     string
	Selection  string
}

// Files returns the input files that exist as flags.
func (f messageFlags) Files() []string {
	var files []string
	if f.Definition != "" {
		files = append(files, f.Definition)
	}
	if f.Styles != "" {
		files = append(files, f.Styles)
	}
	return files
}

// Build reads the input files into a preview message.
func (f messageFlags) Build() (protocol.PreviewMessage, error) {
	var msg protocol.PreviewMessage

	if f.Definition != "" {
		def, err := loadDefinition(f.Definition)
		if err != nil {
			return msg, err
		}
		msg.FrontendDefinition = def
	}

	if f.Styles != "" {
		data, err := os.ReadFile(f.Styles)
		if err != nil {
			return msg, fmt.Errorf("read styles: %w", err)
		}
		msg.Styles = string(data)
	}

	if f.Selection != "" {
		sel, ok := protocol.ParseSelection(f.Selection)
		if !ok {
			return msg, fmt.Errorf("invalid selection %q, want type:id", f.Selection)
		}
		msg = msg.WithSelection(sel)
	}
	return msg, nil
}

// loadDefinition reads a definition file. JSON is passed through untouched;
// anything else is parsed as YAML and converted.
func loadDefinition(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	if json.Valid(data) {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse definition %s: %w", path, err)
	}
	out, err := json.Marshal(jsonCompatible(v))
	if err != nil {
		return nil, fmt.Errorf("convert definition %s: %w", path, err)
	}
	return out, nil
}

// jsonCompatible turns the map[any]any yaml produces for non-string keys
// into map[string]any.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = jsonCompatible(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = jsonCompatible(val)
		}
		return t
	default:
		return v
	}
}
