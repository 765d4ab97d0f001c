package jsvm

import _ "embed"

// DefaultScript is the renderer loaded when no script is configured.
//
//go:embed scripts/renderer.js
var DefaultScript string

// DefaultScriptName names DefaultScript in errors and logs.
const DefaultScriptName = "renderer.js"
