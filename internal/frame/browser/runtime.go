//go:build js && wasm

package browser

import (
	"strings"
	"syscall/js"

	"github.com/rs/zerolog"

	"vellum/internal/frame"
)

// EntryPointName is the global function the page's renderer defines.
const EntryPointName = "renderPreview"

// Runtime is the page's own JavaScript renderer. It is whatever script the
// page loaded; the frame only calls its entry point.
type Runtime struct {
	slot  *frame.Slot
	log   zerolog.Logger
	funcs []js.Func
}

// NewRuntime creates a runtime reading definitions from slot. Renderer log
// calls go to log.
func NewRuntime(slot *frame.Slot, log zerolog.Logger) *Runtime {
	return &Runtime{slot: slot, log: log}
}

func (r *Runtime) logFunc(level func() *zerolog.Event) js.Func {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		toString := js.Global().Get("String")
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = toString.Invoke(a).String()
		}
		level().Msg(strings.Join(parts, " "))
		return nil
	})
	r.funcs = append(r.funcs, f)
	return f
}

// Install exposes the vellum global to page scripts, the same surface the
// embedded runtime offers: vellum.definition() returns the published
// definition, vellum.version() its version, vellum.log.{debug,info,warn,error}
// write to the frame log.
func (r *Runtime) Install() {
	parse := js.Global().Get("JSON").Get("parse")
	definition := js.FuncOf(func(this js.Value, args []js.Value) any {
		def, _ := r.slot.Load()
		if len(def) == 0 {
			return js.Null()
		}
		return parse.Invoke(string(def))
	})
	version := js.FuncOf(func(this js.Value, args []js.Value) any {
		_, v := r.slot.Load()
		return float64(v)
	})
	r.funcs = append(r.funcs, definition, version)

	log := r.log.With().Str("script", "renderer.js").Logger()
	js.Global().Set("vellum", map[string]any{
		"definition": definition,
		"version":    version,
		"log": map[string]any{
			"debug": r.logFunc(log.Debug),
			"info":  r.logFunc(log.Info),
			"warn":  r.logFunc(log.Warn),
			"error": r.logFunc(log.Error),
		},
	})
}

// Release frees the functions installed by Install.
func (r *Runtime) Release() {
	for _, f := range r.funcs {
		f.Release()
	}
	r.funcs = nil
}

// EntryPoint implements frame.Runtime. It is looked up on every call, so a
// renderer script that loads late is picked up.
func (r *Runtime) EntryPoint() (frame.EntryPoint, bool) {
	fn := js.Global().Get(EntryPointName)
	if fn.Type() != js.TypeFunction {
		return nil, false
	}
	return func(rc frame.RuntimeContext) error {
		g := js.Global()
		ctx := map[string]any{
			"window":       g,
			"localStorage": js.Null(),
		}
		if rc.Storage != nil {
			ctx["localStorage"] = g.Get("localStorage")
		}
		return catch(func() { fn.Invoke(ctx) })
	}, true
}
