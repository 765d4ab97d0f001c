// Package hostapi provides the host objects the rendering runtime sees:
// vellum, console, document, window and localStorage.
package hostapi

import (
	"encoding/json"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"vellum/internal/dom"
	"vellum/internal/frame"
)

// Context holds what the host objects are bound to.
type Context struct {
	Logger     zerolog.Logger
	ScriptName string
	// Document backs window.document; nil leaves document undefined.
	Document *dom.Document
	// Slot is read by vellum.definition().
	Slot *frame.Slot
}

// Register injects the global host objects into vm. window starts without a
// localStorage; the runtime replaces it per render through NewWindow.
func Register(vm *goja.Runtime, hctx *Context) error {
	vellum := vm.NewObject()

	if err := registerDefinition(vm, vellum, hctx); err != nil {
		return err
	}
	if err := registerLog(vm, vellum, hctx); err != nil {
		return err
	}
	if err := vm.Set("vellum", vellum); err != nil {
		return err
	}

	win, err := NewWindow(vm, hctx, nil, goja.Null())
	if err != nil {
		return err
	}
	if err := vm.Set("window", win); err != nil {
		return err
	}
	if hctx.Document != nil {
		return vm.Set("document", win.Get("document"))
	}
	return nil
}

// registerDefinition injects vellum.definition() and vellum.version().
func registerDefinition(vm *goja.Runtime, vellum *goja.Object, hctx *Context) error {
	if err := vellum.Set("definition", func(call goja.FunctionCall) goja.Value {
		if hctx.Slot == nil {
			return goja.Null()
		}
		def, _ := hctx.Slot.Load()
		if len(def) == 0 {
			return goja.Null()
		}
		var v any
		if err := json.Unmarshal(def, &v); err != nil {
			panic(vm.NewTypeError("definition is not valid JSON: " + err.Error()))
		}
		return vm.ToValue(v)
	}); err != nil {
		return err
	}

	return vellum.Set("version", func(call goja.FunctionCall) goja.Value {
		if hctx.Slot == nil {
			return vm.ToValue(0)
		}
		_, v := hctx.Slot.Load()
		return vm.ToValue(v)
	})
}

// NewWindow builds a window object exposing document, localStorage and
// dispatchEvent. w may be nil, in which case dispatchEvent does nothing.
func NewWindow(vm *goja.Runtime, hctx *Context, w frame.Window, localStorage goja.Value) (*goja.Object, error) {
	win := vm.NewObject()
	if hctx.Document != nil {
		b := &binding{vm: vm, doc: hctx.Document}
		if err := win.Set("document", b.document()); err != nil {
			return nil, err
		}
	}
	if err := win.Set("localStorage", localStorage); err != nil {
		return nil, err
	}
	err := win.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		if w == nil || len(call.Arguments) < 1 {
			return vm.ToValue(false)
		}
		w.DispatchEvent(eventName(vm, call.Argument(0)))
		return vm.ToValue(true)
	})
	return win, err
}

// eventName accepts either a type string or an object with a type field.
func eventName(vm *goja.Runtime, v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if t := obj.Get("type"); t != nil && !goja.IsUndefined(t) {
			return t.String()
		}
	}
	return v.String()
}
