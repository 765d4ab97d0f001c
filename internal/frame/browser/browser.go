//go:build js && wasm

// Package browser implements the frame host interfaces on a real browser
// document through syscall/js, for the frame compiled to WebAssembly.
package browser

import (
	"fmt"
	"syscall/js"

	"vellum/internal/frame"
)

// Document wraps the page document.
type Document struct {
	v js.Value
}

// Event wraps a DOM event.
type Event struct {
	v js.Value
}

// PreventDefault implements frame.Event.
func (e Event) PreventDefault() { e.v.Call("preventDefault") }

// StopPropagation implements frame.Event.
func (e Event) StopPropagation() { e.v.Call("stopPropagation") }

// CreateStyle implements frame.Document.
func (d Document) CreateStyle(css string) frame.Node {
	el := d.v.Call("createElement", "style")
	el.Set("textContent", css)
	return el
}

// AppendToHead implements frame.Document.
func (d Document) AppendToHead(n frame.Node) {
	if el, ok := n.(js.Value); ok {
		d.v.Get("head").Call("appendChild", el)
	}
}

// Attached implements frame.Document.
func (d Document) Attached(n frame.Node) bool {
	el, ok := n.(js.Value)
	if !ok || el.IsNull() || el.IsUndefined() {
		return false
	}
	return el.Get("isConnected").Truthy()
}

// Remove implements frame.Document.
func (d Document) Remove(n frame.Node) {
	if el, ok := n.(js.Value); ok {
		el.Call("remove")
	}
}

// AddCaptureListener implements frame.Document.
func (d Document) AddCaptureListener(eventType string, fn func(frame.Event)) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			fn(Event{v: args[0]})
		}
		return nil
	})
	d.v.Call("addEventListener", eventType, cb, true)
	return func() {
		d.v.Call("removeEventListener", eventType, cb, true)
		cb.Release()
	}
}

// Window wraps the page's global scope.
type Window struct {
	v   js.Value
	doc Document
}

// NewWindow returns the global window.
func NewWindow() *Window {
	g := js.Global()
	return &Window{v: g, doc: Document{v: g.Get("document")}}
}

// Document implements frame.Window.
func (w *Window) Document() frame.Document { return w.doc }

// DispatchEvent implements frame.Window.
func (w *Window) DispatchEvent(name string) {
	ev := js.Global().Get("Event").New(name)
	w.v.Call("dispatchEvent", ev)
}

// OnMessage implements frame.Window. String payloads are passed as is,
// structured ones are serialized to JSON first.
func (w *Window) OnMessage(fn func(data []byte)) func() {
	jsonStringify := js.Global().Get("JSON").Get("stringify")
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		data := args[0].Get("data")
		switch data.Type() {
		case js.TypeString:
			fn([]byte(data.String()))
		case js.TypeObject:
			fn([]byte(jsonStringify.Invoke(data).String()))
		}
		return nil
	})
	w.v.Call("addEventListener", "message", cb)
	return func() {
		w.v.Call("removeEventListener", "message", cb)
		cb.Release()
	}
}

// catch converts a JavaScript exception raised during fn into an error.
func catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if jsErr, ok := r.(js.Error); ok {
				err = jsErr
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	fn()
	return nil
}
