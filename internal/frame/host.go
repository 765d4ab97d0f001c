// Package frame implements the rendering side of the preview bridge: it
// receives preview messages, keeps the single live RenderState, injects the
// author's stylesheet and the selection highlight into the document head,
// blocks pointer activation, and hands the definition to the embedded
// rendering runtime.
//
// The package talks to its host only through the interfaces below, so the
// same Frame drives a headless document on the server and a real browser
// document when compiled to WebAssembly.
package frame

// Node is an opaque handle to a node created by a Document.
type Node any

// Document is the part of the rendering context's document the frame mutates.
type Document interface {
	// CreateStyle returns a detached stylesheet node holding css verbatim.
	CreateStyle(css string) Node
	// AppendToHead attaches n as the last child of the document head.
	AppendToHead(n Node)
	// Attached reports whether n is currently in the document.
	Attached(n Node) bool
	// Remove detaches n. Callers check Attached first.
	Remove(n Node)
	// AddCaptureListener registers fn at document level in the capture phase
	// and returns a function removing it.
	AddCaptureListener(eventType string, fn func(Event)) func()
}

// Event is a dispatched input event.
type Event interface {
	PreventDefault()
	StopPropagation()
}

// Window is the rendering context's global scope.
type Window interface {
	Document() Document
	// DispatchEvent fires a payload-less named event on the global scope.
	DispatchEvent(name string)
	// OnMessage registers the bridge listener and returns a function removing it.
	OnMessage(fn func(data []byte)) func()
}

// Storage is the localStorage-like handle passed to the rendering runtime.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Keys() ([]string, error)
	Clear() error
}

// RuntimeContext is the argument of the runtime entry point.
type RuntimeContext struct {
	Window  Window
	Storage Storage
}

// EntryPoint re-materializes the visual tree from the published definition.
type EntryPoint func(RuntimeContext) error

// Runtime is the embedded rendering runtime.
type Runtime interface {
	// EntryPoint reports the runtime's render function, or false while the
	// runtime has not finished loading.
	EntryPoint() (EntryPoint, bool)
}
