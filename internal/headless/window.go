// Package headless runs a preview frame against an in-memory document, so the
// server can keep a live rendering of every session without a browser.
package headless

import (
	"sync"

	"golang.org/x/net/html"

	"vellum/internal/dom"
	"vellum/internal/frame"
)

// Document adapts dom.Document to frame.Document.
type Document struct {
	*dom.Document
}

// CreateStyle implements frame.Document.
func (d Document) CreateStyle(css string) frame.Node { return d.Document.CreateStyle(css) }

// AppendToHead implements frame.Document.
func (d Document) AppendToHead(n frame.Node) { d.Append(d.Head(), n.(*html.Node)) }

// Attached implements frame.Document.
func (d Document) Attached(n frame.Node) bool { return d.Document.Attached(n.(*html.Node)) }

// Remove implements frame.Document.
func (d Document) Remove(n frame.Node) { d.Document.Remove(n.(*html.Node)) }

// AddCaptureListener implements frame.Document.
func (d Document) AddCaptureListener(eventType string, fn func(frame.Event)) func() {
	return d.AddEventListener(nil, eventType, true, func(e *dom.Event) { fn(e) })
}

// Window is a headless global scope. Like a browser, it queues messages posted
// before a listener exists and delivers them once one registers.
type Window struct {
	doc Document

	// deliver serializes deliveries so messages arrive in post order.
	deliver sync.Mutex

	mu        sync.Mutex
	handler   func([]byte)
	queue     [][]byte
	observers map[uint64]func(string)
	nextID    uint64
	events    []string
	closed    bool
}

// NewWindow returns a window over doc.
func NewWindow(doc *dom.Document) *Window {
	return &Window{
		doc:       Document{doc},
		observers: make(map[uint64]func(string)),
	}
}

// Document implements frame.Window.
func (w *Window) Document() frame.Document { return w.doc }

// DOM returns the underlying document.
func (w *Window) DOM() *dom.Document { return w.doc.Document }

// DispatchEvent implements frame.Window. Observers run synchronously.
func (w *Window) DispatchEvent(name string) {
	w.mu.Lock()
	w.events = append(w.events, name)
	obs := make([]func(string), 0, len(w.observers))
	for _, fn := range w.observers {
		obs = append(obs, fn)
	}
	w.mu.Unlock()

	for _, fn := range obs {
		fn(name)
	}
}

// onEvent registers fn for every global event dispatched from now on.
func (w *Window) onEvent(fn func(name string)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.observers[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.observers, id)
	}
}

// dispatched returns the names of the global events dispatched so far.
func (w *Window) dispatched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.events...)
}

// OnMessage implements frame.Window. Queued messages are delivered before
// OnMessage returns.
func (w *Window) OnMessage(fn func(data []byte)) func() {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	w.mu.Lock()
	w.handler = fn
	queued := w.queue
	w.queue = nil
	w.mu.Unlock()

	for _, data := range queued {
		fn(data)
	}
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.handler = nil
	}
}

// PostMessage delivers data to the listener, or queues it until one exists.
func (w *Window) PostMessage(data []byte) {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	h := w.handler
	if h == nil {
		w.queue = append(w.queue, data)
	}
	w.mu.Unlock()

	if h != nil {
		h(data)
	}
}

// Close drops queued messages and ignores later posts.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.queue = nil
}
