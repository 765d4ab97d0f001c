package frame

import (
	"encoding/json"

	"golang.org/x/net/html"

	"vellum/internal/dom"
)

// testDocument adapts dom.Document to the frame's Document interface.
type testDocument struct {
	d *dom.Document
}

func (t *testDocument) CreateStyle(css string) Node { return t.d.CreateStyle(css) }
func (t *testDocument) AppendToHead(n Node)         { t.d.Append(t.d.Head(), n.(*html.Node)) }
func (t *testDocument) Attached(n Node) bool        { return t.d.Attached(n.(*html.Node)) }
func (t *testDocument) Remove(n Node)               { t.d.Remove(n.(*html.Node)) }

func (t *testDocument) AddCaptureListener(typ string, fn func(Event)) func() {
	return t.d.AddEventListener(nil, typ, true, func(e *dom.Event) { fn(e) })
}

// testWindow records what the frame does with its global scope.
type testWindow struct {
	doc     *testDocument
	log     []string
	handler func([]byte)
	queued  [][]byte
}

func newTestWindow() *testWindow {
	return &testWindow{doc: &testDocument{d: dom.New()}}
}

func (w *testWindow) Document() Document { return w.doc }

func (w *testWindow) DispatchEvent(name string) {
	w.log = append(w.log, "event:"+name)
}

func (w *testWindow) OnMessage(fn func([]byte)) func() {
	w.log = append(w.log, "listen")
	w.handler = fn
	for _, data := range w.queued {
		fn(data)
	}
	w.queued = nil
	return func() { w.handler = nil }
}

// post delivers data like a browser message event: queued until a listener exists.
func (w *testWindow) post(data string) {
	if w.handler == nil {
		w.queued = append(w.queued, []byte(data))
		return
	}
	w.handler([]byte(data))
}

// testRuntime is a rendering runtime that renders one <div> per call.
type testRuntime struct {
	slot   *Slot
	loaded bool
	err    error
	seen   []json.RawMessage
}

func (r *testRuntime) EntryPoint() (EntryPoint, bool) {
	if !r.loaded {
		return nil, false
	}
	return func(ctx RuntimeContext) error {
		def, _ := r.slot.Load()
		r.seen = append(r.seen, def)
		return r.err
	}, true
}

func (w *testWindow) styles() []string {
	return w.doc.d.Styles()
}
