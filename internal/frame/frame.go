package frame

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"vellum/internal/protocol"
	"vellum/pkg/logger"
)

// ErrNoWindow is returned by Initialize when the context has no window.
var ErrNoWindow = errors.New("frame: context has no window")

// Context is everything a frame needs from the rendering context it lives in.
type Context struct {
	Window  Window
	Storage Storage
	// Runtime is optional; without it definitions are only published.
	Runtime Runtime
	// Slot receives every definition; a fresh one is created when nil.
	Slot *Slot
	// HighlightBorder overrides protocol.DefaultHighlightBorder.
	HighlightBorder string
	Logger          *zerolog.Logger
}

// RenderState is the frame's materialized view of the last applied message.
type RenderState struct {
	Definition json.RawMessage
	Styles     string
	Selection  protocol.Selection

	styleNode     Node
	selectionNode Node
}

// Snapshot is a read-only copy of a frame's state.
type Snapshot struct {
	Definition json.RawMessage    `json:"definition,omitempty"`
	Styles     string             `json:"styles"`
	Selection  protocol.Selection `json:"selection"`
	Applied    uint64             `json:"applied"`
	Rendered   uint64             `json:"rendered"`
}

// Frame owns one rendering context's RenderState.
type Frame struct {
	ctx Context
	log zerolog.Logger

	mu       sync.Mutex
	state    RenderState
	applied  uint64
	rendered uint64
	disposed bool

	removeGuard func()
	unlisten    func()
}

// Initialize installs the interaction guard, announces readiness and then
// attaches the bridge listener, in that order. The returned function tears
// all of it down and removes the injected stylesheets.
func Initialize(ctx Context) (*Frame, func(), error) {
	if ctx.Window == nil {
		return nil, nil, ErrNoWindow
	}
	if ctx.Slot == nil {
		ctx.Slot = NewSlot()
	}

	f := &Frame{ctx: ctx}
	if ctx.Logger != nil {
		f.log = *ctx.Logger
	} else {
		f.log = logger.Component("frame")
	}

	f.removeGuard = installGuard(ctx.Window.Document())
	ctx.Window.DispatchEvent(protocol.ReadyEvent)
	f.unlisten = ctx.Window.OnMessage(f.HandleMessage)

	return f, f.Dispose, nil
}

// Slot returns the slot the frame publishes definitions to.
func (f *Frame) Slot() *Slot {
	return f.ctx.Slot
}

// HandleMessage is the bridge listener. Payloads that do not decode leave the
// current state displayed.
func (f *Frame) HandleMessage(data []byte) {
	msg, ok := protocol.Decode(data)
	if !ok {
		f.log.Debug().Int("bytes", len(data)).Msg("Ignoring malformed preview message")
		return
	}
	f.Apply(msg)
}

// Apply replaces the RenderState with msg. It runs to completion before any
// other message is applied or the state is observed.
func (f *Frame) Apply(msg protocol.PreviewMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disposed {
		return
	}

	doc := f.ctx.Window.Document()
	sel := msg.Selection()

	detach(doc, &f.state.styleNode)
	detach(doc, &f.state.selectionNode)
	f.state.selectionNode = injectHighlight(doc, sel, f.ctx.HighlightBorder)
	f.state.styleNode = injectStyles(doc, msg.Styles)

	f.state.Definition = msg.FrontendDefinition
	f.state.Styles = msg.Styles
	f.state.Selection = sel
	f.applied++

	f.bootstrap(msg.FrontendDefinition)

	f.log.Debug().
		Uint64("applied", f.applied).
		Int("styles_bytes", len(msg.Styles)).
		Str("selection", sel.String()).
		Msg("Applied preview message")
}

// Snapshot returns a copy of the current state.
func (f *Frame) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		Definition: f.state.Definition,
		Styles:     f.state.Styles,
		Selection:  f.state.Selection,
		Applied:    f.applied,
		Rendered:   f.rendered,
	}
}

// Do runs fn while holding the frame's lock, so fn observes the document
// between two applications and never in the middle of one.
func (f *Frame) Do(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

// Dispose detaches the bridge listener and the guard and removes the injected
// stylesheets. It is safe to call more than once.
func (f *Frame) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disposed {
		return
	}
	f.disposed = true

	f.unlisten()
	f.removeGuard()

	doc := f.ctx.Window.Document()
	detach(doc, &f.state.styleNode)
	detach(doc, &f.state.selectionNode)
}
