package headless

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"vellum/internal/dom"
	"vellum/internal/frame"
	"vellum/internal/jsvm"
	"vellum/internal/protocol"
)

// Options configures a headless preview.
type Options struct {
	// Storage backs the runtime's localStorage; nil means none.
	Storage frame.Storage
	// Script is a renderer script path; empty loads the embedded renderer.
	Script string
	// NoRuntime skips the rendering runtime: definitions are only published.
	NoRuntime bool
	// Timeout bounds each script load and render.
	Timeout         time.Duration
	HighlightBorder string
	Logger          zerolog.Logger
}

// Preview is a frame wired to a headless window, a goja runtime and storage.
type Preview struct {
	doc     *dom.Document
	window  *Window
	runtime *jsvm.Runtime
	frame   *frame.Frame
	dispose func()
	log     zerolog.Logger
}

// Open builds the rendering context and initializes a frame in it. The
// runtime is loaded before the frame, so the first message renders.
func Open(ctx context.Context, opts Options) (*Preview, error) {
	doc := dom.New()
	slot := frame.NewSlot()
	p := &Preview{
		doc:    doc,
		window: NewWindow(doc),
		log:    opts.Logger,
	}

	var runtime frame.Runtime
	if !opts.NoRuntime {
		p.runtime = jsvm.New(doc, slot, jsvm.Config{
			Timeout: opts.Timeout,
			Logger:  opts.Logger.With().Str("component", "jsvm").Logger(),
		})
		if err := p.load(ctx, opts.Script); err != nil {
			_ = p.runtime.Close()
			return nil, err
		}
		runtime = p.runtime
	}

	f, dispose, err := frame.Initialize(frame.Context{
		Window:          p.window,
		Storage:         opts.Storage,
		Runtime:         runtime,
		Slot:            slot,
		HighlightBorder: opts.HighlightBorder,
		Logger:          &p.log,
	})
	if err != nil {
		return nil, err
	}
	p.frame, p.dispose = f, dispose
	return p, nil
}

func (p *Preview) load(ctx context.Context, script string) error {
	if script == "" {
		return p.runtime.LoadDefault(ctx)
	}
	if err := p.runtime.LoadFile(ctx, script); err != nil {
		return fmt.Errorf("load renderer %s: %w", script, err)
	}
	return nil
}

// Reload replaces the renderer script and renders the current definition
// with it. On failure the previous script stays in place.
func (p *Preview) Reload(ctx context.Context, script string) error {
	if p.runtime == nil {
		return nil
	}
	if err := p.load(ctx, script); err != nil {
		return err
	}
	p.frame.Render()
	return nil
}

// Window returns the preview's global scope.
func (p *Preview) Window() *Window { return p.window }

// Frame returns the preview's frame.
func (p *Preview) Frame() *frame.Frame { return p.frame }

// PostMessage delivers a raw bridge payload to the frame.
func (p *Preview) PostMessage(data []byte) {
	p.window.PostMessage(data)
}

// Apply applies msg directly, bypassing the bridge.
func (p *Preview) Apply(msg protocol.PreviewMessage) {
	p.frame.Apply(msg)
}

// Snapshot returns the frame's state.
func (p *Preview) Snapshot() frame.Snapshot {
	return p.frame.Snapshot()
}

// Render writes the current document as HTML.
func (p *Preview) Render(w io.Writer) error {
	var err error
	p.frame.Do(func() { err = p.doc.Render(w) })
	return err
}

// HTML returns the current document as HTML.
func (p *Preview) HTML() string {
	var s string
	p.frame.Do(func() { s = p.doc.String() })
	return s
}

// Do runs fn with the document while no message is being applied.
func (p *Preview) Do(fn func(doc *dom.Document)) {
	p.frame.Do(func() { fn(p.doc) })
}

// Close disposes the frame and releases the runtime.
func (p *Preview) Close() error {
	p.window.Close()
	p.dispose()
	if p.runtime != nil {
		return p.runtime.Close()
	}
	return nil
}
