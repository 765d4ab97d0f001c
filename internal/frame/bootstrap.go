package frame

import "encoding/json"

// bootstrap publishes the definition and, when the runtime has loaded, asks it
// to render. A runtime that loads later reads the slot on its own; nothing
// here retries.
func (f *Frame) bootstrap(def json.RawMessage) {
	version := f.ctx.Slot.Publish(def)
	f.render(version)
}

// render invokes the runtime entry point for the given definition version.
// Callers hold f.mu.
func (f *Frame) render(version uint64) bool {
	if f.ctx.Runtime == nil {
		return false
	}
	entry, ok := f.ctx.Runtime.EntryPoint()
	if !ok {
		f.log.Debug().Uint64("definition_version", version).Msg("Rendering runtime not loaded, render deferred")
		return false
	}

	err := entry(RuntimeContext{Window: f.ctx.Window, Storage: f.ctx.Storage})
	if err != nil {
		f.log.Warn().Err(err).Uint64("definition_version", version).Msg("Rendering runtime failed")
		return false
	}
	f.rendered = version
	return true
}

// Render asks the runtime to render the published definition again, for a
// runtime that was loaded or replaced after the last message. It reports
// whether the entry point ran successfully.
func (f *Frame) Render() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disposed {
		return false
	}
	_, version := f.ctx.Slot.Load()
	return f.render(version)
}
