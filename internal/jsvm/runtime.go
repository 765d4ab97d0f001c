package jsvm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"vellum/internal/dom"
	"vellum/internal/frame"
	"vellum/internal/jsvm/hostapi"
)

// EntryPointName is the global function a renderer script defines.
const EntryPointName = "renderPreview"

// Config holds configuration for the Runtime.
type Config struct {
	// Timeout bounds each load and each render.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Runtime is one rendering context's script engine. Every VM call happens
// under its mutex; goja VMs are not safe for concurrent use.
type Runtime struct {
	doc    *dom.Document
	slot   *frame.Slot
	config Config

	mu     sync.Mutex
	vm     *goja.Runtime
	dog    *watchdog
	hctx   *hostapi.Context
	render goja.Callable
	script string
	closed bool
}

// New creates a runtime bound to doc and slot. Nothing is loaded yet, so
// EntryPoint reports false until Load succeeds.
func New(doc *dom.Document, slot *frame.Slot, cfg Config) *Runtime {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Runtime{doc: doc, slot: slot, config: cfg}
}

// Load evaluates src in a fresh VM and, if it succeeds, replaces the
// previously loaded script. A script that defines no renderPreview loads but
// leaves the runtime without an entry point.
func (r *Runtime) Load(ctx context.Context, src, name string) error {
	program, err := goja.Compile(name, src, false)
	if err != nil {
		return wrapExecutionError(err, name)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	hctx := &hostapi.Context{
		Logger:     r.config.Logger,
		ScriptName: name,
		Document:   r.doc,
		Slot:       r.slot,
	}
	if err := hostapi.Register(vm, hctx); err != nil {
		return fmt.Errorf("register host api: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	dog := &watchdog{vm: vm}
	dog.arm(ctx, r.config.Timeout)
	_, err = vm.RunProgram(program)
	dog.disarm()
	if err != nil {
		return wrapExecutionError(err, name)
	}

	render, _ := goja.AssertFunction(vm.Get(EntryPointName))
	r.vm, r.dog, r.hctx, r.render, r.script = vm, dog, hctx, render, name

	r.config.Logger.Debug().
		Str("script", name).
		Bool("entry_point", render != nil).
		Msg("Renderer script loaded")
	return nil
}

// LoadDefault loads the embedded renderer.
func (r *Runtime) LoadDefault(ctx context.Context) error {
	return r.Load(ctx, DefaultScript, DefaultScriptName)
}

// LoadFile reads a renderer script from disk and loads it.
func (r *Runtime) LoadFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script file: %w", err)
	}
	return r.Load(ctx, string(content), filepath.Base(path))
}

// Script returns the name of the loaded script, or "" before the first load.
func (r *Runtime) Script() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.script
}

// EntryPoint implements frame.Runtime.
func (r *Runtime) EntryPoint() (frame.EntryPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.render == nil {
		return nil, false
	}
	return r.invoke, true
}

// invoke calls renderPreview({window, localStorage}) in the current VM.
func (r *Runtime) invoke(rc frame.RuntimeContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	vm := r.vm
	storage := hostapi.NewStorage(vm, rc.Storage)
	win, err := hostapi.NewWindow(vm, r.hctx, rc.Window, storage)
	if err != nil {
		return err
	}
	_ = vm.Set("window", win)
	_ = vm.Set("localStorage", storage)

	arg := vm.NewObject()
	_ = arg.Set("window", win)
	_ = arg.Set("localStorage", storage)

	r.dog.arm(context.Background(), r.config.Timeout)
	_, err = r.render(goja.Undefined(), arg)
	r.dog.disarm()
	if err != nil {
		return wrapExecutionError(err, r.script)
	}
	return nil
}

// Execute evaluates script in the loaded VM and returns its exported value.
func (r *Runtime) Execute(ctx context.Context, script, name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.vm == nil {
		return nil, errors.New("jsvm: no script loaded")
	}

	r.dog.arm(ctx, r.config.Timeout)
	val, err := r.vm.RunString(script)
	r.dog.disarm()
	if err != nil {
		return nil, wrapExecutionError(err, name)
	}
	return exportValue(val), nil
}

// Close drops the VM. Entry points obtained earlier return ErrClosed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.vm, r.render, r.dog = nil, nil, nil
	return nil
}

// wrapExecutionError converts goja errors to structured errors.
func wrapExecutionError(err error, scriptName string) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		cause, ok := interrupted.Value().(error)
		if !ok {
			cause = fmt.Errorf("interrupted: %v", interrupted.Value())
		}
		return &ExecutionError{Script: scriptName, Cause: cause}
	}

	var compileErr *goja.CompilerSyntaxError
	if errors.As(err, &compileErr) {
		return &ScriptSyntaxError{File: scriptName, Message: compileErr.Error()}
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &ExecutionError{
			Script: scriptName,
			Cause:  fmt.Errorf("exception: %s", exception.Error()),
		}
	}

	return &ExecutionError{Script: scriptName, Cause: err}
}

// exportValue converts goja values to Go values.
func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
