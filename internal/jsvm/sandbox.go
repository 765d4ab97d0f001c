package jsvm

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single script load or render.
const DefaultTimeout = 5 * time.Second

// watchdog interrupts a VM when its execution context ends.
type watchdog struct {
	vm *goja.Runtime

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{} // signals stop to the interrupt goroutine
	exited chan struct{}
}

// arm starts the timeout for one execution and returns its context.
func (w *watchdog) arm(ctx context.Context, timeout time.Duration) context.Context {
	execCtx, cancel := context.WithTimeout(ctx, timeout)

	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.exited = make(chan struct{})
	done, exited := w.done, w.exited
	w.mu.Unlock()

	go func() {
		defer close(exited)
		select {
		case <-execCtx.Done():
			w.vm.Interrupt(ErrTimeout)
		case <-done:
		}
	}()
	return execCtx
}

// disarm stops the interrupt goroutine and clears a pending interrupt so the
// VM stays usable for the next execution.
func (w *watchdog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		close(w.done)
		<-w.exited
		w.done, w.exited = nil, nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.vm.ClearInterrupt()
}
