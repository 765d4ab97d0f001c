package hostapi

import (
	"fmt"

	"github.com/dop251/goja"

	"vellum/internal/frame"
)

// NewStorage wraps s in a Web Storage style object: getItem, setItem,
// removeItem, key, clear and length(). A nil s yields null.
func NewStorage(vm *goja.Runtime, s frame.Storage) goja.Value {
	if s == nil {
		return goja.Null()
	}
	obj := vm.NewObject()

	_ = obj.Set("getItem", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.NewTypeError("key is required"))
		}
		v, ok := s.GetItem(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})

	_ = obj.Set("setItem", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(vm.NewTypeError("key and value are required"))
		}
		// Web Storage stores the string form of any value.
		if err := s.SetItem(call.Argument(0).String(), call.Argument(1).String()); err != nil {
			panic(vm.NewGoError(fmt.Errorf("localStorage set failed: %w", err)))
		}
		return goja.Undefined()
	})

	_ = obj.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.NewTypeError("key is required"))
		}
		if err := s.RemoveItem(call.Argument(0).String()); err != nil {
			panic(vm.NewGoError(fmt.Errorf("localStorage remove failed: %w", err)))
		}
		return goja.Undefined()
	})

	_ = obj.Set("key", func(call goja.FunctionCall) goja.Value {
		keys, err := s.Keys()
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("localStorage keys failed: %w", err)))
		}
		i := call.Argument(0).ToInteger()
		if i < 0 || i >= int64(len(keys)) {
			return goja.Null()
		}
		return vm.ToValue(keys[i])
	})

	_ = obj.Set("length", func(call goja.FunctionCall) goja.Value {
		keys, err := s.Keys()
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("localStorage keys failed: %w", err)))
		}
		return vm.ToValue(len(keys))
	})

	_ = obj.Set("clear", func(call goja.FunctionCall) goja.Value {
		if err := s.Clear(); err != nil {
			panic(vm.NewGoError(fmt.Errorf("localStorage clear failed: %w", err)))
		}
		return goja.Undefined()
	})

	return obj
}
