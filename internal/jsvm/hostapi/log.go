package hostapi

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
)

// registerLog registers vellum.log and console.
func registerLog(vm *goja.Runtime, vellum *goja.Object, hctx *Context) error {
	logger := hctx.Logger.With().Str("script", hctx.ScriptName).Logger()

	logObj := newLogObject(vm, logger)
	if err := vellum.Set("log", logObj); err != nil {
		return err
	}

	console := newLogObject(vm, logger)
	_ = console.Set("log", logFunc(logger.Info))
	return vm.Set("console", console)
}

func newLogObject(vm *goja.Runtime, logger zerolog.Logger) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("debug", logFunc(logger.Debug))
	_ = obj.Set("info", logFunc(logger.Info))
	_ = obj.Set("warn", logFunc(logger.Warn))
	_ = obj.Set("error", logFunc(logger.Error))
	return obj
}

func logFunc(level func() *zerolog.Event) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		level().Msg(formatLogMessage(call.Arguments))
		return goja.Undefined()
	}
}

// formatLogMessage joins arguments with spaces like console.log.
func formatLogMessage(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatValue(arg)
	}
	return strings.Join(parts, " ")
}

// formatValue converts a goja.Value to a string representation.
func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	switch val := v.Export().(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
