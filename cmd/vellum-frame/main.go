//go:build js && wasm

// Command vellum-frame is the preview frame compiled to WebAssembly. The
// frame shell page loads it next to the relay bridge script:
//
//	GOOS=js GOARCH=wasm go build -o vellum-frame.wasm ./cmd/vellum-frame
package main

import (
	"vellum/internal/frame"
	"vellum/internal/frame/browser"
	"vellum/pkg/logger"
)

func main() {
	_ = logger.Init(logger.LogConfig{Level: "info", Format: "console"})
	log := logger.Component("frame")

	slot := frame.NewSlot()
	rt := browser.NewRuntime(slot, log)
	rt.Install()
	defer rt.Release()

	fctx := frame.Context{
		Window:  browser.NewWindow(),
		Runtime: rt,
		Slot:    slot,
		Logger:  &log,
	}
	// A nil *Storage must not become a non-nil interface.
	if s := browser.LocalStorage(); s != nil {
		fctx.Storage = s
	}

	_, dispose, err := frame.Initialize(fctx)
	if err != nil {
		log.Error().Err(err).Msg("frame initialization failed")
		return
	}
	defer dispose()

	log.Info().Msg("frame ready")
	select {}
}
