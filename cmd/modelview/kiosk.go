package main

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/modelview/internal/config"
	"github.com/Faultbox/modelview/internal/engine/input"
	"github.com/Faultbox/modelview/internal/engine/window"
)

// runKiosk shows only the viewport in a bare SDL window. S saves a
// snapshot, R resets the view and Escape quits.
func runKiosk(cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:  "modelview",
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		VSync:  cfg.Window.VSync,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Close()

	width, height := win.DrawableSize()
	app, err := newApp(cfg, width, height)
	if err != nil {
		return err
	}
	defer app.Close()

	var frameTime time.Duration
	if cfg.Window.FPSLimit > 0 {
		frameTime = time.Second / time.Duration(cfg.Window.FPSLimit)
	}

	in := input.New()
	title := ""
	for {
		start := time.Now()
		if in.Update() || in.IsKeyPressed(sdl.SCANCODE_ESCAPE) {
			return nil
		}
		for _, e := range in.Events() {
			if e.Type == input.EventWindowResize {
				width, height = win.DrawableSize()
				app.ctrl.Resize(width, height)
			}
		}
		in.Dispatch(app.ctrl)
		if in.IsKeyPressed(sdl.SCANCODE_S) {
			app.Snapshot()
		}
		if in.IsKeyPressed(sdl.SCANCODE_R) {
			app.ctrl.ResetView()
		}

		app.Frame()
		app.renderer.Present(width, height)
		win.SwapBuffers()

		if t := windowTitle(app.ctrl.Status().Product); t != title {
			title = t
			win.SetTitle(t)
		}
		if frameTime > 0 {
			if d := frameTime - time.Since(start); d > 0 {
				time.Sleep(d)
			}
		}
	}
}
