package main

import (
	"fmt"

	"github.com/Faultbox/modelview/internal/config"
	"github.com/Faultbox/modelview/internal/engine/ui"
)

// runPanel shows the viewport with the ImGui settings panel.
func runPanel(cfg *config.Config) error {
	backend, err := ui.NewBackend("modelview", cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	if cfg.Window.FPSLimit > 0 {
		backend.SetTargetFPS(uint(cfg.Window.FPSLimit))
	}

	app, err := newApp(cfg, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	defer app.Close()

	panel := ui.NewPanel(app.ctrl, ui.Actions{
		Open:     app.OpenDialog,
		Load:     app.Load,
		Snapshot: app.Snapshot,
		Save:     app.Save,
	})
	app.onMessage = panel.SetMessage

	title := ""
	backend.Run(func() {
		app.Frame()
		panel.Draw(app.renderer.TextureID())

		if t := windowTitle(app.ctrl.Status().Product); t != title {
			title = t
			backend.SetWindowTitle(t)
		}
	})
	return nil
}

func windowTitle(product string) string {
	if product == "" {
		return "modelview"
	}
	return product + " - modelview"
}
