package main

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/modelview/internal/engine/viewport"
	"github.com/Faultbox/modelview/internal/logger"
)

// OpenDialog asks for a model file without blocking the render thread.
// The chosen file is opened on the render thread during the next frame.
func (a *App) OpenDialog() {
	go func() {
		filename, err := dialog.File().
			Filter("3D Models", "glb", "gltf", "obj").
			Filter("All Files", "*").
			Title("Open model").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				logger.Warn("file dialog failed", zap.Error(err))
			}
			return
		}

		product := productFromPath(filename)
		if !a.ctrl.Do(func(c *viewport.Controller) { c.Open(filename, product) }) {
			logger.Warn("viewer busy, dropped open request", zap.String("path", filename))
		}
	}()
}

// productFromPath names a local model after its file, so camera
// overrides and preferences still apply by name.
func productFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
