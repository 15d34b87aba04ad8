package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/modelview/internal/config"
	"github.com/Faultbox/modelview/internal/engine/camera"
	"github.com/Faultbox/modelview/internal/engine/loader"
	"github.com/Faultbox/modelview/internal/engine/renderer"
	"github.com/Faultbox/modelview/internal/engine/viewport"
	"github.com/Faultbox/modelview/internal/logger"
	"github.com/Faultbox/modelview/internal/prefs"
	"github.com/Faultbox/modelview/internal/snapshot"
	"github.com/Faultbox/modelview/internal/status"
)

// App wires the viewport controller to its collaborators. All methods
// except those documented otherwise run on the render thread.
type App struct {
	cfg      *config.Config
	renderer *renderer.Renderer
	ctrl     *viewport.Controller
	prefs    *prefs.Store
	snap     *snapshot.Capture
	hub      *status.Hub

	cancel    context.CancelFunc
	onMessage func(string)
}

var now = time.Now

// newApp builds the viewer. The OpenGL context must be current.
func newApp(cfg *config.Config, width, height int) (*App, error) {
	a := &App{cfg: cfg, onMessage: func(string) {}}

	opts := loader.Options{Timeout: cfg.Loader.Timeout, BaseURL: cfg.Loader.BaseURL}
	if cfg.Loader.DecoderPath != "" {
		opts.Decoder = loader.ExecDecoder{Path: cfg.Loader.DecoderPath}
	}
	source, err := loader.New(opts)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	a.prefs, err = prefs.NewStore(cfg.Prefs.Dir)
	if err != nil {
		logger.Warn("preferences disabled", zap.Error(err))
		a.prefs = nil
	}

	format, err := snapshot.ParseFormat(cfg.Snapshot.Format)
	if err != nil {
		return nil, err
	}
	a.snap = snapshot.New(cfg.Snapshot.Dir, "modelview", format, cfg.Snapshot.MaxSize)

	extra, err := cfg.CameraOverrides()
	if err != nil {
		return nil, err
	}

	a.renderer, err = renderer.New(renderer.Config{
		Width:         width,
		Height:        height,
		Shadows:       cfg.Viewer.Shadows,
		ShadowMapSize: cfg.Viewer.ShadowMapSize,
		Exposure:      cfg.Viewer.Exposure,
	})
	if err != nil {
		return nil, err
	}

	vopts := viewport.Options{
		Renderer:        a.renderer,
		Source:          source,
		Overrides:       camera.BuiltinOverrides().Merge(extra),
		TargetExtent:    cfg.Viewer.TargetExtent,
		ResetDuration:   cfg.Viewer.ResetDuration,
		Damping:         cfg.Viewer.Damping,
		AutoRotateSpeed: cfg.Viewer.AutoRotateSpeed,
		FOV:             cfg.Viewer.FOV,
		Near:            cfg.Viewer.Near,
		Far:             cfg.Viewer.Far,
		Width:           width,
		Height:          height,
	}
	if a.prefs != nil {
		vopts.Prefs = a.prefs
	}
	a.ctrl = viewport.New(vopts)

	a.startStatus()
	a.ctrl.Configure(cfg.Model.URL, cfg.Model.Product, modelConfiguration(cfg.Model))
	return a, nil
}

// startStatus serves the status websocket when an address is configured.
func (a *App) startStatus() {
	if a.cfg.Status.Addr == "" {
		return
	}
	post := func(fn func()) bool {
		return a.ctrl.Do(func(*viewport.Controller) { fn() })
	}
	a.hub = status.NewHub(status.Dispatch(post, a.ctrl))
	a.ctrl.Subscribe(func(s viewport.Status) { a.hub.Publish(s) })

	var ctx context.Context
	ctx, a.cancel = context.WithCancel(context.Background())
	go func() {
		if err := a.hub.ListenAndServe(ctx, a.cfg.Status.Addr); err != nil {
			logger.Error("status server stopped", zap.Error(err))
		}
	}()
}

// Frame advances the controller one frame.
func (a *App) Frame() {
	if err := a.ctrl.Frame(now()); err != nil {
		logger.Debug("frame failed", zap.Error(err))
	}
}

// Snapshot writes the last frame to the snapshot directory.
func (a *App) Snapshot() {
	img, err := a.ctrl.Snapshot()
	if err != nil {
		a.onMessage("Snapshot failed: " + err.Error())
		return
	}
	path, err := a.snap.Save(img)
	if err != nil {
		a.onMessage("Snapshot failed: " + err.Error())
		return
	}
	logger.Info("snapshot saved", zap.String("path", path))
	a.onMessage("Saved " + path)
}

// Load opens a model, keeping the current customizations.
func (a *App) Load(url, product string) {
	a.ctrl.Open(url, product)
}

// Save stores the current model and customizations in the user config.
func (a *App) Save() {
	st := a.ctrl.Status()
	a.cfg.Model = modelSettings(st.URL, st.Product, a.ctrl.Configuration())
	if err := a.cfg.Save(); err != nil {
		a.onMessage("Save failed: " + err.Error())
		return
	}
	a.onMessage("Settings saved")
}

// Close disposes the viewport and stops the status server. The final
// disposed status still reaches connected clients.
func (a *App) Close() {
	a.ctrl.Dispose()
	if a.hub != nil {
		a.hub.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.renderer.Close()
}

func modelConfiguration(m config.ModelConfig) viewport.Configuration {
	return viewport.Configuration{
		Color:               m.Color,
		Material:            m.Material,
		Scale:               m.Scale,
		BackgroundColor:     m.BackgroundColor,
		RotationSensitivity: m.RotationSensitivity,
		ZoomSensitivity:     m.ZoomSensitivity,
		ShowControls:        m.ShowControls,
		DarkMode:            m.DarkMode,
		AutoRotate:          m.AutoRotate,
	}
}

func modelSettings(url, product string, c viewport.Configuration) config.ModelConfig {
	return config.ModelConfig{
		URL:                 url,
		Product:             product,
		Color:               c.Color,
		Material:            c.Material,
		Scale:               c.Scale,
		BackgroundColor:     c.BackgroundColor,
		RotationSensitivity: c.RotationSensitivity,
		ZoomSensitivity:     c.ZoomSensitivity,
		ShowControls:        c.ShowControls,
		DarkMode:            c.DarkMode,
		AutoRotate:          c.AutoRotate,
	}
}
