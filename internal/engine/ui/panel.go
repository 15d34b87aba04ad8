package ui

import (
	"fmt"
	gomath "math"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/modelview/internal/engine/input"
	"github.com/Faultbox/modelview/internal/engine/viewport"
)

// Viewer is the part of the viewport controller the panel drives.
type Viewer interface {
	input.Sink
	Status() viewport.Status
	Configuration() viewport.Configuration
	SetSensitivity(rotation, zoom float64)
	ApplyPreset(name string) bool
	ResetView()
	Resize(width, height int)
}

// Actions are host operations triggered from the panel. Nil entries hide
// their button.
type Actions struct {
	Open     func()
	Load     func(url, product string)
	Snapshot func()
	Save     func()
}

// Panel draws the model image, routes pointer input over it and shows
// the settings window.
type Panel struct {
	viewer  Viewer
	actions Actions

	gesture  input.Gesture
	wasDown  [3]bool
	url      string
	product  string
	rotation float32
	zoom     float32
	message  string
}

// NewPanel creates a panel for viewer.
func NewPanel(viewer Viewer, actions Actions) *Panel {
	return &Panel{viewer: viewer, actions: actions}
}

// SetMessage shows a one-line note under the settings, such as the path
// of the last snapshot.
func (p *Panel) SetMessage(msg string) {
	p.message = msg
}

// Draw renders one frame of UI. textureID is the rendered viewport.
func (p *Panel) Draw(textureID uint32) {
	status := p.viewer.Status()
	cfg := p.viewer.Configuration()

	p.drawViewport(textureID, status)
	if cfg.ShowControls {
		p.drawSettings(status, cfg)
	}

	if p.actions.Snapshot != nil && !imgui.IsAnyItemActive() && IsKeyPressed(imgui.KeyS) {
		p.actions.Snapshot()
	}
}

func (p *Panel) drawViewport(textureID uint32, status viewport.Status) {
	vp := imgui.MainViewport()
	pos, size := vp.WorkPos(), vp.WorkSize()

	imgui.SetNextWindowPos(pos)
	imgui.SetNextWindowSize(size)
	flags := imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoResize |
		imgui.WindowFlagsNoMove | imgui.WindowFlagsNoScrollbar |
		imgui.WindowFlagsNoScrollWithMouse | imgui.WindowFlagsNoBringToFrontOnFocus |
		imgui.WindowFlagsNoSavedSettings

	imgui.PushStyleVarVec2(imgui.StyleVarWindowPadding, imgui.NewVec2(0, 0))
	defer imgui.PopStyleVar()
	if !imgui.BeginV("##Viewport", nil, flags) {
		imgui.End()
		return
	}
	defer imgui.End()

	avail := imgui.ContentRegionAvail()
	scale := imgui.CurrentIO().DisplayFramebufferScale()
	p.viewer.Resize(int(avail.X*scale.X), int(avail.Y*scale.Y))

	if textureID != 0 && status.State != viewport.StateFailed {
		texRef := imgui.NewTextureRefTextureID(imgui.TextureID(textureID))
		imgui.ImageWithBgV(
			*texRef,
			avail,
			imgui.NewVec2(0, 1), // UV flipped
			imgui.NewVec2(1, 0),
			imgui.NewVec4(0, 0, 0, 0),
			imgui.NewVec4(1, 1, 1, 1),
		)
		p.handlePointer(imgui.IsItemHovered())
	}

	switch status.State {
	case viewport.StateLoading:
		p.drawCentered(avail, func() {
			imgui.Text("Loading model...")
			imgui.ProgressBarV(float32(status.Progress)/100, imgui.NewVec2(240, 0), fmt.Sprintf("%d%%", status.Progress))
		})
	case viewport.StateFailed:
		p.drawCentered(avail, func() {
			imgui.TextColored(imgui.NewVec4(1, 0.3, 0.3, 1), "Failed to load model")
			imgui.TextWrapped(status.Error)
		})
	}
}

func (p *Panel) drawCentered(avail imgui.Vec2, body func()) {
	imgui.SetCursorPosX(avail.X/2 - 120)
	imgui.SetCursorPosY(avail.Y/2 - 20)
	imgui.BeginGroup()
	body()
	imgui.EndGroup()
}

// handlePointer feeds mouse state to the gesture. Drags start only over
// the image but continue outside it until released.
func (p *Panel) handlePointer(hovered bool) {
	buttons := [3]struct {
		imgui imgui.MouseButton
		mouse input.MouseButton
	}{
		{imgui.MouseButtonLeft, input.MouseLeft},
		{imgui.MouseButtonRight, input.MouseRight},
		{imgui.MouseButtonMiddle, input.MouseMiddle},
	}

	pos := imgui.MousePos()
	for i, b := range buttons {
		down := imgui.IsMouseDown(b.imgui)
		switch {
		case down && !p.wasDown[i] && hovered && !p.gesture.Dragging():
			p.gesture.Press(pos.X, pos.Y, b.mouse, imgui.IsKeyDown(imgui.ModShift))
		case !down && p.wasDown[i]:
			p.gesture.Release()
		}
		p.wasDown[i] = down
	}
	p.gesture.Move(pos.X, pos.Y, p.viewer)

	if hovered {
		p.gesture.Scroll(imgui.CurrentIO().MouseWheel(), p.viewer)
	}
}

func (p *Panel) drawSettings(status viewport.Status, cfg viewport.Configuration) {
	vp := imgui.MainViewport()
	pos, size := vp.WorkPos(), vp.WorkSize()
	imgui.SetNextWindowPos(imgui.NewVec2(pos.X+size.X-290, pos.Y+10))
	imgui.SetNextWindowSize(imgui.NewVec2(280, 0))
	imgui.SetNextWindowBgAlpha(0.85)

	flags := imgui.WindowFlagsNoResize | imgui.WindowFlagsNoMove |
		imgui.WindowFlagsNoCollapse | imgui.WindowFlagsAlwaysAutoResize
	if !imgui.BeginV("Settings", nil, flags) {
		imgui.End()
		return
	}
	defer imgui.End()

	if status.Product != "" {
		imgui.Text(status.Product)
	}
	imgui.TextDisabled(status.State.String())

	imgui.Spacing()
	imgui.Separator()
	imgui.Text("Sensitivity")

	p.rotation = float32(cfg.RotationSensitivity)
	p.zoom = float32(cfg.ZoomSensitivity)
	imgui.BeginDisabledV(status.State != viewport.StateReady)
	changed := imgui.SliderFloatV("Rotation", &p.rotation,
		viewport.MinSensitivity, viewport.MaxSensitivity, "%.1f", imgui.SliderFlagsNone)
	if imgui.SliderFloatV("Zoom", &p.zoom,
		viewport.MinSensitivity, viewport.MaxSensitivity, "%.1f", imgui.SliderFlagsNone) {
		changed = true
	}
	if changed {
		p.viewer.SetSensitivity(SnapSensitivity(float64(p.rotation)), SnapSensitivity(float64(p.zoom)))
	}

	for i, preset := range viewport.Presets {
		if i > 0 {
			imgui.SameLine()
		}
		if imgui.Button(preset.Name) {
			p.viewer.ApplyPreset(preset.Name)
		}
	}

	imgui.Spacing()
	if imgui.ButtonV("Reset View", imgui.NewVec2(-1, 0)) {
		p.viewer.ResetView()
	}
	imgui.EndDisabled()

	p.drawModelControls()

	if p.message != "" {
		imgui.Spacing()
		imgui.TextWrapped(p.message)
	}
	imgui.TextDisabled("Drag to rotate, right-drag to pan, scroll to zoom")
}

func (p *Panel) drawModelControls() {
	if p.actions.Load == nil && p.actions.Open == nil && p.actions.Snapshot == nil && p.actions.Save == nil {
		return
	}
	imgui.Spacing()
	imgui.Separator()

	if p.actions.Load != nil {
		imgui.SetNextItemWidth(-1)
		imgui.InputTextWithHint("##url", "Model URL or path", &p.url, 0, nil)
		imgui.SetNextItemWidth(-1)
		imgui.InputTextWithHint("##product", "Product name", &p.product, 0, nil)
		if imgui.ButtonV("Load", imgui.NewVec2(-1, 0)) && p.url != "" {
			p.actions.Load(p.url, p.product)
		}
	}
	if p.actions.Open != nil && imgui.Button("Open...") {
		p.actions.Open()
	}
	if p.actions.Snapshot != nil {
		if p.actions.Open != nil {
			imgui.SameLine()
		}
		if imgui.Button("Snapshot") {
			p.actions.Snapshot()
		}
	}
	if p.actions.Save != nil {
		imgui.SameLine()
		if imgui.Button("Save settings") {
			p.actions.Save()
		}
	}
}

// SnapSensitivity rounds v to the slider step and clamps it to range.
func SnapSensitivity(v float64) float64 {
	v = gomath.Round(v/viewport.SensitivityStep) * viewport.SensitivityStep
	v = gomath.Round(v*100) / 100
	return gomath.Max(viewport.MinSensitivity, gomath.Min(viewport.MaxSensitivity, v))
}
