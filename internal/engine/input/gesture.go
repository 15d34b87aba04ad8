package input

import "github.com/Faultbox/modelview/internal/engine/viewport"

// MouseButton is a physical mouse button.
type MouseButton uint8

// Mouse buttons, numbered like SDL.
const (
	MouseLeft   MouseButton = 1
	MouseMiddle MouseButton = 2
	MouseRight  MouseButton = 3
)

// Sink receives camera gestures. *viewport.Controller implements it.
type Sink interface {
	PointerDrag(dx, dy float32, button viewport.Button)
	Wheel(delta float32)
}

// Gesture turns raw pointer events into orbit, pan and dolly drags.
// Left drags orbit, right or shift+left drags pan and middle drags dolly.
type Gesture struct {
	dragging bool
	button   viewport.Button
	lastX    float32
	lastY    float32
}

// Press starts a drag at (x, y).
func (g *Gesture) Press(x, y float32, button MouseButton, shift bool) {
	switch button {
	case MouseLeft:
		g.button = viewport.ButtonPrimary
		if shift {
			g.button = viewport.ButtonSecondary
		}
	case MouseRight:
		g.button = viewport.ButtonSecondary
	case MouseMiddle:
		g.button = viewport.ButtonMiddle
	default:
		return
	}
	g.dragging = true
	g.lastX, g.lastY = x, y
}

// Move forwards the pointer delta since the last event while dragging.
func (g *Gesture) Move(x, y float32, sink Sink) {
	if !g.dragging {
		return
	}
	dx, dy := x-g.lastX, y-g.lastY
	g.lastX, g.lastY = x, y
	if dx == 0 && dy == 0 {
		return
	}
	sink.PointerDrag(dx, dy, g.button)
}

// Release ends the drag.
func (g *Gesture) Release() {
	g.dragging = false
}

// Dragging reports whether a drag is in progress.
func (g *Gesture) Dragging() bool {
	return g.dragging
}

// Scroll forwards a wheel step. Positive dy scrolls away from the user
// and moves the camera closer.
func (g *Gesture) Scroll(dy float32, sink Sink) {
	if dy != 0 {
		sink.Wheel(dy)
	}
}
