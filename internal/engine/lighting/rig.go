// Package lighting defines the fixed light rig the viewport shades
// models with.
package lighting

import "github.com/Faultbox/modelview/pkg/math"

// Light is a directional light. Position is the direction the light
// comes from; only its orientation matters.
type Light struct {
	Position  math.Vec3
	Intensity float32

	// CastShadow marks the light that drives the shadow map.
	CastShadow bool
}

// Rig is an ambient term plus a key and a fill light.
type Rig struct {
	Ambient float32
	Key     Light
	Fill    Light
}

var (
	keyPosition  = math.Vec3{X: 10, Y: 10, Z: 5}
	fillPosition = math.Vec3{X: -5, Y: 0, Z: -5}
)

// Theme returns the rig for the dark or light theme. The dark theme is
// dimmer so models do not glare against the dark background.
func Theme(dark bool) Rig {
	if dark {
		return Rig{
			Ambient: 0.4,
			Key:     Light{Position: keyPosition, Intensity: 0.8, CastShadow: true},
			Fill:    Light{Position: fillPosition, Intensity: 0.2},
		}
	}
	return Rig{
		Ambient: 0.6,
		Key:     Light{Position: keyPosition, Intensity: 1.0, CastShadow: true},
		Fill:    Light{Position: fillPosition, Intensity: 0.3},
	}
}
