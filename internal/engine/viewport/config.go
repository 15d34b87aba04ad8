package viewport

import (
	"math"
	"strings"
)

// Sensitivity limits and defaults.
const (
	MinSensitivity     = 0.1
	MaxSensitivity     = 2.0
	SensitivityStep    = 0.1
	DefaultSensitivity = 0.3
)

// Preset is a named sensitivity pair.
type Preset struct {
	Name     string
	Rotation float64
	Zoom     float64
}

// Presets lists the quick sensitivity choices in display order.
var Presets = []Preset{
	{Name: "Slow", Rotation: 0.2, Zoom: 0.2},
	{Name: "Normal", Rotation: 0.5, Zoom: 0.5},
	{Name: "Fast", Rotation: 1.0, Zoom: 1.0},
}

// FindPreset looks a preset up by case-insensitive name.
func FindPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// Configuration carries the host's customizations for one model.
type Configuration struct {
	Color    string
	Material string

	// Scale multiplies the automatic fit scale.
	Scale float64

	// BackgroundColor is a CSS color or "transparent" for the theme color.
	BackgroundColor string

	RotationSensitivity float64
	ZoomSensitivity     float64

	ShowControls bool
	DarkMode     bool
	AutoRotate   bool
}

// DefaultConfiguration returns the host defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		Scale:               1,
		BackgroundColor:     "transparent",
		RotationSensitivity: DefaultSensitivity,
		ZoomSensitivity:     DefaultSensitivity,
		ShowControls:        true,
	}
}

// sanitized fills unset fields with defaults and clamps sensitivities.
func (c Configuration) sanitized() Configuration {
	if !(c.Scale > 0) || math.IsInf(c.Scale, 0) {
		c.Scale = 1
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = "transparent"
	}
	c.RotationSensitivity = ClampSensitivity(c.RotationSensitivity, DefaultSensitivity)
	c.ZoomSensitivity = ClampSensitivity(c.ZoomSensitivity, DefaultSensitivity)
	return c
}

// needsReload reports whether moving from c to next changes the loaded
// geometry or materials.
func (c Configuration) needsReload(next Configuration) bool {
	return c.Scale != next.Scale || c.Color != next.Color || c.Material != next.Material
}

// ClampSensitivity limits v to [MinSensitivity, MaxSensitivity]. Zero or
// NaN yields def.
func ClampSensitivity(v, def float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return def
	}
	return math.Max(MinSensitivity, math.Min(MaxSensitivity, v))
}
