package normalize

import (
	"fmt"
	gomath "math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/modelview/internal/logger"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// MaterialOverride carries storefront customizations. Empty fields leave
// the source material unchanged.
type MaterialOverride struct {
	Color    string
	Material string
}

// IsZero reports whether the override changes nothing.
func (o MaterialOverride) IsZero() bool {
	return o.Color == "" && o.Material == ""
}

// Finish is a named metallic/roughness preset.
type Finish struct {
	Metallic  float32
	Roughness float32
}

// Finishes are the material presets a product can be customized with.
var Finishes = map[string]Finish{
	"matte":    {Metallic: 0, Roughness: 0.9},
	"glossy":   {Metallic: 0, Roughness: 0.2},
	"metallic": {Metallic: 1, Roughness: 0.3},
	"silk":     {Metallic: 0.1, Roughness: 0.45},
}

// PatchMaterials returns patched copies of materials; the inputs are not
// modified. Color applies only to color-capable materials and keeps any
// base color texture. An unparsable color or unknown finish is ignored.
func PatchMaterials(materials []*scene.Material, ov MaterialOverride) []*scene.Material {
	var (
		color    [4]float32
		hasColor bool
		finish   Finish
		hasFin   bool
	)
	if ov.Color != "" {
		c, err := ParseColor(ov.Color)
		if err != nil {
			logger.Debug("ignoring color override", zap.String("color", ov.Color), zap.Error(err))
		} else {
			color, hasColor = c, true
		}
	}
	if ov.Material != "" {
		finish, hasFin = Finishes[strings.ToLower(strings.TrimSpace(ov.Material))]
		if !hasFin {
			logger.Debug("ignoring unknown material finish", zap.String("material", ov.Material))
		}
	}

	out := make([]*scene.Material, len(materials))
	for i, m := range materials {
		if m == nil {
			continue
		}
		cp := *m
		if hasColor && cp.HasColor {
			cp.BaseColor = color
			cp.Dirty = true
		}
		if hasFin && cp.HasColor {
			cp.Metallic = finish.Metallic
			cp.Roughness = finish.Roughness
			cp.Dirty = true
		}
		out[i] = &cp
	}
	return out
}

// ApplyOverride replaces every mesh material below root with a patched
// copy. Meshes sharing a material keep sharing its copy.
func ApplyOverride(root *scene.Node, ov MaterialOverride) {
	if root == nil || ov.IsZero() {
		return
	}
	src := root.Materials()
	patched := PatchMaterials(src, ov)
	lookup := make(map[*scene.Material]*scene.Material, len(src))
	for i, m := range src {
		lookup[m] = patched[i]
	}
	root.WalkMeshes(func(mesh *scene.Mesh, _ math.Mat4) {
		if p, ok := lookup[mesh.Material]; ok {
			mesh.Material = p
		}
	})
}

var namedColors = map[string]string{
	"black":   "#000000",
	"silver":  "#c0c0c0",
	"gray":    "#808080",
	"grey":    "#808080",
	"white":   "#ffffff",
	"maroon":  "#800000",
	"red":     "#ff0000",
	"purple":  "#800080",
	"fuchsia": "#ff00ff",
	"magenta": "#ff00ff",
	"green":   "#008000",
	"lime":    "#00ff00",
	"olive":   "#808000",
	"yellow":  "#ffff00",
	"navy":    "#000080",
	"blue":    "#0000ff",
	"teal":    "#008080",
	"aqua":    "#00ffff",
	"cyan":    "#00ffff",
	"orange":  "#ffa500",
	"pink":    "#ffc0cb",
	"brown":   "#a52a2a",
	"gold":    "#ffd700",
	"beige":   "#f5f5dc",
}

// ParseColor parses #rgb, #rrggbb, #rrggbbaa or a basic CSS color name
// into a linear RGBA color.
func ParseColor(s string) ([4]float32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		return [4]float32{}, fmt.Errorf("unknown color %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return [4]float32{}, fmt.Errorf("bad color length %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [4]float32{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return [4]float32{
		srgbToLinear(uint8(v >> 24)),
		srgbToLinear(uint8(v >> 16)),
		srgbToLinear(uint8(v >> 8)),
		float32(uint8(v)) / 255,
	}, nil
}

// ParseColorSRGB is ParseColor without the linear conversion, for UI
// clear colors.
func ParseColorSRGB(s string) ([4]float32, error) {
	c, err := ParseColor(s)
	if err != nil {
		return c, err
	}
	for i := 0; i < 3; i++ {
		c[i] = linearToSRGB(c[i])
	}
	return c, nil
}

func srgbToLinear(b uint8) float32 {
	c := float64(b) / 255
	if c <= 0.04045 {
		return float32(c / 12.92)
	}
	return float32(gomath.Pow((c+0.055)/1.055, 2.4))
}

func linearToSRGB(c float32) float32 {
	v := float64(c)
	if v <= 0.0031308 {
		return float32(v * 12.92)
	}
	return float32(1.055*gomath.Pow(v, 1/2.4) - 0.055)
}
