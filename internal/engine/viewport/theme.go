package viewport

import (
	"strings"

	"github.com/Faultbox/modelview/internal/engine/normalize"
)

// Theme background colors used when the host asks for transparency.
const (
	DarkBackground  = "#1f2937"
	LightBackground = "#f3f4f6"
)

// Background resolves the clear color for a configuration.
func Background(cfg Configuration) [4]float32 {
	bg := strings.TrimSpace(cfg.BackgroundColor)
	if bg == "" || strings.EqualFold(bg, "transparent") {
		bg = LightBackground
		if cfg.DarkMode {
			bg = DarkBackground
		}
	}
	c, err := normalize.ParseColorSRGB(bg)
	if err != nil {
		c, _ = normalize.ParseColorSRGB(LightBackground)
	}
	return c
}
