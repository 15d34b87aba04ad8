package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagModel      = flag.String("model", "", "Model URL or path")
	flagProduct    = flag.String("product", "", "Product name used for camera framing and preferences")
	flagColor      = flag.String("color", "", "Color override, e.g. #ff8800")
	flagMaterial   = flag.String("material", "", "Material finish: matte, glossy, metallic, silk")
	flagScale      = flag.Float64("scale", 0, "Model scale multiplier")
	flagDark       = flag.Bool("dark", false, "Use the dark theme")
	flagAutoRotate = flag.Bool("autorotate", false, "Rotate the model automatically")
	flagKiosk      = flag.Bool("kiosk", false, "Hide the settings panel")
	flagStatusAddr = flag.String("status", "", "Status websocket address, e.g. :8080")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Model.URL = *flagModel
	}
	if *flagProduct != "" {
		cfg.Model.Product = *flagProduct
	}
	if *flagColor != "" {
		cfg.Model.Color = *flagColor
	}
	if *flagMaterial != "" {
		cfg.Model.Material = *flagMaterial
	}
	if *flagScale > 0 {
		cfg.Model.Scale = *flagScale
	}
	if *flagDark {
		cfg.Model.DarkMode = true
	}
	if *flagAutoRotate {
		cfg.Model.AutoRotate = true
	}
	if *flagKiosk {
		cfg.Model.ShowControls = false
	}
	if *flagStatusAddr != "" {
		cfg.Status.Addr = *flagStatusAddr
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
