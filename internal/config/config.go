// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Faultbox/modelview/internal/engine/camera"
	"github.com/Faultbox/modelview/pkg/math"
)

// Config holds all viewer settings.
type Config struct {
	Window    WindowConfig              `yaml:"window"`
	Viewer    ViewerConfig              `yaml:"viewer"`
	Model     ModelConfig               `yaml:"model"`
	Loader    LoaderConfig              `yaml:"loader"`
	Prefs     PrefsConfig               `yaml:"prefs"`
	Status    StatusConfig              `yaml:"status"`
	Snapshot  SnapshotConfig            `yaml:"snapshot"`
	Logging   LoggingConfig             `yaml:"logging"`
	Overrides map[string]OverrideConfig `yaml:"overrides,omitempty"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width    int  `yaml:"width"`
	Height   int  `yaml:"height"`
	VSync    bool `yaml:"vsync"`
	FPSLimit int  `yaml:"fps_limit"`
}

// ViewerConfig holds camera and interaction tuning.
type ViewerConfig struct {
	TargetExtent    float64       `yaml:"target_extent"`
	FOV             float32       `yaml:"fov"`
	Near            float32       `yaml:"near"`
	Far             float32       `yaml:"far"`
	ResetDuration   time.Duration `yaml:"reset_duration"`
	Damping         float32       `yaml:"damping"`
	AutoRotateSpeed float32       `yaml:"auto_rotate_speed"`

	// Shadows enables the key light shadow map.
	Shadows       bool    `yaml:"shadows"`
	ShadowMapSize int     `yaml:"shadow_map_size"`
	Exposure      float32 `yaml:"exposure"`
}

// ModelConfig is the model shown at startup and its customizations.
type ModelConfig struct {
	URL                 string  `yaml:"url"`
	Product             string  `yaml:"product"`
	Color               string  `yaml:"color"`
	Material            string  `yaml:"material"`
	Scale               float64 `yaml:"scale"`
	BackgroundColor     string  `yaml:"background_color"`
	RotationSensitivity float64 `yaml:"rotation_sensitivity"`
	ZoomSensitivity     float64 `yaml:"zoom_sensitivity"`
	ShowControls        bool    `yaml:"show_controls"`
	DarkMode            bool    `yaml:"dark_mode"`
	AutoRotate          bool    `yaml:"auto_rotate"`
}

// LoaderConfig holds asset fetch settings.
type LoaderConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	BaseURL string        `yaml:"base_url"`

	// DecoderPath points at a draco_decoder executable used for
	// compressed glTF meshes. Empty disables them.
	DecoderPath string `yaml:"decoder_path"`
}

// PrefsConfig holds the preference store location.
type PrefsConfig struct {
	Dir string `yaml:"dir"`
}

// StatusConfig holds the status server settings. An empty address
// disables the server.
type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// SnapshotConfig holds screenshot settings.
type SnapshotConfig struct {
	Dir     string `yaml:"dir"`
	Format  string `yaml:"format"`
	MaxSize int    `yaml:"max_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`

	// JSON writes the log file as JSON lines.
	JSON bool `yaml:"json"`
}

// OverrideConfig is the YAML form of a camera override.
type OverrideConfig struct {
	CameraPosition []float32 `yaml:"camera_position,omitempty"`
	TargetPosition []float32 `yaml:"target_position,omitempty"`
	Scale          *float32  `yaml:"scale,omitempty"`
	MinDistance    *float32  `yaml:"min_distance,omitempty"`
	MaxDistance    *float32  `yaml:"max_distance,omitempty"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:    1280,
			Height:   720,
			VSync:    true,
			FPSLimit: 0,
		},
		Viewer: ViewerConfig{
			TargetExtent:    2.5,
			FOV:             camera.DefaultFOV,
			Near:            camera.DefaultNear,
			Far:             camera.DefaultFar,
			ResetDuration:   camera.DefaultResetDuration,
			Damping:         camera.DefaultDamping,
			AutoRotateSpeed: camera.DefaultAutoRotateSpeed,
			Shadows:         true,
			ShadowMapSize:   2048,
			Exposure:        1,
		},
		Model: ModelConfig{
			Scale:               1,
			BackgroundColor:     "transparent",
			RotationSensitivity: 0.3,
			ZoomSensitivity:     0.3,
			ShowControls:        true,
		},
		Loader: LoaderConfig{
			Timeout: 30 * time.Second,
		},
		Prefs: PrefsConfig{
			Dir: filepath.Join(ConfigDir(), "prefs"),
		},
		Snapshot: SnapshotConfig{
			Dir:    "screenshots",
			Format: "png",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// CameraOverrides converts the YAML overrides into camera overrides keyed
// by product name.
func (c *Config) CameraOverrides() (map[string]camera.Override, error) {
	out := make(map[string]camera.Override, len(c.Overrides))
	for name, oc := range c.Overrides {
		ov := camera.Override{
			Scale:       oc.Scale,
			MinDistance: oc.MinDistance,
			MaxDistance: oc.MaxDistance,
		}
		var err error
		if ov.CameraPosition, err = vec3(oc.CameraPosition); err != nil {
			return nil, fmt.Errorf("override %q camera_position: %w", name, err)
		}
		if ov.TargetPosition, err = vec3(oc.TargetPosition); err != nil {
			return nil, fmt.Errorf("override %q target_position: %w", name, err)
		}
		out[name] = ov
	}
	return out, nil
}

func vec3(v []float32) (*math.Vec3, error) {
	switch len(v) {
	case 0:
		return nil, nil
	case 3:
		return &math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return nil, fmt.Errorf("want 3 components, got %d", len(v))
	}
}
