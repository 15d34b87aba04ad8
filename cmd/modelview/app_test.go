package main

import (
	"testing"

	"github.com/Faultbox/modelview/internal/config"
)

func TestModelConfigurationRoundTrip(t *testing.T) {
	m := config.Default().Model
	m.URL = "https://cdn.example.com/chair.glb"
	m.Product = "Chair"
	m.Color = "#ff0000"
	m.Material = "glossy"
	m.DarkMode = true

	got := modelSettings(m.URL, m.Product, modelConfiguration(m))
	if got != m {
		t.Errorf("round trip = %+v, want %+v", got, m)
	}
}

func TestProductFromPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/models/Model 3.glb", "Model 3"},
		{"chair.obj", "chair"},
		{"/tmp/noext", "noext"},
	}
	for _, tt := range tests {
		if got := productFromPath(tt.in); got != tt.want {
			t.Errorf("productFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWindowTitle(t *testing.T) {
	if got := windowTitle(""); got != "modelview" {
		t.Errorf("empty product title = %q", got)
	}
	if got := windowTitle("Lamp"); got != "Lamp - modelview" {
		t.Errorf("title = %q", got)
	}
}
