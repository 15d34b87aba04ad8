package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/modelview/internal/engine/camera"
	"github.com/Faultbox/modelview/internal/engine/loader"
	"github.com/Faultbox/modelview/internal/prefs"
	"github.com/Faultbox/modelview/pkg/formats/formatstest"
)

func TestInspect(t *testing.T) {
	data, err := formatstest.CubeGLB([3]float32{5, 0, 0}, 2)
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model7.glb")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	err = inspect(&out, path, "Model 7", 0, loader.Options{Timeout: 5 * time.Second}, camera.BuiltinOverrides())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Format:    mesh-pbr",
		"Triangles: 12",
		"Scale:     3.1250",
		"Override:  model7",
		"Camera:   (0.000, 0.000, 4.000)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestInspectUnsupported(t *testing.T) {
	var out strings.Builder
	err := inspect(&out, "chair.fbx", "", 0, loader.Options{}, camera.BuiltinOverrides())
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPose(t *testing.T) {
	var out strings.Builder
	if err := pose(&out, camera.BuiltinOverrides(), "Model 10 Deluxe"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Override: model10") {
		t.Errorf("expected longest match model10:\n%s", out.String())
	}

	out.Reset()
	if err := pose(&out, camera.BuiltinOverrides(), "Desk Lamp"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No override") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestPrefsCommand(t *testing.T) {
	store, err := prefs.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	if err := prefsCommand(&out, store, []string{"Model 3"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "3d-viewer-model-3: not set") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := prefsCommand(&out, store, []string{"Model 3", "0.7", "0.5"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "rotation 0.70, zoom 0.50") {
		t.Errorf("unexpected output: %q", out.String())
	}

	if err := prefsCommand(&out, store, []string{"Model 3", "fast", "0.5"}); err == nil {
		t.Error("expected parse error")
	}
}
