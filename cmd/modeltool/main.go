// modeltool inspects 3D models and viewer settings without opening a window.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Faultbox/modelview/internal/config"
	"github.com/Faultbox/modelview/internal/engine/camera"
	"github.com/Faultbox/modelview/internal/engine/loader"
	"github.com/Faultbox/modelview/internal/engine/normalize"
	"github.com/Faultbox/modelview/internal/logger"
	"github.com/Faultbox/modelview/internal/prefs"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Logs go to stderr; stdout carries command output.
	if err := logger.Init(logger.Options{Level: "warn", Console: os.Stderr}); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "inspect", "i":
		err = cmdInspect(os.Stdout, args)
	case "pose":
		err = cmdPose(os.Stdout, args)
	case "prefs":
		err = cmdPrefs(os.Stdout, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`modeltool - 3D model viewer utility

Usage:
  modeltool <command> [options]

Commands:
  inspect [-product name] [-scale s] <url>   Load a model and show its framing
  pose <product name>                        Show the camera override for a product
  prefs <product name> [rotation zoom]       Show or store saved sensitivity

Examples:
  modeltool inspect https://cdn.example.com/models/chair.glb
  modeltool inspect -product "Model 3" ./model3.glb
  modeltool pose "Model 10 Deluxe"
  modeltool prefs "Model 3" 0.7 0.5`)
}

func cmdInspect(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	product := fs.String("product", "", "Product name for the camera override")
	scale := fs.Float64("scale", 0, "Scale multiplier (default: override or 1)")
	timeout := fs.Duration("timeout", loader.DefaultTimeout, "Fetch timeout")
	decoder := fs.String("decoder", "", "Path to draco_decoder")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: modeltool inspect [options] <url>")
	}

	opts := loader.Options{Timeout: *timeout}
	if *decoder != "" {
		opts.Decoder = loader.ExecDecoder{Path: *decoder}
	}
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	return inspect(w, fs.Arg(0), *product, *scale, opts, overrides)
}

// loadOverrides merges the configured camera overrides over the built-in ones.
func loadOverrides() (camera.Overrides, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	extra, err := cfg.CameraOverrides()
	if err != nil {
		return nil, err
	}
	return camera.BuiltinOverrides().Merge(extra), nil
}

func inspect(w io.Writer, url, product string, scale float64, opts loader.Options, overrides camera.Overrides) error {
	asset, err := loader.NewAsset(url)
	if err != nil {
		return err
	}
	l, err := loader.New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout+5*time.Second)
	defer cancel()
	root, err := l.Load(ctx, asset, nil)
	if err != nil {
		return err
	}

	stats := root.Stats()
	fmt.Fprintf(w, "Model:     %s\n", asset.URL)
	fmt.Fprintf(w, "Format:    %s\n", asset.Format)
	fmt.Fprintf(w, "Nodes:     %d\n", stats.Nodes)
	fmt.Fprintf(w, "Meshes:    %d\n", stats.Meshes)
	fmt.Fprintf(w, "Vertices:  %d\n", stats.Vertices)
	fmt.Fprintf(w, "Triangles: %d\n", stats.Triangles)
	fmt.Fprintf(w, "Materials: %d\n", len(root.Materials()))

	raw, ok := scene.WorldBounds(root)
	if !ok {
		fmt.Fprintln(w, "Bounds:    no valid geometry")
		return nil
	}
	fmt.Fprintf(w, "Bounds:    %s\n", formatBox(raw))

	ov, key, found := overrides.Lookup(product)
	if scale <= 0 {
		scale = float64(ov.ScaleOr(1))
	}
	res := normalize.Normalize(root, normalize.TargetExtent, scale)
	fmt.Fprintf(w, "Scale:     %.4f\n", res.Scale)
	fmt.Fprintf(w, "Fitted:    %s\n", formatBox(*res.Bounds))

	if found {
		fmt.Fprintf(w, "Override:  %s\n", key)
	}
	printPose(w, camera.ComputePose(res.Bounds, ov))
	return nil
}

func cmdPose(w io.Writer, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: modeltool pose <product name>")
	}
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	return pose(w, overrides, args[0])
}

func pose(w io.Writer, overrides camera.Overrides, product string) error {
	ov, key, ok := overrides.Lookup(product)
	if !ok {
		fmt.Fprintf(w, "No override for %q, automatic framing applies\n", product)
		return nil
	}

	fmt.Fprintf(w, "Override: %s\n", key)
	if ov.Scale != nil {
		fmt.Fprintf(w, "Scale:    %.2f\n", *ov.Scale)
	}
	unit := math.Box3{
		Min: math.Vec3{X: -1.25, Y: -1.25, Z: -1.25},
		Max: math.Vec3{X: 1.25, Y: 1.25, Z: 1.25},
	}
	printPose(w, camera.ComputePose(&unit, ov))
	return nil
}

func cmdPrefs(w io.Writer, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return fmt.Errorf("usage: modeltool prefs <product name> [rotation zoom]")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := prefs.NewStore(cfg.Prefs.Dir)
	if err != nil {
		return err
	}
	return prefsCommand(w, store, args)
}

func prefsCommand(w io.Writer, store *prefs.Store, args []string) error {
	key := prefs.Key(args[0])
	if len(args) == 3 {
		rot, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("rotation: %w", err)
		}
		zoom, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("zoom: %w", err)
		}
		if err := store.Put(key, prefs.Sensitivity{Rotation: rot, Zoom: zoom}); err != nil {
			return err
		}
	}

	s, ok := store.Get(key)
	if !ok {
		fmt.Fprintf(w, "%s: not set\n", key)
		return nil
	}
	fmt.Fprintf(w, "%s: rotation %.2f, zoom %.2f\n", key, s.Rotation, s.Zoom)
	return nil
}

func printPose(w io.Writer, p camera.Pose) {
	fmt.Fprintf(w, "Camera:   %s\n", formatVec(p.Position))
	fmt.Fprintf(w, "Target:   %s\n", formatVec(p.Target))
	fmt.Fprintf(w, "Distance: %.2f (min %.2f, max %.2f)\n", p.Position.Distance(p.Target), p.MinDistance, p.MaxDistance)
}

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

func formatBox(b math.Box3) string {
	size := b.Size()
	return fmt.Sprintf("%s .. %s size %.3f x %.3f x %.3f", formatVec(b.Min), formatVec(b.Max), size.X, size.Y, size.Z)
}
