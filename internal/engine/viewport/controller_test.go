package viewport

import (
	"context"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Faultbox/modelview/internal/engine/loader"
	"github.com/Faultbox/modelview/internal/prefs"
	"github.com/Faultbox/modelview/pkg/formats/formatstest"
	"github.com/Faultbox/modelview/pkg/scene"
)

type fakeRenderer struct {
	scenes    []*scene.Node
	clears    int
	renders   int
	releases  int
	width     int
	height    int
	renderErr error
	lastView  FrameView
}

func (r *fakeRenderer) SetScene(root *scene.Node) error {
	r.scenes = append(r.scenes, root)
	return nil
}
func (r *fakeRenderer) ClearScene() { r.clears++ }
func (r *fakeRenderer) Render(view FrameView) error {
	r.renders++
	r.lastView = view
	return r.renderErr
}
func (r *fakeRenderer) Resize(w, h int) { r.width, r.height = w, h }
func (r *fakeRenderer) TryReleaseContext() bool {
	r.releases++
	return true
}

// fakeSource serves cubes. Loads of URLs with a gate block until the gate
// is closed, ignoring cancellation so stale results really arrive.
type fakeSource struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	sizes map[string]float32
	fail  map[string]error
	calls atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		gates: make(map[string]chan struct{}),
		sizes: make(map[string]float32),
		fail:  make(map[string]error),
	}
}

func (f *fakeSource) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[url] = ch
	return ch
}

func (f *fakeSource) Load(ctx context.Context, asset loader.ModelAsset, progress func(int)) (*scene.Node, error) {
	f.calls.Add(1)
	progress(50)

	f.mu.Lock()
	gate := f.gates[asset.URL]
	size, ok := f.sizes[asset.URL]
	err := f.fail[asset.URL]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, &loader.LoadFailedError{URL: asset.URL, Cause: err}
	}
	if !ok {
		size = 10
	}
	root := scene.NewNode(asset.URL)
	if size >= 0 {
		root.AddMesh(&scene.Mesh{
			Positions: formatstest.CubePositions([3]float32{3, 4, 5}, size),
			Indices:   formatstest.CubeIndices,
			Material:  scene.DefaultMaterial(),
		})
	}
	return root, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

type harness struct {
	c      *Controller
	r      *fakeRenderer
	src    *fakeSource
	clock  *fakeClock
	frames int
}

func newHarness(t *testing.T, store PrefStore) *harness {
	t.Helper()
	h := &harness{
		r:     &fakeRenderer{},
		src:   newFakeSource(),
		clock: &fakeClock{t: time.Unix(1000, 0)},
	}
	opts := Options{
		Renderer: h.r,
		Source:   h.src,
		Now:      h.clock.Now,
		Damping:  0.05,
	}
	if store != nil {
		opts.Prefs = store
	}
	h.c = New(opts)
	t.Cleanup(h.c.Dispose)
	return h
}

// frame ticks the controller by one 16ms frame.
func (h *harness) frame() error {
	h.frames++
	return h.c.Frame(h.clock.Advance(16 * time.Millisecond))
}

// waitState ticks frames until the controller reaches want.
func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = h.frame()
		if h.c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v (status %+v)", h.c.State(), want, h.c.Status())
}

func approx(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-3
}

func TestController_LoadReady(t *testing.T) {
	h := newHarness(t, nil)

	var seen []State
	var mu sync.Mutex
	h.c.Subscribe(func(s Status) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})

	h.c.Configure("https://cdn.test/vase.glb", "Vase", DefaultConfiguration())
	if h.c.State() != StateLoading {
		t.Fatalf("state after Configure = %v", h.c.State())
	}
	h.waitState(t, StateReady)

	if len(h.r.scenes) != 1 {
		t.Fatalf("expected 1 uploaded scene, got %d", len(h.r.scenes))
	}
	b := h.c.Bounds()
	if b == nil || !approx(b.MaxDim(), 2.5) {
		t.Fatalf("normalized bounds = %+v", b)
	}
	c := b.Center()
	if !approx(c.X, 0) || !approx(c.Y, 0) || !approx(c.Z, 0) {
		t.Errorf("model not centered: %+v", c)
	}

	pose := h.c.Camera().Pose()
	if !pose.Valid() {
		t.Errorf("invalid pose %+v", pose)
	}
	if !approx(pose.Position.Z, 3.75) {
		t.Errorf("camera distance = %v, want 3.75", pose.Position.Z)
	}

	st := h.c.Status()
	if st.Progress != 100 || st.Error != "" {
		t.Errorf("status = %+v", st)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 || seen[0] != StateLoading || seen[len(seen)-1] != StateReady {
		t.Errorf("published states = %v", seen)
	}
}

func TestController_FrameViewCarriesBounds(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.frame()
	if h.r.lastView.Bounds != nil {
		t.Fatalf("bounds before load = %+v, want nil", h.r.lastView.Bounds)
	}

	h.c.Configure("https://cdn.test/vase.glb", "Vase", DefaultConfiguration())
	h.waitState(t, StateReady)
	_ = h.frame()

	b := h.r.lastView.Bounds
	if b == nil || !approx(b.MaxDim(), 2.5) {
		t.Fatalf("frame bounds = %+v, want normalized extent 2.5", b)
	}
	if !h.r.lastView.Lighting.Key.CastShadow {
		t.Errorf("key light does not cast shadows")
	}
}

func TestController_UnsupportedFormat(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Configure("https://cdn.test/model.fbx", "", DefaultConfiguration())

	if h.c.State() != StateFailed {
		t.Fatalf("state = %v, want failed", h.c.State())
	}
	if h.src.calls.Load() != 0 {
		t.Error("unsupported format must not fetch")
	}
	if !strings.Contains(h.c.Status().Error, "fbx") {
		t.Errorf("error should name the extension: %q", h.c.Status().Error)
	}
}

func TestController_LoadFailed(t *testing.T) {
	h := newHarness(t, nil)
	h.src.fail["https://cdn.test/broken.glb"] = errors.New("http status 500")

	h.c.Configure("https://cdn.test/broken.glb", "", DefaultConfiguration())
	h.waitState(t, StateFailed)

	if !strings.Contains(h.c.Status().Error, "500") {
		t.Errorf("error = %q", h.c.Status().Error)
	}

	renders := h.r.renders
	_ = h.frame()
	if h.r.renders != renders {
		t.Error("failed viewport should not draw")
	}
}

func TestController_StaleLoadDropped(t *testing.T) {
	h := newHarness(t, nil)
	slow := "https://cdn.test/slow.glb"
	fast := "https://cdn.test/fast.glb"
	gate := h.src.gate(slow)
	h.src.sizes[fast] = 4

	h.c.Configure(slow, "Lamp", DefaultConfiguration())
	_ = h.frame()
	h.c.Configure(fast, "Lamp", DefaultConfiguration())
	h.waitState(t, StateReady)

	if h.c.Root().Name != fast {
		t.Fatalf("displayed %q, want %q", h.c.Root().Name, fast)
	}

	close(gate)
	// Give the slow load time to deliver, then tick.
	for i := 0; i < 50; i++ {
		_ = h.frame()
		time.Sleep(time.Millisecond)
	}

	if h.c.Root().Name != fast {
		t.Errorf("stale load replaced the scene with %q", h.c.Root().Name)
	}
	if len(h.r.scenes) != 1 {
		t.Errorf("expected only the current load uploaded, got %d uploads", len(h.r.scenes))
	}
	if h.c.State() != StateReady {
		t.Errorf("state = %v", h.c.State())
	}
}

func TestController_NoGeometry(t *testing.T) {
	h := newHarness(t, nil)
	h.src.sizes["https://cdn.test/empty.glb"] = -1

	h.c.Configure("https://cdn.test/empty.glb", "", DefaultConfiguration())
	h.waitState(t, StateReady)

	if !h.c.Status().NoGeometry {
		t.Error("expected NoGeometry status")
	}
	if h.c.Bounds() != nil {
		t.Error("expected nil bounds")
	}
	pose := h.c.Camera().Pose()
	if !approx(pose.Position.Z, 4) || pose.MinDistance != 1 || pose.MaxDistance != 15 {
		t.Errorf("expected default pose, got %+v", pose)
	}
}

func TestController_ProductOverride(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Configure("https://cdn.test/m7.glb", "Model 7", DefaultConfiguration())
	h.waitState(t, StateReady)

	// Override scale 2.5 multiplies the fit scale.
	if b := h.c.Bounds(); !approx(b.MaxDim(), 6.25) {
		t.Errorf("extent = %v, want 6.25", b.MaxDim())
	}
	pose := h.c.Camera().Pose()
	if !approx(pose.Position.Z, 4) || pose.MinDistance != 2 || pose.MaxDistance != 8 {
		t.Errorf("pose = %+v", pose)
	}
}

func TestController_CustomScaleAndColor(t *testing.T) {
	h := newHarness(t, nil)
	cfg := DefaultConfiguration()
	cfg.Scale = 2
	cfg.Color = "#ff0000"

	h.c.Configure("https://cdn.test/vase.glb", "Vase", cfg)
	h.waitState(t, StateReady)

	if b := h.c.Bounds(); !approx(b.MaxDim(), 5) {
		t.Errorf("extent = %v, want 5", b.MaxDim())
	}
	mats := h.c.Root().Materials()
	if len(mats) != 1 || mats[0].BaseColor != [4]float32{1, 0, 0, 1} || !mats[0].Dirty {
		t.Errorf("color override not applied: %+v", mats)
	}
}

func TestController_ReconfigureReloadRules(t *testing.T) {
	h := newHarness(t, nil)
	url := "https://cdn.test/vase.glb"
	cfg := DefaultConfiguration()
	h.c.Configure(url, "Vase", cfg)
	h.waitState(t, StateReady)
	calls := h.src.calls.Load()

	cfg.DarkMode = true
	cfg.RotationSensitivity = 1.5
	h.c.Configure(url, "Vase", cfg)
	if h.c.State() != StateReady || h.src.calls.Load() != calls {
		t.Error("theme or sensitivity change must not reload")
	}
	if h.c.Configuration().RotationSensitivity != 1.5 {
		t.Errorf("host sensitivity change not applied")
	}

	cfg.Material = "glossy"
	h.c.Configure(url, "Vase", cfg)
	if h.c.State() != StateLoading {
		t.Errorf("material change should reload, state %v", h.c.State())
	}
	h.waitState(t, StateReady)
	if h.r.clears == 0 {
		t.Error("previous scene should be released on reload")
	}
}

func TestController_SensitivityClampAndPresets(t *testing.T) {
	h := newHarness(t, nil)
	h.c.SetSensitivity(5, 0.01)
	cfg := h.c.Configuration()
	if cfg.RotationSensitivity != MaxSensitivity || cfg.ZoomSensitivity != MinSensitivity {
		t.Errorf("clamped = %v/%v", cfg.RotationSensitivity, cfg.ZoomSensitivity)
	}

	if !h.c.ApplyPreset("fast") {
		t.Fatal("fast preset not found")
	}
	cfg = h.c.Configuration()
	if cfg.RotationSensitivity != 1 || cfg.ZoomSensitivity != 1 {
		t.Errorf("preset = %v/%v", cfg.RotationSensitivity, cfg.ZoomSensitivity)
	}
	if h.c.ApplyPreset("turbo") {
		t.Error("unknown preset should not apply")
	}
}

func TestController_SensitivityPersisted(t *testing.T) {
	dir := t.TempDir()
	store, err := prefs.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, store)
	h.c.Configure("https://cdn.test/m3.glb", "model-3", DefaultConfiguration())
	h.waitState(t, StateReady)
	h.c.SetSensitivity(0.7, 0.7)
	h.c.Dispose()

	if v, ok := store.Get("3d-viewer-model-3"); !ok || v.Rotation != 0.7 || v.Zoom != 0.7 {
		t.Fatalf("stored = %+v, %v", v, ok)
	}

	h2 := newHarness(t, store)
	h2.c.Configure("https://cdn.test/m3.glb", "model-3", DefaultConfiguration())
	if got := h2.c.Configuration().RotationSensitivity; got != 0.7 {
		t.Errorf("restored rotation sensitivity = %v, want 0.7", got)
	}

	h3 := newHarness(t, store)
	h3.c.Configure("https://cdn.test/m4.glb", "model-4", DefaultConfiguration())
	if got := h3.c.Configuration().RotationSensitivity; got != DefaultSensitivity {
		t.Errorf("other product sensitivity = %v, want default", got)
	}
}

func TestController_ResizeKeepsPose(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Configure("https://cdn.test/vase.glb", "Vase", DefaultConfiguration())
	h.waitState(t, StateReady)

	before := h.c.Camera().Pose()
	h.c.Resize(1920, 1080)
	_ = h.frame()
	after := h.c.Camera().Pose()

	if before != after {
		t.Errorf("pose changed on resize: %+v -> %+v", before, after)
	}
	if h.r.width != 1920 || h.r.height != 1080 {
		t.Errorf("renderer size = %dx%d", h.r.width, h.r.height)
	}
}

func TestController_ResetView(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Configure("https://cdn.test/vase.glb", "Vase", DefaultConfiguration())
	h.waitState(t, StateReady)
	home := h.c.Camera().Pose()

	h.c.PointerDrag(200, 50, ButtonPrimary)
	h.c.Wheel(3)
	for i := 0; i < 30; i++ {
		_ = h.frame()
	}
	moved := h.c.Camera().Pose()
	if approx(moved.Position.X, home.Position.X) && approx(moved.Position.Z, home.Position.Z) {
		t.Fatal("input did not move the camera")
	}

	h.c.ResetView()
	if !h.c.Animating() {
		t.Fatal("reset should start an animation")
	}
	_ = h.frame()
	if !h.c.Animating() {
		t.Error("animation should still run after one frame")
	}

	h.clock.Advance(time.Second)
	_ = h.frame()
	if h.c.Animating() {
		t.Error("animation should finish after its duration")
	}
	got := h.c.Camera().Pose()
	if !approx(got.Position.X, home.Position.X) || !approx(got.Position.Y, home.Position.Y) || !approx(got.Position.Z, home.Position.Z) {
		t.Errorf("camera at %+v, want %+v", got.Position, home.Position)
	}
}

func TestController_InputIgnoredWhenNotReady(t *testing.T) {
	h := newHarness(t, nil)
	gate := h.src.gate("https://cdn.test/slow.glb")
	defer close(gate)

	h.c.Configure("https://cdn.test/slow.glb", "", DefaultConfiguration())
	before := h.c.Camera().Pose()
	h.c.PointerDrag(100, 100, ButtonPrimary)
	h.c.Wheel(5)
	h.c.ResetView()
	_ = h.frame()

	if h.c.Camera().Pose() != before || h.c.Animating() {
		t.Error("input while loading should be ignored")
	}
}

func TestController_RenderErrorFails(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Configure("https://cdn.test/vase.glb", "", DefaultConfiguration())
	h.waitState(t, StateReady)

	h.r.renderErr = errors.New("context lost")
	if err := h.frame(); err == nil {
		t.Fatal("expected render error")
	}
	if h.c.State() != StateFailed {
		t.Errorf("state = %v, want failed", h.c.State())
	}
	renders := h.r.renders
	_ = h.frame()
	if h.r.renders != renders {
		t.Error("render loop should stop after a render failure")
	}
}

func TestController_Dispose(t *testing.T) {
	h := newHarness(t, nil)
	gate := h.src.gate("https://cdn.test/slow.glb")
	defer close(gate)

	calls := 0
	h.c.Subscribe(func(Status) { calls++ })
	h.c.Configure("https://cdn.test/slow.glb", "", DefaultConfiguration())

	h.c.Dispose()
	h.c.Dispose()

	if h.r.releases != 1 {
		t.Errorf("TryReleaseContext called %d times, want 1", h.r.releases)
	}
	if h.c.State() != StateDisposed || h.c.Status().State != StateDisposed {
		t.Errorf("state = %v", h.c.State())
	}

	before := calls
	renders := h.r.renders
	h.c.Configure("https://cdn.test/other.glb", "", DefaultConfiguration())
	h.c.SetSensitivity(1, 1)
	h.c.PointerDrag(10, 10, ButtonPrimary)
	h.c.Resize(10, 10)
	_ = h.frame()

	if h.r.renders != renders {
		t.Error("disposed viewport rendered a frame")
	}
	if calls != before {
		t.Error("subscribers should be detached after dispose")
	}
	if h.c.Do(func(*Controller) {}) {
		t.Error("Do should refuse work after dispose")
	}
}

func TestController_Do(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Configure("https://cdn.test/vase.glb", "", DefaultConfiguration())
	h.waitState(t, StateReady)

	done := make(chan struct{})
	go func() {
		h.c.Do(func(c *Controller) { c.SetSensitivity(1.2, 1.2) })
		close(done)
	}()
	<-done
	_ = h.frame()

	if got := h.c.Configuration().RotationSensitivity; gomath.Abs(got-1.2) > 1e-9 {
		t.Errorf("queued command not applied, sensitivity %v", got)
	}
}

func TestBackground(t *testing.T) {
	dark := DefaultConfiguration()
	dark.DarkMode = true
	c := Background(dark)
	if !approx(c[0], 0x1f/255.0) || !approx(c[2], 0x37/255.0) {
		t.Errorf("dark background = %v", c)
	}

	custom := DefaultConfiguration()
	custom.BackgroundColor = "#ffffff"
	if Background(custom) != [4]float32{1, 1, 1, 1} {
		t.Errorf("custom background = %v", Background(custom))
	}
}

func TestController_SensitivityBeforeConfigure(t *testing.T) {
	dir := t.TempDir()
	store, err := prefs.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, store)
	h.c.SetSensitivity(1.2, 0.4)
	h.c.Dispose()

	if _, err := os.Stat(filepath.Join(dir, ".json")); !os.IsNotExist(err) {
		t.Errorf("record written without a key name: %v", err)
	}
	fresh, err := prefs.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := fresh.Get(prefs.Key("")); !ok || v.Rotation != 1.2 || v.Zoom != 0.4 {
		t.Errorf("shared record = %+v, %v", v, ok)
	}
}
