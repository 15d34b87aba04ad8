// Package viewport drives a single model viewport: it starts loads, applies
// their results on the render thread, frames the camera and turns pointer
// input into camera motion.
package viewport

import (
	"context"
	"errors"
	"image"
	gomath "math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/modelview/internal/engine/camera"
	"github.com/Faultbox/modelview/internal/engine/lighting"
	"github.com/Faultbox/modelview/internal/engine/loader"
	"github.com/Faultbox/modelview/internal/engine/normalize"
	"github.com/Faultbox/modelview/internal/logger"
	"github.com/Faultbox/modelview/internal/prefs"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// ErrDisposed is returned by operations on a disposed controller.
var ErrDisposed = errors.New("viewport disposed")

// Source loads model assets. *loader.Loader implements it.
type Source interface {
	Load(ctx context.Context, asset loader.ModelAsset, progress func(int)) (*scene.Node, error)
}

// PrefStore persists sensitivity per key. *prefs.Store implements it.
type PrefStore interface {
	Get(key string) (prefs.Sensitivity, bool)
	PutAsync(key string, v prefs.Sensitivity)
	Wait()
}

// Button identifies the pointer button of a drag.
type Button int

// Pointer buttons.
const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Options configures a Controller.
type Options struct {
	Renderer Renderer
	Source   Source
	Prefs    PrefStore // optional

	Overrides camera.Overrides

	TargetExtent    float64
	ResetDuration   time.Duration
	Damping         float32
	AutoRotateSpeed float32

	// FOV is the vertical field of view in degrees.
	FOV       float32
	Near, Far float32

	Width, Height int

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.Overrides == nil {
		o.Overrides = camera.BuiltinOverrides()
	}
	if o.TargetExtent <= 0 {
		o.TargetExtent = normalize.TargetExtent
	}
	if o.ResetDuration <= 0 {
		o.ResetDuration = camera.DefaultResetDuration
	}
	if o.Damping < 0 {
		o.Damping = 0
	}
	if o.AutoRotateSpeed == 0 {
		o.AutoRotateSpeed = camera.DefaultAutoRotateSpeed
	}
	if o.FOV <= 0 {
		o.FOV = camera.DefaultFOV
	}
	if o.Near <= 0 {
		o.Near = camera.DefaultNear
	}
	if o.Far <= o.Near {
		o.Far = camera.DefaultFar
	}
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 400
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Session is the render-thread state of one viewport.
type Session struct {
	state      State
	err        error
	noGeometry bool

	url     string
	product string
	cfg     Configuration
	hostCfg Configuration

	// key is the preference key; the shared key until the first Configure.
	key        string
	configured bool

	generation uint64
	pending    *loader.Pending

	root   *scene.Node
	bounds *math.Box3
	orbit  *camera.OrbitCamera
	home   camera.Pose
	anim   *camera.Animation

	width, height int
	lastFrame     time.Time
}

type taggedResult struct {
	gen uint64
	res loader.Result
}

// Controller is the interaction controller of a viewport. Except where
// noted, methods must be called from the render thread.
type Controller struct {
	opts    Options
	session *Session

	results  chan taggedResult
	commands chan func(*Controller)
	done     chan struct{}
	disposed atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc

	mu     sync.Mutex
	status Status
	subs   map[int]func(Status)
	nextID int
}

// New creates an idle controller.
func New(opts Options) *Controller {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	orbit := camera.NewOrbitCamera()
	orbit.Damping = opts.Damping
	orbit.AutoRotateSpeed = opts.AutoRotateSpeed

	c := &Controller{
		opts: opts,
		session: &Session{
			cfg:    DefaultConfiguration(),
			orbit:  orbit,
			home:   camera.DefaultPose(),
			key:    prefs.Key(""),
			width:  opts.Width,
			height: opts.Height,
		},
		results:  make(chan taggedResult, 4),
		commands: make(chan func(*Controller), 64),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]func(Status)),
	}
	c.session.cfg = c.session.cfg.sanitized()
	c.status = c.snapshotStatus()
	if opts.Renderer != nil {
		opts.Renderer.Resize(opts.Width, opts.Height)
	}
	return c
}

// State returns the session state.
func (c *Controller) State() State { return c.session.state }

// Configuration returns the active configuration.
func (c *Controller) Configuration() Configuration { return c.session.cfg }

// Camera exposes the orbit camera.
func (c *Controller) Camera() *camera.OrbitCamera { return c.session.orbit }

// Bounds returns the normalized model bounds, nil when there is none.
func (c *Controller) Bounds() *math.Box3 { return c.session.bounds }

// Root returns the displayed scene graph.
func (c *Controller) Root() *scene.Node { return c.session.root }

// Configure points the viewport at a model. A change of URL, product,
// scale, color or material starts a new load; other changes apply in place.
func (c *Controller) Configure(url, productName string, cfg Configuration) {
	s := c.session
	if s.state == StateDisposed {
		return
	}
	cfg = cfg.sanitized()
	host := cfg

	productChanged := productName != s.product || !s.configured
	if productChanged {
		s.configured = true
		s.product = productName
		s.key = prefs.Key(productName)
		if c.opts.Prefs != nil {
			if saved, ok := c.opts.Prefs.Get(s.key); ok {
				cfg.RotationSensitivity = ClampSensitivity(saved.Rotation, cfg.RotationSensitivity)
				cfg.ZoomSensitivity = ClampSensitivity(saved.Zoom, cfg.ZoomSensitivity)
			}
		}
	} else {
		// A sensitivity the user picked survives re-configuration unless
		// the host changes its own value.
		if cfg.RotationSensitivity == s.hostCfg.RotationSensitivity {
			cfg.RotationSensitivity = s.cfg.RotationSensitivity
		}
		if cfg.ZoomSensitivity == s.hostCfg.ZoomSensitivity {
			cfg.ZoomSensitivity = s.cfg.ZoomSensitivity
		}
	}

	reload := s.state == StateIdle || url != s.url || productChanged || s.cfg.needsReload(cfg)
	s.cfg = cfg
	s.hostCfg = host
	s.url = url
	s.orbit.AutoRotate = cfg.AutoRotate

	if reload {
		c.startLoad()
		return
	}
	c.publish()
}

// Open loads another model with the current host configuration.
func (c *Controller) Open(url, productName string) {
	c.Configure(url, productName, c.session.hostCfg)
}

func (c *Controller) startLoad() {
	s := c.session
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
	s.generation++
	s.anim = nil
	s.err = nil
	s.noGeometry = false
	c.releaseScene()

	asset, err := loader.NewAsset(s.url)
	if err != nil {
		c.fail(err)
		return
	}
	if c.opts.Source == nil {
		c.fail(errors.New("no model source configured"))
		return
	}

	s.state = StateLoading
	gen := s.generation
	p := loader.Start(c.ctx, asset, c.opts.Source.Load)
	s.pending = p

	go func() {
		select {
		case res := <-p.Done():
			select {
			case c.results <- taggedResult{gen: gen, res: res}:
			case <-c.done:
			}
		case <-c.done:
			p.Cancel()
		}
	}()

	logger.Debug("load started", zap.String("url", asset.URL), zap.Uint64("generation", gen))
	c.publish()
}

// Frame advances the viewport to now: it applies finished loads and queued
// commands, steps camera motion and draws. It is a no-op once disposed.
func (c *Controller) Frame(now time.Time) error {
	s := c.session
	if s.state == StateDisposed {
		return nil
	}

	c.drainCommands()
	c.drainResults()
	if s.state == StateDisposed {
		return nil
	}

	if s.state == StateLoading && s.pending != nil {
		if pct := s.pending.Progress(); pct != c.Status().Progress {
			c.publish()
		}
	}

	var dt float32
	if !s.lastFrame.IsZero() {
		dt = float32(now.Sub(s.lastFrame).Seconds())
	}
	s.lastFrame = now

	if s.state == StateFailed {
		return nil
	}

	if s.state == StateReady {
		if s.anim != nil {
			pos, target, done := s.anim.Step(now)
			s.orbit.Place(pos, target)
			if done {
				s.anim = nil
			}
		} else {
			s.orbit.Update(dt)
		}
	}

	if c.opts.Renderer == nil {
		return nil
	}
	if err := c.opts.Renderer.Render(c.frameView()); err != nil {
		logger.Error("render failed", zap.Error(err))
		c.fail(err)
		return err
	}
	return nil
}

func (c *Controller) frameView() FrameView {
	s := c.session
	aspect := float32(s.width) / float32(s.height)
	return FrameView{
		View:       s.orbit.ViewMatrix(),
		Projection: math.Perspective(c.opts.FOV*gomath.Pi/180, aspect, c.opts.Near, c.opts.Far),
		Eye:        s.orbit.Position(),
		Background: Background(s.cfg),
		Lighting:   lighting.Theme(s.cfg.DarkMode),
		Bounds:     s.bounds,
	}
}

func (c *Controller) drainCommands() {
	for {
		select {
		case fn := <-c.commands:
			fn(c)
			if c.session.state == StateDisposed {
				return
			}
		default:
			return
		}
	}
}

func (c *Controller) drainResults() {
	for {
		select {
		case tr := <-c.results:
			c.apply(tr)
		default:
			return
		}
	}
}

// apply installs a load result if it belongs to the current generation.
func (c *Controller) apply(tr taggedResult) {
	s := c.session
	if tr.gen != s.generation || s.state != StateLoading {
		logger.Debug("stale load dropped",
			zap.String("url", tr.res.Asset.URL),
			zap.Uint64("generation", tr.gen),
			zap.Error(loader.ErrCancelled))
		return
	}
	s.pending = nil

	if tr.res.Err != nil {
		if errors.Is(tr.res.Err, loader.ErrCancelled) {
			return
		}
		logger.Warn("model load failed", zap.String("url", tr.res.Asset.URL), zap.Error(tr.res.Err))
		c.fail(tr.res.Err)
		return
	}

	root := tr.res.Root
	ov, key, _ := c.opts.Overrides.Lookup(s.product)
	userScale := s.cfg.Scale * float64(ov.ScaleOr(1))

	norm := normalize.Normalize(root, c.opts.TargetExtent, userScale)
	normalize.ApplyOverride(root, normalize.MaterialOverride{Color: s.cfg.Color, Material: s.cfg.Material})

	pose := camera.ComputePose(norm.Bounds, ov)

	if c.opts.Renderer != nil {
		if err := c.opts.Renderer.SetScene(root); err != nil {
			logger.Error("scene upload failed", zap.Error(err))
			c.fail(err)
			return
		}
	}

	s.root = root
	s.bounds = norm.Bounds
	s.noGeometry = norm.NoGeometry
	s.home = pose
	s.orbit.SetPose(pose)
	s.state = StateReady

	logger.Info("viewport ready",
		zap.String("url", s.url),
		zap.String("override", key),
		zap.Float32("scale", norm.Scale),
		zap.Bool("noGeometry", norm.NoGeometry))
	c.publish()
}

func (c *Controller) fail(err error) {
	s := c.session
	s.state = StateFailed
	s.err = err
	c.publish()
}

// releaseScene drops the displayed model and its GPU resources.
func (c *Controller) releaseScene() {
	s := c.session
	if s.root != nil && c.opts.Renderer != nil {
		c.opts.Renderer.ClearScene()
	}
	s.root = nil
	s.bounds = nil
}

// SetSensitivity updates and persists the rotation and zoom sensitivity.
// Values are clamped to [MinSensitivity, MaxSensitivity].
func (c *Controller) SetSensitivity(rotation, zoom float64) {
	s := c.session
	if s.state == StateDisposed {
		return
	}
	s.cfg.RotationSensitivity = ClampSensitivity(rotation, s.cfg.RotationSensitivity)
	s.cfg.ZoomSensitivity = ClampSensitivity(zoom, s.cfg.ZoomSensitivity)

	if c.opts.Prefs != nil {
		c.opts.Prefs.PutAsync(s.key, prefs.Sensitivity{
			Rotation: s.cfg.RotationSensitivity,
			Zoom:     s.cfg.ZoomSensitivity,
		})
	}
	c.publish()
}

// ApplyPreset sets both sensitivities from a named preset.
func (c *Controller) ApplyPreset(name string) bool {
	p, ok := FindPreset(name)
	if ok {
		c.SetSensitivity(p.Rotation, p.Zoom)
	}
	return ok
}

// ResetView animates the camera back to the framing computed at load.
func (c *Controller) ResetView() {
	s := c.session
	if s.state != StateReady {
		return
	}
	s.orbit.Stop()
	s.anim = camera.ResetView(s.orbit.Pose(), s.home, c.opts.ResetDuration, c.opts.Now())
}

// Animating reports whether a reset animation is running.
func (c *Controller) Animating() bool { return c.session.anim != nil }

// PointerDrag handles a drag of (dx, dy) pixels. The primary button
// orbits, the secondary pans and the middle button dollies.
func (c *Controller) PointerDrag(dx, dy float32, button Button) {
	s := c.session
	if s.state != StateReady {
		return
	}
	s.anim = nil
	rot := float32(s.cfg.RotationSensitivity)
	zoom := float32(s.cfg.ZoomSensitivity)
	switch button {
	case ButtonPrimary:
		s.orbit.Orbit(dx, dy, rot)
	case ButtonSecondary:
		s.orbit.Pan(dx, dy, zoom*camera.PanFactor)
	case ButtonMiddle:
		s.orbit.Dolly(-dy*0.1, zoom)
	}
}

// Wheel dollies the camera; positive delta moves closer.
func (c *Controller) Wheel(delta float32) {
	s := c.session
	if s.state != StateReady {
		return
	}
	s.anim = nil
	s.orbit.Dolly(delta, float32(s.cfg.ZoomSensitivity))
}

// Resize updates the drawing surface size. The camera pose is unchanged.
func (c *Controller) Resize(width, height int) {
	s := c.session
	if s.state == StateDisposed || width <= 0 || height <= 0 {
		return
	}
	if width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	if c.opts.Renderer != nil {
		c.opts.Renderer.Resize(width, height)
	}
}

// Size returns the drawing surface size.
func (c *Controller) Size() (width, height int) {
	return c.session.width, c.session.height
}

// Snapshot reads back the last frame when the renderer supports it.
func (c *Controller) Snapshot() (*image.RGBA, error) {
	if c.session.state == StateDisposed {
		return nil, ErrDisposed
	}
	capt, ok := c.opts.Renderer.(Capturer)
	if !ok {
		return nil, errors.New("renderer cannot capture frames")
	}
	return capt.Capture()
}

// Do queues fn to run on the render thread during the next Frame. It is
// safe to call from any goroutine and reports false if the queue is full
// or the controller is disposed.
func (c *Controller) Do(fn func(*Controller)) bool {
	if c.disposed.Load() {
		return false
	}
	select {
	case c.commands <- fn:
		return true
	default:
		return false
	}
}

// Dispose cancels any pending load, releases GPU resources, waits for
// preference writes and detaches status subscribers. Calling it again is
// a no-op.
func (c *Controller) Dispose() {
	s := c.session
	if s.state == StateDisposed {
		return
	}
	s.state = StateDisposed
	s.generation++
	s.anim = nil

	c.disposed.Store(true)
	close(c.done)
	c.cancel()
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}

	if c.opts.Renderer != nil {
		c.opts.Renderer.ClearScene()
		if !c.opts.Renderer.TryReleaseContext() {
			logger.Debug("graphics context not released")
		}
	}
	s.root = nil
	s.bounds = nil

	if c.opts.Prefs != nil {
		c.opts.Prefs.Wait()
	}

	c.publish()
	c.mu.Lock()
	c.subs = make(map[int]func(Status))
	c.mu.Unlock()
	logger.Debug("viewport disposed")
}

// Status returns the latest published status. Safe for concurrent use.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe registers fn for status changes and returns a function that
// removes it. fn runs on the render thread and must not block.
func (c *Controller) Subscribe(fn func(Status)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed.Load() {
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) snapshotStatus() Status {
	s := c.session
	st := Status{
		State:               s.state,
		NoGeometry:          s.noGeometry,
		URL:                 s.url,
		Product:             s.product,
		RotationSensitivity: s.cfg.RotationSensitivity,
		ZoomSensitivity:     s.cfg.ZoomSensitivity,
	}
	switch s.state {
	case StateLoading:
		if s.pending != nil {
			st.Progress = s.pending.Progress()
		}
	case StateReady:
		st.Progress = 100
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

func (c *Controller) publish() {
	st := c.snapshotStatus()

	c.mu.Lock()
	c.status = st
	subs := make([]func(Status), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
