// Package camera provides the orbit camera rig used by the model viewport.
package camera

import (
	gomath "math"

	"github.com/Faultbox/modelview/pkg/math"
)

// Orbit defaults.
const (
	DefaultDamping         = 0.05
	DefaultAutoRotateSpeed = 0.6
	DefaultFOV             = 50
	DefaultNear            = 0.1
	DefaultFar             = 1000

	// PanFactor scales zoom sensitivity into pan sensitivity.
	PanFactor = 0.8

	rotateScale = 0.01  // radians per pixel at sensitivity 1
	panScale    = 0.002 // world units per pixel per unit of distance
	dollyBase   = 0.95
	pitchLimit  = gomath.Pi/2 - 0.01
	settleEps   = 1e-5
)

// OrbitCamera orbits around a target point.
type OrbitCamera struct {
	// Target point to orbit around
	Target math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from target
	Pitch    float32 // Vertical angle, radians
	Yaw      float32 // Horizontal angle, radians

	// Constraints
	MinDistance float32
	MaxDistance float32

	// Damping is the fraction of pending motion applied per update. Zero
	// applies motion immediately.
	Damping float32

	AutoRotate      bool
	AutoRotateSpeed float32

	// Pending motion, drained by Update.
	yawDelta   float32
	pitchDelta float32
	panDelta   math.Vec3
}

// NewOrbitCamera creates a new orbit camera at the default pose.
func NewOrbitCamera() *OrbitCamera {
	c := &OrbitCamera{
		Damping:         DefaultDamping,
		AutoRotateSpeed: DefaultAutoRotateSpeed,
	}
	c.SetPose(DefaultPose())
	return c
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp := gomath.Cos(float64(c.Pitch))
	offset := math.Vec3{
		X: c.Distance * float32(cp*gomath.Sin(float64(c.Yaw))),
		Y: c.Distance * float32(gomath.Sin(float64(c.Pitch))),
		Z: c.Distance * float32(cp*gomath.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Target, math.Vec3{Y: 1})
}

// SetPose places the camera at pose, dropping any pending motion.
func (c *OrbitCamera) SetPose(p Pose) {
	c.MinDistance = p.MinDistance
	c.MaxDistance = p.MaxDistance
	c.place(p.Position, p.Target)
	c.Stop()
}

// Place moves the camera to position looking at target, keeping limits.
func (c *OrbitCamera) Place(position, target math.Vec3) {
	c.place(position, target)
}

func (c *OrbitCamera) place(position, target math.Vec3) {
	c.Target = target
	offset := position.Sub(target)
	d := offset.Length()
	if d == 0 || !math.IsFinite(d) {
		c.Distance = c.MinDistance
		c.Pitch, c.Yaw = 0, 0
		return
	}
	c.Distance = c.clampDistance(d)
	c.Pitch = clampPitch(float32(gomath.Asin(float64(offset.Y / d))))
	c.Yaw = float32(gomath.Atan2(float64(offset.X), float64(offset.Z)))
}

// Pose returns the current placement and limits.
func (c *OrbitCamera) Pose() Pose {
	return Pose{
		Position:    c.Position(),
		Target:      c.Target,
		MinDistance: c.MinDistance,
		MaxDistance: c.MaxDistance,
	}
}

// Orbit queues a rotation for a pointer drag of (dx, dy) pixels.
func (c *OrbitCamera) Orbit(dx, dy, sensitivity float32) {
	c.yawDelta -= dx * rotateScale * sensitivity
	c.pitchDelta += dy * rotateScale * sensitivity
	if c.Damping <= 0 {
		c.Update(0)
	}
}

// Dolly moves toward (delta > 0) or away from the target, clamped to the
// distance limits.
func (c *OrbitCamera) Dolly(delta, sensitivity float32) {
	if delta == 0 {
		return
	}
	f := float32(gomath.Pow(dollyBase, float64(gomath.Abs(float64(delta))*float64(sensitivity))))
	if delta > 0 {
		c.Distance *= f
	} else {
		c.Distance /= f
	}
	c.Distance = c.clampDistance(c.Distance)
}

// Pan queues a translation of the target in the view plane for a drag of
// (dx, dy) pixels. sensitivity is normally zoom sensitivity * PanFactor.
func (c *OrbitCamera) Pan(dx, dy, sensitivity float32) {
	right, up := c.basis()
	step := c.Distance * panScale * sensitivity
	move := right.Scale(-dx * step).Add(up.Scale(dy * step))
	c.panDelta = c.panDelta.Add(move)
	if c.Damping <= 0 {
		c.Update(0)
	}
}

// Update applies damped motion and auto-rotation for a frame of dt seconds.
// It reports whether the camera moved.
func (c *OrbitCamera) Update(dt float32) bool {
	k := c.Damping
	if k <= 0 || k > 1 {
		k = 1
	}

	moved := false
	if c.AutoRotate && dt > 0 {
		c.Yaw -= 2 * gomath.Pi / 60 * c.AutoRotateSpeed * dt
		moved = true
	}

	if c.yawDelta != 0 || c.pitchDelta != 0 || c.panDelta != (math.Vec3{}) {
		c.Yaw += c.yawDelta * k
		c.Pitch = clampPitch(c.Pitch + c.pitchDelta*k)
		c.Target = c.Target.Add(c.panDelta.Scale(k))

		c.yawDelta *= 1 - k
		c.pitchDelta *= 1 - k
		c.panDelta = c.panDelta.Scale(1 - k)
		if abs32(c.yawDelta) < settleEps && abs32(c.pitchDelta) < settleEps && c.panDelta.Length() < settleEps {
			c.Stop()
		}
		moved = true
	}
	return moved
}

// Moving reports whether damped motion is still pending.
func (c *OrbitCamera) Moving() bool {
	return c.yawDelta != 0 || c.pitchDelta != 0 || c.panDelta != (math.Vec3{})
}

// Stop discards pending motion.
func (c *OrbitCamera) Stop() {
	c.yawDelta, c.pitchDelta = 0, 0
	c.panDelta = math.Vec3{}
}

// basis returns the camera right and up vectors.
func (c *OrbitCamera) basis() (right, up math.Vec3) {
	forward := c.Target.Sub(c.Position()).Normalize()
	right = forward.Cross(math.Vec3{Y: 1}).Normalize()
	up = right.Cross(forward).Normalize()
	return right, up
}

func (c *OrbitCamera) clampDistance(d float32) float32 {
	if c.MinDistance > 0 && d < c.MinDistance {
		d = c.MinDistance
	}
	if c.MaxDistance > 0 && d > c.MaxDistance {
		d = c.MaxDistance
	}
	return d
}

func clampPitch(p float32) float32 {
	if p < -pitchLimit {
		return -pitchLimit
	}
	if p > pitchLimit {
		return pitchLimit
	}
	return p
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
