package camera

import (
	"github.com/Faultbox/modelview/pkg/math"
)

// Epsilon is the smallest allowed minimum distance.
const Epsilon = 0.01

// Pose is a camera placement with its dolly limits. A valid pose satisfies
// 0 < MinDistance < MaxDistance.
type Pose struct {
	Position    math.Vec3
	Target      math.Vec3
	MinDistance float32
	MaxDistance float32
}

// Valid reports whether the distance limits are ordered and positive.
func (p Pose) Valid() bool {
	return p.MinDistance > 0 && p.MinDistance < p.MaxDistance
}

// Override replaces pose fields for a specific product. Nil fields keep
// the computed default.
type Override struct {
	CameraPosition *math.Vec3
	TargetPosition *math.Vec3
	Scale          *float32
	MinDistance    *float32
	MaxDistance    *float32
}

// ScaleOr returns the override scale, or def when unset or not positive.
func (o *Override) ScaleOr(def float32) float32 {
	if o == nil || o.Scale == nil || !(*o.Scale > 0) || !math.IsFinite(*o.Scale) {
		return def
	}
	return *o.Scale
}

// DefaultPose is used when a model has no valid geometry.
func DefaultPose() Pose {
	return Pose{
		Position:    math.Vec3{Z: 4},
		MinDistance: 1,
		MaxDistance: 15,
	}
}

// ComputePose frames bounds. A nil bounds yields DefaultPose; override
// fields then replace the computed values one by one and the limits are
// repaired to keep the pose valid.
func ComputePose(bounds *math.Box3, ov *Override) Pose {
	var p Pose
	if bounds == nil || bounds.IsEmpty() {
		p = DefaultPose()
	} else {
		center := bounds.Center()
		maxDim := bounds.MaxDim()
		p = Pose{
			Position:    center.Add(math.Vec3{Z: maxDim * 1.5}),
			Target:      center,
			MinDistance: maxDim * 0.8,
			MaxDistance: maxDim * 3,
		}
	}

	if ov != nil {
		if ov.CameraPosition != nil {
			p.Position = *ov.CameraPosition
		}
		if ov.TargetPosition != nil {
			p.Target = *ov.TargetPosition
		}
		if ov.MinDistance != nil {
			p.MinDistance = *ov.MinDistance
		}
		if ov.MaxDistance != nil {
			p.MaxDistance = *ov.MaxDistance
		}
	}
	return repair(p)
}

// repair forces 0 < MinDistance < MaxDistance.
func repair(p Pose) Pose {
	if !math.IsFinite(p.MinDistance) || p.MinDistance < Epsilon {
		p.MinDistance = Epsilon
	}
	if !math.IsFinite(p.MaxDistance) || p.MaxDistance <= p.MinDistance {
		p.MaxDistance = p.MinDistance * 2
	}
	return p
}
