package camera

import (
	"time"

	"github.com/Faultbox/modelview/pkg/math"
)

// DefaultResetDuration is how long a reset-view animation takes.
const DefaultResetDuration = 600 * time.Millisecond

// Animation interpolates the camera between two placements. It is advanced
// by the render loop and never blocks.
type Animation struct {
	fromPos, fromTarget math.Vec3
	toPos, toTarget     math.Vec3
	start               time.Time
	duration            time.Duration
	done                bool
}

// ResetView starts an animation from the current placement to the target
// pose at time now.
func ResetView(current, target Pose, duration time.Duration, now time.Time) *Animation {
	if duration <= 0 {
		duration = DefaultResetDuration
	}
	return &Animation{
		fromPos:    current.Position,
		fromTarget: current.Target,
		toPos:      target.Position,
		toTarget:   target.Target,
		start:      now,
		duration:   duration,
	}
}

// EaseOut is the quadratic ease-out curve 1-(1-t)^2.
func EaseOut(t float32) float32 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	u := 1 - t
	return 1 - u*u
}

// Step returns the placement at now. done is true once the end is reached;
// the final step returns the target exactly.
func (a *Animation) Step(now time.Time) (position, target math.Vec3, done bool) {
	t := float32(now.Sub(a.start)) / float32(a.duration)
	if t >= 1 {
		a.done = true
		return a.toPos, a.toTarget, true
	}
	e := EaseOut(t)
	return a.fromPos.Lerp(a.toPos, e), a.fromTarget.Lerp(a.toTarget, e), false
}

// Done reports whether the final step has been taken.
func (a *Animation) Done() bool { return a.done }
