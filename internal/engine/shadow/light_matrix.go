package shadow

import (
	gomath "math"

	"github.com/Faultbox/modelview/pkg/math"
)

// minRadius keeps the light frustum non-degenerate for flat or point-like
// models.
const minRadius = 0.01

// Radius returns the half-diagonal of b, never less than minRadius.
func Radius(b math.Box3) float32 {
	if b.IsEmpty() {
		return minRadius
	}
	r := b.Size().Length() / 2
	if !math.IsFinite(r) || r < minRadius {
		return minRadius
	}
	return r
}

// LightMatrix computes the light-space view-projection for a directional
// light shining from direction from towards the center of bounds. Every
// point of bounds maps inside the clip volume, so the whole model both
// casts and receives shadows.
func LightMatrix(from math.Vec3, bounds math.Box3) math.Mat4 {
	dir := from.Normalize()
	if dir.Length() == 0 || !dir.IsFinite() {
		dir = math.Vec3{Y: 1}
	}

	if bounds.IsEmpty() || !bounds.Center().IsFinite() {
		bounds = math.Box3{}
	}
	center := bounds.Center()
	radius := Radius(bounds)

	// The light sits outside the bounding sphere looking at its center.
	distance := radius * 2
	eye := center.Add(dir.Scale(distance))

	up := math.Vec3{Y: 1}
	if gomath.Abs(float64(dir.Y)) > 0.99 {
		up = math.Vec3{Z: 1}
	}
	view := math.LookAt(eye, center, up)

	half := radius * 1.1
	near := distance - half
	far := distance + half
	proj := math.Ortho(-half, half, -half, half, near, far)

	return proj.Mul(view)
}
