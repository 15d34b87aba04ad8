// Package normalize centers and rescales loaded models into a common
// viewing frame and applies storefront material customizations.
package normalize

import (
	"errors"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/modelview/internal/logger"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// TargetExtent is the size of the largest bounding box dimension after
// normalization with a user scale of 1.
const TargetExtent = 2.5

// ErrNoValidGeometry marks a model with no mesh that has finite vertices.
// It is a soft condition; the model is still displayed.
var ErrNoValidGeometry = errors.New("model has no valid geometry")

// Result describes a normalization pass.
type Result struct {
	Root *scene.Node

	// Bounds is the world bounding box after normalization, nil when the
	// model has no valid geometry.
	Bounds *math.Box3

	// Scale is the uniform factor applied to the root.
	Scale float32

	NoGeometry bool
}

// Normalize moves the center of root's world bounds to the origin and
// scales it uniformly so that the largest dimension equals
// targetExtent*userScale. Only root's Translation and Scale change.
//
// A non-finite or non-positive userScale counts as 1. A degenerate model
// (zero extent) is centered but not scaled. A model with no valid geometry
// is left untouched.
func Normalize(root *scene.Node, targetExtent, userScale float64) Result {
	res := Result{Root: root, Scale: 1}
	if root == nil {
		res.NoGeometry = true
		return res
	}

	box, ok := scene.WorldBounds(root)
	if !ok {
		logger.Warn("normalization skipped", zap.Error(ErrNoValidGeometry), zap.String("root", root.Name))
		res.NoGeometry = true
		return res
	}

	if gomath.IsNaN(userScale) || gomath.IsInf(userScale, 0) || userScale <= 0 {
		userScale = 1
	}

	center := box.Center()
	maxDim := box.MaxDim()

	k := float32(1)
	if maxDim > 0 {
		k = float32(targetExtent / float64(maxDim) * userScale)
	}

	// Prepending translate(-center*k)*scale(k) to the root's local
	// transform: with a uniform k it commutes with the root rotation.
	root.Translation = root.Translation.Sub(center).Scale(k)
	root.Scale = root.Scale.Scale(k)

	after, _ := scene.WorldBounds(root)
	res.Bounds = &after
	res.Scale = k

	logger.Debug("model normalized",
		zap.Float32("maxDim", maxDim),
		zap.Float32("scale", k),
		zap.Float32("extent", after.MaxDim()))
	return res
}
