package viewport

import (
	"image"

	"github.com/Faultbox/modelview/internal/engine/lighting"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// FrameView is everything the renderer needs to draw one frame.
type FrameView struct {
	View       math.Mat4
	Projection math.Mat4
	Eye        math.Vec3
	Background [4]float32
	Lighting   lighting.Rig

	// Bounds is the normalized scene's bounding box, nil before a model
	// is ready. The shadow pass fits the light frustum to it.
	Bounds *math.Box3
}

// Renderer owns GPU resources for the displayed scene. All methods are
// called on the render thread.
type Renderer interface {
	// SetScene uploads root, replacing and releasing any previous scene.
	SetScene(root *scene.Node) error

	// ClearScene releases geometry, materials and textures.
	ClearScene()

	// Render draws the current scene, or only the background when none
	// is set. An error means the context is unusable.
	Render(view FrameView) error

	Resize(width, height int)

	// TryReleaseContext asks the platform to drop the graphics context.
	// It reports whether the context was released.
	TryReleaseContext() bool
}

// Capturer is implemented by renderers that can read back the last frame.
type Capturer interface {
	Capture() (*image.RGBA, error)
}
