// Package renderer draws normalized model scenes with OpenGL 4.1 into an
// offscreen framebuffer.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/modelview/internal/engine/framebuffer"
	"github.com/Faultbox/modelview/internal/engine/shader"
	"github.com/Faultbox/modelview/internal/engine/shadow"
	"github.com/Faultbox/modelview/internal/engine/viewport"
	"github.com/Faultbox/modelview/internal/logger"
	"github.com/Faultbox/modelview/internal/snapshot"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// ErrReleased is returned by Render after the context resources were
// released.
var ErrReleased = errors.New("renderer released")

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int

	// Shadows enables the key light shadow map.
	Shadows bool
	// ShadowMapSize is the shadow map edge in texels; 0 means
	// shadow.DefaultResolution.
	ShadowMapSize int
	// Exposure scales scene radiance before tone mapping; 0 means 1.
	Exposure float32
}

// gpuMesh is one uploaded mesh with its world transform.
type gpuMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
	world         math.Mat4
	material      *scene.Material
}

// Renderer implements viewport.Renderer and viewport.Capturer.
type Renderer struct {
	config Config

	program  *shader.Program
	fb       *framebuffer.Framebuffer
	fallback uint32

	// depth and shadows are nil when shadows are off or unsupported.
	depth   *shader.Program
	shadows *shadow.Map

	meshes   []gpuMesh
	textures map[*scene.Material]uint32

	released bool
}

var (
	_ viewport.Renderer = (*Renderer)(nil)
	_ viewport.Capturer = (*Renderer)(nil)
)

// New creates a renderer.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	r := &Renderer{
		config:   cfg,
		textures: make(map[*scene.Material]uint32),
	}

	var err error
	r.program, err = shader.New(shader.ModelVertexShader, shader.ModelFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	r.fb, err = framebuffer.New(int32(cfg.Width), int32(cfg.Height))
	if err != nil {
		r.program.Delete()
		return nil, err
	}

	r.fallback = uploadTexture(image.NewRGBA(image.Rect(0, 0, 1, 1)), true)

	if cfg.Shadows {
		r.initShadows()
	}
	return r, nil
}

// initShadows creates the depth program and shadow map. Failure only
// costs the shadows, so it is logged rather than returned.
func (r *Renderer) initShadows() {
	depth, err := shader.New(shader.DepthVertexShader, shader.DepthFragmentShader)
	if err != nil {
		logger.Warn("shadows disabled: depth shader", zap.Error(err))
		return
	}
	m, err := shadow.NewMap(int32(r.config.ShadowMapSize))
	if err != nil {
		depth.Delete()
		logger.Warn("shadows disabled: shadow map", zap.Error(err))
		return
	}
	r.depth, r.shadows = depth, m
	logger.Debug("shadow map created", zap.Int32("resolution", m.Resolution()))
}

// releaseShadows deletes the shadow resources.
func (r *Renderer) releaseShadows() {
	if r.shadows != nil {
		r.shadows.Destroy()
		r.shadows = nil
	}
	if r.depth != nil {
		r.depth.Delete()
		r.depth = nil
	}
}

// lightSpace returns the key light's view-projection fitted to the
// scene bounds, and whether the frame should be shadowed at all.
func lightSpace(view viewport.FrameView) (math.Mat4, bool) {
	key := view.Lighting.Key
	if view.Bounds == nil || view.Bounds.IsEmpty() || !key.CastShadow || key.Intensity <= 0 {
		return math.Identity(), false
	}
	m := shadow.LightMatrix(key.Position, *view.Bounds)
	if !m.IsFinite() {
		return math.Identity(), false
	}
	return m, true
}

// exposure returns the configured exposure, defaulting to 1.
func (r *Renderer) exposure() float32 {
	if e := r.config.Exposure; e > 0 && math.IsFinite(e) {
		return e
	}
	return 1
}

// shadowPass renders every mesh's depth from the key light.
func (r *Renderer) shadowPass(light math.Mat4) {
	restore := r.shadows.Begin()
	defer restore()

	p := r.depth
	p.Use()
	p.SetMat4("uLightSpace", light)
	for i := range r.meshes {
		m := &r.meshes[i]
		p.SetMat4("uModel", m.world)
		gl.BindVertexArray(m.vao)
		gl.DrawElements(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
}

// TextureID returns the color texture holding the last rendered frame.
func (r *Renderer) TextureID() uint32 {
	if r.fb == nil {
		return 0
	}
	return r.fb.ColorTexture()
}

// SetScene uploads every mesh with valid geometry below root, replacing
// the previous scene.
func (r *Renderer) SetScene(root *scene.Node) error {
	if r.released {
		return ErrReleased
	}
	r.ClearScene()
	if root == nil {
		return nil
	}

	root.WalkMeshes(func(m *scene.Mesh, world math.Mat4) {
		if !m.HasValidGeometry() {
			return
		}
		verts, indices := buildVertices(m)
		if len(indices) == 0 {
			return
		}
		gm := uploadMesh(verts, indices)
		gm.world = world
		gm.material = m.Material
		if gm.material == nil {
			gm.material = scene.DefaultMaterial()
		}
		r.meshes = append(r.meshes, gm)

		if tex := gm.material.BaseColorTexture; tex != nil && !tex.Bounds().Empty() {
			if _, ok := r.textures[gm.material]; !ok {
				r.textures[gm.material] = uploadTexture(toRGBA(tex), false)
			}
		}
	})

	if e := gl.GetError(); e == gl.OUT_OF_MEMORY {
		r.ClearScene()
		return fmt.Errorf("uploading scene: out of GPU memory")
	}

	logger.Debug("scene uploaded",
		zap.Int("meshes", len(r.meshes)),
		zap.Int("textures", len(r.textures)),
	)
	return nil
}

// ClearScene deletes every mesh buffer and material texture.
func (r *Renderer) ClearScene() {
	for i := range r.meshes {
		m := &r.meshes[i]
		if m.vao != 0 {
			gl.DeleteVertexArrays(1, &m.vao)
		}
		if m.vbo != 0 {
			gl.DeleteBuffers(1, &m.vbo)
		}
		if m.ebo != 0 {
			gl.DeleteBuffers(1, &m.ebo)
		}
	}
	r.meshes = nil

	for mat, tex := range r.textures {
		if tex != 0 {
			gl.DeleteTextures(1, &tex)
		}
		delete(r.textures, mat)
	}
}

// Render draws the scene into the offscreen framebuffer.
func (r *Renderer) Render(view viewport.FrameView) error {
	if r.released {
		return ErrReleased
	}

	light, shadowed := lightSpace(view)
	shadowed = shadowed && r.shadows != nil && len(r.meshes) > 0
	if shadowed {
		r.shadowPass(light)
	}

	restore := r.fb.Begin()
	defer restore()

	r.fb.Clear(view.Background)
	if len(r.meshes) == 0 {
		return nil
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	p := r.program
	p.Use()
	p.SetMat4("uView", view.View)
	p.SetMat4("uProjection", view.Projection)
	p.SetVec3("uEye", view.Eye)
	p.SetFloat("uAmbient", view.Lighting.Ambient)
	p.SetVec3("uKeyPos", view.Lighting.Key.Position)
	p.SetFloat("uKeyIntensity", view.Lighting.Key.Intensity)
	p.SetVec3("uFillPos", view.Lighting.Fill.Position)
	p.SetFloat("uFillIntensity", view.Lighting.Fill.Intensity)
	p.SetFloat("uExposure", r.exposure())
	p.SetMat4("uLightSpace", light)

	// The shadow sampler always owns unit 1 so it never aliases the
	// color sampler's unit.
	p.SetInt("uShadowMap", 1)
	if shadowed {
		r.shadows.BindTexture(gl.TEXTURE1)
		p.SetInt("uHasShadow", 1)
	} else {
		p.SetInt("uHasShadow", 0)
	}

	gl.ActiveTexture(gl.TEXTURE0)
	p.SetInt("uTexture", 0)

	for i := range r.meshes {
		m := &r.meshes[i]
		mat := m.material
		p.SetMat4("uModel", m.world)
		p.SetVec4("uBaseColor", mat.BaseColor)
		p.SetFloat("uMetallic", mat.Metallic)
		p.SetFloat("uRoughness", mat.Roughness)

		tex, ok := r.textures[mat]
		if ok {
			p.SetInt("uHasTexture", 1)
		} else {
			tex = r.fallback
			p.SetInt("uHasTexture", 0)
		}
		gl.BindTexture(gl.TEXTURE_2D, tex)
		mat.Dirty = false

		gl.BindVertexArray(m.vao)
		gl.DrawElements(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
	gl.Disable(gl.BLEND)

	switch e := gl.GetError(); e {
	case gl.NO_ERROR:
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("render: out of GPU memory")
	default:
		logger.Debug("gl error during render", zap.Uint32("code", e))
	}
	return nil
}

// Resize resizes the offscreen framebuffer.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	if r.fb != nil {
		r.fb.Resize(int32(width), int32(height))
	}
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Capture reads back the last frame top-down.
func (r *Renderer) Capture() (*image.RGBA, error) {
	if r.released {
		return nil, ErrReleased
	}
	pixels, err := r.fb.ReadPixels()
	if err != nil {
		return nil, err
	}
	w, h := r.fb.Size()
	return snapshot.FromPixels(pixels, int(w), int(h))
}

// TryReleaseContext frees every GPU resource the renderer owns. The
// context itself belongs to the window, so this always succeeds.
func (r *Renderer) TryReleaseContext() bool {
	if r.released {
		return true
	}
	r.ClearScene()
	r.releaseShadows()
	if r.fallback != 0 {
		gl.DeleteTextures(1, &r.fallback)
		r.fallback = 0
	}
	if r.program != nil {
		r.program.Delete()
	}
	if r.fb != nil {
		r.fb.Destroy()
	}
	r.released = true
	logger.Info("renderer released")
	return true
}

// Close is TryReleaseContext without the result.
func (r *Renderer) Close() {
	r.TryReleaseContext()
}

func uploadMesh(verts []vertex, indices []uint32) gpuMesh {
	var m gpuMesh

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*vertexSize, unsafe.Pointer(&verts[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	// Position (location = 0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexSize, 0)
	gl.EnableVertexAttribArray(0)

	// Normal (location = 1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexSize, 12)
	gl.EnableVertexAttribArray(1)

	// TexCoord (location = 2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, vertexSize, 24)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)

	m.indexCount = int32(len(indices))
	return m
}

// toRGBA converts any decoded image to tightly packed RGBA.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == rgba.Rect.Dx()*4 && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(rgba, image.Point{}, img, b, xdraw.Src, nil)
	return rgba
}

func uploadTexture(img *image.RGBA, white bool) uint32 {
	if white {
		for i := range img.Pix {
			img.Pix[i] = 255
		}
	}

	var texID uint32
	gl.GenTextures(1, &texID)
	gl.BindTexture(gl.TEXTURE_2D, texID)

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.SRGB8_ALPHA8,
		int32(img.Rect.Dx()), int32(img.Rect.Dy()),
		0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	return texID
}

// Present copies the last frame to the window's default framebuffer.
func (r *Renderer) Present(width, height int) {
	if r.released || r.fb == nil {
		return
	}
	r.fb.BlitToScreen(int32(width), int32(height))
}
