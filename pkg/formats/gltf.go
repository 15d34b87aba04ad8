package formats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io/fs"
	"path"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	_ "golang.org/x/image/webp" // EXT_texture_webp images

	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// DracoExtension is the glTF extension name for Draco-compressed primitives.
const DracoExtension = "KHR_draco_mesh_compression"

// glTF format errors.
var (
	ErrNoScene         = errors.New("gltf: document has no nodes")
	ErrDecoderRequired = errors.New("gltf: compressed mesh requires a decoder")
	ErrNodeCycle       = errors.New("gltf: node hierarchy contains a cycle")
)

// DecodedPrimitive is the geometry a MeshDecoder recovers from a compressed
// primitive.
type DecodedPrimitive struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32
}

// MeshDecoder decompresses primitives that use DracoExtension. ext is the
// raw extension object from the primitive. Decoding stops when ctx is
// done.
type MeshDecoder interface {
	DecodePrimitive(ctx context.Context, doc *gltf.Document, prim *gltf.Primitive, ext json.RawMessage) (*DecodedPrimitive, error)
}

// GLTFOptions configures ReadGLTF.
type GLTFOptions struct {
	// Resources resolves external buffer and image URIs of .gltf files.
	// May be nil for self-contained GLB payloads.
	Resources fs.FS

	// Decoder handles Draco-compressed primitives. Nil means such
	// payloads fail to load.
	Decoder MeshDecoder

	// Context bounds Decoder calls. Nil means context.Background.
	Context context.Context
}

// Model is the result of reading a model file.
type Model struct {
	Root *scene.Node

	// Warnings lists non-fatal problems such as undecodable textures.
	Warnings []string
}

func (m *Model) warnf(format string, args ...any) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// ReadGLTF parses a glTF JSON or GLB payload into a scene graph. The binary
// container is detected from the payload itself.
func ReadGLTF(data []byte, opts GLTFOptions) (*Model, error) {
	doc := new(gltf.Document)
	dec := gltf.NewDecoderFS(bytes.NewReader(data), opts.Resources)
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("gltf: decode: %w", err)
	}
	return convertGLTF(doc, opts)
}

type gltfConverter struct {
	doc       *gltf.Document
	opts      GLTFOptions
	model     *Model
	materials map[int]*scene.Material
	meshes    map[int][]*scene.Mesh
	visiting  map[int]bool
}

func convertGLTF(doc *gltf.Document, opts GLTFOptions) (*Model, error) {
	if len(doc.Nodes) == 0 {
		return nil, ErrNoScene
	}

	c := &gltfConverter{
		doc:       doc,
		opts:      opts,
		model:     &Model{},
		materials: make(map[int]*scene.Material),
		meshes:    make(map[int][]*scene.Mesh),
		visiting:  make(map[int]bool),
	}

	root := scene.NewNode("gltf")
	for _, idx := range c.rootNodes() {
		child, err := c.convertNode(idx)
		if err != nil {
			return nil, err
		}
		root.AddChild(child)
	}
	c.model.Root = root
	return c.model, nil
}

// rootNodes returns the node indices of the default scene, or every
// parentless node when the document declares no scenes.
func (c *gltfConverter) rootNodes() []int {
	doc := c.doc
	if len(doc.Scenes) > 0 {
		sceneIdx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			sceneIdx = *doc.Scene
		}
		return doc.Scenes[sceneIdx].Nodes
	}

	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, ch := range n.Children {
			if ch < len(hasParent) {
				hasParent[ch] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

func (c *gltfConverter) convertNode(idx int) (*scene.Node, error) {
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return nil, fmt.Errorf("gltf: node index %d out of range", idx)
	}
	if c.visiting[idx] {
		return nil, ErrNodeCycle
	}
	c.visiting[idx] = true
	defer delete(c.visiting, idx)

	src := c.doc.Nodes[idx]
	node := scene.NewNode(src.Name)

	if m := src.MatrixOrDefault(); m != gltf.DefaultMatrix {
		mat := math.FromColumnMajor64(m)
		node.Matrix = &mat
	} else {
		t := src.TranslationOrDefault()
		r := src.RotationOrDefault()
		s := src.ScaleOrDefault()
		node.Translation = math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])}
		node.Rotation = math.Quat{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}
		node.Scale = math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])}
	}

	if src.Mesh != nil {
		meshes, err := c.convertMesh(*src.Mesh)
		if err != nil {
			return nil, err
		}
		node.Meshes = meshes
	}

	for _, ch := range src.Children {
		child, err := c.convertNode(ch)
		if err != nil {
			return nil, err
		}
		node.AddChild(child)
	}
	return node, nil
}

// convertMesh converts every triangle primitive of a glTF mesh. Meshes
// referenced by several nodes are converted once and their geometry is
// shared read-only; each node still gets its own Mesh values.
func (c *gltfConverter) convertMesh(idx int) ([]*scene.Mesh, error) {
	if idx < 0 || idx >= len(c.doc.Meshes) {
		return nil, fmt.Errorf("gltf: mesh index %d out of range", idx)
	}
	if cached, ok := c.meshes[idx]; ok {
		out := make([]*scene.Mesh, len(cached))
		for i, m := range cached {
			cp := *m
			out[i] = &cp
		}
		return out, nil
	}

	src := c.doc.Meshes[idx]
	var out []*scene.Mesh
	for pi, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			c.model.warnf("mesh %q primitive %d: mode %v skipped", src.Name, pi, prim.Mode)
			continue
		}
		mesh, err := c.convertPrimitive(prim)
		if err != nil {
			return nil, fmt.Errorf("gltf: mesh %q primitive %d: %w", src.Name, pi, err)
		}
		mesh.Name = src.Name
		out = append(out, mesh)
	}
	c.meshes[idx] = out
	return out, nil
}

func (c *gltfConverter) convertPrimitive(prim *gltf.Primitive) (*scene.Mesh, error) {
	mesh := &scene.Mesh{Material: c.material(prim.Material)}

	if raw, ok := prim.Extensions[DracoExtension]; ok {
		if c.opts.Decoder == nil {
			return nil, ErrDecoderRequired
		}
		ext, err := rawExtension(raw)
		if err != nil {
			return nil, err
		}
		ctx := c.opts.Context
		if ctx == nil {
			ctx = context.Background()
		}
		decoded, err := c.opts.Decoder.DecodePrimitive(ctx, c.doc, prim, ext)
		if err != nil {
			return nil, fmt.Errorf("draco: %w", err)
		}
		mesh.Positions = decoded.Positions
		mesh.Normals = decoded.Normals
		mesh.UVs = decoded.UVs
		mesh.Indices = decoded.Indices
		return mesh, nil
	}

	doc := c.doc
	// A primitive without POSITION is kept as an empty mesh; it is
	// excluded from bounds later rather than failing the whole asset.
	if posIdx, ok := prim.Attributes[gltf.POSITION]; ok {
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}
		mesh.Positions = positions
	}

	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[normIdx], nil)
		if err == nil && len(normals) == len(mesh.Positions) {
			mesh.Normals = normals
		}
	}

	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil)
		if err == nil && len(uvs) == len(mesh.Positions) {
			mesh.UVs = uvs
		}
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(mesh.Positions) {
				return nil, fmt.Errorf("index %d out of range (%d vertices)", i, len(mesh.Positions))
			}
		}
		mesh.Indices = indices
	}

	return mesh, nil
}

func rawExtension(v any) (json.RawMessage, error) {
	switch ext := v.(type) {
	case json.RawMessage:
		return ext, nil
	case []byte:
		return json.RawMessage(ext), nil
	default:
		b, err := json.Marshal(ext)
		if err != nil {
			return nil, fmt.Errorf("draco: extension payload: %w", err)
		}
		return b, nil
	}
}

// material converts a glTF material, caching by index so meshes sharing a
// material share the scene.Material.
func (c *gltfConverter) material(idx *int) *scene.Material {
	if idx == nil || *idx < 0 || *idx >= len(c.doc.Materials) {
		return scene.DefaultMaterial()
	}
	if m, ok := c.materials[*idx]; ok {
		return m
	}

	src := c.doc.Materials[*idx]
	mat := &scene.Material{
		Name:      src.Name,
		HasColor:  true,
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  1,
		Roughness: 1,
	}

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			mat.BaseColor = [4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
		}
		if pbr.MetallicFactor != nil {
			mat.Metallic = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = float32(*pbr.RoughnessFactor)
		}
		if pbr.BaseColorTexture != nil {
			img, err := c.textureImage(pbr.BaseColorTexture.Index)
			if err != nil {
				c.model.warnf("material %q: base color texture: %v", src.Name, err)
			} else {
				mat.BaseColorTexture = img
			}
		}
	}

	c.materials[*idx] = mat
	return mat
}

func (c *gltfConverter) textureImage(texIdx int) (image.Image, error) {
	doc := c.doc
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", texIdx)
	}
	tex := doc.Textures[texIdx]
	if tex.Source == nil || *tex.Source >= len(doc.Images) {
		return nil, errors.New("texture has no image source")
	}
	src := doc.Images[*tex.Source]

	var data []byte
	var err error
	switch {
	case src.BufferView != nil:
		data, err = modeler.ReadBufferView(doc, doc.BufferViews[*src.BufferView])
	case src.IsEmbeddedResource():
		data, err = src.MarshalData()
	case src.URI != "":
		if c.opts.Resources == nil {
			return nil, fmt.Errorf("external image %q with no resource resolver", src.URI)
		}
		data, err = fs.ReadFile(c.opts.Resources, path.Clean(src.URI))
	default:
		return nil, errors.New("image has no data")
	}
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
