// Package scene defines the scene graph produced by model readers and
// consumed by the normalizer, camera rig and renderer.
package scene

import (
	"image"

	"github.com/Faultbox/modelview/pkg/math"
)

// Node is a transform node in the scene graph. A node exclusively owns its
// children and meshes; the graph is a tree.
type Node struct {
	Name        string
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3

	// Matrix, when non-nil, replaces the TRS local transform. glTF nodes
	// may specify either form.
	Matrix *math.Mat4

	Children []*Node
	Meshes   []*Mesh
}

// Mesh holds triangle geometry in node-local space.
type Mesh struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32 // optional, parallel to Positions
	UVs       [][2]float32 // optional, parallel to Positions
	Indices   []uint32     // optional; nil means sequential triangles
	Material  *Material
}

// Material is a PBR metallic-roughness material.
type Material struct {
	Name string

	// HasColor marks materials whose base color can be overridden.
	HasColor  bool
	BaseColor [4]float32
	Metallic  float32
	Roughness float32

	// BaseColorTexture is the decoded base color map, nil if the source
	// had none.
	BaseColorTexture image.Image

	// Dirty is set when material parameters change after upload.
	Dirty bool
}

// NewNode creates a node with identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// DefaultMaterial returns the light grey material used when a source
// carries no material of its own.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "default",
		HasColor:  true,
		BaseColor: [4]float32{0.8, 0.8, 0.8, 1},
		Metallic:  0,
		Roughness: 0.8,
	}
}

// AddChild appends child and returns n for chaining.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// AddMesh appends mesh and returns n for chaining.
func (n *Node) AddMesh(mesh *Mesh) *Node {
	n.Meshes = append(n.Meshes, mesh)
	return n
}

// LocalMatrix returns the node's transform relative to its parent.
func (n *Node) LocalMatrix() math.Mat4 {
	if n.Matrix != nil {
		// Normalization adjusts Translation/Scale on top of a fixed matrix.
		return math.Compose(n.Translation, n.Rotation, n.Scale).Mul(*n.Matrix)
	}
	return math.Compose(n.Translation, n.Rotation, n.Scale)
}

// Walk visits n and all descendants depth-first with their accumulated
// world matrix. parent is the matrix of n's parent.
func (n *Node) Walk(parent math.Mat4, fn func(node *Node, world math.Mat4)) {
	world := parent.Mul(n.LocalMatrix())
	fn(n, world)
	for _, c := range n.Children {
		c.Walk(world, fn)
	}
}

// WalkMeshes calls fn for every mesh below n with its world matrix.
func (n *Node) WalkMeshes(fn func(mesh *Mesh, world math.Mat4)) {
	n.Walk(math.Identity(), func(node *Node, world math.Mat4) {
		for _, m := range node.Meshes {
			fn(m, world)
		}
	})
}

// Materials returns the distinct materials referenced below n, in
// traversal order.
func (n *Node) Materials() []*Material {
	var out []*Material
	seen := make(map[*Material]bool)
	n.WalkMeshes(func(m *Mesh, _ math.Mat4) {
		if m.Material == nil || seen[m.Material] {
			return
		}
		seen[m.Material] = true
		out = append(out, m.Material)
	})
	return out
}

// Stats summarizes a scene graph.
type Stats struct {
	Nodes     int
	Meshes    int
	Vertices  int
	Triangles int
}

// Stats counts nodes, meshes, vertices and triangles below n.
func (n *Node) Stats() Stats {
	var s Stats
	n.Walk(math.Identity(), func(node *Node, _ math.Mat4) {
		s.Nodes++
		for _, m := range node.Meshes {
			s.Meshes++
			s.Vertices += len(m.Positions)
			s.Triangles += m.TriangleCount()
		}
	})
	return s
}
