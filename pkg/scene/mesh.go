package scene

import "github.com/Faultbox/modelview/pkg/math"

// HasValidGeometry reports whether the mesh has at least one vertex and
// every position component is finite.
func (m *Mesh) HasValidGeometry() bool {
	if m == nil || len(m.Positions) == 0 {
		return false
	}
	for _, p := range m.Positions {
		if !math.V3(p).IsFinite() {
			return false
		}
	}
	return true
}

// LocalBounds returns the mesh bounds in node-local space. Callers should
// check HasValidGeometry first; invalid meshes produce meaningless boxes.
func (m *Mesh) LocalBounds() math.Box3 {
	b := math.EmptyBox()
	for _, p := range m.Positions {
		b.ExtendPoint(math.V3(p))
	}
	return b
}

// TriangleCount returns the number of triangles the mesh draws.
func (m *Mesh) TriangleCount() int {
	if m.Indices != nil {
		return len(m.Indices) / 3
	}
	return len(m.Positions) / 3
}

// WorldBounds unions the world-space bounds of every mesh below root that
// has valid geometry. ok is false when no such mesh exists.
func WorldBounds(root *Node) (box math.Box3, ok bool) {
	box = math.EmptyBox()
	root.WalkMeshes(func(m *Mesh, world math.Mat4) {
		if !m.HasValidGeometry() {
			return
		}
		box.Union(m.LocalBounds().Transform(world))
	})
	return box, !box.IsEmpty()
}
