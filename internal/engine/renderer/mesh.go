package renderer

import (
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// vertex is the interleaved GPU vertex layout.
type vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

const vertexSize = 32

// buildVertices interleaves mesh attributes. Missing normals are
// generated by averaging the normals of adjacent faces, and missing
// indices become a sequential list.
func buildVertices(m *scene.Mesh) ([]vertex, []uint32) {
	indices := m.Indices
	if indices == nil {
		indices = make([]uint32, len(m.Positions)/3*3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	normals := m.Normals
	if len(normals) != len(m.Positions) {
		normals = smoothNormals(m.Positions, indices)
	}

	verts := make([]vertex, len(m.Positions))
	for i, p := range m.Positions {
		verts[i].Position = p
		verts[i].Normal = normals[i]
		if i < len(m.UVs) {
			verts[i].TexCoord = m.UVs[i]
		}
	}
	return verts, validIndices(indices, len(verts))
}

// smoothNormals accumulates area-weighted face normals per vertex.
func smoothNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	acc := make([]math.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(positions) || int(b) >= len(positions) || int(c) >= len(positions) {
			continue
		}
		pa, pb, pc := math.V3(positions[a]), math.V3(positions[b]), math.V3(positions[c])
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		acc[a] = acc[a].Add(n)
		acc[b] = acc[b].Add(n)
		acc[c] = acc[c].Add(n)
	}

	out := make([][3]float32, len(positions))
	for i, n := range acc {
		if n.Length() == 0 {
			out[i] = [3]float32{0, 1, 0}
			continue
		}
		out[i] = n.Normalize().Array()
	}
	return out
}

// validIndices drops triangles that reference vertices out of range.
func validIndices(indices []uint32, count int) []uint32 {
	out := indices[:0:0]
	for i := 0; i+2 < len(indices); i += 3 {
		if int(indices[i]) < count && int(indices[i+1]) < count && int(indices[i+2]) < count {
			out = append(out, indices[i], indices[i+1], indices[i+2])
		}
	}
	return out
}
