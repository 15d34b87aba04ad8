package formats

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	gobj "github.com/flywave/go-obj"

	"github.com/Faultbox/modelview/pkg/scene"
)

// ErrEmptyOBJ is returned when an OBJ payload contains no vertices and no faces.
var ErrEmptyOBJ = errors.New("obj: no geometry statements")

// ReadOBJ parses a Wavefront OBJ payload. Faces are fan-triangulated and
// grouped into one mesh per usemtl name. Materials referenced by the file
// are not resolved; every group gets the default material.
func ReadOBJ(data []byte) (*Model, error) {
	reader := &gobj.ObjReader{}
	if err := reader.Read(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("obj: parse: %w", err)
	}
	if len(reader.V) == 0 && len(reader.F) == 0 {
		return nil, ErrEmptyOBJ
	}

	model := &Model{}
	groups := make(map[string]*scene.Mesh)
	skipped := 0

	for _, face := range reader.F {
		name := face.Material
		if name == "" {
			name = "default"
		}
		mesh, ok := groups[name]
		if !ok {
			mat := scene.DefaultMaterial()
			mat.Name = name
			mesh = &scene.Mesh{Name: name, Material: mat}
			groups[name] = mesh
		}

		corners := make([]objCorner, len(face.Corners))
		for i, c := range face.Corners {
			corners[i] = objCorner{v: c.VertexIndex, n: c.NormalIndex, t: c.TexcoordIndex}
		}
		for _, tri := range triangulate(corners) {
			if !addTriangle(mesh, tri, reader) {
				skipped++
			}
		}
	}

	if skipped > 0 {
		model.warnf("%d triangles referenced missing vertices and were skipped", skipped)
	}

	root := scene.NewNode("obj")
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		root.AddMesh(groups[name])
	}

	// Vertices without faces still describe the object's extent.
	if len(groups) == 0 {
		mesh := &scene.Mesh{Name: "points", Material: scene.DefaultMaterial()}
		for _, v := range reader.V {
			mesh.Positions = append(mesh.Positions, [3]float32(v))
		}
		root.AddMesh(mesh)
	}

	model.Root = root
	return model, nil
}

// objCorner holds zero-based vertex, normal and texcoord indices of one
// face corner. A missing attribute is -1.
type objCorner struct {
	v, n, t int
}

// triangulate fans a polygon around its first corner.
func triangulate(corners []objCorner) [][3]objCorner {
	if len(corners) < 3 {
		return nil
	}
	tris := make([][3]objCorner, 0, len(corners)-2)
	for i := 1; i < len(corners)-1; i++ {
		tris = append(tris, [3]objCorner{corners[0], corners[i], corners[i+1]})
	}
	return tris
}

// addTriangle appends an unindexed triangle. It reports false when any
// corner references a vertex that does not exist.
func addTriangle(mesh *scene.Mesh, tri [3]objCorner, reader *gobj.ObjReader) bool {
	for _, c := range tri {
		if c.v < 0 || c.v >= len(reader.V) {
			return false
		}
	}

	hasNormals := len(mesh.Positions) == len(mesh.Normals)
	hasUVs := len(mesh.Positions) == len(mesh.UVs)

	for _, c := range tri {
		mesh.Positions = append(mesh.Positions, [3]float32(reader.V[c.v]))

		if hasNormals && c.n >= 0 && c.n < len(reader.VN) {
			mesh.Normals = append(mesh.Normals, [3]float32(reader.VN[c.n]))
		} else {
			hasNormals = false
		}
		if hasUVs && c.t >= 0 && c.t < len(reader.VT) {
			mesh.UVs = append(mesh.UVs, [2]float32(reader.VT[c.t]))
		} else {
			hasUVs = false
		}
	}

	// Attributes must be complete or absent.
	if !hasNormals {
		mesh.Normals = nil
	}
	if !hasUVs {
		mesh.UVs = nil
	}
	return true
}
