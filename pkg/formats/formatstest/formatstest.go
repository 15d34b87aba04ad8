// Package formatstest builds small model payloads for tests.
package formatstest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// CubePositions returns the eight corners of an axis-aligned cube centered
// at center with the given edge length.
func CubePositions(center [3]float32, size float32) [][3]float32 {
	h := size / 2
	cx, cy, cz := center[0], center[1], center[2]
	return [][3]float32{
		{cx - h, cy - h, cz - h}, {cx + h, cy - h, cz - h},
		{cx + h, cy + h, cz - h}, {cx - h, cy + h, cz - h},
		{cx - h, cy - h, cz + h}, {cx + h, cy - h, cz + h},
		{cx + h, cy + h, cz + h}, {cx - h, cy + h, cz + h},
	}
}

// CubeIndices indexes the twelve triangles of a cube built by CubePositions.
var CubeIndices = []uint32{
	0, 2, 1, 0, 3, 2, // back
	4, 5, 6, 4, 6, 7, // front
	0, 1, 5, 0, 5, 4, // bottom
	3, 7, 6, 3, 6, 2, // top
	0, 4, 7, 0, 7, 3, // left
	1, 2, 6, 1, 6, 5, // right
}

// Document returns a glTF document holding a single node with one
// triangle primitive and, when color is non-nil, a PBR material.
func Document(positions [][3]float32, indices []uint32, color *[4]float64) *gltf.Document {
	doc := gltf.NewDocument()

	prim := &gltf.Primitive{
		Attributes: gltf.PrimitiveAttributes{
			gltf.POSITION: modeler.WritePosition(doc, positions),
		},
	}
	if indices != nil {
		prim.Indices = gltf.Index(modeler.WriteIndices(doc, indices))
	}
	if color != nil {
		doc.Materials = []*gltf.Material{{
			Name: "paint",
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: color,
				MetallicFactor:  gltf.Float(0),
				RoughnessFactor: gltf.Float(0.5),
			},
		}}
		prim.Material = gltf.Index(0)
	}

	doc.Meshes = []*gltf.Mesh{{Name: "body", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: "body", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []int{0}
	return doc
}

// GLB encodes doc as a binary glTF container.
func GLB(doc *gltf.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode glb: %w", err)
	}
	return buf.Bytes(), nil
}

// CubeGLB returns a GLB payload for a cube with the given center and size.
func CubeGLB(center [3]float32, size float32) ([]byte, error) {
	return GLB(Document(CubePositions(center, size), CubeIndices, nil))
}

// CubeOBJ returns an OBJ payload for a cube with quad faces.
func CubeOBJ(center [3]float32, size float32) []byte {
	var sb strings.Builder
	sb.WriteString("# cube\n")
	for _, p := range CubePositions(center, size) {
		fmt.Fprintf(&sb, "v %g %g %g\n", p[0], p[1], p[2])
	}
	sb.WriteString("usemtl body\n")
	for _, f := range [][4]int{
		{1, 4, 3, 2}, {5, 6, 7, 8}, {1, 2, 6, 5},
		{4, 8, 7, 3}, {1, 5, 8, 4}, {2, 3, 7, 6},
	} {
		fmt.Fprintf(&sb, "f %d %d %d %d\n", f[0], f[1], f[2], f[3])
	}
	return []byte(sb.String())
}

// EncodeJSON writes doc as a .gltf JSON document.
func EncodeJSON(w io.Writer, doc *gltf.Document) error {
	return gltf.NewEncoder(w).Encode(doc)
}
