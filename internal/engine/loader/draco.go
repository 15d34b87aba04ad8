package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/modelview/pkg/formats"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

// ExecDecoder decodes Draco-compressed primitives by running the
// draco_decoder tool found at Path and reading back its OBJ output.
type ExecDecoder struct {
	Path string
}

type dracoExtension struct {
	BufferView int            `json:"bufferView"`
	Attributes map[string]int `json:"attributes"`
}

// DecodePrimitive implements formats.MeshDecoder. Cancelling ctx kills
// the decoder process.
func (d ExecDecoder) DecodePrimitive(ctx context.Context, doc *gltf.Document, prim *gltf.Primitive, raw json.RawMessage) (*formats.DecodedPrimitive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ext dracoExtension
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil, fmt.Errorf("parse extension: %w", err)
	}
	if ext.BufferView < 0 || ext.BufferView >= len(doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", ext.BufferView)
	}
	payload, err := modeler.ReadBufferView(doc, doc.BufferViews[ext.BufferView])
	if err != nil {
		return nil, fmt.Errorf("read buffer view: %w", err)
	}

	dir, err := os.MkdirTemp("", "modelview-draco-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "mesh.drc")
	out := filepath.Join(dir, "mesh.obj")
	if err := os.WriteFile(in, payload, 0o600); err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Path, "-i", in, "-o", out)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(d.Path), err, bytes.TrimSpace(stderr.Bytes()))
	}

	objData, err := os.ReadFile(out)
	if err != nil {
		return nil, err
	}
	model, err := formats.ReadOBJ(objData)
	if err != nil {
		return nil, fmt.Errorf("decoded mesh: %w", err)
	}

	var result formats.DecodedPrimitive
	model.Root.WalkMeshes(func(m *scene.Mesh, _ math.Mat4) {
		base := uint32(len(result.Positions))
		result.Positions = append(result.Positions, m.Positions...)
		if m.Indices == nil {
			return
		}
		for _, i := range m.Indices {
			result.Indices = append(result.Indices, base+i)
		}
	})
	return &result, nil
}
