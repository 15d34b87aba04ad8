package normalize

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/modelview/pkg/formats"
	"github.com/Faultbox/modelview/pkg/formats/formatstest"
	"github.com/Faultbox/modelview/pkg/math"
	"github.com/Faultbox/modelview/pkg/scene"
)

const eps = 1e-4

func approx(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < eps
}

func cubeNode(center [3]float32, size float32) *scene.Node {
	n := scene.NewNode("cube")
	n.AddMesh(&scene.Mesh{
		Positions: formatstest.CubePositions(center, size),
		Indices:   formatstest.CubeIndices,
		Material:  scene.DefaultMaterial(),
	})
	return n
}

func assertCentered(t *testing.T, b *math.Box3, extent float32) {
	t.Helper()
	if b == nil {
		t.Fatal("expected bounds")
	}
	c := b.Center()
	if !approx(c.X, 0) || !approx(c.Y, 0) || !approx(c.Z, 0) {
		t.Errorf("center = %+v, want origin", c)
	}
	if !approx(b.MaxDim(), extent) {
		t.Errorf("max dim = %v, want %v", b.MaxDim(), extent)
	}
}

func TestNormalize_Extent(t *testing.T) {
	tests := []struct {
		name      string
		userScale float64
		want      float32
	}{
		{"unit", 1, 2.5},
		{"double", 2, 5},
		{"half", 0.5, 1.25},
		{"zero treated as one", 0, 2.5},
		{"negative treated as one", -3, 2.5},
		{"NaN treated as one", gomath.NaN(), 2.5},
		{"Inf treated as one", gomath.Inf(1), 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := scene.NewNode("root")
			root.AddChild(cubeNode([3]float32{10, -4, 7}, 40))

			res := Normalize(root, TargetExtent, tt.userScale)
			if res.NoGeometry {
				t.Fatal("unexpected NoGeometry")
			}
			assertCentered(t, res.Bounds, tt.want)

			// Bounds must match a fresh recomputation.
			box, _ := scene.WorldBounds(root)
			assertCentered(t, &box, tt.want)
		})
	}
}

func TestNormalize_RootTransform(t *testing.T) {
	root := scene.NewNode("root")
	root.Translation = math.Vec3{X: 3, Y: 1, Z: -2}
	root.Rotation = math.QuatFromAxisAngle(math.Vec3{Y: 1}, 0.7)
	root.Scale = math.Vec3{X: 2, Y: 2, Z: 2}

	child := cubeNode([3]float32{5, 5, 5}, 1)
	child.Translation = math.Vec3{X: -8}
	child.Scale = math.Vec3{X: 3, Y: 1, Z: 1}
	root.AddChild(child)

	res := Normalize(root, TargetExtent, 1)
	assertCentered(t, res.Bounds, 2.5)
}

func TestNormalize_MatrixRoot(t *testing.T) {
	root := scene.NewNode("root")
	m := math.Translate(100, 0, 0).Mul(math.Scale(10, 10, 10))
	root.Matrix = &m
	root.AddMesh(cubeNode([3]float32{}, 1).Meshes[0])

	res := Normalize(root, TargetExtent, 1)
	assertCentered(t, res.Bounds, 2.5)
}

func TestNormalize_NoGeometry(t *testing.T) {
	root := scene.NewNode("empty")
	root.Translation = math.Vec3{X: 1, Y: 2, Z: 3}
	root.AddChild(scene.NewNode("child"))
	root.Children[0].AddMesh(&scene.Mesh{})

	res := Normalize(root, TargetExtent, 1)
	if !res.NoGeometry {
		t.Error("expected NoGeometry")
	}
	if res.Bounds != nil {
		t.Error("expected nil bounds")
	}
	if root.Translation != (math.Vec3{X: 1, Y: 2, Z: 3}) || root.Scale != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Error("root transform must be untouched")
	}
}

func TestNormalize_InvalidMeshesIgnored(t *testing.T) {
	nan := float32(gomath.NaN())
	root := scene.NewNode("root")
	root.AddChild(cubeNode([3]float32{}, 2))
	bad := scene.NewNode("bad")
	bad.AddMesh(&scene.Mesh{Positions: [][3]float32{{nan, 0, 0}, {1000, 1000, 1000}}})
	root.AddChild(bad)

	res := Normalize(root, TargetExtent, 1)
	assertCentered(t, res.Bounds, 2.5)
}

func TestNormalize_Degenerate(t *testing.T) {
	root := scene.NewNode("point")
	root.AddMesh(&scene.Mesh{Positions: [][3]float32{{3, 3, 3}}})

	res := Normalize(root, TargetExtent, 1)
	if res.NoGeometry {
		t.Fatal("a single finite vertex is valid geometry")
	}
	if res.Scale != 1 {
		t.Errorf("zero-extent model should not be scaled, got %v", res.Scale)
	}
	assertCentered(t, res.Bounds, 0)
	if !root.Translation.IsFinite() || !root.Scale.IsFinite() {
		t.Fatalf("root transform not finite: translation %+v scale %+v", root.Translation, root.Scale)
	}
	if root.Translation != (math.Vec3{X: -3, Y: -3, Z: -3}) {
		t.Errorf("translation = %+v, want the point moved to the origin", root.Translation)
	}
	if root.Scale != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("scale = %+v, want unchanged", root.Scale)
	}
}

func TestNormalize_ScaleFactor(t *testing.T) {
	tests := []struct {
		name      string
		size      float32
		userScale float64
		want      float32
	}{
		{"unit cube doubled", 2, 2, 2.5},
		{"unit cube", 2, 1, 1.25},
		{"large model", 40, 1, 0.0625},
		{"small model", 0.5, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := cubeNode([3]float32{}, tt.size)
			res := Normalize(root, TargetExtent, tt.userScale)
			if !approx(res.Scale, tt.want) {
				t.Errorf("Scale = %v, want %v", res.Scale, tt.want)
			}
			for i, v := range root.Scale.Array() {
				if !approx(v, tt.want) {
					t.Errorf("root scale axis %d = %v, want %v", i, v, tt.want)
				}
			}
		})
	}
}

func TestNormalize_FromGLB(t *testing.T) {
	glb, err := formatstest.CubeGLB([3]float32{-50, 20, 0}, 100)
	if err != nil {
		t.Fatal(err)
	}
	model, err := formats.ReadGLTF(glb, formats.GLTFOptions{})
	if err != nil {
		t.Fatal(err)
	}

	res := Normalize(model.Root, TargetExtent, 1)
	assertCentered(t, res.Bounds, 2.5)
}
