package shadow

import (
	"testing"

	"github.com/Faultbox/modelview/pkg/math"
)

func TestLightMatrix_BoundsInsideClip(t *testing.T) {
	unit := math.Box3{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	tests := []struct {
		name   string
		from   math.Vec3
		bounds math.Box3
	}{
		{"key light", math.Vec3{X: 10, Y: 10, Z: 5}, unit},
		{"straight down", math.Vec3{Y: 1}, unit},
		{"offset box", math.Vec3{X: -3, Y: 2, Z: 1}, math.Box3{Min: math.Vec3{X: 4, Y: 0, Z: -2}, Max: math.Vec3{X: 6, Y: 3, Z: 0}}},
		{"point box", math.Vec3{X: 1, Y: 1}, math.Box3{Min: math.Vec3{X: 2, Y: 2, Z: 2}, Max: math.Vec3{X: 2, Y: 2, Z: 2}}},
		{"zero direction", math.Vec3{}, unit},
		{"empty box", math.Vec3{X: 1, Y: 1, Z: 1}, math.EmptyBox()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := LightMatrix(tt.from, tt.bounds)
			if !m.IsFinite() {
				t.Fatalf("matrix not finite: %v", m)
			}
			if tt.bounds.IsEmpty() {
				return
			}
			for _, c := range tt.bounds.Corners() {
				p := m.TransformVec3(c)
				for i, v := range p.Array() {
					if v < -1.0001 || v > 1.0001 {
						t.Errorf("corner %v axis %d maps to %v, outside clip", c, i, v)
					}
				}
			}
		})
	}
}

func TestLightMatrix_NearerToLightIsShallower(t *testing.T) {
	bounds := math.Box3{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	from := math.Vec3{X: 10, Y: 10, Z: 5}
	m := LightMatrix(from, bounds)

	dir := from.Normalize()
	near := m.TransformVec3(dir.Scale(0.5))
	far := m.TransformVec3(dir.Scale(-0.5))
	if near.Z >= far.Z {
		t.Errorf("depth toward light = %v, away = %v; want smaller toward the light", near.Z, far.Z)
	}
}

func TestRadius(t *testing.T) {
	tests := []struct {
		name string
		b    math.Box3
		want float32
	}{
		{"unit cube", math.Box3{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}, 1.7320508},
		{"point", math.Box3{}, minRadius},
		{"empty", math.EmptyBox(), minRadius},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Radius(tt.b)
			if d := got - tt.want; d > 1e-5 || d < -1e-5 {
				t.Errorf("Radius = %v, want %v", got, tt.want)
			}
		})
	}
}
