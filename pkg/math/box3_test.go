package math

import "testing"

func TestEmptyBox(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("EmptyBox should be empty")
	}
	b.ExtendPoint(Vec3{1, 2, 3})
	if b.IsEmpty() {
		t.Fatal("box should not be empty after extending")
	}
	if b.MaxDim() != 0 {
		t.Errorf("single point box MaxDim = %v, want 0", b.MaxDim())
	}
}

func TestBoxUnion(t *testing.T) {
	a := Box3{Min: Vec3{-1, -1, -1}, Max: Vec3{0, 0, 0}}
	b := Box3{Min: Vec3{0, 0, 0}, Max: Vec3{2, 3, 1}}
	a.Union(b)
	if a.Min != (Vec3{-1, -1, -1}) || a.Max != (Vec3{2, 3, 1}) {
		t.Errorf("Union = %v", a)
	}
	a.Union(EmptyBox())
	if a.Max != (Vec3{2, 3, 1}) {
		t.Errorf("union with empty box changed result: %v", a)
	}
	if got, want := a.Center(), (Vec3{0.5, 1, 0}); got != want {
		t.Errorf("Center() = %v, want %v", got, want)
	}
	if got := a.MaxDim(); got != 4 {
		t.Errorf("MaxDim() = %v, want 4", got)
	}
}

func TestBoxTransform(t *testing.T) {
	b := Box3{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}
	out := b.Transform(Translate(5, 0, 0).Mul(Scale(2, 2, 2)))
	if out.Min != (Vec3{3, -2, -2}) || out.Max != (Vec3{7, 2, 2}) {
		t.Errorf("Transform = %v", out)
	}
	if !EmptyBox().Transform(Scale(2, 2, 2)).IsEmpty() {
		t.Error("transforming an empty box should stay empty")
	}
}
