package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearVec(a, b Vec3) bool { return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z) }

func TestStdDev(t *testing.T) {
	tests := []struct {
		name     string
		samples  []Vec3
		expected Vec3
	}{
		{"empty", nil, Zero},
		{"constant", []Vec3{V(1, 2, 3), V(1, 2, 3), V(1, 2, 3)}, Zero},
		{"population", []Vec3{V(0, 0, 2), V(2, 4, 2)}, V(1, 2, 0)},
		{"single", []Vec3{V(5, -1, 0.3)}, Zero},
		{"numpy default", []Vec3{V(1, 0, 0), V(2, 0, 0), V(3, 0, 0), V(4, 0, 0)}, V(math.Sqrt(1.25), 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StdDev(tt.samples); !nearVec(got, tt.expected) {
				t.Errorf("StdDev() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestVec3_Arithmetic(t *testing.T) {
	a := V(1, -2, 3)
	b := V(4, 5, 6)

	if got := b.Sub(a); got != V(3, 7, 3) {
		t.Errorf("Sub failed: got %v", got)
	}
	if got := a.Abs(); got != V(1, 2, 3) {
		t.Errorf("Abs failed: got %v", got)
	}
	if got := V(3, 4, 0).Norm(); got != 5 {
		t.Errorf("Norm failed: got %v", got)
	}
	if got := b.Product(); got != 120 {
		t.Errorf("Product failed: got %v", got)
	}
	if got := a.Max(); got != 3 {
		t.Errorf("Max failed: got %v", got)
	}
	if !V(1, 1, 1).LessThan(V(2, 2, 2)) || V(1, 3, 1).LessThan(V(2, 2, 2)) {
		t.Error("LessThan must require every axis")
	}
}

func TestEulerDegrees_SingleAxis(t *testing.T) {
	axes := []struct {
		name string
		axis mgl64.Vec3
		want Vec3
	}{
		{"x", mgl64.Vec3{1, 0, 0}, V(30, 0, 0)},
		{"y", mgl64.Vec3{0, 1, 0}, V(0, 30, 0)},
		{"z", mgl64.Vec3{0, 0, 1}, V(0, 0, 30)},
	}

	for _, order := range []EulerOrder{OrderXYZ, OrderZYX, OrderUnity} {
		for _, a := range axes {
			q := QuatFrom(mgl64.QuatRotate(mgl64.DegToRad(30), a.axis))
			got := EulerDegrees(q, order)
			if !nearVec(got, a.want) {
				t.Errorf("%s/%s: got %v, want %v", order, a.name, got, a.want)
			}
		}
	}
}

func TestEulerDegrees_Composite(t *testing.T) {
	rx := mgl64.QuatRotate(mgl64.DegToRad(10), mgl64.Vec3{1, 0, 0})
	ry := mgl64.QuatRotate(mgl64.DegToRad(20), mgl64.Vec3{0, 1, 0})
	rz := mgl64.QuatRotate(mgl64.DegToRad(30), mgl64.Vec3{0, 0, 1})
	want := V(10, 20, 30)

	tests := []struct {
		order EulerOrder
		q     mgl64.Quat
	}{
		{OrderXYZ, rz.Mul(ry).Mul(rx)},
		{OrderZYX, rx.Mul(ry).Mul(rz)},
		{OrderUnity, ry.Mul(rx).Mul(rz)},
	}

	for _, tt := range tests {
		got := EulerDegrees(QuatFrom(tt.q), tt.order)
		if !nearVec(got, want) {
			t.Errorf("%s: got %v, want %v", tt.order, got, want)
		}
	}
}

func TestEulerDegrees_Identity(t *testing.T) {
	got := EulerDegrees(Quat{W: 1}, OrderXYZ)
	if !nearVec(got, Zero) {
		t.Errorf("identity rotation gave %v", got)
	}
}

func TestParseEulerOrder(t *testing.T) {
	for in, want := range map[string]EulerOrder{"": OrderXYZ, "XYZ": OrderXYZ, "zyx": OrderZYX, "unity": OrderUnity} {
		got, err := ParseEulerOrder(in)
		if err != nil || got != want {
			t.Errorf("ParseEulerOrder(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEulerOrder("abc"); err == nil {
		t.Error("expected error for unknown order")
	}
}
