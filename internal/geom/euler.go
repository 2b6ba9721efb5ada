package geom

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Quat is an engine quaternion in (x, y, z, w) order.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

func (q Quat) mgl() mgl64.Quat {
	return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}}
}

// QuatFrom converts an mgl64 quaternion into engine order.
func QuatFrom(q mgl64.Quat) Quat {
	return Quat{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	r := q.mgl().Normalize().Rotate(mgl64.Vec3{v.X, v.Y, v.Z})
	return Vec3{r[0], r[1], r[2]}
}

// EulerOrder selects how a rotation matrix is decomposed into three angles.
type EulerOrder int

const (
	// OrderXYZ is extrinsic x, then y, then z: R = Rz * Ry * Rx.
	OrderXYZ EulerOrder = iota
	// OrderZYX is extrinsic z, then y, then x: R = Rx * Ry * Rz.
	OrderZYX
	// OrderUnity is the engine-side convention of z, then x, then y: R = Ry * Rx * Rz.
	OrderUnity
)

func (o EulerOrder) String() string {
	switch o {
	case OrderXYZ:
		return "xyz"
	case OrderZYX:
		return "zyx"
	case OrderUnity:
		return "unity"
	}
	return fmt.Sprintf("EulerOrder(%d)", int(o))
}

func ParseEulerOrder(s string) (EulerOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xyz":
		return OrderXYZ, nil
	case "zyx":
		return OrderZYX, nil
	case "unity", "zxy":
		return OrderUnity, nil
	}
	return OrderXYZ, fmt.Errorf("unknown euler order: %q (available: xyz, zyx, unity)", s)
}

// EulerRadians decomposes q under order. Components are always reported in
// x, y, z axis order regardless of the application order.
func EulerRadians(q Quat, order EulerOrder) Vec3 {
	m := q.mgl().Normalize().Mat4()
	at := m.At

	switch order {
	case OrderZYX:
		return Vec3{
			X: math.Atan2(-at(1, 2), at(2, 2)),
			Y: math.Asin(clamp(at(0, 2))),
			Z: math.Atan2(-at(0, 1), at(0, 0)),
		}
	case OrderUnity:
		return Vec3{
			X: math.Asin(clamp(-at(1, 2))),
			Y: math.Atan2(at(0, 2), at(2, 2)),
			Z: math.Atan2(at(1, 0), at(1, 1)),
		}
	default:
		return Vec3{
			X: math.Atan2(at(2, 1), at(2, 2)),
			Y: math.Asin(clamp(-at(2, 0))),
			Z: math.Atan2(at(1, 0), at(0, 0)),
		}
	}
}

func EulerDegrees(q Quat, order EulerOrder) Vec3 {
	return EulerRadians(q, order).Scale(180 / math.Pi)
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
