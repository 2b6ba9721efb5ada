package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

var Zero = Vec3{}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

func (v Vec3) Abs() Vec3 {
	return Vec3{math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Norm() }

// Max returns the largest component.
func (v Vec3) Max() float64 { return math.Max(v.X, math.Max(v.Y, v.Z)) }

// Product multiplies the three components, i.e. the volume of an extent.
func (v Vec3) Product() float64 { return v.X * v.Y * v.Z }

// Axis returns component i (0=x, 1=y, 2=z).
func (v Vec3) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic(fmt.Sprintf("geom: axis %d out of range", i))
}

// LessThan reports whether every component of v is strictly below o.
func (v Vec3) LessThan(o Vec3) bool {
	return v.X < o.X && v.Y < o.Y && v.Z < o.Z
}

func (v Vec3) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func (v Vec3) IsValid() bool {
	for _, c := range v.Array() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// StdDev returns the population standard deviation of each axis across samples.
func StdDev(samples []Vec3) Vec3 {
	if len(samples) == 0 {
		return Zero
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	zs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i], ys[i], zs[i] = s.X, s.Y, s.Z
	}
	_, sx := stat.PopMeanStdDev(xs, nil)
	_, sy := stat.PopMeanStdDev(ys, nil)
	_, sz := stat.PopMeanStdDev(zs, nil)
	return Vec3{sx, sy, sz}
}
