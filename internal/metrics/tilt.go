package metrics

import "math"

// Tilt is the largest container rotation about a horizontal axis, in degrees.
type Tilt struct {
	name string
	max  float64
}

func NewTilt() *Tilt {
	return &Tilt{name: "max_tilt"}
}

func (t *Tilt) Name() string { return t.name }

func (t *Tilt) Observe(s Snapshot) {
	if !s.Container.HasTransform {
		return
	}
	r := s.Container.Rotation
	t.max = math.Max(t.max, math.Max(math.Abs(r.X), math.Abs(r.Z)))
}

func (t *Tilt) Value() float64 { return t.max }

func (t *Tilt) Reset() { t.max = 0 }
