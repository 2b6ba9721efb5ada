package metrics

import "github.com/san-kum/containment/internal/geom"

// Travel is the length of the path the object moved along.
type Travel struct {
	name string
	sum  float64
	last geom.Vec3
	seen bool
}

func NewTravel() *Travel {
	return &Travel{name: "travel"}
}

func (t *Travel) Name() string { return t.name }

func (t *Travel) Observe(s Snapshot) {
	if !s.Object.HasTransform {
		return
	}
	if t.seen {
		t.sum += t.last.Distance(s.Object.Position)
	}
	t.last = s.Object.Position
	t.seen = true
}

func (t *Travel) Value() float64 { return t.sum }

func (t *Travel) Reset() {
	t.sum = 0
	t.last = geom.Zero
	t.seen = false
}
