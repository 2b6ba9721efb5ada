package metrics

import "github.com/san-kum/containment/internal/geom"

// Contained is the fraction of frames in which the object's offset from the
// container stays within envelope on every axis.
type Contained struct {
	name     string
	envelope geom.Vec3
	inside   int
	samples  int
}

func NewContained(envelope geom.Vec3) *Contained {
	return &Contained{name: "contained", envelope: envelope.Abs()}
}

func (c *Contained) Name() string { return c.name }

func (c *Contained) Observe(s Snapshot) {
	if !s.Container.HasTransform || !s.Object.HasTransform {
		return
	}
	c.samples++
	if s.Container.Position.Sub(s.Object.Position).Abs().LessThan(c.envelope) {
		c.inside++
	}
}

func (c *Contained) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return float64(c.inside) / float64(c.samples)
}

func (c *Contained) Reset() {
	c.inside = 0
	c.samples = 0
}

// Standard returns the metrics recorded for every trial.
func Standard(envelope geom.Vec3) Set {
	return Set{NewTravel(), NewTilt(), NewResting(), NewContained(envelope)}
}
