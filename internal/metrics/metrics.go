// Package metrics summarises a trial from its per-frame samples.
package metrics

import "github.com/san-kum/containment/internal/engine"

// Snapshot is the state of the tracked objects after one frame.
type Snapshot struct {
	Frame          int
	Container      engine.Sample
	Object         engine.Sample
	ObjectSleeping bool
}

type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

// Set feeds every snapshot to a group of metrics.
type Set []Metric

func (s Set) Observe(snap Snapshot) {
	for _, m := range s {
		m.Observe(snap)
	}
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}
