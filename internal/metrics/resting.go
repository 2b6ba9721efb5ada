package metrics

// Resting is the fraction of frames the object's rigidbody was asleep.
type Resting struct {
	name     string
	sleeping int
	samples  int
}

func NewResting() *Resting {
	return &Resting{name: "resting"}
}

func (r *Resting) Name() string { return r.name }

func (r *Resting) Observe(s Snapshot) {
	r.samples++
	if s.ObjectSleeping {
		r.sleeping++
	}
}

func (r *Resting) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return float64(r.sleeping) / float64(r.samples)
}

func (r *Resting) Reset() {
	r.sleeping = 0
	r.samples = 0
}
