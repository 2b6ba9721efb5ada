package catalog

import "math/rand"

// Magnitude returns a force magnitude suited to the object's size. Larger
// unit scales (smaller objects) get weaker pushes; bigger volumes get stronger
// ones, with a uniform jitter of +/- randomness.
func Magnitude(rng *rand.Rand, r Record, randomness float64) float64 {
	base := (-r.UnitScale()*2+55)/2 + (r.BoundsExtents().Product()*10+15)/2 - 5
	return base + uniform(rng, -randomness, randomness)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}
