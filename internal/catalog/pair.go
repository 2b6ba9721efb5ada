package catalog

import (
	"context"
	"errors"
	"math/rand"

	"github.com/san-kum/containment/internal/geom"
)

var AllAxes = []int{0, 1, 2}

var ErrEmptyPool = errors.New("catalog: empty candidate pool")

// Pair is a small object together with a larger one that exceeds it on the
// requested axes.
type Pair struct {
	Small        Record
	Large        Record
	SmallExtents geom.Vec3
	LargeExtents geom.Vec3
}

// PickPair samples a small candidate and scans a shuffled copy of the large
// pool for the first record whose extents exceed it on every axis in axes.
//
// The pools must contain at least one compatible pair; otherwise the search
// only returns once ctx is cancelled.
func PickPair(ctx context.Context, rng *rand.Rand, lib Library, smaller, larger []string, axes []int) (Pair, error) {
	if len(smaller) == 0 || len(larger) == 0 {
		return Pair{}, ErrEmptyPool
	}
	if len(axes) == 0 {
		axes = AllAxes
	}
	pool := append([]string(nil), larger...)

	for {
		if err := ctx.Err(); err != nil {
			return Pair{}, err
		}
		small, err := lib.Record(smaller[rng.Intn(len(smaller))])
		if err != nil {
			return Pair{}, err
		}
		se := small.BoundsExtents()

		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		for _, name := range pool {
			large, err := lib.Record(name)
			if err != nil {
				return Pair{}, err
			}
			le := large.BoundsExtents()
			if exceeds(le, se, axes) {
				return Pair{Small: small, Large: large, SmallExtents: se, LargeExtents: le}, nil
			}
		}
	}
}

func exceeds(large, small geom.Vec3, axes []int) bool {
	for _, a := range axes {
		if large.Axis(a) <= small.Axis(a) {
			return false
		}
	}
	return true
}
