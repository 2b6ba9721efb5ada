// Package enginetest provides a scripted in-memory engine for tests.
package enginetest

import (
	"context"
	"sync"

	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/geom"
)

// Fake records every batch it receives and answers with Respond. A nil
// Respond yields empty responses.
type Fake struct {
	Respond func(batch int, cmds []engine.Command) *engine.Response

	// Fail, when set, is returned instead of a response for that batch index.
	Fail map[int]error

	mu      sync.Mutex
	batches [][]engine.Command
}

func (f *Fake) Communicate(ctx context.Context, cmds []engine.Command) (*engine.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	n := len(f.batches)
	f.batches = append(f.batches, append([]engine.Command(nil), cmds...))
	f.mu.Unlock()

	if err, ok := f.Fail[n]; ok {
		return nil, err
	}
	if f.Respond == nil {
		return &engine.Response{Frame: n}, nil
	}
	resp := f.Respond(n, cmds)
	if resp == nil {
		resp = &engine.Response{}
	}
	resp.Frame = n
	return resp, nil
}

// Batches returns a copy of every batch sent so far.
func (f *Fake) Batches() [][]engine.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]engine.Command, len(f.batches))
	copy(out, f.batches)
	return out
}

func (f *Fake) Batch(i int) []engine.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.batches) {
		return nil
	}
	return f.batches[i]
}

// Count sums the commands named name over all batches.
func (f *Fake) Count(name string) int {
	n := 0
	for _, b := range f.Batches() {
		n += engine.Count(b, name)
	}
	return n
}

// Of returns every command named name, in send order.
func (f *Fake) Of(name string) []engine.Command {
	var out []engine.Command
	for _, b := range f.Batches() {
		for _, c := range b {
			if c.Name() == name {
				out = append(out, c)
			}
		}
	}
	return out
}

// Pose places one object. A zero Rotation means identity.
type Pose struct {
	ID       int
	Position geom.Vec3
	Rotation geom.Quat
}

// Transforms builds a response holding one transforms record.
func Transforms(poses ...Pose) *engine.Response {
	tr := engine.Transforms{}
	for _, p := range poses {
		rot := p.Rotation
		if rot == (geom.Quat{}) {
			rot = geom.Quat{W: 1}
		}
		tr.Objects = append(tr.Objects, engine.TransformEntry{ID: p.ID, Position: p.Position, Rotation: rot})
	}
	return &engine.Response{Records: []engine.Record{tr}}
}
