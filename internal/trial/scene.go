package trial

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/containment/internal/catalog"
	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/geom"
)

// CameraID is the avatar that renders every trial.
const CameraID = "frames_temp"

const (
	anchorSpread  = 3.0
	objectHeight  = 0.8
	containerTilt = 10.0
	objectTilt    = 45.0
)

// Setup is one trial's placement, ready to be sent as a single batch.
type Setup struct {
	Kind Kind

	Container int
	Object    int
	// Target is zero unless Kind is Agent.
	Target int

	Pair         catalog.Pair
	TargetRecord catalog.Record
	// TargetScale is the render scale of the target. ContactScale shrinks the
	// target extents for the touch test and applies to every library.
	TargetScale  float64
	ContactScale float64

	Names    map[string]string
	Commands []engine.Command
}

// Tracked lists the ids cleanup must destroy, in creation order.
func (s *Setup) Tracked() []int {
	ids := []int{s.Container, s.Object}
	if s.Target != 0 {
		ids = append(ids, s.Target)
	}
	return ids
}

// Envelope is the largest offset from the container centre that still
// counts as inside. It only looks at the container extents, so it is a rough
// test.
func (s *Setup) Envelope() geom.Vec3 { return s.Pair.LargeExtents.Abs() }

// ContactBounds is the distance between agent and target at which they
// touch: half the agent's largest side plus half the target's, shrunk by
// ContactScale.
func (s *Setup) ContactBounds() float64 {
	agent := s.Pair.SmallExtents.Max() / 2
	target := s.TargetRecord.BoundsExtents().Max() * s.ContactScale / 2
	return agent + target
}

// Scene places objects around an anchor that is fixed for the whole batch.
type Scene struct {
	lib    catalog.Library
	pools  catalog.Pools
	rng    *rand.Rand
	tuning Tuning

	anchor         geom.Vec3
	balancerID     int
	balancerHeight float64
	lastID         int
}

func NewScene(lib catalog.Library, pools catalog.Pools, rng *rand.Rand, tuning Tuning) *Scene {
	s := &Scene{lib: lib, pools: pools, rng: rng, tuning: tuning}
	s.anchor = geom.V(s.uniform(-anchorSpread, anchorSpread), 0, s.uniform(-anchorSpread, anchorSpread))
	return s
}

func (s *Scene) Anchor() geom.Vec3 { return s.anchor }

// BalancerID is zero until AddBalancer has been called.
func (s *Scene) BalancerID() int { return s.balancerID }

// AddBalancer creates the fixed prop the containers rest on. It is frozen on
// every axis and stays in the scene for the whole batch.
func (s *Scene) AddBalancer() ([]engine.Command, string, error) {
	if s.balancerID != 0 {
		return nil, "", fmt.Errorf("balancer already added")
	}
	if len(s.pools.Balancers) == 0 {
		return nil, "", catalog.ErrEmptyPool
	}

	name := s.pools.Balancers[s.rng.Intn(len(s.pools.Balancers))]
	rec, err := s.lib.Record(name)
	if err != nil {
		return nil, "", err
	}

	scale := s.tuning.BalancerScale
	s.balancerID = s.nextID()
	s.balancerHeight = rec.BoundsExtents().Y * scale

	cmds := engine.AddPhysicsObject(engine.PhysicsObject{
		ID:       s.balancerID,
		Model:    rec.Name,
		Library:  rec.Library,
		Position: s.anchor,
		Scale:    engine.Uniform(scale),
	})
	cmds = append(cmds,
		engine.SetRigidbodyConstraints{
			ID:                 s.balancerID,
			FreezePositionAxes: engine.AllAxes,
			FreezeRotationAxes: engine.AllAxes,
		},
		engine.SetColor{
			ID:    s.balancerID,
			Color: engine.Color{R: s.rng.Float64(), G: s.rng.Float64(), B: s.rng.Float64(), A: 1},
		},
	)
	return cmds, rec.Name, nil
}

// Camera returns a position slightly off the anchor, looking down at it.
func (s *Scene) Camera() (position, lookAt geom.Vec3) {
	position = geom.V(
		s.anchor.X+s.uniform(-1, 1),
		s.uniform(3.2, 3.4),
		s.anchor.Z+s.uniform(-1, 1),
	)
	lookAt = geom.V(s.anchor.X, 1, s.anchor.Z)
	return position, lookAt
}

// Setup picks a container and a smaller object and builds the commands that
// create them, plus a target for agent trials, and enables state streaming.
func (s *Scene) Setup(ctx context.Context, kind Kind) (*Setup, error) {
	pair, err := catalog.PickPair(ctx, s.rng, s.lib, s.pools.Contained, s.pools.Containers, catalog.AllAxes)
	if err != nil {
		return nil, fmt.Errorf("pick objects: %w", err)
	}

	st := &Setup{
		Kind:  kind,
		Pair:  pair,
		Names: map[string]string{"object": pair.Small.Name, "container": pair.Large.Name},
	}

	st.Container = s.nextID()
	st.Commands = append(st.Commands, engine.AddPhysicsObject(engine.PhysicsObject{
		ID:       st.Container,
		Model:    pair.Large.Name,
		Library:  pair.Large.Library,
		Position: geom.V(s.anchor.X, s.balancerHeight+s.uniform(0.1, 0.2), s.anchor.Z),
		Rotation: s.tilt(containerTilt),
	})...)

	st.Object = s.nextID()
	if kind == Agent {
		st.Target = s.nextID()
	}
	st.Commands = append(st.Commands, engine.AddPhysicsObject(engine.PhysicsObject{
		ID:       st.Object,
		Model:    pair.Small.Name,
		Library:  pair.Small.Library,
		Position: geom.V(s.anchor.X, objectHeight, s.anchor.Z),
		Rotation: s.tilt(objectTilt),
	})...)

	if kind == Agent {
		if err := s.addTarget(st); err != nil {
			return nil, err
		}
	}

	st.Commands = append(st.Commands,
		engine.SendRigidbodies{Frequency: engine.Always},
		engine.SendTransforms{Frequency: engine.Always},
		engine.SendStaticRigidbodies{Frequency: engine.Once},
	)
	return st, nil
}

// addTarget places the target next to the agent, offset on both horizontal
// axes. Flex targets are scaled down and painted red.
func (s *Scene) addTarget(st *Setup) error {
	if len(s.pools.Targets) == 0 {
		return catalog.ErrEmptyPool
	}
	rec, err := s.lib.Record(s.pools.Targets[s.rng.Intn(len(s.pools.Targets))])
	if err != nil {
		return err
	}

	scale := 1.0
	if rec.Library == catalog.LibraryFlex {
		scale = s.tuning.TargetScale
	}
	st.TargetRecord = rec
	st.TargetScale = scale
	st.ContactScale = s.tuning.TargetScale
	st.Names["target"] = rec.Name

	pos := geom.V(s.offset(s.anchor.X), s.uniform(0, 0.3), s.offset(s.anchor.Z))
	st.Commands = append(st.Commands, engine.AddPhysicsObject(engine.PhysicsObject{
		ID:       st.Target,
		Model:    rec.Name,
		Library:  rec.Library,
		Position: pos,
		Scale:    engine.Uniform(scale),
		Mass:     s.tuning.TargetMass,
	})...)
	if rec.Library == catalog.LibraryFlex {
		st.Commands = append(st.Commands, engine.SetColor{ID: st.Target, Color: engine.Color{R: 1, A: 1}})
	}
	return nil
}

func (s *Scene) nextID() int {
	s.lastID++
	return s.lastID
}

func (s *Scene) offset(c float64) float64 {
	d := s.uniform(0.5, 1)
	if s.rng.Intn(2) == 0 {
		return c - d
	}
	return c + d
}

func (s *Scene) tilt(deg float64) geom.Vec3 {
	return geom.V(s.uniform(-deg, deg), s.uniform(-deg, deg), s.uniform(-deg, deg))
}

func (s *Scene) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}
