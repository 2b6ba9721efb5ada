package trial

import (
	"context"
	"errors"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/containment/internal/catalog"
	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/engine/enginetest"
	"github.com/san-kum/containment/internal/geom"
)

func newRand(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

func rotateX(deg float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(deg), mgl64.Vec3{1, 0, 0})
}

const (
	containerID = 1
	objectID    = 2
	targetID    = 3
)

// fixedSetup has a 0.4 x 0.2 x 0.4 container and a contact bound of 0.15.
func fixedSetup(kind Kind) *Setup {
	small := catalog.Record{Name: "golf", Extents: geom.V(0.1, 0.1, 0.1)}
	large := catalog.Record{Name: "bowl", Extents: geom.V(0.4, 0.2, 0.4)}
	s := &Setup{
		Kind:      kind,
		Container: containerID,
		Object:    objectID,
		Pair:      catalog.Pair{Small: small, Large: large, SmallExtents: small.Extents, LargeExtents: large.Extents},
		Names:     map[string]string{"object": "golf", "container": "bowl"},
	}
	if kind == Agent {
		s.Target = targetID
		s.TargetRecord = catalog.Record{Name: "sphere", Extents: geom.V(1, 1, 1)}
		s.TargetScale = 0.2
		s.ContactScale = 0.2
	}
	return s
}

func fastTuning() Tuning {
	t := DefaultTuning()
	t.Settle = Range{Min: 0, Max: 0}
	t.Patience = Range{Min: 20, Max: 20}
	return t
}

func run(setup *Setup, tuning Tuning, frames int, fake *enginetest.Fake) (*Result, error) {
	c := NewController(setup, frames, tuning, engine.NewParser(geom.OrderXYZ), newRand(1))
	return c.Run(context.Background(), fake, nil)
}

func still(objectAt geom.Vec3) func(int, []engine.Command) *engine.Response {
	return func(int, []engine.Command) *engine.Response {
		return enginetest.Transforms(
			enginetest.Pose{ID: containerID, Position: geom.V(0, 1, 0)},
			enginetest.Pose{ID: objectID, Position: objectAt},
		)
	}
}

var _ = Describe("Controller", func() {
	Describe("object trials", func() {
		It("advances every frame without acting", func() {
			scene := NewScene(mustCatalog(), mustCatalog().Pools, newRand(3), DefaultTuning())
			setup, err := scene.Setup(context.Background(), Object)
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.Count(setup.Commands, "add_object")).To(Equal(2))

			fake := &enginetest.Fake{}
			res, err := run(setup, DefaultTuning(), 50, fake)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.ActiveFrames).To(BeNil())
			Expect(res.Active()).To(Equal([]int{NoActiveFrames}))
			Expect(res.Success).To(BeTrue())
			Expect(res.Frames).To(Equal(50))

			batches := fake.Batches()
			Expect(batches).To(HaveLen(51))
			for _, b := range batches[:50] {
				Expect(b).To(BeEmpty())
			}
			Expect(engine.Names(batches[50])).To(Equal([]string{"destroy_object", "destroy_object", "send_rigidbodies"}))
		})
	})

	Describe("transition trials", func() {
		It("pushes the object once the container has rested for a full window", func() {
			fake := &enginetest.Fake{Respond: still(geom.V(0.05, 1, 0.05))}
			res, err := run(fixedSetup(Transition), fastTuning(), 30, fake)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.ActiveFrames).To(Equal([]int{21}))
			Expect(res.Forces).To(Equal(1))
			Expect(res.Success).To(BeTrue())
			Expect(fake.Count("apply_force_at_position")).To(Equal(1))
			Expect(engine.Names(fake.Batch(20))).To(Equal([]string{"apply_force_at_position"}))

			push := fake.Batch(20)[0].(engine.ApplyForceAtPosition)
			Expect(push.ID).To(Equal(objectID))
			Expect(push.Force.Y).To(BeZero())
			Expect(push.Force.X).To(Equal(push.Force.Z))
			Expect(push.Position.Y).To(BeZero())
			Expect(push.Position.X).To(BeNumerically("<=", 10))
		})

		It("refills the window after a transition", func() {
			fake := &enginetest.Fake{Respond: still(geom.V(0.05, 1, 0.05))}
			res, err := run(fixedSetup(Transition), fastTuning(), 41, fake)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ActiveFrames).To(Equal([]int{21, 41}))
		})

		It("waits while the container is still moving", func() {
			fake := &enginetest.Fake{Respond: func(batch int, _ []engine.Command) *engine.Response {
				tilt := geom.Quat{W: 1}
				if batch%2 == 0 {
					tilt = geom.QuatFrom(rotateX(10))
				}
				return enginetest.Transforms(
					enginetest.Pose{ID: containerID, Position: geom.V(0, 1, 0), Rotation: tilt},
					enginetest.Pose{ID: objectID, Position: geom.V(0, 1, 0)},
				)
			}}
			res, err := run(fixedSetup(Transition), fastTuning(), 60, fake)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ActiveFrames).To(BeNil())
			Expect(res.EarlyStop).To(BeFalse())
			Expect(res.Frames).To(Equal(60))
		})

		It("gives up after more than ten misses", func() {
			fake := &enginetest.Fake{Respond: func(batch int, cmds []engine.Command) *engine.Response {
				obj := geom.V(2, 1, 0)
				if batch > 40 {
					obj = geom.V(0, 1, 0)
				}
				return still(obj)(batch, cmds)
			}}
			res, err := run(fixedSetup(Transition), fastTuning(), 100, fake)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.EarlyStop).To(BeTrue())
			Expect(res.ActiveFrames).To(BeNil())
			Expect(res.Frames).To(Equal(30))
			Expect(fake.Count("apply_force_at_position")).To(BeZero())
			Expect(fake.Batches()).To(HaveLen(31))
		})

		It("runs the settle tail after monitoring", func() {
			tuning := fastTuning()
			tuning.Settle = Range{Min: 7, Max: 7}
			fake := &enginetest.Fake{Respond: still(geom.V(2, 1, 0))}
			res, err := run(fixedSetup(Transition), tuning, 100, fake)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Frames).To(Equal(37))
		})
	})

	Describe("agent trials", func() {
		approach := func(batch int, _ []engine.Command) *engine.Response {
			d := 0.15 + 0.05
			if batch < 14 {
				d += float64(14-batch) * 0.1
			}
			return enginetest.Transforms(
				enginetest.Pose{ID: objectID},
				enginetest.Pose{ID: targetID, Position: geom.V(0, 0, d)},
			)
		}

		It("steps until the agent touches the target and then holds", func() {
			fake := &enginetest.Fake{Respond: approach}
			res, err := run(fixedSetup(Agent), fastTuning(), 30, fake)
			Expect(err).NotTo(HaveOccurred())

			want := make([]int, 15)
			for i := range want {
				want[i] = i
			}
			Expect(res.ActiveFrames).To(Equal(want))
			Expect(res.Success).To(BeTrue())

			for i := 0; i < 15; i++ {
				Expect(engine.Names(fake.Batch(i))).To(Equal([]string{"teleport_object_by", "teleport_object_by", "object_look_at"}))
			}
			for i := 15; i < 30; i++ {
				Expect(fake.Batch(i)).To(BeEmpty())
			}
		})

		It("lets the scene settle before stepping", func() {
			tuning := fastTuning()
			tuning.Settle = Range{Min: 5, Max: 5}
			fake := &enginetest.Fake{Respond: approach}
			res, err := run(fixedSetup(Agent), tuning, 30, fake)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.ActiveFrames[0]).To(Equal(5))
			for i := 0; i < 5; i++ {
				Expect(fake.Batch(i)).To(BeEmpty())
			}
		})

		It("lowers the vertical speed to zero and reports failure when out of reach", func() {
			fake := &enginetest.Fake{Respond: func(int, []engine.Command) *engine.Response {
				return enginetest.Transforms(
					enginetest.Pose{ID: objectID},
					enginetest.Pose{ID: targetID, Position: geom.V(0, 0, 50)},
				)
			}}
			res, err := run(fixedSetup(Agent), fastTuning(), 30, fake)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeFalse())
			Expect(res.ActiveFrames).To(HaveLen(30))

			var ups []float64
			for _, c := range fake.Of("teleport_object_by") {
				if tp := c.(engine.TeleportObjectBy); tp.Absolute {
					ups = append(ups, tp.Position.Y)
				}
			}
			Expect(ups).To(HaveLen(30))
			Expect(ups[0]).To(BeNumerically("~", 0.055, 1e-12))
			for _, u := range ups {
				Expect(u).To(BeNumerically(">=", 0))
			}
			Expect(ups[29]).To(BeZero())
		})
	})

	Describe("cleanup", func() {
		for _, kind := range Kinds {
			kind := kind
			It("destroys each tracked object once for "+string(kind)+" trials", func() {
				fake := &enginetest.Fake{Respond: still(geom.V(0, 1, 0))}
				_, err := run(fixedSetup(kind), fastTuning(), 25, fake)
				Expect(err).NotTo(HaveOccurred())

				Expect(fake.Count("destroy_object")).To(Equal(kind.Tracked()))
				Expect(fake.Count("send_rigidbodies")).To(Equal(1))
				last := fake.Batch(len(fake.Batches()) - 1)
				Expect(engine.Count(last, "destroy_object")).To(Equal(kind.Tracked()))
			})
		}

		It("still cleans up when a round trip fails", func() {
			boom := errors.New("boom")
			fake := &enginetest.Fake{Fail: map[int]error{5: boom}}
			res, err := run(fixedSetup(Object), fastTuning(), 20, fake)
			Expect(err).To(MatchError(boom))
			Expect(res.Frames).To(Equal(5))

			last := fake.Batch(len(fake.Batches()) - 1)
			Expect(engine.Names(last)).To(Equal([]string{"destroy_object", "destroy_object", "send_rigidbodies"}))
		})

		It("still cleans up when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			fake := &enginetest.Fake{}
			c := NewController(fixedSetup(Object), 10, fastTuning(), engine.NewParser(geom.OrderXYZ), newRand(1))
			_, err := c.Run(ctx, fake, nil)
			Expect(err).To(MatchError(context.Canceled))
			Expect(fake.Batches()).To(HaveLen(1))
			Expect(fake.Count("destroy_object")).To(Equal(2))
		})
	})

	It("notifies observers once per frame", func() {
		var phases []Phase
		c := NewController(fixedSetup(Agent), 12, func() Tuning {
			t := fastTuning()
			t.Settle = Range{Min: 4, Max: 4}
			return t
		}(), engine.NewParser(geom.OrderXYZ), newRand(1))
		c.AddObserver(ObserverFunc(func(f Frame) { phases = append(phases, f.Phase) }))

		_, err := c.Run(context.Background(), &enginetest.Fake{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(phases).To(HaveLen(12))
		Expect(phases[3]).To(Equal(Settling))
		Expect(phases[4]).To(Equal(Stepping))
	})
})
