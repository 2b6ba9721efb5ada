package trial

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/containment/internal/catalog"
	"github.com/san-kum/containment/internal/engine"
)

func mustCatalog() *catalog.YAMLLibrary {
	lib, err := catalog.Default()
	Expect(err).NotTo(HaveOccurred())
	return lib
}

var _ = Describe("Scene", func() {
	var (
		lib   *catalog.YAMLLibrary
		scene *Scene
	)

	BeforeEach(func() {
		lib = mustCatalog()
		scene = NewScene(lib, lib.Pools, newRand(11), DefaultTuning())
	})

	It("keeps the anchor within three units of the origin", func() {
		a := scene.Anchor()
		Expect(a.X).To(BeNumerically("~", 0, 3))
		Expect(a.Z).To(BeNumerically("~", 0, 3))
		Expect(a.Y).To(BeZero())
	})

	It("places a container that is larger than the object on every axis", func() {
		for i := 0; i < 20; i++ {
			setup, err := scene.Setup(context.Background(), Object)
			Expect(err).NotTo(HaveOccurred())
			Expect(setup.Pair.SmallExtents.LessThan(setup.Pair.LargeExtents)).To(BeTrue())
			Expect(setup.Tracked()).To(HaveLen(2))
			Expect(setup.Names).To(HaveKey("object"))
			Expect(setup.Names).To(HaveKey("container"))
		}
	})

	It("creates the container just above the ground without a balancer", func() {
		setup, err := scene.Setup(context.Background(), Transition)
		Expect(err).NotTo(HaveOccurred())

		add := setup.Commands[0].(engine.AddObject)
		Expect(add.ID).To(Equal(setup.Container))
		Expect(add.Position.Y).To(BeNumerically(">=", 0.1))
		Expect(add.Position.Y).To(BeNumerically("<=", 0.2))
		Expect(add.Rotation.X).To(BeNumerically("~", 0, 10))
	})

	It("adds a target for agent trials", func() {
		setup, err := scene.Setup(context.Background(), Agent)
		Expect(err).NotTo(HaveOccurred())

		Expect(setup.Target).NotTo(BeZero())
		Expect(setup.Tracked()).To(Equal([]int{setup.Container, setup.Object, setup.Target}))
		Expect(setup.Names).To(HaveKey("target"))
		Expect(engine.Count(setup.Commands, "add_object")).To(Equal(3))
		Expect(setup.ContactBounds()).To(BeNumerically(">", 0))

		for _, c := range setup.Commands {
			if add, ok := c.(engine.AddObject); ok && add.ID == setup.Target {
				dx := add.Position.X - scene.Anchor().X
				Expect(dx).To(Or(BeNumerically("~", 0.75, 0.25), BeNumerically("~", -0.75, 0.25)))
				Expect(add.Position.Y).To(BeNumerically("~", 0.15, 0.15))
			}
		}
	})

	It("shrinks core targets for the touch test but renders them at full size", func() {
		pools := lib.Pools
		pools.Targets = []string{"golf"}
		scene = NewScene(lib, pools, newRand(11), DefaultTuning())

		setup, err := scene.Setup(context.Background(), Agent)
		Expect(err).NotTo(HaveOccurred())
		Expect(setup.TargetRecord.Library).To(Equal(catalog.LibraryCore))
		Expect(setup.TargetScale).To(Equal(1.0))

		want := setup.Pair.SmallExtents.Max()/2 + 0.043*0.2/2
		Expect(setup.ContactBounds()).To(BeNumerically("~", want, 1e-9))

		for _, c := range setup.Commands {
			if sc, ok := c.(engine.ScaleObject); ok && sc.ID == setup.Target {
				Expect(sc.ScaleFactor.X).To(Equal(1.0))
			}
		}
	})

	It("ends every setup by enabling state streaming", func() {
		setup, err := scene.Setup(context.Background(), Object)
		Expect(err).NotTo(HaveOccurred())
		n := len(setup.Commands)
		Expect(engine.Names(setup.Commands[n-3:])).To(Equal([]string{"send_rigidbodies", "send_transforms", "send_static_rigidbodies"}))
	})

	It("never reuses ids", func() {
		seen := map[int]bool{}
		for i := 0; i < 10; i++ {
			setup, err := scene.Setup(context.Background(), Agent)
			Expect(err).NotTo(HaveOccurred())
			for _, id := range setup.Tracked() {
				Expect(seen).NotTo(HaveKey(id))
				seen[id] = true
			}
		}
	})

	It("freezes the balancer and lifts containers above it", func() {
		cmds, name, err := scene.AddBalancer()
		Expect(err).NotTo(HaveOccurred())
		Expect(lib.Pools.Balancers).To(ContainElement(name))
		Expect(engine.Names(cmds)).To(Equal([]string{"add_object", "scale_object", "set_rigidbody_constraints", "set_color"}))

		frozen := cmds[2].(engine.SetRigidbodyConstraints)
		Expect(frozen.FreezePositionAxes).To(Equal(engine.AllAxes))
		Expect(frozen.FreezeRotationAxes).To(Equal(engine.AllAxes))

		rec, err := lib.Record(name)
		Expect(err).NotTo(HaveOccurred())
		height := rec.Extents.Y * DefaultTuning().BalancerScale

		setup, err := scene.Setup(context.Background(), Object)
		Expect(err).NotTo(HaveOccurred())
		y := setup.Commands[0].(engine.AddObject).Position.Y
		Expect(y).To(BeNumerically(">=", height+0.1))
		Expect(y).To(BeNumerically("<=", height+0.2))

		_, _, err = scene.AddBalancer()
		Expect(err).To(HaveOccurred())
	})
})
