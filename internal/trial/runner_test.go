package trial

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/engine/enginetest"
	"github.com/san-kum/containment/internal/geom"
)

var _ = Describe("Runner", func() {
	var (
		fake *enginetest.Fake
		opts Options
	)

	BeforeEach(func() {
		fake = &enginetest.Fake{}
		opts = Options{
			Kind:             Object,
			Num:              2,
			TotFrames:        5,
			Framerate:        30,
			PassMasks:        []string{"_img", "_mask"},
			AddObjectToScene: true,
			Seed:             7,
			Tuning:           DefaultTuning(),
		}
	})

	newRunner := func() *Runner {
		lib := mustCatalog()
		r, err := NewRunner(fake, lib, lib.Pools, engine.NewParser(geom.OrderXYZ), opts)
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	It("rejects empty batches", func() {
		opts.Num = 0
		lib := mustCatalog()
		_, err := NewRunner(fake, lib, lib.Pools, engine.NewParser(geom.OrderXYZ), opts)
		Expect(err).To(HaveOccurred())
	})

	It("prepares the scene once and runs every trial", func() {
		r := newRunner()

		var finished []int
		r.AddSink(SinkFunc(func(_ context.Context, rep *TrialReport) error {
			finished = append(finished, rep.Index)
			return nil
		}))
		var progress [][2]int
		r.OnProgress(func(done, total int, _ *TrialReport) { progress = append(progress, [2]int{done, total}) })

		reports, err := r.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(reports).To(HaveLen(2))
		Expect(finished).To(Equal([]int{0, 1}))
		Expect(progress).To(Equal([][2]int{{1, 2}, {2, 2}}))

		// start, then setup + frames + cleanup per trial
		Expect(fake.Batches()).To(HaveLen(1 + 2*(1+5+1)))

		start := engine.Names(fake.Batch(0))
		Expect(start[0]).To(Equal("create_empty_environment"))
		Expect(start).To(ContainElements("set_pass_masks", "create_avatar", "send_images", "set_rigidbody_constraints"))

		for _, rep := range reports {
			Expect(rep.Result.Frames).To(Equal(5))
			Expect(rep.Samples).To(HaveLen(5))
			Expect(rep.Metrics).To(HaveKey("travel"))
		}

		Expect(r.Close(context.Background())).To(Succeed())
		last := engine.Names(fake.Batch(len(fake.Batches()) - 1))
		Expect(last).To(Equal([]string{"destroy_object", "terminate"}))
	})

	It("cleans up when the setup batch fails", func() {
		opts.Kind = Agent
		// batch 0 prepares the scene, batch 1 creates the trial objects
		fake.Fail = map[int]error{1: errors.New("read timeout")}
		r := newRunner()
		Expect(r.Start(context.Background())).To(Succeed())

		rep, err := r.RunTrial(context.Background(), 0)
		Expect(err).To(MatchError(ContainSubstring("read timeout")))
		Expect(fake.Batches()).To(HaveLen(3))

		var destroyed []int
		for _, c := range fake.Batch(2) {
			if d, ok := c.(engine.DestroyObject); ok {
				destroyed = append(destroyed, d.ID)
			}
		}
		Expect(destroyed).To(Equal(rep.Setup.Tracked()))
		Expect(engine.Names(fake.Batch(2))).To(HaveLen(4))
		Expect(fake.Batch(2)[3]).To(Equal(engine.SendRigidbodies{Frequency: engine.Never}))
	})

	It("loads a named scene instead of an empty room", func() {
		opts.Room = "tdw_room"
		opts.AddObjectToScene = false
		r := newRunner()
		Expect(r.Start(context.Background())).To(Succeed())
		Expect(r.Start(context.Background())).To(Succeed())

		Expect(fake.Batches()).To(HaveLen(1))
		Expect(fake.Batch(0)[0]).To(Equal(engine.AddScene{Scene: "tdw_room"}))
		Expect(fake.Count("add_object")).To(BeZero())

		Expect(r.Close(context.Background())).To(Succeed())
		Expect(engine.Names(fake.Batch(1))).To(Equal([]string{"terminate"}))
	})

	It("never reuses object ids across trials", func() {
		opts.Num = 4
		opts.Kind = Agent
		r := newRunner()
		_, err := r.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		seen := map[int]bool{}
		for _, c := range fake.Of("add_object") {
			id := c.(engine.AddObject).ID
			Expect(seen).NotTo(HaveKey(id))
			seen[id] = true
		}
		Expect(seen).To(HaveLen(1 + 4*3))
		Expect(fake.Count("destroy_object")).To(Equal(4 * 3))
	})
})
