package trial

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/containment/internal/catalog"
	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/metrics"
)

// AvatarKind is the camera avatar type created for every batch.
const AvatarKind = "A_Img_Caps_Kinematic"

// RoomEmpty selects an empty environment instead of a named scene.
const RoomEmpty = "empty"

type Options struct {
	Kind      Kind
	Num       int
	TotFrames int
	Framerate int
	Room      string
	PassMasks []string
	PNG       bool

	ScreenWidth  int
	ScreenHeight int

	// AddObjectToScene adds the fixed balancer the containers rest on.
	AddObjectToScene bool

	Seed   int64
	Tuning Tuning
}

// TrialReport is everything known about a finished trial.
type TrialReport struct {
	Index    int
	Seed     int64
	Started  time.Time
	Duration time.Duration

	Setup   *Setup
	Result  *Result
	Metrics map[string]float64
	Samples []metrics.Snapshot

	// Set by packaging.
	Videos    []string
	FramesDir string
}

// Sink consumes finished trials, e.g. to package their frames and store them.
type Sink interface {
	Finish(ctx context.Context, r *TrialReport) error
}

type SinkFunc func(ctx context.Context, r *TrialReport) error

func (f SinkFunc) Finish(ctx context.Context, r *TrialReport) error { return f(ctx, r) }

// Progress is called after every trial with the number of finished trials.
type Progress func(done, total int, r *TrialReport)

// Runner runs a batch of trials over one engine connection.
type Runner struct {
	comm   engine.Communicator
	lib    catalog.Library
	pools  catalog.Pools
	parser engine.Parser
	opts   Options
	rng    *rand.Rand
	scene  *Scene
	log    zerolog.Logger

	sinks    []Sink
	progress Progress
	started  bool
}

func NewRunner(comm engine.Communicator, lib catalog.Library, pools catalog.Pools, parser engine.Parser, opts Options) (*Runner, error) {
	if opts.Num < 1 {
		return nil, fmt.Errorf("number of trials must be positive, got %d", opts.Num)
	}
	if opts.TotFrames < 1 {
		return nil, fmt.Errorf("total frames must be positive, got %d", opts.TotFrames)
	}
	if err := opts.Tuning.Validate(); err != nil {
		return nil, err
	}
	if opts.Room == "" {
		opts.Room = RoomEmpty
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	return &Runner{
		comm:   comm,
		lib:    lib,
		pools:  pools,
		parser: parser,
		opts:   opts,
		rng:    rng,
		scene:  NewScene(lib, pools, rng, opts.Tuning),
		log:    zerolog.Nop(),
	}, nil
}

func (r *Runner) SetLogger(l zerolog.Logger) { r.log = l }
func (r *Runner) AddSink(s Sink)             { r.sinks = append(r.sinks, s) }
func (r *Runner) OnProgress(p Progress)      { r.progress = p }
func (r *Runner) Scene() *Scene              { return r.scene }

// Start prepares the scene, camera and image capture. Run calls it on first
// use.
func (r *Runner) Start(ctx context.Context) error {
	if r.started {
		return nil
	}

	var cmds []engine.Command
	if r.opts.Room == RoomEmpty {
		cmds = append(cmds, engine.CreateEmptyEnvironment{})
	} else {
		cmds = append(cmds, engine.AddScene{Scene: r.opts.Room})
	}
	if r.opts.Framerate > 0 {
		cmds = append(cmds, engine.SetTargetFramerate{Framerate: r.opts.Framerate})
	}
	if r.opts.ScreenWidth > 0 && r.opts.ScreenHeight > 0 {
		cmds = append(cmds, engine.SetScreenSize{Width: r.opts.ScreenWidth, Height: r.opts.ScreenHeight})
	}

	pos, look := r.scene.Camera()
	cmds = append(cmds,
		engine.SetImgPassEncoding{PNG: r.opts.PNG},
		engine.CreateAvatar{Kind: AvatarKind, ID: CameraID},
		engine.TeleportAvatarTo{AvatarID: CameraID, Position: pos},
		engine.LookAtPosition{AvatarID: CameraID, Position: look},
		engine.SetPassMasks{AvatarID: CameraID, PassMasks: r.opts.PassMasks},
		engine.SendImages{Frequency: engine.Always},
	)

	if r.opts.AddObjectToScene {
		balancer, name, err := r.scene.AddBalancer()
		if err != nil {
			return fmt.Errorf("add balancer: %w", err)
		}
		cmds = append(cmds, balancer...)
		r.log.Debug().Str("balancer", name).Msg("balancer added")
	}

	if _, err := r.comm.Communicate(ctx, cmds); err != nil {
		return fmt.Errorf("initialise scene: %w", err)
	}
	r.started = true
	r.log.Info().Str("room", r.opts.Room).Strs("pass_masks", r.opts.PassMasks).Msg("scene ready")
	return nil
}

// Run executes the batch. It stops at the first failing trial or sink.
func (r *Runner) Run(ctx context.Context) ([]*TrialReport, error) {
	if err := r.Start(ctx); err != nil {
		return nil, err
	}

	reports := make([]*TrialReport, 0, r.opts.Num)
	for i := 0; i < r.opts.Num; i++ {
		rep, err := r.RunTrial(ctx, i)
		if err != nil {
			return reports, fmt.Errorf("trial %d: %w", i, err)
		}
		for _, s := range r.sinks {
			if err := s.Finish(ctx, rep); err != nil {
				return reports, fmt.Errorf("trial %d: %w", i, err)
			}
		}
		reports = append(reports, rep)
		if r.progress != nil {
			r.progress(i+1, r.opts.Num, rep)
		}
	}
	return reports, nil
}

// RunTrial sets up, runs and cleans up one trial.
func (r *Runner) RunTrial(ctx context.Context, index int) (*TrialReport, error) {
	rep := &TrialReport{Index: index, Seed: r.opts.Seed, Started: time.Now()}

	setup, err := r.scene.Setup(ctx, r.opts.Kind)
	if err != nil {
		return nil, err
	}
	rep.Setup = setup

	initial, err := r.comm.Communicate(ctx, setup.Commands)
	if err != nil {
		// The engine may have created some objects before failing.
		err = fmt.Errorf("create objects: %w", err)
		if cerr := cleanup(context.WithoutCancel(ctx), r.comm, setup); cerr != nil {
			err = errors.Join(err, fmt.Errorf("cleanup: %w", cerr))
		}
		return rep, err
	}

	set := metrics.Standard(setup.Envelope())
	ctrl := NewController(setup, r.opts.TotFrames, r.opts.Tuning, r.parser, r.rng)
	ctrl.SetLogger(r.log.With().Int("trial", index).Logger())
	ctrl.AddObserver(ObserverFunc(func(f Frame) {
		snap := metrics.Snapshot{
			Frame:          f.Index,
			Container:      r.parser.Sample(f.Response, setup.Container),
			Object:         r.parser.Sample(f.Response, setup.Object),
			ObjectSleeping: r.parser.Sleeping(f.Response, setup.Object),
		}
		set.Observe(snap)
		rep.Samples = append(rep.Samples, snap)
	}))

	res, err := ctrl.Run(ctx, r.comm, initial)
	rep.Result = res
	rep.Duration = time.Since(rep.Started)
	if err != nil {
		return rep, err
	}
	rep.Metrics = set.Values()

	r.log.Info().
		Int("trial", index).
		Str("type", string(res.Kind)).
		Interface("names", setup.Names).
		Ints("active_frames", res.Active()).
		Bool("success", res.Success).
		Msg("trial finished")
	return rep, nil
}

// Close removes the balancer and terminates the engine.
func (r *Runner) Close(ctx context.Context) error {
	var cmds []engine.Command
	if id := r.scene.BalancerID(); id != 0 {
		cmds = append(cmds, engine.DestroyObject{ID: id})
	}
	cmds = append(cmds, engine.Terminate{})
	if _, err := r.comm.Communicate(ctx, cmds); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}
	return nil
}
