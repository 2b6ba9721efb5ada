package trial

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/san-kum/containment/internal/catalog"
	"github.com/san-kum/containment/internal/engine"
	"github.com/san-kum/containment/internal/geom"
)

type Phase int

const (
	Settling Phase = iota
	Monitoring
	Stepping
	Passive
)

func (p Phase) String() string {
	switch p {
	case Settling:
		return "settling"
	case Monitoring:
		return "monitoring"
	case Stepping:
		return "stepping"
	case Passive:
		return "passive"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Frame is one control loop round trip.
type Frame struct {
	Index    int
	Phase    Phase
	Commands []engine.Command
	Response *engine.Response
}

type Observer interface {
	OnFrame(f Frame)
}

type ObserverFunc func(Frame)

func (f ObserverFunc) OnFrame(fr Frame) { f(fr) }

// Controller drives one trial from its first frame to cleanup.
type Controller struct {
	setup     *Setup
	totFrames int
	tuning    Tuning
	parser    engine.Parser
	rng       *rand.Rand
	log       zerolog.Logger
	observers []Observer

	frames int
}

func NewController(setup *Setup, totFrames int, tuning Tuning, parser engine.Parser, rng *rand.Rand) *Controller {
	return &Controller{
		setup:     setup,
		totFrames: totFrames,
		tuning:    tuning,
		parser:    parser,
		rng:       rng,
		log:       zerolog.Nop(),
	}
}

func (c *Controller) AddObserver(o Observer) { c.observers = append(c.observers, o) }

func (c *Controller) SetLogger(l zerolog.Logger) { c.log = l }

// Run advances the engine for the trial and always finishes with the cleanup
// batch, also when a round trip fails. initial is the response to the setup
// batch; nil is treated as empty.
func (c *Controller) Run(ctx context.Context, comm engine.Communicator, initial *engine.Response) (*Result, error) {
	c.frames = 0
	res := &Result{Kind: c.setup.Kind, Success: true}

	resp := initial
	if resp == nil {
		resp = &engine.Response{}
	}

	var err error
	switch c.setup.Kind {
	case Transition:
		resp, err = c.monitor(ctx, comm, resp, res)
		if err == nil {
			_, err = c.settle(ctx, comm, resp, c.tuning.Settle.Draw(c.rng))
		}
	case Agent:
		err = c.step(ctx, comm, resp, res)
	default:
		for i := 0; i < c.totFrames && err == nil; i++ {
			_, err = c.advance(ctx, comm, Passive, nil)
		}
	}
	res.Frames = c.frames

	cleanupErr := c.cleanup(context.WithoutCancel(ctx), comm)
	if err != nil {
		return res, err
	}
	if cleanupErr != nil {
		return res, fmt.Errorf("cleanup: %w", cleanupErr)
	}
	return res, nil
}

// monitor watches the container and pushes the object each time the
// container has been still for a full window with the object inside it.
func (c *Controller) monitor(ctx context.Context, comm engine.Communicator, resp *engine.Response, res *Result) (*engine.Response, error) {
	patience := c.tuning.Patience.Draw(c.rng)
	rot, pos := NewWindow(patience), NewWindow(patience)
	misses := 0

	for i := 0; i < c.totFrames; i++ {
		var cmds []engine.Command

		if i > 0 {
			container := c.parser.Sample(resp, c.setup.Container)
			if container.HasTransform {
				rot.Push(container.Rotation)
				pos.Push(container.Position)
			}

			if rot.Full() {
				if rot.Still(c.tuning.RestThreshold) && pos.Still(c.tuning.RestThreshold) {
					if c.contained(resp, container.Position) {
						res.ActiveFrames = append(res.ActiveFrames, i+1)
						res.Forces++
						cmds = c.push()

						patience = c.tuning.Patience.Draw(c.rng)
						rot.Reset(patience)
						pos.Reset(patience)
						misses = 0
						c.log.Debug().Int("frame", i+1).Int("patience", patience).Msg("transition")
					} else {
						misses++
						if misses > c.tuning.MaxMisses {
							res.EarlyStop = true
							c.log.Debug().Int("frame", i).Int("misses", misses).Msg("object left the container")
							return resp, nil
						}
					}
				}
				rot.EvictOldest()
				pos.EvictOldest()
			}
		}

		var err error
		resp, err = c.advance(ctx, comm, Monitoring, cmds)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// contained compares the object's offset from the container on each axis
// with the container's extents.
func (c *Controller) contained(resp *engine.Response, containerPos geom.Vec3) bool {
	obj := c.parser.Sample(resp, c.setup.Object)
	if !obj.HasTransform {
		return false
	}
	return containerPos.Sub(obj.Position).Abs().LessThan(c.setup.Envelope())
}

// push builds a horizontal force on the object applied at a random offset.
func (c *Controller) push() []engine.Command {
	f := catalog.Magnitude(c.rng, c.setup.Pair.Small, c.tuning.ForceRandomness) * c.tuning.ForceScale
	off := c.tuning.ForceOffset
	at := geom.V(off*(2*c.rng.Float64()-1), 0, off*(2*c.rng.Float64()-1))
	return []engine.Command{engine.ApplyForceAtPosition{
		ID:       c.setup.Object,
		Force:    geom.V(f, 0, f),
		Position: at,
	}}
}

// step lets the scene settle, then walks the agent towards the target until
// it touches, holding still afterwards.
func (c *Controller) step(ctx context.Context, comm engine.Communicator, resp *engine.Response, res *Result) error {
	res.Success = false
	settle := c.tuning.Settle.Draw(c.rng)
	bounds := c.setup.ContactBounds()
	up := c.tuning.AgentUpSpeed
	success := false
	agent, target := c.setup.Object, c.setup.Target

	for i := 0; i < c.totFrames; i++ {
		var err error
		if i < settle {
			if resp, err = c.advance(ctx, comm, Settling, nil); err != nil {
				return err
			}
			continue
		}

		up = math.Max(0, up-c.tuning.UpStep)

		if success || c.parser.Distance(resp, agent, target)-bounds < c.tuning.SuccessGap {
			if !success {
				c.log.Debug().Int("frame", i).Msg("agent reached target")
			}
			success = true
			if resp, err = c.advance(ctx, comm, Stepping, nil); err != nil {
				return err
			}
			continue
		}

		cmds := []engine.Command{
			engine.TeleportObjectBy{ID: agent, Position: geom.V(0, up, 0), Absolute: true},
			engine.TeleportObjectBy{ID: agent, Position: geom.V(0, 0, c.tuning.AgentSpeed)},
			engine.ObjectLookAt{ID: agent, OtherObjectID: target},
		}
		if resp, err = c.advance(ctx, comm, Stepping, cmds); err != nil {
			return err
		}
		res.ActiveFrames = append(res.ActiveFrames, i)
	}
	res.Success = success
	return nil
}

func (c *Controller) settle(ctx context.Context, comm engine.Communicator, resp *engine.Response, frames int) (*engine.Response, error) {
	if frames > c.totFrames {
		frames = c.totFrames
	}
	for i := 0; i < frames; i++ {
		var err error
		if resp, err = c.advance(ctx, comm, Settling, nil); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *Controller) cleanup(ctx context.Context, comm engine.Communicator) error {
	return cleanup(ctx, comm, c.setup)
}

// cleanup destroys every tracked object and stops rigidbody streaming.
func cleanup(ctx context.Context, comm engine.Communicator, setup *Setup) error {
	ids := setup.Tracked()
	cmds := make([]engine.Command, 0, len(ids)+1)
	for _, id := range ids {
		cmds = append(cmds, engine.DestroyObject{ID: id})
	}
	cmds = append(cmds, engine.SendRigidbodies{Frequency: engine.Never})
	_, err := comm.Communicate(ctx, cmds)
	return err
}

func (c *Controller) advance(ctx context.Context, comm engine.Communicator, phase Phase, cmds []engine.Command) (*engine.Response, error) {
	resp, err := comm.Communicate(ctx, cmds)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", c.frames, err)
	}
	if resp == nil {
		resp = &engine.Response{}
	}
	f := Frame{Index: c.frames, Phase: phase, Commands: cmds, Response: resp}
	c.frames++
	for _, o := range c.observers {
		o.OnFrame(f)
	}
	return resp, nil
}
