package trial

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

var ErrUnknownKind = errors.New("trial: unknown trial type")

type Kind string

const (
	Object     Kind = "object"
	Transition Kind = "transition"
	Agent      Kind = "agent"
)

var Kinds = []Kind{Object, Transition, Agent}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Tracked reports how many engine objects a trial of this kind creates,
// not counting the per-batch balancer.
func (k Kind) Tracked() int {
	if k == Agent {
		return 3
	}
	return 2
}

// Range is an inclusive integer interval.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

func (r Range) Draw(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

func (r Range) Valid() bool { return r.Min >= 0 && r.Min <= r.Max }

// Tuning holds the constants of the control loop.
type Tuning struct {
	Settle   Range `yaml:"settle" json:"settle"`
	Patience Range `yaml:"patience" json:"patience"`

	RestThreshold   float64 `yaml:"rest_threshold" json:"rest_threshold"`
	MaxMisses       int     `yaml:"max_misses" json:"max_misses"`
	ForceScale      float64 `yaml:"force_scale" json:"force_scale"`
	ForceRandomness float64 `yaml:"force_randomness" json:"force_randomness"`
	ForceOffset     float64 `yaml:"force_offset" json:"force_offset"`

	AgentSpeed   float64 `yaml:"agent_speed" json:"agent_speed"`
	AgentUpSpeed float64 `yaml:"agent_up_speed" json:"agent_up_speed"`
	UpStep       float64 `yaml:"up_step" json:"up_step"`
	SuccessGap   float64 `yaml:"success_gap" json:"success_gap"`

	TargetScale   float64 `yaml:"target_scale" json:"target_scale"`
	TargetMass    float64 `yaml:"target_mass" json:"target_mass"`
	BalancerScale float64 `yaml:"balancer_scale" json:"balancer_scale"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Settle:          Range{Min: 20, Max: 40},
		Patience:        Range{Min: 20, Max: 40},
		RestThreshold:   0.3,
		MaxMisses:       10,
		ForceScale:      0.25,
		ForceRandomness: 5,
		ForceOffset:     10,
		AgentSpeed:      0.06,
		AgentUpSpeed:    0.06,
		UpStep:          0.005,
		SuccessGap:      0.06,
		TargetScale:     0.2,
		TargetMass:      1,
		BalancerScale:   0.45,
	}
}

func (t Tuning) Validate() error {
	switch {
	case !t.Settle.Valid():
		return fmt.Errorf("invalid settle range %d..%d", t.Settle.Min, t.Settle.Max)
	case !t.Patience.Valid() || t.Patience.Min < 1:
		return fmt.Errorf("invalid patience range %d..%d", t.Patience.Min, t.Patience.Max)
	case t.RestThreshold <= 0:
		return fmt.Errorf("rest threshold must be positive")
	case t.MaxMisses < 0:
		return fmt.Errorf("max misses must not be negative")
	case t.AgentSpeed <= 0:
		return fmt.Errorf("agent speed must be positive")
	case t.UpStep < 0:
		return fmt.Errorf("up step must not be negative")
	}
	return nil
}

// NoActiveFrames is stored in place of an empty active frame list.
const NoActiveFrames = -1

type Result struct {
	Kind Kind `json:"kind"`

	// ActiveFrames holds transition frames for transition trials and
	// stepping frames for agent trials. Nil when there were none.
	ActiveFrames []int `json:"active_frames"`
	Success      bool  `json:"success"`

	// Frames counts the engine frames advanced by the control loop,
	// excluding the cleanup batch.
	Frames int `json:"frames"`

	// EarlyStop is set when monitoring gave up after too many misses.
	EarlyStop bool `json:"early_stop"`
	Forces    int  `json:"forces"`
}

// Active returns the active frames, or a single NoActiveFrames entry.
func (r Result) Active() []int {
	if len(r.ActiveFrames) == 0 {
		return []int{NoActiveFrames}
	}
	return r.ActiveFrames
}
