package engine

import (
	"encoding/json"
	"fmt"

	"github.com/san-kum/containment/internal/geom"
)

// Command is one engine instruction. Name is serialised as the "$type" tag.
type Command interface {
	Name() string
}

// Frequency values accepted by the send_* streaming commands.
const (
	Always = "always"
	Once   = "once"
	Never  = "never"
)

type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type Axes struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

var AllAxes = Axes{X: 1, Y: 1, Z: 1}

type AddObject struct {
	ID       int       `json:"id"`
	Model    string    `json:"name"`
	Library  string    `json:"library"`
	Position geom.Vec3 `json:"position"`
	Rotation geom.Vec3 `json:"rotation"`
}

type ScaleObject struct {
	ID          int       `json:"id"`
	ScaleFactor geom.Vec3 `json:"scale_factor"`
}

type SetMass struct {
	ID   int     `json:"id"`
	Mass float64 `json:"mass"`
}

type ApplyForceAtPosition struct {
	ID       int       `json:"id"`
	Force    geom.Vec3 `json:"force"`
	Position geom.Vec3 `json:"position"`
}

type TeleportObjectBy struct {
	ID       int       `json:"id"`
	Position geom.Vec3 `json:"position"`
	Absolute bool      `json:"absolute"`
}

type ObjectLookAt struct {
	ID            int `json:"id"`
	OtherObjectID int `json:"other_object_id"`
}

type DestroyObject struct {
	ID int `json:"id"`
}

type SendRigidbodies struct {
	Frequency string `json:"frequency"`
}

type SendTransforms struct {
	Frequency string `json:"frequency"`
}

type SendStaticRigidbodies struct {
	Frequency string `json:"frequency"`
}

type SetRigidbodyConstraints struct {
	ID                 int  `json:"id"`
	FreezePositionAxes Axes `json:"freeze_position_axes"`
	FreezeRotationAxes Axes `json:"freeze_rotation_axes"`
}

type SetColor struct {
	ID    int   `json:"id"`
	Color Color `json:"color"`
}

type CreateEmptyEnvironment struct{}

type AddScene struct {
	Scene string `json:"name"`
}

type SetScreenSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type SetTargetFramerate struct {
	Framerate int `json:"framerate"`
}

type SetImgPassEncoding struct {
	PNG bool `json:"value"`
}

type CreateAvatar struct {
	Kind string `json:"type"`
	ID   string `json:"id"`
}

type TeleportAvatarTo struct {
	AvatarID string    `json:"avatar_id"`
	Position geom.Vec3 `json:"position"`
}

type LookAtPosition struct {
	AvatarID string    `json:"avatar_id"`
	Position geom.Vec3 `json:"position"`
}

type SetPassMasks struct {
	AvatarID  string   `json:"avatar_id"`
	PassMasks []string `json:"pass_masks"`
}

type SendImages struct {
	Frequency string `json:"frequency"`
}

type Terminate struct{}

func (AddObject) Name() string               { return "add_object" }
func (ScaleObject) Name() string             { return "scale_object" }
func (SetMass) Name() string                 { return "set_mass" }
func (ApplyForceAtPosition) Name() string    { return "apply_force_at_position" }
func (TeleportObjectBy) Name() string        { return "teleport_object_by" }
func (ObjectLookAt) Name() string            { return "object_look_at" }
func (DestroyObject) Name() string           { return "destroy_object" }
func (SendRigidbodies) Name() string         { return "send_rigidbodies" }
func (SendTransforms) Name() string          { return "send_transforms" }
func (SendStaticRigidbodies) Name() string   { return "send_static_rigidbodies" }
func (SetRigidbodyConstraints) Name() string { return "set_rigidbody_constraints" }
func (SetColor) Name() string                { return "set_color" }
func (CreateEmptyEnvironment) Name() string  { return "create_empty_environment" }
func (AddScene) Name() string                { return "add_scene" }
func (SetScreenSize) Name() string           { return "set_screen_size" }
func (SetTargetFramerate) Name() string      { return "set_target_framerate" }
func (SetImgPassEncoding) Name() string      { return "set_img_pass_encoding" }
func (CreateAvatar) Name() string            { return "create_avatar" }
func (TeleportAvatarTo) Name() string        { return "teleport_avatar_to" }
func (LookAtPosition) Name() string          { return "look_at_position" }
func (SetPassMasks) Name() string            { return "set_pass_masks" }
func (SendImages) Name() string              { return "send_images" }
func (Terminate) Name() string               { return "terminate" }

// PhysicsObject describes an object to create together with its physical
// setup. Zero Scale means unit scale; zero Mass keeps the engine default.
type PhysicsObject struct {
	ID       int
	Model    string
	Library  string
	Position geom.Vec3
	Rotation geom.Vec3
	Scale    geom.Vec3
	Mass     float64
}

// AddPhysicsObject expands an object into the add/scale/mass commands.
func AddPhysicsObject(o PhysicsObject) []Command {
	cmds := []Command{AddObject{
		ID:       o.ID,
		Model:    o.Model,
		Library:  o.Library,
		Position: o.Position,
		Rotation: o.Rotation,
	}}
	if o.Scale != geom.Zero {
		cmds = append(cmds, ScaleObject{ID: o.ID, ScaleFactor: o.Scale})
	}
	if o.Mass > 0 {
		cmds = append(cmds, SetMass{ID: o.ID, Mass: o.Mass})
	}
	return cmds
}

// Uniform returns a scale vector with s on every axis.
func Uniform(s float64) geom.Vec3 { return geom.V(s, s, s) }

// MarshalCommand encodes c as a JSON object carrying the "$type" tag.
func MarshalCommand(c Command) ([]byte, error) {
	b, err := marshalTagged(c.Name(), c)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Name(), err)
	}
	return b, nil
}

// MarshalBatch encodes a full request envelope.
func MarshalBatch(cmds []Command) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(cmds))
	for _, c := range cmds {
		b, err := MarshalCommand(c)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(struct {
		Commands []json.RawMessage `json:"commands"`
	}{Commands: raw})
}

// Names lists the "$type" of each command in order.
func Names(cmds []Command) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name()
	}
	return names
}

// Count returns how many commands in cmds have the given name.
func Count(cmds []Command, name string) int {
	n := 0
	for _, c := range cmds {
		if c.Name() == name {
			n++
		}
	}
	return n
}
