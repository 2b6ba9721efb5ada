package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/san-kum/containment/internal/geom"
)

var (
	// ErrClosed is returned by a client whose connection has been closed.
	ErrClosed = errors.New("engine: connection closed")

	// ErrBadResponse indicates a reply that is not a response envelope.
	ErrBadResponse = errors.New("engine: malformed response")
)

// Record type tags.
const (
	TagTransforms        = "tran"
	TagRigidbodies       = "rigi"
	TagStaticRigidbodies = "srig"
	TagImages            = "imag"
)

// Record is one tagged entry of a response.
type Record interface {
	Tag() string
}

type TransformEntry struct {
	ID       int       `json:"id"`
	Position geom.Vec3 `json:"position"`
	Rotation geom.Quat `json:"rotation"`
	Forward  geom.Vec3 `json:"forward"`
}

type Transforms struct {
	Objects []TransformEntry `json:"objects"`
}

type RigidbodyEntry struct {
	ID              int       `json:"id"`
	Velocity        geom.Vec3 `json:"velocity"`
	AngularVelocity geom.Vec3 `json:"angular_velocity"`
	Sleeping        bool      `json:"sleeping"`
}

type Rigidbodies struct {
	Objects []RigidbodyEntry `json:"objects"`
}

type StaticRigidbodyEntry struct {
	ID              int     `json:"id"`
	Mass            float64 `json:"mass"`
	StaticFriction  float64 `json:"static_friction"`
	DynamicFriction float64 `json:"dynamic_friction"`
	Bounciness      float64 `json:"bounciness"`
}

type StaticRigidbodies struct {
	Objects []StaticRigidbodyEntry `json:"objects"`
}

// ImagePass holds one rendered pass; Data is the encoded file content.
type ImagePass struct {
	Pass     string `json:"pass"`
	Encoding string `json:"encoding"`
	Data     []byte `json:"data"`
}

type Images struct {
	AvatarID string      `json:"avatar_id"`
	Passes   []ImagePass `json:"passes"`
}

// Unknown keeps records this package does not decode.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (Transforms) Tag() string        { return TagTransforms }
func (Rigidbodies) Tag() string       { return TagRigidbodies }
func (StaticRigidbodies) Tag() string { return TagStaticRigidbodies }
func (Images) Tag() string            { return TagImages }
func (u Unknown) Tag() string         { return u.Type }

// Response is the reply to one command batch.
type Response struct {
	Frame   int
	Records []Record
}

// Empty reports whether the response carries no records. A nil response is
// empty.
func (r *Response) Empty() bool {
	return r == nil || len(r.Records) == 0
}

// Tags lists the record tags in order.
func (r *Response) Tags() []string {
	if r == nil {
		return nil
	}
	tags := make([]string, len(r.Records))
	for i, rec := range r.Records {
		tags[i] = rec.Tag()
	}
	return tags
}

type envelope struct {
	Frame int               `json:"frame"`
	Data  []json.RawMessage `json:"data"`
}

type tagged struct {
	Type string `json:"$type"`
}

func (r *Response) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	r.Frame = env.Frame
	r.Records = make([]Record, 0, len(env.Data))
	for i, raw := range env.Data {
		rec, err := decodeRecord(raw)
		if err != nil {
			return fmt.Errorf("%w: record %d: %v", ErrBadResponse, i, err)
		}
		r.Records = append(r.Records, rec)
	}
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	env := envelope{Frame: r.Frame, Data: make([]json.RawMessage, 0, len(r.Records))}
	for _, rec := range r.Records {
		var (
			b   []byte
			err error
		)
		if u, ok := rec.(Unknown); ok {
			b = u.Raw
		} else {
			b, err = marshalTagged(rec.Tag(), rec)
			if err != nil {
				return nil, err
			}
		}
		env.Data = append(env.Data, b)
	}
	return json.Marshal(env)
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var t tagged
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}

	switch t.Type {
	case TagTransforms:
		var v Transforms
		err := json.Unmarshal(raw, &v)
		return v, err
	case TagRigidbodies:
		var v Rigidbodies
		err := json.Unmarshal(raw, &v)
		return v, err
	case TagStaticRigidbodies:
		var v StaticRigidbodies
		err := json.Unmarshal(raw, &v)
		return v, err
	case TagImages:
		var v Images
		err := json.Unmarshal(raw, &v)
		return v, err
	}
	return Unknown{Type: t.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
}

func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["$type"], _ = json.Marshal(tag)
	return json.Marshal(fields)
}
