package engine

import (
	"math"

	"github.com/san-kum/containment/internal/geom"
)

// Sample is the decoded state of one object at one frame.
type Sample struct {
	// Rotation is in degrees, components in x, y, z axis order.
	Rotation geom.Vec3
	Position geom.Vec3
	Mass     float64

	// HasTransform is false when the object had no transform record.
	HasTransform bool
	HasMass      bool
}

// Parser decodes per-object samples from responses.
type Parser struct {
	Order geom.EulerOrder
}

func NewParser(order geom.EulerOrder) Parser {
	return Parser{Order: order}
}

// Sample extracts transform and mass data for id. Ids absent from the response
// leave the corresponding presence flag false.
func (p Parser) Sample(resp *Response, id int) Sample {
	var s Sample
	if resp == nil {
		return s
	}

	for _, rec := range resp.Records {
		switch v := rec.(type) {
		case Transforms:
			for _, o := range v.Objects {
				if o.ID != id {
					continue
				}
				s.Position = o.Position
				s.Rotation = geom.EulerDegrees(o.Rotation, p.Order)
				s.HasTransform = true
			}
		case StaticRigidbodies:
			for _, o := range v.Objects {
				if o.ID != id {
					continue
				}
				s.Mass = o.Mass
				s.HasMass = true
			}
		}
	}
	return s
}

// Sleeping reports the rest flag of id, false when the id is missing.
func (p Parser) Sleeping(resp *Response, id int) bool {
	if resp == nil {
		return false
	}
	sleeping := false
	for _, rec := range resp.Records {
		rb, ok := rec.(Rigidbodies)
		if !ok {
			continue
		}
		for _, o := range rb.Objects {
			if o.ID == id {
				sleeping = o.Sleeping
			}
		}
	}
	return sleeping
}

// Distance returns the distance between two objects. It is +Inf when the
// response is empty or either object has no transform.
func (p Parser) Distance(resp *Response, a, b int) float64 {
	if resp.Empty() {
		return math.Inf(1)
	}
	sa, sb := p.Sample(resp, a), p.Sample(resp, b)
	if !sa.HasTransform || !sb.HasTransform {
		return math.Inf(1)
	}
	return sa.Position.Distance(sb.Position)
}
