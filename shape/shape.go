package shape

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// Shape is anything a grid cell's rectangle can be tested against.
type Shape interface {
	Bound() orb.Bound
	// Intersects reports whether the shape touches b. Touching edges count.
	Intersects(b orb.Bound) bool
}

// Point is a single location.
type Point struct {
	orb.Point
}

func NewPoint(lon, lat float64) Point {
	return Point{orb.Point{lon, lat}}
}

func (p Point) Intersects(b orb.Bound) bool {
	return b.Contains(p.Point)
}

// Rect is an axis aligned rectangle.
type Rect struct {
	Box orb.Bound
}

func (r Rect) Bound() orb.Bound { return r.Box }

func (r Rect) Intersects(b orb.Bound) bool {
	return r.Box.Intersects(b)
}

// Circle is a planar circle with its radius in degrees.
type Circle struct {
	Center orb.Point
	Radius float64
}

func (c Circle) Bound() orb.Bound {
	return c.Center.Bound().Pad(c.Radius)
}

// Intersects checks if the circle reaches the rectangle by clamping the centre
// onto it.
func (c Circle) Intersects(b orb.Bound) bool {
	closestX := math.Max(b.Min.X(), math.Min(c.Center.X(), b.Max.X()))
	closestY := math.Max(b.Min.Y(), math.Min(c.Center.Y(), b.Max.Y()))
	dx := closestX - c.Center.X()
	dy := closestY - c.Center.Y()
	return (dx*dx + dy*dy) <= (c.Radius * c.Radius)
}

// Polygon is a planar polygon; rings after the first are holes.
type Polygon struct {
	Rings orb.Polygon
}

func (p Polygon) Bound() orb.Bound {
	return p.Rings.Bound()
}

func (p Polygon) Intersects(b orb.Bound) bool {
	if !p.Rings.Bound().Intersects(b) {
		return false
	}
	for _, ring := range p.Rings {
		for _, v := range ring {
			if b.Contains(v) {
				return true
			}
		}
	}
	corners := [4]orb.Point{b.Min, {b.Max.X(), b.Min.Y()}, b.Max, {b.Min.X(), b.Max.Y()}}
	for _, c := range corners {
		if planar.PolygonContains(p.Rings, c) {
			return true
		}
	}
	for _, ring := range p.Rings {
		for i := 0; i+1 < len(ring); i++ {
			for j := range corners {
				if segmentsIntersect(ring[i], ring[i+1], corners[j], corners[(j+1)%4]) {
					return true
				}
			}
		}
	}
	return false
}

func orientation(a, b, c orb.Point) float64 {
	return (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a.X(), b.X()) <= p.X() && p.X() <= math.Max(a.X(), b.X()) &&
		math.Min(a.Y(), b.Y()) <= p.Y() && p.Y() <= math.Max(a.Y(), b.Y())
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

// FromGeometry converts an orb geometry into a Shape.
func FromGeometry(g orb.Geometry) (Shape, error) {
	switch v := g.(type) {
	case orb.Point:
		return Point{v}, nil
	case orb.Bound:
		return Rect{Box: v}, nil
	case orb.Ring:
		if len(v) < 3 {
			return nil, fmt.Errorf("%w: ring with %d points", ErrUnsupportedGeometry, len(v))
		}
		return Polygon{Rings: orb.Polygon{v}}, nil
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) < 3 {
			return nil, fmt.Errorf("%w: empty polygon", ErrUnsupportedGeometry)
		}
		return Polygon{Rings: v}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedGeometry)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

// FromGeoJSON parses a GeoJSON geometry object into a Shape.
func FromGeoJSON(data []byte) (Shape, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return FromGeometry(g.Geometry())
}
