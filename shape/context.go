// Package shape holds the coordinate context and the query shapes grids are
// matched against. Coordinates are orb values: X is longitude, Y is latitude.
package shape

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

var ErrOutOfBounds = errors.New("coordinate out of world bounds")

// Context constructs points and rectangles within a fixed world.
type Context struct {
	WorldBounds orb.Bound
}

// Geo returns the context for WGS84 degrees.
func Geo() *Context {
	return &Context{
		WorldBounds: orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}},
	}
}

// Point builds a point without bounds checking. Grids use it when decoding
// tokens, which always yield in-world coordinates.
func (c *Context) Point(lon, lat float64) orb.Point {
	return orb.Point{lon, lat}
}

// Rect builds a rectangle without bounds checking.
func (c *Context) Rect(minLon, maxLon, minLat, maxLat float64) orb.Bound {
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

// MakePoint builds a point, rejecting coordinates outside the world.
func (c *Context) MakePoint(lon, lat float64) (orb.Point, error) {
	p := c.Point(lon, lat)
	if !c.WorldBounds.Contains(p) {
		return orb.Point{}, fmt.Errorf("%w: lon=%g lat=%g", ErrOutOfBounds, lon, lat)
	}
	return p, nil
}

// MakeRect builds a rectangle, rejecting inverted or out-of-world corners.
func (c *Context) MakeRect(minLon, maxLon, minLat, maxLat float64) (orb.Bound, error) {
	if minLon > maxLon || minLat > maxLat {
		return orb.Bound{}, fmt.Errorf("%w: inverted rectangle [%g,%g]x[%g,%g]", ErrOutOfBounds, minLon, maxLon, minLat, maxLat)
	}
	if _, err := c.MakePoint(minLon, minLat); err != nil {
		return orb.Bound{}, err
	}
	if _, err := c.MakePoint(maxLon, maxLat); err != nil {
		return orb.Bound{}, err
	}
	return c.Rect(minLon, maxLon, minLat, maxLat), nil
}
