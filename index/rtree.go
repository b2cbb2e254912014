package index

import (
	"geohash-prefix-grid/shape"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// The R-tree treats touching rectangles as disjoint, so every bound is grown
// by this much before it goes in or is searched for.
const boundPadding = 1e-9

// entry is an indexed document; it satisfies rtreego.Spatial.
type entry struct {
	id     string
	shape  shape.Shape
	tokens []string
	rect   rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

func toRect(b orb.Bound) rtreego.Rect {
	b = b.Pad(boundPadding)
	// NewRectFromPoints only fails on mismatched dimensions
	r, _ := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X(), b.Min.Y()},
		rtreego.Point{b.Max.X(), b.Max.Y()},
	)
	return r
}

func newTree() *rtreego.Rtree {
	return rtreego.NewTree(2, 25, 50)
}
