package prefixgrid

import (
	"fmt"

	"geohash-prefix-grid/geohash"
	"geohash-prefix-grid/shape"

	"github.com/paulmach/orb"
)

// GeohashGrid is a Grid whose tokens are geohashes.
type GeohashGrid struct {
	ctx       *shape.Context
	codec     geohash.Codec
	maxLevels int
}

type GeohashOption func(*GeohashGrid)

// WithCodec replaces the geohash codec.
func WithCodec(codec geohash.Codec) GeohashOption {
	return func(g *GeohashGrid) {
		g.codec = codec
	}
}

// NewGeohashGrid builds a grid with tokens up to maxLevels symbols. A nil ctx
// means shape.Geo().
func NewGeohashGrid(ctx *shape.Context, maxLevels int, opts ...GeohashOption) (*GeohashGrid, error) {
	if ctx == nil {
		ctx = shape.Geo()
	}
	g := &GeohashGrid{ctx: ctx, codec: geohash.Std{}, maxLevels: maxLevels}
	for _, opt := range opts {
		opt(g)
	}
	if err := checkMaxLevels(maxLevels, g.codec.MaxPrecision()); err != nil {
		return nil, err
	}
	return g, nil
}

// MustNewGeohashGrid is like NewGeohashGrid but panics on a bad maxLevels.
func MustNewGeohashGrid(ctx *shape.Context, maxLevels int, opts ...GeohashOption) *GeohashGrid {
	g, err := NewGeohashGrid(ctx, maxLevels, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *GeohashGrid) Type() GridType          { return GeohashGridType }
func (g *GeohashGrid) MaxLevels() int          { return g.maxLevels }
func (g *GeohashGrid) Context() *shape.Context { return g.ctx }

func (g *GeohashGrid) LevelForDistance(dist float64) int {
	level := g.codec.LevelForWidthHeight(dist, dist)
	return max(min(level, g.maxLevels), 1)
}

func (g *GeohashGrid) CellSize(level int) (width, height float64) {
	return g.codec.CellSize(level)
}

func (g *GeohashGrid) CellForPoint(p orb.Point, level int) Cell {
	// the codec takes lat, lon
	return g.newCell(g.codec.Encode(p.Lat(), p.Lon(), level))
}

func (g *GeohashGrid) CellForToken(token string) Cell {
	return g.newCell(token)
}

func (g *GeohashGrid) Validate(token string) error {
	if token == "" || len(token) > g.maxLevels {
		return fmt.Errorf("%w %q: length must be [1-%d]", ErrInvalidToken, token, g.maxLevels)
	}
	if err := geohash.Validate(token); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

func (g *GeohashGrid) PointForToken(token string) (orb.Point, bool) {
	if len(token) < g.maxLevels {
		return orb.Point{}, false
	}
	lat, lon := g.codec.Decode(token)
	return g.ctx.Point(lon, lat), true
}

func (g *GeohashGrid) WorldCell() Cell {
	return g.newCell("")
}

func (g *GeohashGrid) CellsFor(s shape.Shape, detailLevel int, inclParents bool) ([]Cell, error) {
	if p, ok := s.(shape.Point); ok {
		return PointCells(g, p.Point, detailLevel, inclParents)
	}
	return Walk(g, s, detailLevel, inclParents)
}

func (g *GeohashGrid) newCell(token string) *GeohashCell {
	return &GeohashCell{grid: g, token: token}
}

// GeohashCell is a cell of a GeohashGrid.
type GeohashCell struct {
	grid  *GeohashGrid
	token string
	shape lazyBound
}

func (c *GeohashCell) Token() string { return c.token }
func (c *GeohashCell) Level() int    { return len(c.token) }

// SubCells returns the 32 children in ascending token order. It panics on a
// cell already at the grid's max level.
func (c *GeohashCell) SubCells() []Cell {
	if len(c.token) >= c.grid.maxLevels {
		panic(fmt.Errorf("geohash %q is already at max level %d", c.token, c.grid.maxLevels))
	}
	hashes := c.grid.codec.SubHashes(c.token)
	cells := make([]Cell, 0, len(hashes))
	for _, hash := range hashes {
		cells = append(cells, c.grid.newCell(hash))
	}
	return cells
}

// SubCellFanout is 8 longitude divisions by 4 latitude divisions (or the
// reverse on even levels).
func (c *GeohashCell) SubCellFanout() int {
	return geohash.Fanout
}

// ChildContaining finds the child holding p among the enumerated children.
// If p lies outside this cell it falls back to encoding p one level down.
func (c *GeohashCell) ChildContaining(p orb.Point) Cell {
	if sub := childContaining(c, p); sub != nil {
		return sub
	}
	return c.grid.CellForPoint(p, c.Level()+1)
}

// Shape decodes the token's rectangle once per cell.
func (c *GeohashCell) Shape() orb.Bound {
	return c.shape.get(func() orb.Bound {
		box := c.grid.codec.BoundingBox(c.token)
		return c.grid.ctx.Rect(box.MinLng, box.MaxLng, box.MinLat, box.MaxLat)
	})
}

// Neighbors returns the adjacent cells at the same level.
func (c *GeohashCell) Neighbors() []Cell {
	hashes := c.grid.codec.Neighbors(c.token)
	cells := make([]Cell, 0, len(hashes))
	for _, hash := range hashes {
		cells = append(cells, c.grid.newCell(hash))
	}
	return cells
}

func (c *GeohashCell) String() string {
	return c.token
}
