package prefixgrid

import (
	"fmt"

	"geohash-prefix-grid/shape"

	"github.com/paulmach/orb"
)

// QuadMaxLevels is the deepest quad grid; below this float64 halving stops
// producing distinct cells.
const QuadMaxLevels = 50

// Quadrant symbols in ascending order: lower-left, lower-right, upper-left,
// upper-right.
const quadSymbols = "ABCD"

// QuadGrid splits the world bounds in half along both axes per level.
type QuadGrid struct {
	ctx       *shape.Context
	maxLevels int
	levelW    []float64
	levelH    []float64
}

// NewQuadGrid builds a quad grid over ctx.WorldBounds. A nil ctx means
// shape.Geo().
func NewQuadGrid(ctx *shape.Context, maxLevels int) (*QuadGrid, error) {
	if ctx == nil {
		ctx = shape.Geo()
	}
	if err := checkMaxLevels(maxLevels, QuadMaxLevels); err != nil {
		return nil, err
	}
	g := &QuadGrid{
		ctx:       ctx,
		maxLevels: maxLevels,
		levelW:    make([]float64, maxLevels+1),
		levelH:    make([]float64, maxLevels+1),
	}
	world := ctx.WorldBounds
	g.levelW[0] = world.Max.X() - world.Min.X()
	g.levelH[0] = world.Max.Y() - world.Min.Y()
	for i := 1; i <= maxLevels; i++ {
		g.levelW[i] = g.levelW[i-1] / 2
		g.levelH[i] = g.levelH[i-1] / 2
	}
	return g, nil
}

func (g *QuadGrid) Type() GridType          { return QuadGridType }
func (g *QuadGrid) MaxLevels() int          { return g.maxLevels }
func (g *QuadGrid) Context() *shape.Context { return g.ctx }

func (g *QuadGrid) LevelForDistance(dist float64) int {
	for level := 1; level < g.maxLevels; level++ {
		if g.levelW[level] < dist && g.levelH[level] < dist {
			return level
		}
	}
	return g.maxLevels
}

func (g *QuadGrid) CellSize(level int) (width, height float64) {
	return g.levelW[level], g.levelH[level]
}

func (g *QuadGrid) CellForPoint(p orb.Point, level int) Cell {
	b := g.ctx.WorldBounds
	token := make([]byte, 0, level)
	for i := 0; i < level; i++ {
		mid := b.Center()
		q := 0
		if p.X() >= mid.X() {
			q |= 1
		}
		if p.Y() >= mid.Y() {
			q |= 2
		}
		token = append(token, quadSymbols[q])
		b = quadrant(b, q)
	}
	return g.newCell(string(token))
}

func (g *QuadGrid) CellForToken(token string) Cell {
	return g.newCell(token)
}

func (g *QuadGrid) Validate(token string) error {
	if token == "" || len(token) > g.maxLevels {
		return fmt.Errorf("%w %q: length must be [1-%d]", ErrInvalidToken, token, g.maxLevels)
	}
	for i := 0; i < len(token); i++ {
		if token[i] < 'A' || token[i] > 'D' {
			return fmt.Errorf("%w %q: symbol %q", ErrInvalidToken, token, token[i])
		}
	}
	return nil
}

func (g *QuadGrid) PointForToken(token string) (orb.Point, bool) {
	if len(token) < g.maxLevels {
		return orb.Point{}, false
	}
	return g.bounds(token).Center(), true
}

func (g *QuadGrid) WorldCell() Cell {
	return g.newCell("")
}

func (g *QuadGrid) CellsFor(s shape.Shape, detailLevel int, inclParents bool) ([]Cell, error) {
	if p, ok := s.(shape.Point); ok {
		return PointCells(g, p.Point, detailLevel, inclParents)
	}
	return Walk(g, s, detailLevel, inclParents)
}

func (g *QuadGrid) newCell(token string) *QuadCell {
	return &QuadCell{grid: g, token: token}
}

// bounds descends from the world bounds along token. It panics on a symbol
// outside ABCD.
func (g *QuadGrid) bounds(token string) orb.Bound {
	b := g.ctx.WorldBounds
	for i := 0; i < len(token); i++ {
		q := int(token[i]) - 'A'
		if q < 0 || q > 3 {
			panic(fmt.Errorf("invalid quad token %q: symbol %q", token, token[i]))
		}
		b = quadrant(b, q)
	}
	return b
}

// quadrant returns the q'th quarter of b; bit 0 selects the right half, bit
// 1 the upper half.
func quadrant(b orb.Bound, q int) orb.Bound {
	mid := b.Center()
	out := b
	if q&1 == 0 {
		out.Max[0] = mid.X()
	} else {
		out.Min[0] = mid.X()
	}
	if q&2 == 0 {
		out.Max[1] = mid.Y()
	} else {
		out.Min[1] = mid.Y()
	}
	return out
}

// QuadCell is a cell of a QuadGrid.
type QuadCell struct {
	grid  *QuadGrid
	token string
	shape lazyBound
}

func (c *QuadCell) Token() string { return c.token }
func (c *QuadCell) Level() int    { return len(c.token) }

func (c *QuadCell) SubCells() []Cell {
	if len(c.token) >= c.grid.maxLevels {
		panic(fmt.Errorf("quad token %q is already at max level %d", c.token, c.grid.maxLevels))
	}
	cells := make([]Cell, 0, len(quadSymbols))
	for i := 0; i < len(quadSymbols); i++ {
		cells = append(cells, c.grid.newCell(c.token+quadSymbols[i:i+1]))
	}
	return cells
}

func (c *QuadCell) SubCellFanout() int {
	return len(quadSymbols)
}

func (c *QuadCell) ChildContaining(p orb.Point) Cell {
	if sub := childContaining(c, p); sub != nil {
		return sub
	}
	return c.grid.CellForPoint(p, c.Level()+1)
}

func (c *QuadCell) Shape() orb.Bound {
	return c.shape.get(func() orb.Bound {
		return c.grid.bounds(c.token)
	})
}

func (c *QuadCell) String() string {
	return c.token
}
