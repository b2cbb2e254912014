// Package prefixgrid tessellates the plane into nested cells addressed by
// string tokens, where a cell's token is its parent's token plus one symbol.
// Ancestor/descendant relations are therefore string prefix relations, which
// makes tokens usable as terms in an inverted index.
package prefixgrid

import (
	"errors"
	"fmt"

	"geohash-prefix-grid/shape"

	"github.com/paulmach/orb"
)

var (
	ErrInvalidMaxLevels = errors.New("invalid max levels")
	ErrInvalidLevel     = errors.New("invalid detail level")
	ErrUnsupportedGrid  = errors.New("unsupported grid type")
	ErrInvalidToken     = errors.New("invalid token")
)

type GridType string

const (
	GeohashGridType GridType = "geohash"
	QuadGridType    GridType = "quad"
)

var defaultGridType = GeohashGridType

// Grid is one tessellation scheme.
type Grid interface {
	Type() GridType
	MaxLevels() int
	Context() *shape.Context

	// LevelForDistance returns the coarsest level whose cells are smaller
	// than dist degrees, clamped to [1, MaxLevels].
	LevelForDistance(dist float64) int
	// CellSize is the width and height in degrees of cells at level, which
	// must be in [0, MaxLevels].
	CellSize(level int) (width, height float64)

	CellForPoint(p orb.Point, level int) Cell
	// CellForToken wraps token without validating it.
	CellForToken(token string) Cell
	// Validate reports whether token names a cell of this grid.
	Validate(token string) error
	// PointForToken decodes full precision tokens only. Shorter tokens denote
	// a region and yield false.
	PointForToken(token string) (orb.Point, bool)
	// WorldCell is the level 0 root with the empty token.
	WorldCell() Cell

	CellsFor(s shape.Shape, detailLevel int, inclParents bool) ([]Cell, error)
}

// Cell is a node of a Grid. Two cells with equal tokens are interchangeable.
type Cell interface {
	Token() string
	Level() int
	// SubCells and ChildContaining panic on a cell at the grid's max level.
	SubCells() []Cell
	SubCellFanout() int
	// ChildContaining agrees with CellForPoint at the next level for points
	// inside the cell, including points on a boundary between children.
	ChildContaining(p orb.Point) Cell
	Shape() orb.Bound
}

// New builds a grid of the given type. An empty kind selects the geohash grid.
func New(kind GridType, ctx *shape.Context, maxLevels int) (Grid, error) {
	if kind == "" {
		kind = defaultGridType
	}
	switch kind {
	case GeohashGridType:
		return NewGeohashGrid(ctx, maxLevels)
	case QuadGridType:
		return NewQuadGrid(ctx, maxLevels)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrid, kind)
	}
}

// ParseCell validates token before wrapping it.
func ParseCell(g Grid, token string) (Cell, error) {
	if err := g.Validate(token); err != nil {
		return nil, err
	}
	return g.CellForToken(token), nil
}

// Parent returns the cell one level up, or nil for a level 1 cell.
func Parent(g Grid, c Cell) Cell {
	token := c.Token()
	if len(token) <= 1 {
		return nil
	}
	return g.CellForToken(token[:len(token)-1])
}

// Tokens extracts the tokens of cells.
func Tokens(cells []Cell) []string {
	tokens := make([]string, len(cells))
	for i, c := range cells {
		tokens[i] = c.Token()
	}
	return tokens
}

func checkMaxLevels(maxLevels, possible int) error {
	if maxLevels <= 0 || maxLevels > possible {
		return fmt.Errorf("%w: must be [1-%d] but got %d", ErrInvalidMaxLevels, possible, maxLevels)
	}
	return nil
}

func checkLevel(g Grid, level int) error {
	if level < 1 || level > g.MaxLevels() {
		return fmt.Errorf("%w: must be [1-%d] but got %d", ErrInvalidLevel, g.MaxLevels(), level)
	}
	return nil
}
