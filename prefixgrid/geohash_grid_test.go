package prefixgrid

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"geohash-prefix-grid/geohash"
	"geohash-prefix-grid/shape"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sanFrancisco = orb.Point{-122.419, 37.775}

var samplePoints = []orb.Point{
	sanFrancisco,
	{-0.1278, 51.5074},
	{151.2093, -33.8688},
	{0.1, 0.1},
	{-179.9, -89.9},
	{179.9, 89.9},
}

type countingCodec struct {
	geohash.Std
	boxes atomic.Int32
}

func (c *countingCodec) BoundingBox(hash string) geohash.Box {
	c.boxes.Add(1)
	return c.Std.BoundingBox(hash)
}

func newTestGrid(t *testing.T, maxLevels int) *GeohashGrid {
	t.Helper()
	g, err := NewGeohashGrid(shape.Geo(), maxLevels)
	require.NoError(t, err)
	return g
}

func TestNewGeohashGridMaxLevels(t *testing.T) {
	for _, bad := range []int{-1, 0, geohash.MaxPrecision + 1} {
		_, err := NewGeohashGrid(nil, bad)
		assert.ErrorIs(t, err, ErrInvalidMaxLevels, "maxLevels %d", bad)
	}
	assert.Panics(t, func() { MustNewGeohashGrid(nil, 0) })

	g, err := NewGeohashGrid(nil, geohash.MaxPrecision)
	require.NoError(t, err)
	assert.Equal(t, geohash.MaxPrecision, g.MaxLevels())
	assert.NotNil(t, g.Context())
	assert.Equal(t, GeohashGridType, g.Type())
}

func TestCellForPointFixture(t *testing.T) {
	g := newTestGrid(t, 12)

	cell := g.CellForPoint(sanFrancisco, 5)
	assert.Equal(t, "9q8yy", cell.Token())
	assert.Equal(t, 5, cell.Level())

	subs := cell.SubCells()
	require.Len(t, subs, 32)
	for _, sub := range subs {
		assert.Len(t, sub.Token(), 6)
		assert.True(t, strings.HasPrefix(sub.Token(), "9q8yy"))
	}
}

func TestSubCells(t *testing.T) {
	g := newTestGrid(t, 12)
	for _, p := range samplePoints {
		// the codec cannot go below its maximum precision
		for level := 1; level < geohash.MaxPrecision; level++ {
			cell := g.CellForPoint(p, level)
			subs := cell.SubCells()
			require.Len(t, subs, cell.SubCellFanout())
			assert.Equal(t, 32, cell.SubCellFanout())

			tokens := Tokens(subs)
			assert.True(t, sort.StringsAreSorted(tokens))
			seen := map[byte]bool{}
			for _, tok := range tokens {
				require.Len(t, tok, level+1)
				assert.Equal(t, cell.Token(), tok[:level])
				seen[tok[level]] = true
			}
			assert.Len(t, seen, 32)

			assert.Equal(t, tokens, Tokens(cell.SubCells()), "children must be deterministic")
		}
	}
}

func TestPrefixProperty(t *testing.T) {
	g := newTestGrid(t, 12)
	for _, p := range samplePoints {
		for level := 1; level < g.MaxLevels(); level++ {
			parent := g.CellForPoint(p, level).Token()
			child := g.CellForPoint(p, level+1).Token()
			assert.Len(t, child, len(parent)+1)
			assert.True(t, strings.HasPrefix(child, parent), "%s / %s", parent, child)
		}
	}
}

func TestLevelForDistance(t *testing.T) {
	g := newTestGrid(t, 6)

	assert.Equal(t, 1, g.LevelForDistance(1000))
	assert.Equal(t, 6, g.LevelForDistance(0))
	assert.Equal(t, 5, g.LevelForDistance(0.05))

	prev := g.MaxLevels()
	for d := 1e-6; d < 1000; d *= 1.3 {
		level := g.LevelForDistance(d)
		assert.GreaterOrEqual(t, level, 1)
		assert.LessOrEqual(t, level, g.MaxLevels())
		assert.LessOrEqual(t, level, prev, "distance %g", d)
		prev = level
	}
}

func TestPointForToken(t *testing.T) {
	g := newTestGrid(t, 8)

	_, ok := g.PointForToken("9q8yy")
	assert.False(t, ok, "a partial token is a region")

	token := g.CellForPoint(sanFrancisco, 8).Token()
	p, ok := g.PointForToken(token)
	require.True(t, ok)
	assert.True(t, g.CellForToken(token).Shape().Contains(p))
}

func TestShapeIsMemoised(t *testing.T) {
	codec := &countingCodec{}
	g, err := NewGeohashGrid(nil, 12, WithCodec(codec))
	require.NoError(t, err)

	cell := g.CellForToken("9q8yy")
	first := cell.Shape()
	second := cell.Shape()
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, codec.boxes.Load())

	assert.InDelta(t, 37.7490234375, first.Min.Lat(), 1e-12)
	assert.InDelta(t, 37.79296875, first.Max.Lat(), 1e-12)
	assert.InDelta(t, -122.431640625, first.Min.Lon(), 1e-12)
	assert.InDelta(t, -122.3876953125, first.Max.Lon(), 1e-12)

	// a fresh instance for the same token decodes again
	g.CellForToken("9q8yy").Shape()
	assert.EqualValues(t, 2, codec.boxes.Load())
}

func TestShapeConcurrentFirstAccess(t *testing.T) {
	g := newTestGrid(t, 12)
	cell := g.CellForToken("9q8yy")
	want := g.CellForToken("9q8yy").Shape()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, cell.Shape())
		}()
	}
	wg.Wait()
}

func TestSubCellsAtMaxLevels(t *testing.T) {
	g := newTestGrid(t, 6)
	leaf := g.CellForPoint(sanFrancisco, 6)
	assert.Panics(t, func() { leaf.SubCells() })
	assert.Panics(t, func() { leaf.ChildContaining(sanFrancisco) })
	assert.Len(t, g.CellForPoint(sanFrancisco, 5).SubCells(), 32)
}

func TestCellSize(t *testing.T) {
	g := newTestGrid(t, 12)
	w, h := g.CellSize(0)
	assert.Equal(t, 360.0, w)
	assert.Equal(t, 180.0, h)

	cell := g.CellForToken("9q8yy")
	w, h = g.CellSize(cell.Level())
	b := cell.Shape()
	assert.InDelta(t, b.Max.Lon()-b.Min.Lon(), w, 1e-12)
	assert.InDelta(t, b.Max.Lat()-b.Min.Lat(), h, 1e-12)
}

func TestCoverBounds(t *testing.T) {
	g := newTestGrid(t, 12)
	world := shape.Rect{Box: g.Context().WorldBounds}
	ctx := context.Background()

	cells, err := Cover(ctx, g, world, 2, false, 0)
	require.NoError(t, err)
	assert.Len(t, cells, 32*32)

	cells, err = Cover(ctx, g, world, 2, true, 32+32*32)
	require.NoError(t, err)
	assert.Len(t, cells, 32+32*32)

	_, err = Cover(ctx, g, world, 5, false, 1000)
	assert.ErrorIs(t, err, ErrTooManyCells)

	_, err = Cover(ctx, g, world, 13, false, 1000)
	assert.ErrorIs(t, err, ErrInvalidLevel)

	// points take the shortcut whatever the limit
	cells, err = Cover(ctx, g, shape.Point{Point: sanFrancisco}, 12, true, 1)
	require.NoError(t, err)
	assert.Len(t, cells, 12)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Cover(canceled, g, world, 3, false, 0)
	assert.ErrorIs(t, err, context.Canceled)

	r := shape.Rect{Box: orb.Bound{Min: orb.Point{-122.39, 37.77}, Max: orb.Point{-122.385, 37.771}}}
	walked, err := g.CellsFor(r, 5, true)
	require.NoError(t, err)
	covered, err := Cover(ctx, g, r, 5, true, 100)
	require.NoError(t, err)
	assert.Equal(t, Tokens(walked), Tokens(covered))
}

func TestCellForTokenDoesNotValidate(t *testing.T) {
	g := newTestGrid(t, 12)
	var cell Cell
	assert.NotPanics(t, func() { cell = g.CellForToken("9qa") })
	assert.Equal(t, 3, cell.Level())
	assert.Panics(t, func() { cell.Shape() })
	assert.Panics(t, func() { cell.SubCells() })
}

func TestChildContaining(t *testing.T) {
	g := newTestGrid(t, 12)
	cell := g.CellForToken("9q8yy")

	t.Run("interior point", func(t *testing.T) {
		child := cell.ChildContaining(sanFrancisco)
		assert.Equal(t, g.CellForPoint(sanFrancisco, 6).Token(), child.Token())
	})

	t.Run("shared edge goes where encoding puts it", func(t *testing.T) {
		b := cell.Shape()
		// level 6 splits longitude four ways and latitude eight ways
		width := b.Max.Lon() - b.Min.Lon()
		height := b.Max.Lat() - b.Min.Lat()
		corner := orb.Point{b.Min.Lon() + width/4, b.Min.Lat() + height/8}

		for _, p := range []orb.Point{
			{corner.Lon(), b.Min.Lat() + height/16},
			{b.Min.Lon() + width/8, corner.Lat()},
			corner,
		} {
			var containing []string
			for _, sub := range cell.SubCells() {
				if sub.Shape().Contains(p) {
					containing = append(containing, sub.Token())
				}
			}
			require.Greater(t, len(containing), 1)
			want := g.CellForPoint(p, 6).Token()
			assert.Equal(t, containing[len(containing)-1], want)
			assert.Equal(t, want, cell.ChildContaining(p).Token())
		}
	})

	t.Run("outside point falls back to encoding", func(t *testing.T) {
		p := orb.Point{0.1, 0.1}
		assert.Equal(t, g.CellForPoint(p, 6).Token(), cell.ChildContaining(p).Token())
	})
}

func TestCellsForPoint(t *testing.T) {
	g := newTestGrid(t, 12)
	p := shape.Point{Point: sanFrancisco}

	cells, err := g.CellsFor(p, 5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "9q", "9q8", "9q8y", "9q8yy"}, Tokens(cells))

	cells, err = g.CellsFor(p, 5, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"9q8yy"}, Tokens(cells))

	full := g.CellForPoint(sanFrancisco, 12).Token()
	cells, err = g.CellsFor(p, 12, true)
	require.NoError(t, err)
	for i, c := range cells {
		assert.Equal(t, full[:i+1], c.Token())
	}
}

func TestCellsForInvalidLevel(t *testing.T) {
	g := newTestGrid(t, 6)
	for _, level := range []int{0, 7} {
		_, err := g.CellsFor(shape.Point{Point: sanFrancisco}, level, false)
		assert.ErrorIs(t, err, ErrInvalidLevel)
		_, err = g.CellsFor(shape.Rect{Box: g.CellForToken("9q").Shape()}, level, false)
		assert.ErrorIs(t, err, ErrInvalidLevel)
	}
}

func TestCellsForRect(t *testing.T) {
	g := newTestGrid(t, 12)

	t.Run("inside one cell", func(t *testing.T) {
		r := shape.Rect{Box: g.CellForToken("9q8yy").Shape().Pad(-0.001)}
		cells, err := g.CellsFor(r, 5, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"9q8yy"}, Tokens(cells))

		cells, err = g.CellsFor(r, 5, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"9", "9q", "9q8", "9q8y", "9q8yy"}, Tokens(cells))
	})

	t.Run("straddling an edge", func(t *testing.T) {
		r := shape.Rect{Box: orb.Bound{Min: orb.Point{-122.39, 37.77}, Max: orb.Point{-122.385, 37.771}}}
		cells, err := g.CellsFor(r, 5, false)
		require.NoError(t, err)
		tokens := Tokens(cells)
		assert.Len(t, tokens, 2)
		assert.Contains(t, tokens, "9q8yy")
	})
}

func TestCellsForCircle(t *testing.T) {
	g := newTestGrid(t, 12)
	c := shape.Circle{Center: sanFrancisco, Radius: 0.1}

	leaves, err := g.CellsFor(c, 4, false)
	require.NoError(t, err)
	require.NotEmpty(t, leaves)
	for _, cell := range leaves {
		assert.Equal(t, 4, cell.Level())
		assert.True(t, c.Intersects(cell.Shape()))
	}
	assert.Contains(t, Tokens(leaves), g.CellForPoint(sanFrancisco, 4).Token())

	all, err := g.CellsFor(c, 4, true)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, cell := range all {
		if parent := Parent(g, cell); parent != nil {
			assert.True(t, seen[parent.Token()], "%s emitted before its parent", cell.Token())
		}
		seen[cell.Token()] = true
	}
	for _, leaf := range leaves {
		assert.True(t, seen[leaf.Token()])
	}
}

func TestNeighbors(t *testing.T) {
	g := newTestGrid(t, 12)
	cell := g.CellForToken("9q8yy").(*GeohashCell)
	neighbors := cell.Neighbors()
	require.Len(t, neighbors, 8)
	for _, n := range neighbors {
		assert.Equal(t, 5, n.Level())
		assert.True(t, n.Shape().Intersects(cell.Shape()))
	}
}

func TestParent(t *testing.T) {
	g := newTestGrid(t, 12)
	assert.Equal(t, "9q8y", Parent(g, g.CellForToken("9q8yy")).Token())
	assert.Nil(t, Parent(g, g.CellForToken("9")))
}

func TestParseCell(t *testing.T) {
	g := newTestGrid(t, 6)

	cell, err := ParseCell(g, "9q8yy")
	require.NoError(t, err)
	assert.Equal(t, "9q8yy", cell.Token())

	for _, bad := range []string{"", "9qa", "9q8yyk9"} {
		_, err := ParseCell(g, bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", bad)
	}
}
