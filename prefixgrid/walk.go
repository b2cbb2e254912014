package prefixgrid

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"geohash-prefix-grid/shape"

	"github.com/paulmach/orb"
)

// ErrTooManyCells is returned by Cover when a shape needs more cells than
// allowed.
var ErrTooManyCells = errors.New("too many cells")

// Walk descends from the world cell, keeping sub cells whose rectangle
// intersects s, down to detailLevel. Cells at detailLevel are always
// returned; shallower cells on a kept path only when inclParents is set, in
// which case each parent precedes its descendants.
func Walk(g Grid, s shape.Shape, detailLevel int, inclParents bool) ([]Cell, error) {
	if err := checkLevel(g, detailLevel); err != nil {
		return nil, err
	}
	w := &walker{ctx: context.Background(), s: s, detailLevel: detailLevel, inclParents: inclParents}
	if err := w.walk(g.WorldCell()); err != nil {
		return nil, err
	}
	return w.result, nil
}

// Cover is g.CellsFor bounded for untrusted input. The walk stops with
// ErrTooManyCells once it has kept more than limit cells, parents included,
// and with ctx's error once ctx is done. A limit of 0 or less disables the
// bound. Points skip the walk and are never limited.
func Cover(ctx context.Context, g Grid, s shape.Shape, detailLevel int, inclParents bool, limit int) ([]Cell, error) {
	if _, ok := s.(shape.Point); ok {
		return g.CellsFor(s, detailLevel, inclParents)
	}
	if err := checkLevel(g, detailLevel); err != nil {
		return nil, err
	}
	w := &walker{ctx: ctx, s: s, detailLevel: detailLevel, inclParents: inclParents, limit: limit}
	if err := w.walk(g.WorldCell()); err != nil {
		return nil, err
	}
	return w.result, nil
}

type walker struct {
	ctx         context.Context
	s           shape.Shape
	detailLevel int
	inclParents bool
	limit       int

	kept   int
	result []Cell
}

func (w *walker) walk(cell Cell) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	for _, sub := range cell.SubCells() {
		if !w.s.Intersects(sub.Shape()) {
			continue
		}
		w.kept++
		if w.limit > 0 && w.kept > w.limit {
			return fmt.Errorf("%w: more than %d at level %d", ErrTooManyCells, w.limit, w.detailLevel)
		}
		if sub.Level() >= w.detailLevel {
			w.result = append(w.result, sub)
			continue
		}
		if w.inclParents {
			w.result = append(w.result, sub)
		}
		if err := w.walk(sub); err != nil {
			return err
		}
	}
	return nil
}

// PointCells lists the cells of p without searching: a point falls in exactly
// one cell per level, so the answer is the prefixes of its detail level token.
func PointCells(g Grid, p orb.Point, detailLevel int, inclParents bool) ([]Cell, error) {
	if err := checkLevel(g, detailLevel); err != nil {
		return nil, err
	}
	end := g.CellForPoint(p, detailLevel)
	if !inclParents {
		return []Cell{end}, nil
	}
	token := end.Token()
	cells := make([]Cell, 0, detailLevel)
	for i := 1; i < detailLevel; i++ {
		cells = append(cells, g.CellForToken(token[:i]))
	}
	return append(cells, end), nil
}

// lazyBound memoises a cell rectangle. Concurrent first readers may each
// compute it; the computation is a pure function of the token so any stored
// value is correct.
type lazyBound struct {
	b atomic.Pointer[orb.Bound]
}

func (l *lazyBound) get(compute func() orb.Bound) orb.Bound {
	if b := l.b.Load(); b != nil {
		return *b
	}
	b := compute()
	l.b.Store(&b)
	return b
}

// childContaining returns the sub cell whose rectangle contains p. On a
// boundary shared by siblings the upper or right one wins, which is the
// largest token among them, as point encoding does.
func childContaining(c Cell, p orb.Point) Cell {
	subs := c.SubCells()
	for i := len(subs) - 1; i >= 0; i-- {
		if subs[i].Shape().Contains(p) {
			return subs[i]
		}
	}
	return nil
}
