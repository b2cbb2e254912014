// Package index is an inverted index from grid cell tokens to documents.
// Documents are found through the tokens their shapes cover, then confirmed
// against an R-tree of their bounds.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"geohash-prefix-grid/prefixgrid"
	"geohash-prefix-grid/shape"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/paulmach/orb"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidDocument = errors.New("invalid document")
)

const (
	defaultQueryCacheSize = 1024
	defaultMaxCells       = 1 << 14
)

// Document is a shape stored under an ID.
type Document struct {
	ID    string
	Shape shape.Shape
}

type Index struct {
	grid      prefixgrid.Grid
	store     Store
	detail    int
	cacheSize int
	maxCells  int

	mu      sync.RWMutex
	docs    map[string]*entry
	tree    *rtreego.Rtree
	queries *lru.Cache
}

type Option func(*Index)

// WithMaxCells bounds how many cells one document or query may cover. Zero
// or less removes the bound.
func WithMaxCells(n int) Option {
	return func(ix *Index) {
		ix.maxCells = n
	}
}

// WithQueryCacheSize sets how many search results are remembered.
func WithQueryCacheSize(n int) Option {
	return func(ix *Index) {
		ix.cacheSize = n
	}
}

// New builds an index that stores cells of grid at detailLevel in store.
func New(grid prefixgrid.Grid, store Store, detailLevel int, opts ...Option) (*Index, error) {
	if detailLevel < 1 || detailLevel > grid.MaxLevels() {
		return nil, fmt.Errorf("%w: must be [1-%d] but got %d", prefixgrid.ErrInvalidLevel, grid.MaxLevels(), detailLevel)
	}
	ix := &Index{
		grid:      grid,
		store:     store,
		detail:    detailLevel,
		cacheSize: defaultQueryCacheSize,
		maxCells:  defaultMaxCells,
		docs:      make(map[string]*entry),
		tree:      newTree(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	queries, err := lru.New(ix.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	ix.queries = queries
	return ix, nil
}

func (ix *Index) Grid() prefixgrid.Grid { return ix.grid }
func (ix *Index) DetailLevel() int      { return ix.detail }
func (ix *Index) MaxCells() int         { return ix.maxCells }

func (ix *Index) cover(ctx context.Context, s shape.Shape) ([]string, error) {
	cells, err := prefixgrid.Cover(ctx, ix.grid, s, ix.detail, false, ix.maxCells)
	if err != nil {
		return nil, err
	}
	return prefixgrid.Tokens(cells), nil
}

// Add indexes doc, replacing any document with the same ID. An empty ID is
// replaced with a new UUID, which is returned. On error the index and store
// are left as they were.
func (ix *Index) Add(ctx context.Context, doc Document) (string, error) {
	if doc.Shape == nil {
		return "", fmt.Errorf("%w: missing shape", ErrInvalidDocument)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	tokens, err := ix.cover(ctx, doc.Shape)
	if err != nil {
		return "", err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	old, replacing := ix.docs[doc.ID]
	if replacing {
		if err := ix.removeLocked(ctx, old); err != nil {
			return "", err
		}
	}
	e := &entry{
		id:     doc.ID,
		shape:  doc.Shape,
		tokens: tokens,
		rect:   toRect(doc.Shape.Bound()),
	}
	if err := ix.storeTokens(ctx, e); err != nil {
		if replacing {
			if restoreErr := ix.storeTokens(ctx, old); restoreErr != nil {
				return "", errors.Join(err, restoreErr)
			}
			ix.insertLocked(old)
		}
		return "", err
	}
	ix.insertLocked(e)
	return e.id, nil
}

// storeTokens writes e's tokens, removing the ones already written if any
// write fails.
func (ix *Index) storeTokens(ctx context.Context, e *entry) error {
	for i, token := range e.tokens {
		if err := ix.store.Add(ctx, token, e.id); err != nil {
			err = fmt.Errorf("store %s under %s: %w", e.id, token, err)
			for _, written := range e.tokens[:i] {
				if rmErr := ix.store.Remove(ctx, written, e.id); rmErr != nil {
					err = errors.Join(err, fmt.Errorf("unstore %s from %s: %w", e.id, written, rmErr))
				}
			}
			return err
		}
	}
	return nil
}

func (ix *Index) insertLocked(e *entry) {
	ix.docs[e.id] = e
	ix.tree.Insert(e)
	ix.queries.Purge()
}

// Remove drops the document with id.
func (ix *Index) Remove(ctx context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	e, ok := ix.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ix.removeLocked(ctx, e)
}

func (ix *Index) removeLocked(ctx context.Context, e *entry) error {
	for _, token := range e.tokens {
		if err := ix.store.Remove(ctx, token, e.id); err != nil {
			return fmt.Errorf("unstore %s from %s: %w", e.id, token, err)
		}
	}
	delete(ix.docs, e.id)
	ix.tree.Delete(e)
	ix.queries.Purge()
	return nil
}

// Get returns the document with id.
func (ix *Index) Get(id string) (Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.docs[id]
	if !ok {
		return Document{}, false
	}
	return Document{ID: e.id, Shape: e.shape}, true
}

// Search returns the sorted IDs of documents sharing a cell with s whose
// bounds overlap s's bounds.
func (ix *Index) Search(ctx context.Context, s shape.Shape) ([]string, error) {
	tokens, err := ix.cover(ctx, s)
	if err != nil {
		return nil, err
	}
	bound := s.Bound()
	key := fmt.Sprintf("%v|%s", bound, strings.Join(tokens, ","))

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if cached, ok := ix.queries.Get(key); ok {
		return append([]string(nil), cached.([]string)...), nil
	}

	candidates, err := ix.members(ctx, tokens)
	if err != nil {
		return nil, err
	}
	hits := make(map[string]bool)
	for _, obj := range ix.tree.SearchIntersect(toRect(bound)) {
		hits[obj.(*entry).id] = true
	}
	ids := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if hits[id] {
			ids = append(ids, id)
		}
	}
	ix.queries.Add(key, ids)
	return append([]string(nil), ids...), nil
}

// Nearby returns the sorted IDs indexed in p's cell or, on a geohash grid,
// any of its eight neighbours.
func (ix *Index) Nearby(ctx context.Context, p orb.Point) ([]string, error) {
	cell := ix.grid.CellForPoint(p, ix.detail)
	tokens := []string{cell.Token()}
	if n, ok := cell.(interface{ Neighbors() []prefixgrid.Cell }); ok {
		tokens = append(tokens, prefixgrid.Tokens(n.Neighbors())...)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.members(ctx, tokens)
}

// InCell returns the sorted IDs of documents indexed under cell or any cell
// inside it. Cells finer than the detail level are looked up through their
// detail level ancestor.
func (ix *Index) InCell(ctx context.Context, cell prefixgrid.Cell) ([]string, error) {
	token := cell.Token()
	if len(token) > ix.detail {
		token = token[:ix.detail]
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids, err := ix.store.PrefixMembers(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("members under %s: %w", token, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// members unions the store members of tokens, sorted.
func (ix *Index) members(ctx context.Context, tokens []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, token := range tokens {
		ids, err := ix.store.Members(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("members of %s: %w", token, err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
