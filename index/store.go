package index

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Store maps cell tokens to the IDs of documents indexed under them.
type Store interface {
	Add(ctx context.Context, token, id string) error
	Remove(ctx context.Context, token, id string) error
	Members(ctx context.Context, token string) ([]string, error)
	// PrefixMembers returns the distinct IDs under every token starting
	// with prefix.
	PrefixMembers(ctx context.Context, prefix string) ([]string, error)
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	cells map[string]map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cells: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, token, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.cells[token]
	if !ok {
		ids = make(map[string]struct{})
		s.cells[token] = ids
	}
	ids[id] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, token, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.cells[token]
	if !ok {
		return nil
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.cells, token)
	}
	return nil
}

// Members returns the IDs under token in ascending order.
func (s *MemoryStore) Members(_ context.Context, token string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.cells[token]))
	for id := range s.cells[token] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PrefixMembers returns the distinct IDs under tokens starting with prefix in
// ascending order.
func (s *MemoryStore) PrefixMembers(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for token, ids := range s.cells {
		if !strings.HasPrefix(token, prefix) {
			continue
		}
		for id := range ids {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
