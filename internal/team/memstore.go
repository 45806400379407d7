package team

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	teams map[string]*Team
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{teams: make(map[string]*Team)}
}

func (s *MemoryStore) Create(_ context.Context, t *Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[t.ID]; ok {
		return ErrVersionConflict
	}
	t.Version = 1
	s.teams[t.ID] = t.Clone()
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Team, error) {
	s.mu.RLock()
	out := make([]*Team, 0, len(s.teams))
	for _, t := range s.teams {
		if f.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Replace(_ context.Context, t *Team, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.teams[t.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	s.teams[t.ID] = t.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return ErrNotFound
	}
	delete(s.teams, id)
	return nil
}
