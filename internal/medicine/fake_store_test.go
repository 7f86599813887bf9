package medicine

import (
	"context"
	"sort"
	"sync"
)

// memStore is an in-memory Store with auto-increment ids.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]Fields
	err    error
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]Fields{}}
}

func (s *memStore) Create(_ context.Context, f Fields) (*Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	s.rows[s.nextID] = f
	return &Medicine{ID: s.nextID, Fields: f}, nil
}

func (s *memStore) Update(_ context.Context, id int64, f Fields) (*Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if _, ok := s.rows[id]; !ok {
		return nil, ErrNotFound
	}
	s.rows[id] = f
	return &Medicine{ID: id, Fields: f}, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	f, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Medicine{ID: id, Fields: f}, nil
}

func (s *memStore) List(_ context.Context, _ string) ([]Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Medicine, 0, len(s.rows))
	for id, f := range s.rows {
		out = append(out, Medicine{ID: id, Fields: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.rows, id)
	return nil
}
