package store

import (
	"context"
	"sync"

	"github.com/matzehuels/causeway/pkg/errors"
)

// MemoryStore keeps runs in a map. Runs are copied on the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, r *Run) error {
	if err := validate(r); err != nil {
		return err
	}
	s.mu.Lock()
	s.runs[r.ID] = *r
	s.mu.Unlock()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Run, error) {
	if err := errors.ValidateRunID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, notFound(id)
	}
	return &r, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*Run, error) {
	s.mu.RLock()
	runs := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		if opts.DataHash != "" && r.DataHash != opts.DataHash {
			continue
		}
		runs = append(runs, &r)
	}
	s.mu.RUnlock()

	sortNewestFirst(runs)
	if n := opts.limit(); len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateRunID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return notFound(id)
	}
	delete(s.runs, id)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
