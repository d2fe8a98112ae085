// Package memory provides an in-memory Repository (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/solterra/cobranza/contract"
)

// Store keeps contract aggregates in a map. Aggregates are deep-copied on
// the way in and out so callers can never mutate stored state except
// through Replace.
type Store struct {
	mu        sync.RWMutex
	contracts map[string]*contract.Contract
}

func New() *Store {
	return &Store{contracts: make(map[string]*contract.Contract)}
}

func (s *Store) Get(_ context.Context, id string) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, contract.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *Store) Replace(_ context.Context, c *contract.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ID] = c.Clone()
	return nil
}

func (s *Store) List(_ context.Context, ownerID string) ([]*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*contract.Contract
	for _, c := range s.contracts {
		if ownerID != "" && c.OwnerID != ownerID {
			continue
		}
		out = append(out, c.Clone())
	}

	// Newest registration first; ID tie-break keeps the order stable.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaRegistro.Equal(out[j].FechaRegistro) {
			return out[i].FechaRegistro.After(out[j].FechaRegistro)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[id]; !ok {
		return contract.ErrNotFound
	}
	delete(s.contracts, id)
	return nil
}
