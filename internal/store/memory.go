package store

import (
	"context"
	"sync"

	"github.com/hevlin/MediaGroup/internal/domain"
)

// MemoryStore keeps configs in a mutex-guarded map. Used in standalone
// mode and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	groups map[domain.GroupID]domain.GroupConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{groups: make(map[domain.GroupID]domain.GroupConfig)}
}

func (s *MemoryStore) Save(_ context.Context, cfg *domain.GroupConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	cp.Members = append([]domain.MemberID(nil), cfg.Members...)
	s.groups[cfg.ID] = cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id domain.GroupID) (*domain.GroupConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cfg
	cp.Members = append([]domain.MemberID(nil), cfg.Members...)
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id domain.GroupID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return ErrNotFound
	}
	delete(s.groups, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*domain.GroupConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.GroupConfig, 0, len(s.groups))
	for _, cfg := range s.groups {
		cp := cfg
		cp.Members = append([]domain.MemberID(nil), cfg.Members...)
		out = append(out, &cp)
	}
	return out, nil
}
