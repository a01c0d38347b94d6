package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"draftline/pkg/platform/sentinel"
)

// InMemoryMetadataStore backs tests and database-less runs.
type InMemoryMetadataStore struct {
	mu    sync.RWMutex
	metas map[string]*Metadata
}

func NewInMemoryMetadataStore() *InMemoryMetadataStore {
	return &InMemoryMetadataStore{metas: make(map[string]*Metadata)}
}

func (s *InMemoryMetadataStore) Create(_ context.Context, meta *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metas[meta.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *meta
	s.metas[meta.ID] = &cp
	return nil
}

func (s *InMemoryMetadataStore) Update(_ context.Context, meta *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metas[meta.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *meta
	s.metas[meta.ID] = &cp
	return nil
}

func (s *InMemoryMetadataStore) FindByID(_ context.Context, id string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.metas[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *meta
	return &cp, nil
}

func (s *InMemoryMetadataStore) List(_ context.Context) ([]*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Metadata, 0, len(s.metas))
	for _, meta := range s.metas {
		cp := *meta
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *InMemoryMetadataStore) ListOlderThan(_ context.Context, cutoff time.Time) ([]*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Metadata
	for _, meta := range s.metas {
		if meta.State != StateArchived && meta.Date.Before(cutoff) {
			cp := *meta
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
