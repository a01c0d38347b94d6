package lineage

import (
	"context"
	"sort"
	"sync"

	"draftline/pkg/domain"
)

// InMemoryStore keeps the ledger in process. Entries are copied on the
// way in and out so callers can never mutate history.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, copyEntry(entry))
	return nil
}

func (s *InMemoryStore) History(_ context.Context, entityType, entityID, field string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		if field != "" && e.Field != field {
			continue
		}
		out = append(out, copyEntry(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ConflictsForField(_ context.Context, entityType, field string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.EntityType == entityType && e.Field == field && e.Conflict {
			out = append(out, copyEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copyEntry(e Entry) Entry {
	cp := e
	if e.ConflictWith != nil {
		cp.ConflictWith = make(map[domain.Source]string, len(e.ConflictWith))
		for k, v := range e.ConflictWith {
			cp.ConflictWith[k] = v
		}
	}
	return cp
}
