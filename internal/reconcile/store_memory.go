package reconcile

import (
	"context"
	"sort"
	"sync"

	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
)

// InMemoryStore keeps conflict records in process.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.ConflictID]*ConflictRecord
	order   []domain.ConflictID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.ConflictID]*ConflictRecord)}
}

func (s *InMemoryStore) Save(_ context.Context, c *ConflictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	cp := *c
	s.records[c.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ConflictID) (*ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) FindByPair(_ context.Context, prospectID domain.ProspectID, field string, a, b domain.Source) (*ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *ConflictRecord
	for _, id := range s.order {
		c := s.records[id]
		if c.ProspectID != prospectID || c.Field != field {
			continue
		}
		if (c.SourceA == a && c.SourceB == b) || (c.SourceA == b && c.SourceB == a) {
			latest = c
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemoryStore) ListByProspect(_ context.Context, prospectID domain.ProspectID) ([]*ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ConflictRecord
	for _, id := range s.order {
		if c := s.records[id]; c.ProspectID == prospectID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status Status) ([]*ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ConflictRecord
	for _, id := range s.order {
		if c := s.records[id]; c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
