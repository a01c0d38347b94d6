package canonical

import (
	"context"
	"sync"
	"time"

	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
)

// In-memory stores keep local development and unit tests lightweight.
// They intentionally favor clarity over performance.

type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[domain.ProspectID]*Prospect
	byCluster map[string][]domain.ProspectID
	byNative  map[string]domain.ProspectID // source + "\x00" + nativeID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[domain.ProspectID]*Prospect),
		byCluster: make(map[string][]domain.ProspectID),
		byNative:  make(map[string]domain.ProspectID),
	}
}

func nativeKey(source domain.Source, nativeID string) string {
	return string(source) + "\x00" + nativeID
}

func (s *InMemoryStore) Create(_ context.Context, p *Prospect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.IdentityKey()
	if len(s.byCluster[key]) > 0 {
		return sentinel.ErrConflict
	}
	cp := clone(p)
	s.byID[p.ID] = cp
	s.byCluster[key] = append(s.byCluster[key], p.ID)
	for source, nid := range p.NativeIDs {
		s.byNative[nativeKey(source, nid)] = p.ID
	}
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, p *Prospect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[p.ID] = clone(p)
	for source, nid := range p.NativeIDs {
		s.byNative[nativeKey(source, nid)] = p.ID
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ProspectID) (*Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.byID[id]; ok {
		return clone(p), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByNativeID(_ context.Context, source domain.Source, nativeID string) (*Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byNative[nativeKey(source, nativeID)]; ok {
		if p, ok := s.byID[id]; ok {
			return clone(p), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByIdentityKey(_ context.Context, key string) (*Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byCluster[key]
	if len(ids) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[ids[0]]), nil
}

func (s *InMemoryStore) BindNativeID(_ context.Context, id domain.ProspectID, source domain.Source, nativeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.NativeIDs[source] = nativeID
	p.UpdatedAt = time.Now()
	s.byNative[nativeKey(source, nativeID)] = id
	return nil
}

func (s *InMemoryStore) ListByPosition(_ context.Context, position domain.Position) ([]*Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Prospect
	for _, p := range s.byID {
		if p.Position == position {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Prospect, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *InMemoryStore) CountDuplicateIdentityClusters(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ids := range s.byCluster {
		if len(ids) > 1 {
			count++
		}
	}
	return count, nil
}

func clone(p *Prospect) *Prospect {
	cp := *p
	cp.NativeIDs = make(map[domain.Source]string, len(p.NativeIDs))
	for k, v := range p.NativeIDs {
		cp.NativeIDs[k] = v
	}
	return &cp
}

// InMemorySourceValueStore holds per-source current field values. It
// needs the prospect store to answer position-cohort queries.
type InMemorySourceValueStore struct {
	mu        sync.RWMutex
	values    map[domain.ProspectID]map[domain.Source]map[string]domain.FieldValue
	prospects Store
}

func NewInMemorySourceValueStore(prospects Store) *InMemorySourceValueStore {
	return &InMemorySourceValueStore{
		values:    make(map[domain.ProspectID]map[domain.Source]map[string]domain.FieldValue),
		prospects: prospects,
	}
}

func (s *InMemorySourceValueStore) Upsert(_ context.Context, id domain.ProspectID, source domain.Source, field string, value domain.FieldValue, _ time.Time) (domain.FieldValue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySource, ok := s.values[id]
	if !ok {
		bySource = make(map[domain.Source]map[string]domain.FieldValue)
		s.values[id] = bySource
	}
	fields, ok := bySource[source]
	if !ok {
		fields = make(map[string]domain.FieldValue)
		bySource[source] = fields
	}
	previous, had := fields[field]
	fields[field] = value
	return previous, had, nil
}

func (s *InMemorySourceValueStore) Get(_ context.Context, id domain.ProspectID, source domain.Source, field string) (domain.FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[id][source][field]; ok {
		return v, nil
	}
	return domain.FieldValue{}, sentinel.ErrNotFound
}

func (s *InMemorySourceValueStore) ViewsByProspect(_ context.Context, id domain.ProspectID) (map[domain.Source]map[string]domain.FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.Source]map[string]domain.FieldValue)
	for source, fields := range s.values[id] {
		cp := make(map[string]domain.FieldValue, len(fields))
		for f, v := range fields {
			cp[f] = v
		}
		out[source] = cp
	}
	return out, nil
}

func (s *InMemorySourceValueStore) CohortValues(ctx context.Context, position domain.Position, source domain.Source, field string) ([]float64, error) {
	peers, err := s.prospects.ListByPosition(ctx, position)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []float64
	for _, p := range peers {
		if v, ok := s.values[p.ID][source][field]; ok {
			if f, numeric := v.AsFloat(); numeric {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (s *InMemorySourceValueStore) AllValues(_ context.Context, source domain.Source, field string) (map[domain.ProspectID]domain.FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.ProspectID]domain.FieldValue)
	for id, bySource := range s.values {
		if v, ok := bySource[source][field]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *InMemorySourceValueStore) SourcesWithField(_ context.Context, id domain.ProspectID, field string) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Source
	for _, source := range domain.KnownSources() {
		if _, ok := s.values[id][source][field]; ok {
			out = append(out, source)
		}
	}
	return out, nil
}

// InMemoryResolvedValueStore holds post-reconciliation canonical values.
type InMemoryResolvedValueStore struct {
	mu     sync.RWMutex
	values map[domain.ProspectID]map[string]domain.FieldValue
}

func NewInMemoryResolvedValueStore() *InMemoryResolvedValueStore {
	return &InMemoryResolvedValueStore{values: make(map[domain.ProspectID]map[string]domain.FieldValue)}
}

func (s *InMemoryResolvedValueStore) Upsert(_ context.Context, id domain.ProspectID, field string, value domain.FieldValue, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.values[id]
	if !ok {
		fields = make(map[string]domain.FieldValue)
		s.values[id] = fields
	}
	fields[field] = value
	return nil
}

func (s *InMemoryResolvedValueStore) ByProspect(_ context.Context, id domain.ProspectID) (map[string]domain.FieldValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.FieldValue, len(s.values[id]))
	for f, v := range s.values[id] {
		out[f] = v
	}
	return out, nil
}
