package staging

import (
	"context"
	"sort"
	"sync"

	"draftline/pkg/domain"
)

// InMemoryStore keeps staged rows in process for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	rows    map[string]*StagedRecord // keyed by RowRef
	ordered []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string]*StagedRecord)}
}

func (s *InMemoryStore) Insert(_ context.Context, record *StagedRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.RowRef()
	if _, exists := s.rows[key]; exists {
		// Idempotent re-delivery.
		return nil
	}
	cp := *record
	cp.Fields = make(map[string]domain.FieldValue, len(record.Fields))
	for k, v := range record.Fields {
		cp.Fields[k] = v
	}
	s.rows[key] = &cp
	s.ordered = append(s.ordered, key)
	return nil
}

func (s *InMemoryStore) ListByExtraction(_ context.Context, extractionID domain.ExtractionID, source domain.Source) ([]*StagedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*StagedRecord
	for _, key := range s.ordered {
		r := s.rows[key]
		if r.ExtractionID == extractionID && r.Source == source {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Extractions(_ context.Context) ([]domain.ExtractionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.ExtractionID]bool)
	var out []domain.ExtractionID
	for _, r := range s.rows {
		if !seen[r.ExtractionID] {
			seen[r.ExtractionID] = true
			out = append(out, r.ExtractionID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out, nil
}
