package quality

import (
	"context"
	"sort"
	"sync"
	"time"

	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
)

// InMemoryReportStore keeps reports in a map. Used in tests and when no
// database is configured.
type InMemoryReportStore struct {
	mu      sync.RWMutex
	reports map[domain.ExtractionID]*Report
}

func NewInMemoryReportStore() *InMemoryReportStore {
	return &InMemoryReportStore{reports: make(map[domain.ExtractionID]*Report)}
}

func (s *InMemoryReportStore) Save(_ context.Context, report *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ExtractionID] = copyReport(report)
	return nil
}

func (s *InMemoryReportStore) FindByExtraction(_ context.Context, extractionID domain.ExtractionID) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[extractionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyReport(report), nil
}

func copyReport(r *Report) *Report {
	cp := *r
	cp.Checks = append([]CheckResult(nil), r.Checks...)
	cp.Records = make([]GradeValidationResult, len(r.Records))
	for i, rec := range r.Records {
		recCp := rec
		recCp.Violations = append([]string(nil), rec.Violations...)
		recCp.Outliers = append([]Outlier(nil), rec.Outliers...)
		cp.Records[i] = recCp
	}
	return &cp
}

// InMemoryMetricStore keeps metrics in insertion order.
type InMemoryMetricStore struct {
	mu      sync.RWMutex
	metrics []Metric
}

func NewInMemoryMetricStore() *InMemoryMetricStore {
	return &InMemoryMetricStore{}
}

func (s *InMemoryMetricStore) Record(_ context.Context, metric Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, metric)
	return nil
}

func (s *InMemoryMetricStore) Series(_ context.Context, name string, position domain.Position, source domain.Source, from, to time.Time) ([]Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Metric
	for _, m := range s.metrics {
		if m.Name != name || m.Position != position || m.Source != source {
			continue
		}
		if m.Date.Before(from) || m.Date.After(to) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
