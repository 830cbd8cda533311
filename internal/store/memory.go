package store

import (
	"context"
	"sort"
	"sync"

	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
)

// MemoryStore keeps everything in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]*scoring.Assessment
	order       []string
	batches     map[string]*BatchRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: make(map[string]*scoring.Assessment),
		batches:     make(map[string]*BatchRecord),
	}
}

func (m *MemoryStore) SaveAssessment(_ context.Context, a *scoring.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(a)
	return nil
}

func (m *MemoryStore) putLocked(a *scoring.Assessment) {
	if _, exists := m.assessments[a.ID]; !exists {
		m.order = append(m.order, a.ID)
	}
	cp := *a
	m.assessments[a.ID] = &cp
}

func (m *MemoryStore) GetAssessment(_ context.Context, id string) (*scoring.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// ListAssessments returns newest first.
func (m *MemoryStore) ListAssessments(_ context.Context, f AssessmentFilter) ([]*scoring.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*scoring.Assessment
	for i := len(m.order) - 1; i >= 0; i-- {
		a := m.assessments[m.order[i]]
		if f.BatchID != "" && a.BatchID != f.BatchID {
			continue
		}
		if f.Tier != "" && a.Tier != f.Tier {
			continue
		}
		if f.AnalysisType != "" && a.AnalysisType != f.AnalysisType {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Provenance.AnalyzedAt.After(matched[j].Provenance.AnalyzedAt)
	})

	if f.Offset >= len(matched) {
		return []*scoring.Assessment{}, nil
	}
	matched = matched[f.Offset:]
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryStore) SaveBatch(_ context.Context, s *scoring.BatchSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range s.Items {
		if item.Assessment != nil {
			m.putLocked(item.Assessment)
		}
	}
	m.batches[s.ID] = BatchRecordFrom(s)
	return nil
}

func (m *MemoryStore) GetBatch(_ context.Context, id string) (*BatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) GetStats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{TotalAssessments: len(m.assessments), TotalBatches: len(m.batches)}
	for _, a := range m.assessments {
		switch a.Tier {
		case scoring.TierHigh:
			st.HighRisk++
		case scoring.TierMedium:
			st.MediumRisk++
		case scoring.TierLow:
			st.LowRisk++
		}
		if len(a.Provenance.Fallbacks) > 0 {
			st.WithFallbacks++
		}
	}
	for _, b := range m.batches {
		st.BatchItemErrors += b.ErrorCount
	}
	return st, nil
}

func (m *MemoryStore) Close() error { return nil }
