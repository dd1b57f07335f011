// Package oracle fetches the per-round combat totals that drive resolution.
package oracle

import (
	"context"
	"sync"

	"BunkerWars/internal/model"
)

// Source provides the aggregate attack and defense totals of a round.
type Source interface {
	FetchReport(ctx context.Context, round uint64) (*model.CombatReport, error)
	Name() string
}

// MockSource returns preset reports and an all-zero report otherwise.
type MockSource struct {
	mu      sync.Mutex
	reports map[uint64]*model.CombatReport
	Err     error
}

func NewMockSource() *MockSource {
	return &MockSource{reports: make(map[uint64]*model.CombatReport)}
}

func (m *MockSource) Name() string { return "mock" }

// Set stores the report returned for its round.
func (m *MockSource) Set(r *model.CombatReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.Round] = r
}

func (m *MockSource) FetchReport(_ context.Context, round uint64) (*model.CombatReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if r, ok := m.reports[round]; ok {
		cp := *r
		return &cp, nil
	}
	return &model.CombatReport{Round: round}, nil
}
