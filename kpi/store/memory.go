// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/kpi-engine/kpi"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	users  map[string]kpi.User
	kpis   map[string]kpi.KPI
	values map[string][]kpi.Value // keyed by KPI ID, ordered by period string
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]kpi.User),
		kpis:   make(map[string]kpi.KPI),
		values: make(map[string][]kpi.Value),
	}
}

func (m *Memory) SaveUser(_ context.Context, u kpi.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*kpi.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, kpi.ErrUserNotFound
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]kpi.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]kpi.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListAdministrators(_ context.Context) ([]kpi.User, error) {
	users, _ := m.ListUsers(context.Background())
	var admins []kpi.User
	for _, u := range users {
		if u.Admin {
			admins = append(admins, u)
		}
	}
	return admins, nil
}

func (m *Memory) SaveKPI(_ context.Context, k kpi.KPI) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kpis[k.ID] = k
	return nil
}

func (m *Memory) GetKPI(_ context.Context, id string) (*kpi.KPI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.kpis[id]
	if !ok {
		return nil, kpi.ErrKpiNotFound
	}
	return &k, nil
}

func (m *Memory) ListKPIs(_ context.Context) ([]kpi.KPI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]kpi.KPI, 0, len(m.kpis))
	for _, k := range m.kpis {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteKPI(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kpis[id]; !ok {
		return kpi.ErrKpiNotFound
	}
	delete(m.kpis, id)
	delete(m.values, id)
	return nil
}

func (m *Memory) SaveValue(_ context.Context, v kpi.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.kpis[v.KpiID]
	if !ok {
		return kpi.ErrKpiNotFound
	}
	// A period of the wrong cadence would pass the duplicate check but never
	// be seen by the status engine. Degraded KPIs carry no known cadence to
	// check against.
	if k.Interval.Valid() && v.Period.IntervalOf() != k.Interval {
		return &kpi.PeriodMismatchError{KpiID: v.KpiID, Period: v.Period, Interval: k.Interval}
	}
	vals := m.values[v.KpiID]
	for _, existing := range vals {
		if existing.Period.Equal(v.Period) {
			return &kpi.DuplicateValueError{KpiID: v.KpiID, Period: v.Period}
		}
	}

	// Keep values ordered by canonical period string for stable listings.
	i := sort.Search(len(vals), func(i int) bool {
		return vals[i].Period.String() > v.Period.String()
	})
	vals = append(vals, kpi.Value{})
	copy(vals[i+1:], vals[i:])
	vals[i] = v
	m.values[v.KpiID] = vals
	return nil
}

func (m *Memory) ListValues(_ context.Context, kpiID string) ([]kpi.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]kpi.Value, len(m.values[kpiID]))
	copy(result, m.values[kpiID])
	return result, nil
}

func (m *Memory) HasValueForPeriod(_ context.Context, kpiID string, p kpi.Period) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.values[kpiID] {
		if v.Period.Equal(p) {
			return true, nil
		}
	}
	return false, nil
}
