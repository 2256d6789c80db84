// Package memory provides an in-memory store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	workers     map[generic.WorkerID]generic.Worker
	users       map[generic.UserID]generic.User
	assignments map[generic.AssignmentID]schedule.Assignment
	order       []generic.AssignmentID // insertion order
	holidays    map[string]generic.Holiday
	balances    map[generic.BalanceKey]generic.MonthlyBalance
}

func New() *Memory {
	return &Memory{
		workers:     make(map[generic.WorkerID]generic.Worker),
		users:       make(map[generic.UserID]generic.User),
		assignments: make(map[generic.AssignmentID]schedule.Assignment),
		holidays:    make(map[string]generic.Holiday),
		balances:    make(map[generic.BalanceKey]generic.MonthlyBalance),
	}
}

// =============================================================================
// PARTIES
// =============================================================================

func (m *Memory) SaveWorker(_ context.Context, w generic.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	m.workers[w.ID] = w
	return nil
}

func (m *Memory) GetWorker(_ context.Context, id generic.WorkerID) (*generic.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workers[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *Memory) GetWorkerByAuthUser(_ context.Context, authUserID string) (*generic.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.workers {
		if authUserID != "" && w.AuthUserID == authUserID {
			return &w, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListWorkers(_ context.Context) ([]generic.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]generic.Worker, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveUser(_ context.Context, u generic.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id generic.UserID) (*generic.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]generic.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]generic.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (m *Memory) SaveAssignment(_ context.Context, a schedule.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.assignments[a.ID]; !exists {
		m.order = append(m.order, a.ID)
	}
	if a.Status == "" {
		a.Status = schedule.StatusActive
	}
	m.assignments[a.ID] = a
	return nil
}

func (m *Memory) GetAssignment(_ context.Context, id generic.AssignmentID) (*schedule.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	a = m.withNames(a)
	return &a, nil
}

func (m *Memory) UpdateAssignmentStatus(_ context.Context, id generic.AssignmentID, status schedule.AssignmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return generic.ErrAssignmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	m.assignments[id] = a
	return nil
}

func (m *Memory) UpdateAssignmentSchedule(_ context.Context, id generic.AssignmentID, weekly schedule.Weekly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return generic.ErrAssignmentNotFound
	}
	a.Schedule = weekly
	a.UpdatedAt = time.Now().UTC()
	m.assignments[id] = a
	return nil
}

func (m *Memory) AssignmentsByWorker(_ context.Context, workerID generic.WorkerID) ([]schedule.Assignment, error) {
	return m.filterAssignments(func(a schedule.Assignment) bool { return a.WorkerID == workerID }), nil
}

func (m *Memory) AssignmentsByUser(_ context.Context, userID generic.UserID) ([]schedule.Assignment, error) {
	return m.filterAssignments(func(a schedule.Assignment) bool { return a.UserID == userID }), nil
}

func (m *Memory) ActiveAssignmentsByWorker(_ context.Context, workerID generic.WorkerID) ([]schedule.Assignment, error) {
	return m.filterAssignments(func(a schedule.Assignment) bool { return a.WorkerID == workerID && a.IsActive() }), nil
}

func (m *Memory) ActiveAssignmentsByUser(_ context.Context, userID generic.UserID) ([]schedule.Assignment, error) {
	return m.filterAssignments(func(a schedule.Assignment) bool { return a.UserID == userID && a.IsActive() }), nil
}

func (m *Memory) filterAssignments(keep func(schedule.Assignment) bool) []schedule.Assignment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []schedule.Assignment
	for _, id := range m.order {
		a := m.assignments[id]
		if keep(a) {
			out = append(out, m.withNames(a))
		}
	}
	return out
}

func (m *Memory) withNames(a schedule.Assignment) schedule.Assignment {
	if w, ok := m.workers[a.WorkerID]; ok {
		a.WorkerName = w.Name
	}
	if u, ok := m.users[a.UserID]; ok {
		a.UserName = u.Name
	}
	return a
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday keeps the ID and CreatedAt of a holiday with the same date
// and name.
func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) (generic.Holiday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.holidays {
		if existing.Date.Equal(h.Date) && existing.Name == h.Name {
			existing.Type, existing.Active = h.Type, h.Active
			m.holidays[id] = existing
			return existing, nil
		}
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	m.holidays[h.ID] = h
	return h, nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return generic.ErrHolidayNotFound
	}
	delete(m.holidays, id)
	return nil
}

func (m *Memory) ListHolidays(_ context.Context, year, month int) ([]generic.Holiday, error) {
	return m.filterHolidays(func(h generic.Holiday) bool {
		return h.Date.Year() == year && (month == 0 || int(h.Date.Month()) == month)
	}), nil
}

func (m *Memory) ActiveHolidays(_ context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	period := generic.Period{Start: from, End: to}
	return m.filterHolidays(func(h generic.Holiday) bool {
		return h.Active && period.Contains(h.Date)
	}), nil
}

func (m *Memory) filterHolidays(keep func(generic.Holiday) bool) []generic.Holiday {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.Holiday
	for _, h := range m.holidays {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Name < out[j].Name
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// =============================================================================
// BALANCES
// =============================================================================

// UpsertMonthlyBalance keeps the ID and CreatedAt of an existing row.
func (m *Memory) UpsertMonthlyBalance(_ context.Context, b generic.MonthlyBalance) (generic.MonthlyBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := b.Key()
	if existing, ok := m.balances[key]; ok {
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
	} else if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	m.balances[key] = b
	return b, nil
}

func (m *Memory) GetMonthlyBalance(_ context.Context, key generic.BalanceKey) (*generic.MonthlyBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[key]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) ListMonthlyBalances(_ context.Context, filter generic.BalanceFilter) ([]generic.MonthlyBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.MonthlyBalance
	for _, b := range m.balances {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out, nil
}

// Reset drops every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = make(map[generic.WorkerID]generic.Worker)
	m.users = make(map[generic.UserID]generic.User)
	m.assignments = make(map[generic.AssignmentID]schedule.Assignment)
	m.order = nil
	m.holidays = make(map[string]generic.Holiday)
	m.balances = make(map[generic.BalanceKey]generic.MonthlyBalance)
	return nil
}
