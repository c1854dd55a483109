// Package store provides in-process Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/vacation-tracker/vacation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	vacations map[vacation.ID]vacation.Vacation
	users     map[string]vacation.User
	nextID    vacation.ID
}

func NewMemory() *Memory {
	return &Memory{
		vacations: make(map[vacation.ID]vacation.Vacation),
		users:     make(map[string]vacation.User),
		nextID:    1,
	}
}

// Get returns a copy of the record, or nil if absent.
func (m *Memory) Get(_ context.Context, id vacation.ID) (*vacation.Vacation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vacations[id]
	if !ok {
		return nil, nil
	}
	v = clone(v)
	return &v, nil
}

func (m *Memory) Save(_ context.Context, v vacation.Vacation) (vacation.Vacation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.ID == 0 {
		v.ID = m.nextID
		m.nextID++
	} else if _, ok := m.vacations[v.ID]; !ok {
		return vacation.Vacation{}, &vacation.NotFoundError{ID: v.ID}
	}
	m.vacations[v.ID] = clone(v)
	return clone(v), nil
}

// CompareAndSwap writes v only if the stored status still equals expected.
func (m *Memory) CompareAndSwap(_ context.Context, v vacation.Vacation, expected vacation.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.vacations[v.ID]
	if !ok {
		return &vacation.NotFoundError{ID: v.ID}
	}
	if current.Status != expected {
		return &vacation.ConflictError{ID: v.ID, Expected: expected}
	}
	m.vacations[v.ID] = clone(v)
	return nil
}

func (m *Memory) Delete(_ context.Context, id vacation.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vacations, id)
	return nil
}

func (m *Memory) FindAll(_ context.Context) ([]vacation.Vacation, error) {
	return m.filter(func(vacation.Vacation) bool { return true }), nil
}

func (m *Memory) FindByEmployeeID(_ context.Context, employeeID string) ([]vacation.Vacation, error) {
	return m.filter(func(v vacation.Vacation) bool { return v.EmployeeID == employeeID }), nil
}

func (m *Memory) FindByStatus(_ context.Context, statuses ...vacation.Status) ([]vacation.Vacation, error) {
	want := make(map[vacation.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	return m.filter(func(v vacation.Vacation) bool { return want[v.Status] }), nil
}

// filter returns matching records ordered by id.
func (m *Memory) filter(keep func(vacation.Vacation) bool) []vacation.Vacation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]vacation.Vacation, 0)
	for _, v := range m.vacations {
		if keep(v) {
			result = append(result, clone(v))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) FindUser(_ context.Context, id string) (*vacation.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// SaveUser inserts or renames the user.
func (m *Memory) SaveUser(_ context.Context, u vacation.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) ListUsers(_ context.Context) ([]vacation.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]vacation.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) CountUsers(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// clone detaches the optional string fields so callers cannot mutate stored
// records through shared pointers.
func clone(v vacation.Vacation) vacation.Vacation {
	if v.AssignedTo != nil {
		a := *v.AssignedTo
		v.AssignedTo = &a
	}
	if v.DeletionReason != nil {
		r := *v.DeletionReason
		v.DeletionReason = &r
	}
	return v
}

var (
	_ vacation.Store     = (*Memory)(nil)
	_ vacation.UserStore = (*Memory)(nil)
)
