package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/vacation-tracker/calendar"
	"github.com/warp/vacation-tracker/vacation"
	"github.com/warp/vacation-tracker/vacation/store"
)

func newVacation(employee string, status vacation.Status) vacation.Vacation {
	return vacation.Vacation{
		EmployeeID: employee,
		StartDate:  calendar.MustParse("2024-07-01"),
		EndDate:    calendar.MustParse("2024-07-03"),
		Status:     status,
	}
}

func TestMemory_SaveAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	a, err := m.Save(ctx, newVacation("e1", vacation.StatusPending))
	require.NoError(t, err)
	b, err := m.Save(ctx, newVacation("e1", vacation.StatusPending))
	require.NoError(t, err)

	assert.Equal(t, vacation.ID(1), a.ID)
	assert.Equal(t, vacation.ID(2), b.ID)
}

func TestMemory_GetMissingReturnsNil(t *testing.T) {
	v, err := store.NewMemory().Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemory_SaveMissingIDIsNotFound(t *testing.T) {
	v := newVacation("e1", vacation.StatusPending)
	v.ID = 9

	_, err := store.NewMemory().Save(context.Background(), v)
	assert.ErrorIs(t, err, vacation.ErrNotFound)
}

func TestMemory_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	v, err := m.Save(ctx, newVacation("e1", vacation.StatusPending))
	require.NoError(t, err)

	v.Status = vacation.StatusApproved
	require.NoError(t, m.CompareAndSwap(ctx, v, vacation.StatusPending))

	// second writer still expects PENDING
	v.Status = vacation.StatusRejected
	err = m.CompareAndSwap(ctx, v, vacation.StatusPending)
	assert.ErrorIs(t, err, vacation.ErrConcurrentModification)

	stored, err := m.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, vacation.StatusApproved, stored.Status)

	v.ID = 99
	assert.ErrorIs(t, m.CompareAndSwap(ctx, v, vacation.StatusPending), vacation.ErrNotFound)
}

func TestMemory_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	in := newVacation("e1", vacation.StatusPending)
	assignee := "user2"
	in.AssignedTo = &assignee
	saved, err := m.Save(ctx, in)
	require.NoError(t, err)

	got, err := m.Get(ctx, saved.ID)
	require.NoError(t, err)
	*got.AssignedTo = "mutated"
	assignee = "mutated too"

	again, err := m.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "user2", *again.AssignedTo)
}

func TestMemory_Finders(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	for _, v := range []vacation.Vacation{
		newVacation("e1", vacation.StatusPending),
		newVacation("e2", vacation.StatusApproved),
		newVacation("e1", vacation.StatusPendingDeletion),
		newVacation("e3", vacation.StatusDeleted),
	} {
		_, err := m.Save(ctx, v)
		require.NoError(t, err)
	}

	all, err := m.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mine, err := m.FindByEmployeeID(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, vacation.ID(1), mine[0].ID)
	assert.Equal(t, vacation.ID(3), mine[1].ID)

	pending, err := m.FindByStatus(ctx, vacation.StatusPending, vacation.StatusPendingDeletion)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	none, err := m.FindByEmployeeID(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	v, err := m.Save(ctx, newVacation("e1", vacation.StatusApproved))
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, v.ID))
	require.NoError(t, m.Delete(ctx, v.ID))

	got, err := m.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveUser(ctx, vacation.User{ID: "user2", Name: "Jane"}))
	require.NoError(t, m.SaveUser(ctx, vacation.User{ID: "user1", Name: "John"}))
	require.NoError(t, m.SaveUser(ctx, vacation.User{ID: "user2", Name: "Jane Smith"}))

	n, err := m.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []vacation.User{{ID: "user1", Name: "John"}, {ID: "user2", Name: "Jane Smith"}}, users)

	u, err := m.FindUser(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, u)
}
