package vacation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/vacation-tracker/vacation"
	"github.com/warp/vacation-tracker/vacation/store"
)

func TestListPending_ResolvesNamesAndFiltersStatus(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveUser(ctx, vacation.User{ID: "user1", Name: "John Doe"}))
	require.NoError(t, mem.SaveUser(ctx, vacation.User{ID: "user2", Name: "Jane Smith"}))
	svc := vacation.NewService(mem, zap.NewNop())

	// GIVEN: one pending, one pending deletion, one approved, one rejected
	pending, err := svc.Create(ctx, "user1", day("2024-07-01"), day("2024-07-02"), strPtr("user2"))
	require.NoError(t, err)

	deleting, err := svc.Create(ctx, "ghost", day("2024-08-01"), day("2024-08-01"), strPtr("nobody"))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, deleting.ID)
	require.NoError(t, err)
	_, err = svc.RequestDeletion(ctx, deleting.ID, "cancelled", "ghost")
	require.NoError(t, err)

	approved, err := svc.Create(ctx, "user1", day("2024-09-01"), day("2024-09-01"), nil)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, approved.ID)
	require.NoError(t, err)

	rejected, err := svc.Create(ctx, "user2", day("2024-10-01"), day("2024-10-01"), nil)
	require.NoError(t, err)
	_, err = svc.Reject(ctx, rejected.ID)
	require.NoError(t, err)

	// WHEN
	list, err := vacation.NewApprovalQuery(mem, mem, zap.NewNop()).ListPending(ctx)

	// THEN
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, pending.ID, list[0].ID)
	assert.Equal(t, "John Doe", list[0].EmployeeName)
	assert.Equal(t, "Jane Smith", list[0].AssignedToName)

	assert.Equal(t, deleting.ID, list[1].ID)
	assert.Equal(t, vacation.StatusPendingDeletion, list[1].Status)
	assert.Equal(t, "ghost", list[1].EmployeeName)
	assert.Equal(t, "nobody", list[1].AssignedToName)
}

func TestListPending_Empty(t *testing.T) {
	mem := store.NewMemory()

	list, err := vacation.NewApprovalQuery(mem, mem).ListPending(context.Background())

	require.NoError(t, err)
	assert.Empty(t, list)
}

type failingDirectory struct{}

func (failingDirectory) FindUser(context.Context, string) (*vacation.User, error) {
	return nil, errors.New("directory down")
}

func TestListPending_DirectoryFailurePropagates(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := vacation.NewService(mem, zap.NewNop()).Create(ctx, "user1", day("2024-07-01"), day("2024-07-01"), nil)
	require.NoError(t, err)

	_, err = vacation.NewApprovalQuery(mem, failingDirectory{}, zap.NewNop()).ListPending(ctx)

	assert.Error(t, err)
	assert.Equal(t, vacation.KindInternal, vacation.KindOf(err))
}
