package vacation

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// PendingVacation is a request awaiting a decision, with display names
// resolved for the approver's view.
type PendingVacation struct {
	Vacation
	EmployeeName   string `json:"employeeName"`
	AssignedToName string `json:"assignedToName,omitempty"`
}

// ApprovalQuery is the read side used by approvers.
type ApprovalQuery struct {
	store  Store
	users  UserDirectory
	logger *zap.Logger
}

func NewApprovalQuery(store Store, users UserDirectory, logger ...*zap.Logger) *ApprovalQuery {
	l := zap.L().Named("vacation.approvals")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("vacation.approvals")
	}
	return &ApprovalQuery{store: store, users: users, logger: l}
}

// ListPending returns every PENDING and PENDING_DELETION request ordered by id.
// Unknown users fall back to their raw id.
func (q *ApprovalQuery) ListPending(ctx context.Context) ([]PendingVacation, error) {
	vacations, err := q.store.FindByStatus(ctx, StatusPending, StatusPendingDeletion)
	if err != nil {
		q.logger.Error("list pending failed", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending vacations: %w", err)
	}
	sort.Slice(vacations, func(i, j int) bool { return vacations[i].ID < vacations[j].ID })

	names := make(map[string]string)
	out := make([]PendingVacation, 0, len(vacations))
	for _, v := range vacations {
		p := PendingVacation{Vacation: v}
		p.EmployeeName, err = q.displayName(ctx, names, v.EmployeeID)
		if err != nil {
			return nil, err
		}
		if v.AssignedTo != nil {
			p.AssignedToName, err = q.displayName(ctx, names, *v.AssignedTo)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}

	q.logger.Debug("list pending", zap.Int("count", len(out)))
	return out, nil
}

func (q *ApprovalQuery) displayName(ctx context.Context, cache map[string]string, id string) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	name := id
	if q.users != nil {
		u, err := q.users.FindUser(ctx, id)
		if err != nil {
			q.logger.Error("user lookup failed", zap.String("user_id", id), zap.Error(err))
			return "", fmt.Errorf("failed to look up user %s: %w", id, err)
		}
		if u != nil && u.Name != "" {
			name = u.Name
		}
	}
	cache[id] = name
	return name, nil
}
