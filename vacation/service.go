/*
service.go - Vacation request lifecycle

PURPOSE:
  Applies the status machine to stored records. Every mutating operation is
  a single read-check-write against the Store:

    1. Load the record (ErrNotFound if missing)
    2. Check ownership / preconditions (ErrForbidden, ErrInvalidState)
    3. Write with CompareAndSwap on the status that was checked

OPERATIONS:
  Create            New request, status forced to PENDING
  CreateFromDays    Day set -> minimal ranges -> one request per range
  Update            Edit dates/assignee (PENDING only) and/or move status
  RequestDeletion   APPROVED -> PENDING_DELETION, owner only
  Approve / Reject  PENDING -> APPROVED / REJECTED
  ApproveDeletion   PENDING_DELETION -> DELETED
  RejectDeletion    PENDING_DELETION -> DELETION_REJECTED
  Delete            Hard delete, any status

UPDATE:
  Update goes through the same table as the dedicated operations. Date and
  assignee edits need a modifiable (PENDING) request; a status change must be
  a whitelisted transition. The employee is never changed.

HARD DELETE:
  Delete removes the row regardless of status. It sits outside the lifecycle;
  the lifecycle's own end is the DELETED status.

CONCURRENCY:
  The write is conditional on the status read in step 1. If another request
  moved the record in between, the caller gets a ConflictError and nothing is
  written.

EXAMPLE:
  svc := vacation.NewService(store, logger)

  v, err := svc.Create(ctx, "e1", calendar.MustParse("2024-07-01"), calendar.MustParse("2024-07-05"), nil)
  v, err = svc.Approve(ctx, v.ID)
  v, err = svc.RequestDeletion(ctx, v.ID, "plans changed", "e1")
  v, err = svc.ApproveDeletion(ctx, v.ID)

SEE ALSO:
  - status.go:    Transition table
  - approvals.go: Read side for approvers
*/
package vacation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/vacation-tracker/calendar"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds a service over store. The logger is optional; the global
// zap logger is used when omitted.
func NewService(store Store, logger ...*zap.Logger) *Service {
	l := zap.L().Named("vacation.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("vacation.service")
	}
	return &Service{store: store, logger: l, now: time.Now}
}

// UpdateFields is the full set of fields a caller may overwrite.
type UpdateFields struct {
	StartDate  calendar.Date
	EndDate    calendar.Date
	AssignedTo *string
	Status     *Status // nil keeps the current status

	// DeletionReason is recorded when Status moves to PENDING_DELETION. nil
	// keeps the reason already on the record.
	DeletionReason *string
}

// =============================================================================
// CREATE
// =============================================================================

// Create submits a new request. The status is always PENDING.
func (s *Service) Create(ctx context.Context, employeeID string, start, end calendar.Date, assignedTo *string) (Vacation, error) {
	s.logger.Debug("create vacation requested",
		zap.String("employee_id", employeeID),
		zap.Stringer("start_date", start),
		zap.Stringer("end_date", end),
	)

	if strings.TrimSpace(employeeID) == "" {
		err := &ValidationError{Field: "employeeId", Message: "is required"}
		observeFailure("create", err)
		return Vacation{}, err
	}
	if err := validateRange(start, end); err != nil {
		s.logger.Warn("create vacation validation failed", zap.String("employee_id", employeeID), zap.Error(err))
		observeFailure("create", err)
		return Vacation{}, err
	}

	now := s.now().UTC()
	saved, err := s.store.Save(ctx, Vacation{
		EmployeeID: employeeID,
		StartDate:  start,
		EndDate:    end,
		Status:     StatusPending,
		AssignedTo: normalizeAssignee(assignedTo),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		s.logger.Error("create vacation persist failed", zap.String("employee_id", employeeID), zap.Error(err))
		observeFailure("create", err)
		return Vacation{}, fmt.Errorf("failed to save vacation: %w", err)
	}

	requestsCreatedTotal.Inc()
	s.logger.Info("create vacation success",
		zap.Int64("vacation_id", int64(saved.ID)),
		zap.String("employee_id", employeeID),
		zap.Int("days", saved.Days()),
	)
	return saved, nil
}

// CreateFromDays turns individually selected days into the fewest contiguous
// requests and submits each one, earliest first. Creation is not atomic: when
// the store fails partway, the requests already created stay persisted and are
// returned together with the error.
func (s *Service) CreateFromDays(ctx context.Context, employeeID string, days calendar.DaySet, assignedTo *string) ([]Vacation, error) {
	if days.Len() == 0 {
		err := &ValidationError{Field: "days", Message: "at least one day is required"}
		observeFailure("create", err)
		return nil, err
	}

	ranges := calendar.ToRanges(days)
	created := make([]Vacation, 0, len(ranges))
	for _, r := range ranges {
		v, err := s.Create(ctx, employeeID, r.Start, r.End, assignedTo)
		if err != nil {
			if len(created) > 0 {
				s.logger.Warn("create from days stopped partway",
					zap.String("employee_id", employeeID),
					zap.Int("created", len(created)),
					zap.Int("ranges", len(ranges)),
				)
			}
			return created, err
		}
		created = append(created, v)
	}
	return created, nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) Get(ctx context.Context, id ID) (Vacation, error) {
	return s.load(ctx, "get", id)
}

// ListForEmployee returns every request of the employee, any status.
func (s *Service) ListForEmployee(ctx context.Context, employeeID string) ([]Vacation, error) {
	vacations, err := s.store.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vacations: %w", err)
	}
	return vacations, nil
}

// DaysForEmployee returns the days still claimed by the employee's requests
// (everything except REJECTED and DELETED).
func (s *Service) DaysForEmployee(ctx context.Context, employeeID string) (calendar.DaySet, error) {
	vacations, err := s.ListForEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	ranges := make([]calendar.Range, 0, len(vacations))
	for _, v := range vacations {
		if v.Live() {
			ranges = append(ranges, v.Range())
		}
	}
	return calendar.ToDays(ranges), nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update overwrites dates, assignee and optionally status of a request. Moving
// to PENDING_DELETION is a deletion request and only the owner may make it.
func (s *Service) Update(ctx context.Context, id ID, fields UpdateFields, actingEmployeeID string) (Vacation, error) {
	s.logger.Debug("update vacation requested", zap.Int64("vacation_id", int64(id)))

	v, err := s.load(ctx, "update", id)
	if err != nil {
		return Vacation{}, err
	}

	if err := validateRange(fields.StartDate, fields.EndDate); err != nil {
		observeFailure("update", err)
		return Vacation{}, err
	}

	assignee := normalizeAssignee(fields.AssignedTo)
	detailsChanged := fields.StartDate != v.StartDate ||
		fields.EndDate != v.EndDate ||
		!sameAssignee(assignee, v.AssignedTo)
	if detailsChanged && !v.Status.IsModifiable() {
		return Vacation{}, s.rejectTransition("update", v, "")
	}

	from := v.Status
	to := from
	if fields.Status != nil {
		to = *fields.Status
	}
	if to != from && to == StatusPendingDeletion {
		if err := s.ownerOnly(actingEmployeeID)(v); err != nil {
			observeFailure("update", err)
			return Vacation{}, err
		}
	}
	if to != from && !CanTransition(from, to) {
		return Vacation{}, s.rejectTransition("update", v, to)
	}
	if to != from && to == StatusPendingDeletion && fields.DeletionReason != nil {
		v.DeletionReason = ptr(*fields.DeletionReason)
	}

	v.StartDate = fields.StartDate
	v.EndDate = fields.EndDate
	v.AssignedTo = assignee
	v.Status = to
	v.UpdatedAt = s.now().UTC()

	if err := s.write(ctx, "update", v, from); err != nil {
		return Vacation{}, err
	}
	return v, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// RequestDeletion asks for an approved request to be withdrawn. Only the owner
// may ask.
func (s *Service) RequestDeletion(ctx context.Context, id ID, reason, actingEmployeeID string) (Vacation, error) {
	return s.transition(ctx, "request_deletion", id, StatusApproved, StatusPendingDeletion, s.ownerOnly(actingEmployeeID), func(v *Vacation) {
		v.DeletionReason = ptr(reason)
	})
}

func (s *Service) Approve(ctx context.Context, id ID) (Vacation, error) {
	return s.transition(ctx, "approve", id, StatusPending, StatusApproved, nil, nil)
}

func (s *Service) Reject(ctx context.Context, id ID) (Vacation, error) {
	return s.transition(ctx, "reject", id, StatusPending, StatusRejected, nil, nil)
}

func (s *Service) ApproveDeletion(ctx context.Context, id ID) (Vacation, error) {
	return s.transition(ctx, "approve_deletion", id, StatusPendingDeletion, StatusDeleted, nil, nil)
}

func (s *Service) RejectDeletion(ctx context.Context, id ID) (Vacation, error) {
	return s.transition(ctx, "reject_deletion", id, StatusPendingDeletion, StatusDeletionRejected, nil, nil)
}

// Delete removes the record whatever its status.
func (s *Service) Delete(ctx context.Context, id ID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("delete vacation failed", zap.Int64("vacation_id", int64(id)), zap.Error(err))
		observeFailure("delete", err)
		return fmt.Errorf("failed to delete vacation: %w", err)
	}
	s.logger.Info("delete vacation success", zap.Int64("vacation_id", int64(id)))
	return nil
}

// transition moves a record from -> to. guard runs after the record is
// loaded and before the status check; mutate runs before the write.
func (s *Service) transition(
	ctx context.Context,
	op string,
	id ID,
	from, to Status,
	guard func(Vacation) error,
	mutate func(*Vacation),
) (Vacation, error) {
	s.logger.Debug("transition vacation requested",
		zap.String("op", op),
		zap.Int64("vacation_id", int64(id)),
		zap.Stringer("to_status", to),
	)

	v, err := s.load(ctx, op, id)
	if err != nil {
		return Vacation{}, err
	}

	if guard != nil {
		if err := guard(v); err != nil {
			observeFailure(op, err)
			return Vacation{}, err
		}
	}

	if v.Status != from || !CanTransition(v.Status, to) {
		return Vacation{}, s.rejectTransition(op, v, to)
	}

	if mutate != nil {
		mutate(&v)
	}
	v.Status = to
	v.UpdatedAt = s.now().UTC()

	if err := s.write(ctx, op, v, from); err != nil {
		return Vacation{}, err
	}
	return v, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) load(ctx context.Context, op string, id ID) (Vacation, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("load vacation failed", zap.String("op", op), zap.Int64("vacation_id", int64(id)), zap.Error(err))
		observeFailure(op, err)
		return Vacation{}, fmt.Errorf("failed to load vacation %d: %w", id, err)
	}
	if v == nil {
		err := &NotFoundError{ID: id}
		observeFailure(op, err)
		return Vacation{}, err
	}
	return *v, nil
}

func (s *Service) write(ctx context.Context, op string, v Vacation, expected Status) error {
	if err := s.store.CompareAndSwap(ctx, v, expected); err != nil {
		observeFailure(op, err)
		var conflict *ConflictError
		if errors.As(err, &conflict) || IsNotFound(err) {
			s.logger.Warn("vacation changed concurrently",
				zap.String("op", op),
				zap.Int64("vacation_id", int64(v.ID)),
				zap.Stringer("expected_status", expected),
				zap.Error(err),
			)
			return err
		}
		s.logger.Error("vacation persist failed", zap.String("op", op), zap.Int64("vacation_id", int64(v.ID)), zap.Error(err))
		return fmt.Errorf("failed to save vacation %d: %w", v.ID, err)
	}

	if expected != v.Status {
		transitionsTotal.WithLabelValues(string(expected), string(v.Status)).Inc()
	}
	s.logger.Info("vacation updated",
		zap.String("op", op),
		zap.Int64("vacation_id", int64(v.ID)),
		zap.Stringer("from_status", expected),
		zap.Stringer("to_status", v.Status),
	)
	return nil
}

// ownerOnly refuses deletion requests made by anyone but the record's owner.
func (s *Service) ownerOnly(actingEmployeeID string) func(Vacation) error {
	return func(v Vacation) error {
		if v.EmployeeID == actingEmployeeID {
			return nil
		}
		s.logger.Warn("request deletion forbidden",
			zap.Int64("vacation_id", int64(v.ID)),
			zap.String("actor_id", actingEmployeeID),
			zap.String("owner_id", v.EmployeeID),
		)
		return &ForbiddenError{ID: v.ID, Actor: actingEmployeeID, Owner: v.EmployeeID}
	}
}

func (s *Service) rejectTransition(op string, v Vacation, to Status) error {
	err := &TransitionError{ID: v.ID, From: v.Status, To: to, Op: op}
	s.logger.Warn("vacation transition invalid",
		zap.String("op", op),
		zap.Int64("vacation_id", int64(v.ID)),
		zap.Stringer("from_status", v.Status),
		zap.Stringer("to_status", to),
	)
	observeFailure(op, err)
	return err
}

func normalizeAssignee(a *string) *string {
	if a == nil || strings.TrimSpace(*a) == "" {
		return nil
	}
	return ptr(strings.TrimSpace(*a))
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
