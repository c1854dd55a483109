/*
handlers.go - HTTP API handlers for the vacation tracker

PURPOSE:
  Exposes the vacation service via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to the vacation package.

ENDPOINTS:
  Users:
    GET    /api/users                              List directory
    GET    /api/auth/status                        Who am I

  Vacations (caller = identity from auth middleware):
    POST   /api/vacation                           Submit a range
    POST   /api/vacation/days                      Submit selected days
    GET    /api/vacation                           Caller's requests
    GET    /api/vacation/days                      Caller's claimed days
    GET    /api/vacation/employee/{employeeId}     Someone's requests
    GET    /api/vacation/pending-approvals         Approval queue
    PUT    /api/vacation/{id}                      Update
    DELETE /api/vacation/{id}                      Hard delete

  Transitions:
    POST   /api/vacation/{id}/request-deletion     APPROVED -> PENDING_DELETION
    POST   /api/vacation/{id}/approve              PENDING -> APPROVED
    POST   /api/vacation/{id}/reject               PENDING -> REJECTED
    POST   /api/vacation/{id}/approve-deletion     PENDING_DELETION -> DELETED
    POST   /api/vacation/{id}/reject-deletion      PENDING_DELETION -> DELETION_REJECTED

  Calendar:
    GET    /api/calendar/{year}                    Monday-first week grid

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (struct tags, then date parsing)
  3. Call the vacation service
  4. Serialize response
  5. Map errors by kind (see errors.go)

ERROR HANDLING:
  - 400: Validation errors, transitions the lifecycle does not allow
  - 401: No identity (auth.go)
  - 403: Deletion requested by someone other than the owner
  - 404: Vacation not found
  - 409: Lost a concurrent status change
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error kind to status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/vacation-tracker/calendar"
	"github.com/warp/vacation-tracker/vacation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the API needs from a backend: records plus the user directory.
type Store interface {
	vacation.Store
	vacation.UserStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Vacations *vacation.Service
	Approvals *vacation.ApprovalQuery

	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{
		Store:     store,
		Vacations: vacation.NewService(store, logger),
		Approvals: vacation.NewApprovalQuery(store, store, logger),
		validate:  newValidator(),
		logger:    logger.Named("api"),
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns the user directory.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// =============================================================================
// VACATION HANDLERS
// =============================================================================

// CreateVacation submits a request for the caller.
func (h *Handler) CreateVacation(w http.ResponseWriter, r *http.Request) {
	var req CreateVacationRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	v, err := h.Vacations.Create(r.Context(), actor(r), start, end, req.AssignedTo)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// CreateFromDays batches selected days into the fewest requests.
func (h *Handler) CreateFromDays(w http.ResponseWriter, r *http.Request) {
	var req CreateFromDaysRequest
	if !h.decode(w, r, &req) {
		return
	}
	days, err := req.daySet()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	created, err := h.Vacations.CreateFromDays(r.Context(), actor(r), days, req.AssignedTo)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListMine returns the caller's requests.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, actor(r))
}

// ListForEmployee returns another employee's requests.
func (h *Handler) ListForEmployee(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, chi.URLParam(r, "employeeId"))
}

func (h *Handler) listFor(w http.ResponseWriter, r *http.Request, employeeID string) {
	vacations, err := h.Vacations.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vacations)
}

// DaysMine returns the caller's claimed days for calendar rendering.
func (h *Handler) DaysMine(w http.ResponseWriter, r *http.Request) {
	employeeID := actor(r)
	days, err := h.Vacations.DaysForEmployee(r.Context(), employeeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{
		EmployeeID: employeeID,
		Days:       days.Sorted(),
		Ranges:     calendar.ToRanges(days),
	})
}

// PendingApprovals returns the approval queue.
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Approvals.ListPending(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

// UpdateVacation overwrites dates/assignee and optionally moves status. A move
// to PENDING_DELETION is only accepted from the owner.
func (h *Handler) UpdateVacation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vacationID(w, r)
	if !ok {
		return
	}
	var req UpdateVacationRequest
	if !h.decode(w, r, &req) {
		return
	}
	fields, err := req.fields()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	v, err := h.Vacations.Update(r.Context(), id, fields, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteVacation hard-deletes a request.
func (h *Handler) DeleteVacation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vacationID(w, r)
	if !ok {
		return
	}
	if err := h.Vacations.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSITION HANDLERS
// =============================================================================

// RequestDeletion asks for the caller's approved request to be withdrawn.
func (h *Handler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.vacationID(w, r)
	if !ok {
		return
	}
	var req DeletionRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	v, err := h.Vacations.RequestDeletion(r.Context(), id, req.Reason, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Vacations.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Vacations.Reject)
}

func (h *Handler) ApproveDeletion(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Vacations.ApproveDeletion)
}

func (h *Handler) RejectDeletion(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Vacations.RejectDeletion)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, vacation.ID) (vacation.Vacation, error)) {
	id, ok := h.vacationID(w, r)
	if !ok {
		return
	}
	v, err := op(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar returns the Monday-first week grid of a year.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		h.writeServiceError(w, r, &vacation.ValidationError{Field: "year", Message: "must be between 1 and 9999"})
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{Year: year, Weeks: calendar.WeeksInYear(year)})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decode reads and validates a JSON body. On failure it writes the 400 and
// returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		h.writeServiceError(w, r, &vacation.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeServiceError(w, r, validationError(err))
		return false
	}
	return true
}

func (h *Handler) vacationID(w http.ResponseWriter, r *http.Request) (vacation.ID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeServiceError(w, r, &vacation.ValidationError{Field: "id", Message: "must be a positive integer"})
		return 0, false
	}
	return vacation.ID(id), true
}

// actor is only called behind the identity middleware.
func actor(r *http.Request) string {
	id, _ := ActorFrom(r.Context())
	return id
}

func zapRequest(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
}
