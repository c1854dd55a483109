/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Responses reuse the
  vacation types directly (their JSON tags are the wire contract); request
  bodies get their own types so they can carry validation tags.

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response wrappers

WIRE FORMAT:
  camelCase field names, dates as "YYYY-MM-DD", statuses upper-case.

  {"id":1,"employeeId":"user1","startDate":"2024-07-01","endDate":"2024-07-05",
   "status":"PENDING","assignedTo":"user2"}

VALIDATION:
  Struct tags are checked by go-playground/validator before a handler touches
  the body. Dates arrive as strings and are parsed into calendar.Date after
  the format check, so a bad date is a field error, not a decode error.

SEE ALSO:
  - handlers.go: Uses these types
  - vacation/vacation.go: Response shape
*/
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/warp/vacation-tracker/calendar"
	"github.com/warp/vacation-tracker/vacation"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateVacationRequest submits one range. A client-sent status is ignored.
type CreateVacationRequest struct {
	StartDate  string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	AssignedTo *string `json:"assignedTo" validate:"omitempty,max=128"`
}

// CreateFromDaysRequest submits individually selected days.
type CreateFromDaysRequest struct {
	Days       []string `json:"days" validate:"required,min=1,max=366,dive,datetime=2006-01-02"`
	AssignedTo *string  `json:"assignedTo" validate:"omitempty,max=128"`
}

// UpdateVacationRequest overwrites dates and assignee, and optionally moves status.
type UpdateVacationRequest struct {
	StartDate  string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	AssignedTo *string `json:"assignedTo" validate:"omitempty,max=128"`
	Status     *string `json:"status"`

	// DeletionReason applies when status moves to PENDING_DELETION.
	DeletionReason *string `json:"deletionReason" validate:"omitempty,max=1000"`
}

type DeletionRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// DaysResponse is the calendar read-back: every claimed day plus the same
// days collapsed into ranges.
type DaysResponse struct {
	EmployeeID string           `json:"employeeId"`
	Days       []calendar.Date  `json:"days"`
	Ranges     []calendar.Range `json:"ranges"`
}

type CalendarResponse struct {
	Year  int             `json:"year"`
	Weeks []calendar.Week `json:"weeks"`
}

type AuthStatusResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *vacation.User `json:"user,omitempty"`
	LoginURL      string         `json:"loginUrl,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// VALIDATION
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts the first validator failure into a vacation
// ValidationError so the API reports it like any other bad input.
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &vacation.ValidationError{Message: err.Error()}
	}

	e := errs[0]

	var msg string
	switch e.Tag() {
	case "required":
		msg = "is required"
	case "datetime":
		msg = "must be a date in YYYY-MM-DD format"
	case "min":
		msg = fmt.Sprintf("must have at least %s entries", e.Param())
	case "max":
		msg = fmt.Sprintf("must be at most %s long", e.Param())
	default:
		msg = "is invalid"
	}
	return &vacation.ValidationError{Field: e.Field(), Message: msg}
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func parseDate(field, s string) (calendar.Date, error) {
	d, err := calendar.Parse(s)
	if err != nil {
		return calendar.Date{}, &vacation.ValidationError{Field: field, Message: "must be a valid calendar date"}
	}
	return d, nil
}

func (req CreateVacationRequest) dates() (calendar.Date, calendar.Date, error) {
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	return start, end, nil
}

func (req CreateFromDaysRequest) daySet() (calendar.DaySet, error) {
	set := calendar.NewDaySet()
	for i, s := range req.Days {
		d, err := parseDate(fmt.Sprintf("days[%d]", i), s)
		if err != nil {
			return nil, err
		}
		set.Add(d)
	}
	return set, nil
}

func (req UpdateVacationRequest) fields() (vacation.UpdateFields, error) {
	start, end, err := CreateVacationRequest{StartDate: req.StartDate, EndDate: req.EndDate}.dates()
	if err != nil {
		return vacation.UpdateFields{}, err
	}
	fields := vacation.UpdateFields{
		StartDate:      start,
		EndDate:        end,
		AssignedTo:     req.AssignedTo,
		DeletionReason: req.DeletionReason,
	}
	if req.Status != nil && *req.Status != "" {
		status, err := vacation.ParseStatus(*req.Status)
		if err != nil {
			return vacation.UpdateFields{}, err
		}
		fields.Status = &status
	}
	return fields, nil
}
