package vacation

import (
	"time"

	"github.com/warp/vacation-tracker/calendar"
)

// ID identifies a stored vacation. Zero means not stored yet.
type ID int64

// Vacation is a time-off request for an inclusive range of calendar days.
type Vacation struct {
	ID             ID            `json:"id"`
	EmployeeID     string        `json:"employeeId"`
	StartDate      calendar.Date `json:"startDate"`
	EndDate        calendar.Date `json:"endDate"`
	Status         Status        `json:"status"`
	AssignedTo     *string       `json:"assignedTo,omitempty"`
	DeletionReason *string       `json:"deletionReason,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Range returns the requested days as a calendar range.
func (v Vacation) Range() calendar.Range {
	return calendar.NewRange(v.StartDate, v.EndDate)
}

// Days returns the number of calendar days requested.
func (v Vacation) Days() int { return v.Range().Len() }

// Live reports whether the request still claims its days.
func (v Vacation) Live() bool {
	return v.Status != StatusDeleted && v.Status != StatusRejected
}

// User is a directory entry used to display names.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func validateRange(start, end calendar.Date) error {
	if start.IsZero() {
		return &ValidationError{Field: "startDate", Message: "is required"}
	}
	if end.IsZero() {
		return &ValidationError{Field: "endDate", Message: "is required"}
	}
	if !calendar.NewRange(start, end).Valid() {
		return &ValidationError{Field: "endDate", Message: "must not be before startDate"}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
