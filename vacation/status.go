/*
status.go - Vacation status lifecycle

STATE MACHINE:

	                 ┌──────────┐
	   submit ──────▶│ PENDING  │──────────────┐
	                 └──────────┘              │
	                   │      │                │
	            approve│      │reject          │ delete
	                   ▼      ▼                │
	          ┌──────────┐  ┌──────────┐       │
	          │ APPROVED │  │ REJECTED │───────┤
	          └──────────┘  └──────────┘       │
	               │ request deletion          │
	               ▼                           ▼
	     ┌──────────────────┐  approve   ┌─────────┐
	     │ PENDING_DELETION │───────────▶│ DELETED │ (terminal)
	     └──────────────────┘            └─────────┘
	         │         ▲
	  reject │         │ re-request
	         ▼         │
	     ┌───────────────────┐
	     │ DELETION_REJECTED │
	     └───────────────────┘

DELETION_REJECTED never goes back to APPROVED. A request whose deletion was
refused can only be re-submitted for deletion or stay where it is.

SEE ALSO:
  - service.go: Enforces the table on stored records
*/
package vacation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a vacation request.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusApproved         Status = "APPROVED"
	StatusRejected         Status = "REJECTED"
	StatusPendingDeletion  Status = "PENDING_DELETION"
	StatusDeletionRejected Status = "DELETION_REJECTED"
	StatusDeleted          Status = "DELETED"
)

var transitions = map[Status][]Status{
	StatusPending:          {StatusApproved, StatusRejected, StatusDeleted},
	StatusApproved:         {StatusPendingDeletion},
	StatusRejected:         {StatusDeleted},
	StatusPendingDeletion:  {StatusDeleted, StatusDeletionRejected},
	StatusDeletionRejected: {StatusPendingDeletion},
	StatusDeleted:          nil,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusApproved,
		StatusRejected,
		StatusPendingDeletion,
		StatusDeletionRejected,
		StatusDeleted,
	}
}

// CanTransition reports whether from -> to is whitelisted. Unknown statuses
// never transition.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s in one step.
func (s Status) AllowedTransitions() []Status {
	return append([]Status(nil), transitions[s]...)
}

// IsModifiable reports whether the owner may still edit the request directly.
func (s Status) IsModifiable() bool { return s == StatusPending }

// IsDeletable reports whether a deletion flow may start from s. PENDING can be
// deleted outright; APPROVED only through a deletion request.
func (s Status) IsDeletable() bool { return s == StatusPending || s == StatusApproved }

func (s Status) IsTerminal() bool { return s == StatusDeleted }

// Valid reports whether s is one of the six known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts any casing ("approved", "Pending_Deletion").
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)}
	}
	return s, nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
