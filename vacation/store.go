/*
store.go - Persistence contracts for the vacation core

PURPOSE:
  The core reads and writes vacations through these interfaces only. The
  concrete backends are swapped in at wiring time.

KEY INTERFACES:
  Store:         Vacation records by id, by employee, by status
  UserDirectory: Display-name lookups
  UserStore:     Directory plus the writes used by login and seeding

NOT FOUND:
  Get and FindUser return (nil, nil) for a missing record. Absence is not a
  store failure; the service turns it into ErrNotFound where it matters.

CONDITIONAL WRITES:
  CompareAndSwap writes a record only if its stored status still equals
  expected. Two concurrent approvals of the same PENDING request therefore
  produce one success and one ConflictError, never two successes.

IMPLEMENTATIONS:
  - vacation/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go:   SQLite for production

SEE ALSO:
  - service.go: Uses Store and UserDirectory
*/
package vacation

import "context"

// Store persists vacation records.
type Store interface {
	// Get returns the vacation or (nil, nil) if it does not exist.
	Get(ctx context.Context, id ID) (*Vacation, error)

	// Save inserts when v.ID is zero (assigning the id) and overwrites otherwise.
	// Overwriting a missing id returns ErrNotFound.
	Save(ctx context.Context, v Vacation) (Vacation, error)

	// CompareAndSwap overwrites v only if the stored status equals expected.
	// Returns ErrNotFound if absent and *ConflictError if the status moved.
	CompareAndSwap(ctx context.Context, v Vacation, expected Status) error

	// Delete removes the record. Missing ids are not an error.
	Delete(ctx context.Context, id ID) error

	FindAll(ctx context.Context) ([]Vacation, error)
	FindByEmployeeID(ctx context.Context, employeeID string) ([]Vacation, error)
	FindByStatus(ctx context.Context, statuses ...Status) ([]Vacation, error)
}

// UserDirectory resolves user ids to display entries.
type UserDirectory interface {
	// FindUser returns the user or (nil, nil) if unknown.
	FindUser(ctx context.Context, id string) (*User, error)
}

// UserStore is the writable directory used at login and for seeding.
type UserStore interface {
	UserDirectory
	SaveUser(ctx context.Context, u User) error
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
}
