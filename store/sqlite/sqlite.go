/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the vacation persistence interfaces (Store, UserStore) using
  SQLite. The same SQL runs on PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  vacation.Store:     Vacation requests
  vacation.UserStore: User directory

KEY TABLES:
  vacations: One row per request, status column drives the lifecycle
  users:     Display names keyed by login id

INDEXES:
  - idx_vacations_employee: Per-employee listing and calendar read-back
  - idx_vacations_status:   Approval queue

CONDITIONAL WRITES:
  CompareAndSwap issues UPDATE ... WHERE id = ? AND status = ? and inspects
  the affected row count. Zero rows means either the record is gone or its
  status moved; a follow-up read tells the two apart.

DATES:
  Calendar dates are stored as TEXT 'YYYY-MM-DD' so ordering and equality
  work on the raw column. Timestamps are RFC3339 UTC.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/vacations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := vacation.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - vacation/store.go: Interface definitions
  - vacation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/vacation-tracker/vacation"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Vacation requests
	CREATE TABLE IF NOT EXISTS vacations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN (
			'PENDING', 'APPROVED', 'REJECTED',
			'PENDING_DELETION', 'DELETION_REJECTED', 'DELETED'
		)),
		assigned_to TEXT,
		deletion_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_date <= end_date)
	);

	CREATE INDEX IF NOT EXISTS idx_vacations_employee
		ON vacations(employee_id, start_date);
	CREATE INDEX IF NOT EXISTS idx_vacations_status
		ON vacations(status);

	-- User directory
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// VACATION STORE
// =============================================================================

const vacationColumns = `id, employee_id, start_date, end_date, status,
	assigned_to, deletion_reason, created_at, updated_at`

// Get returns the vacation or nil if absent.
func (s *Store) Get(ctx context.Context, id vacation.ID) (*vacation.Vacation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, id)
}

func (s *Store) get(ctx context.Context, id vacation.ID) (*vacation.Vacation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+vacationColumns+" FROM vacations WHERE id = ?",
		int64(id),
	)
	v, err := scanVacation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vacation: %w", err)
	}
	return &v, nil
}

// Save inserts a new vacation (zero ID) or overwrites an existing one.
func (s *Store) Save(ctx context.Context, v vacation.Vacation) (vacation.Vacation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}

	if v.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO vacations (employee_id, start_date, end_date, status,
				assigned_to, deletion_reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			v.EmployeeID, v.StartDate, v.EndDate, string(v.Status),
			nullString(v.AssignedTo), nullString(v.DeletionReason),
			formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
		)
		if err != nil {
			return vacation.Vacation{}, fmt.Errorf("failed to insert vacation: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return vacation.Vacation{}, fmt.Errorf("failed to read vacation id: %w", err)
		}
		v.ID = vacation.ID(id)
		return v, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE vacations SET
			employee_id = ?, start_date = ?, end_date = ?, status = ?,
			assigned_to = ?, deletion_reason = ?, updated_at = ?
		WHERE id = ?
	`,
		v.EmployeeID, v.StartDate, v.EndDate, string(v.Status),
		nullString(v.AssignedTo), nullString(v.DeletionReason),
		formatTime(v.UpdatedAt), int64(v.ID),
	)
	if err != nil {
		return vacation.Vacation{}, fmt.Errorf("failed to update vacation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return vacation.Vacation{}, err
	} else if n == 0 {
		return vacation.Vacation{}, &vacation.NotFoundError{ID: v.ID}
	}
	return v, nil
}

// CompareAndSwap overwrites v only while the stored status equals expected.
func (s *Store) CompareAndSwap(ctx context.Context, v vacation.Vacation, expected vacation.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE vacations SET
			start_date = ?, end_date = ?, status = ?,
			assigned_to = ?, deletion_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		v.StartDate, v.EndDate, string(v.Status),
		nullString(v.AssignedTo), nullString(v.DeletionReason),
		formatTime(v.UpdatedAt),
		int64(v.ID), string(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to update vacation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	current, err := s.get(ctx, v.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return &vacation.NotFoundError{ID: v.ID}
	}
	return &vacation.ConflictError{ID: v.ID, Expected: expected}
}

// Delete removes a vacation. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, id vacation.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM vacations WHERE id = ?", int64(id))
	return err
}

func (s *Store) FindAll(ctx context.Context) ([]vacation.Vacation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryVacations(ctx, "SELECT "+vacationColumns+" FROM vacations ORDER BY id")
}

func (s *Store) FindByEmployeeID(ctx context.Context, employeeID string) ([]vacation.Vacation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryVacations(ctx,
		"SELECT "+vacationColumns+" FROM vacations WHERE employee_id = ? ORDER BY id",
		employeeID,
	)
}

func (s *Store) FindByStatus(ctx context.Context, statuses ...vacation.Status) ([]vacation.Vacation, error) {
	if len(statuses) == 0 {
		return []vacation.Vacation{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return s.queryVacations(ctx,
		"SELECT "+vacationColumns+" FROM vacations WHERE status IN ("+placeholders+") ORDER BY id",
		args...,
	)
}

func (s *Store) queryVacations(ctx context.Context, query string, args ...any) ([]vacation.Vacation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacations: %w", err)
	}
	defer rows.Close()

	result := make([]vacation.Vacation, 0)
	for rows.Next() {
		v, err := scanVacation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVacation(row scanner) (vacation.Vacation, error) {
	var (
		v                    vacation.Vacation
		id                   int64
		status               string
		assigned, reason     sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &v.EmployeeID, &v.StartDate, &v.EndDate, &status,
		&assigned, &reason, &createdAt, &updatedAt)
	if err != nil {
		return vacation.Vacation{}, err
	}

	v.ID = vacation.ID(id)
	v.Status = vacation.Status(status)
	if assigned.Valid {
		v.AssignedTo = &assigned.String
	}
	if reason.Valid {
		v.DeletionReason = &reason.String
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return vacation.Vacation{}, fmt.Errorf("failed to parse created_at of vacation %d: %w", id, err)
	}
	if v.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return vacation.Vacation{}, fmt.Errorf("failed to parse updated_at of vacation %d: %w", id, err)
	}
	return v, nil
}

// =============================================================================
// USER STORE
// =============================================================================

// SaveUser inserts the user or renames an existing one.
func (s *Store) SaveUser(ctx context.Context, u vacation.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query, u.ID, u.Name, formatTime(time.Now()))
	return err
}

// FindUser retrieves a user by ID.
func (s *Store) FindUser(ctx context.Context, id string) (*vacation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u vacation.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]vacation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]vacation.User, 0)
	for rows.Next() {
		var u vacation.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var (
	_ vacation.Store     = (*Store)(nil)
	_ vacation.UserStore = (*Store)(nil)
)
