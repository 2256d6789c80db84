/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface (generic.PartyStore,
  generic.HolidayStore, generic.BalanceStore, schedule.AssignmentStore)
  using SQLite. It is the default store and the one used by API tests.

KEY TABLES:
  workers:          Care workers (auth_user_id links a login to a worker)
  users:            Care clients with their contracted monthly hours
  assignments:      Worker/user pairs with a weekly schedule (schedule_json)
  holidays:         Registered holidays (local / regional / nacional)
  monthly_balances: Generated balances, unique per (user, worker, month, year)

SCHEDULE STORAGE:
  schedule_json is written in the canonical object encoding by
  factory.FormatSchedule and read back through factory.ParseSchedule, which
  also accepts the legacy tuple encoding found in imported data.

UPSERTS:
  monthly_balances uses ON CONFLICT(user_id, worker_id, month, year) DO
  UPDATE. The id and created_at of an existing row are kept, so repeating a
  generation yields an identical row.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL (store/postgres)
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/carebalance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - store/postgres/postgres.go: PostgreSQL implementation
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/carebalance/factory"
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

const dateLayout = "2006-01-02"

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
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		auth_user_id TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		monthly_hours TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL REFERENCES workers(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'active',
		schedule_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_worker_status
		ON assignments(worker_id, status);
	CREATE INDEX IF NOT EXISTS idx_assignments_user_status
		ON assignments(user_id, status);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'nacional',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);
	CREATE INDEX IF NOT EXISTS idx_holidays_active_date
		ON holidays(is_active, date);

	CREATE TABLE IF NOT EXISTS monthly_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		monthly_hours TEXT NOT NULL,
		assigned_hours TEXT NOT NULL,
		used_hours TEXT NOT NULL,
		remaining_hours TEXT NOT NULL,
		excess_hours TEXT NOT NULL,
		status TEXT NOT NULL,
		percentage REAL NOT NULL,
		holiday_info_json TEXT NOT NULL,
		planning_json TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, worker_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_monthly_balances_period
		ON monthly_balances(year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WORKERS & USERS (generic.PartyStore)
// =============================================================================

// SaveWorker inserts or updates a worker.
func (s *Store) SaveWorker(ctx context.Context, w generic.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO workers (id, name, email, auth_user_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			auth_user_id = excluded.auth_user_id
	`

	_, err := s.db.ExecContext(ctx, query,
		w.ID, w.Name, w.Email, nullString(w.AuthUserID), formatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// GetWorker returns nil, nil when the worker does not exist.
func (s *Store) GetWorker(ctx context.Context, id generic.WorkerID) (*generic.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getWorker(ctx, "SELECT id, name, email, auth_user_id, created_at FROM workers WHERE id = ?", id)
}

// GetWorkerByAuthUser returns the worker owned by a login, or nil, nil.
func (s *Store) GetWorkerByAuthUser(ctx context.Context, authUserID string) (*generic.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getWorker(ctx, "SELECT id, name, email, auth_user_id, created_at FROM workers WHERE auth_user_id = ?", authUserID)
}

func (s *Store) getWorker(ctx context.Context, query string, arg any) (*generic.Worker, error) {
	w, err := scanWorker(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return &w, nil
}

// ListWorkers returns all workers ordered by name.
func (s *Store) ListWorkers(ctx context.Context) ([]generic.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email, auth_user_id, created_at FROM workers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []generic.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// SaveUser inserts or updates a user.
func (s *Store) SaveUser(ctx context.Context, u generic.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, email, monthly_hours, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			monthly_hours = excluded.monthly_hours
	`

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.MonthlyHours.Value.String(), formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser returns nil, nil when the user does not exist.
func (s *Store) GetUser(ctx context.Context, id generic.UserID) (*generic.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, name, email, monthly_hours, created_at FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]generic.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email, monthly_hours, created_at FROM users ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []generic.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorker(row scanner) (generic.Worker, error) {
	var w generic.Worker
	var email, authUserID sql.NullString
	var createdAt string
	if err := row.Scan(&w.ID, &w.Name, &email, &authUserID, &createdAt); err != nil {
		return generic.Worker{}, err
	}
	w.Email = email.String
	w.AuthUserID = authUserID.String
	w.CreatedAt = parseTime(createdAt)
	return w, nil
}

func scanUser(row scanner) (generic.User, error) {
	var u generic.User
	var email sql.NullString
	var monthly, createdAt string
	if err := row.Scan(&u.ID, &u.Name, &email, &monthly, &createdAt); err != nil {
		return generic.User{}, err
	}
	u.Email = email.String
	u.MonthlyHours = parseHours(monthly)
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// =============================================================================
// ASSIGNMENTS (schedule.AssignmentStore)
// =============================================================================

const assignmentColumns = `
	SELECT a.id, a.worker_id, a.user_id, COALESCE(w.name, ''), COALESCE(u.name, ''),
	       a.status, a.schedule_json, a.created_at, a.updated_at
	FROM assignments a
	LEFT JOIN workers w ON w.id = a.worker_id
	LEFT JOIN users u ON u.id = a.user_id
`

// SaveAssignment inserts or replaces an assignment.
func (s *Store) SaveAssignment(ctx context.Context, a schedule.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduleJSON, err := factory.FormatSchedule(a.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	query := `
		INSERT INTO assignments (id, worker_id, user_id, status, schedule_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			worker_id = excluded.worker_id,
			user_id = excluded.user_id,
			status = excluded.status,
			schedule_json = excluded.schedule_json,
			updated_at = excluded.updated_at
	`

	status := a.Status
	if status == "" {
		status = schedule.StatusActive
	}
	_, err = s.db.ExecContext(ctx, query,
		a.ID, a.WorkerID, a.UserID, status, string(scheduleJSON),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// GetAssignment returns nil, nil when the assignment does not exist.
func (s *Store) GetAssignment(ctx context.Context, id generic.AssignmentID) (*schedule.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, err := scanAssignment(s.db.QueryRowContext(ctx, assignmentColumns+" WHERE a.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

// UpdateAssignmentStatus changes the status of an assignment.
func (s *Store) UpdateAssignmentStatus(ctx context.Context, id generic.AssignmentID, status schedule.AssignmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE assignments SET status = ?, updated_at = ? WHERE id = ?",
		status, formatTime(time.Time{}), id)
	if err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}
	return requireAffected(res, generic.ErrAssignmentNotFound)
}

// UpdateAssignmentSchedule replaces the weekly schedule of an assignment.
func (s *Store) UpdateAssignmentSchedule(ctx context.Context, id generic.AssignmentID, weekly schedule.Weekly) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduleJSON, err := factory.FormatSchedule(weekly)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE assignments SET schedule_json = ?, updated_at = ? WHERE id = ?",
		string(scheduleJSON), formatTime(time.Time{}), id)
	if err != nil {
		return fmt.Errorf("failed to update assignment schedule: %w", err)
	}
	return requireAffected(res, generic.ErrAssignmentNotFound)
}

func (s *Store) AssignmentsByWorker(ctx context.Context, workerID generic.WorkerID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx, assignmentColumns+" WHERE a.worker_id = ? ORDER BY a.created_at, a.id", workerID)
}

func (s *Store) AssignmentsByUser(ctx context.Context, userID generic.UserID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx, assignmentColumns+" WHERE a.user_id = ? ORDER BY a.created_at, a.id", userID)
}

func (s *Store) ActiveAssignmentsByWorker(ctx context.Context, workerID generic.WorkerID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx,
		assignmentColumns+" WHERE a.worker_id = ? AND a.status = ? ORDER BY a.created_at, a.id",
		workerID, schedule.StatusActive)
}

func (s *Store) ActiveAssignmentsByUser(ctx context.Context, userID generic.UserID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx,
		assignmentColumns+" WHERE a.user_id = ? AND a.status = ? ORDER BY a.created_at, a.id",
		userID, schedule.StatusActive)
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]schedule.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []schedule.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func scanAssignment(row scanner) (schedule.Assignment, error) {
	var a schedule.Assignment
	var scheduleJSON, createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.WorkerID, &a.UserID, &a.WorkerName, &a.UserName,
		&a.Status, &scheduleJSON, &createdAt, &updatedAt); err != nil {
		return schedule.Assignment{}, err
	}

	weekly, err := factory.ParseSchedule([]byte(scheduleJSON))
	if err != nil {
		// unreadable documents contribute no hours
		weekly = schedule.Weekly{}
	}
	a.Schedule = weekly
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

// =============================================================================
// HOLIDAYS (generic.HolidayStore)
// =============================================================================

// SaveHoliday saves a holiday and returns the stored row. A second holiday
// with the same date and name updates the existing row and keeps its ID.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, name, type, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			type = excluded.type,
			is_active = excluded.is_active
	`

	date := h.Date.Time.Format(dateLayout)
	_, err := s.db.ExecContext(ctx, query,
		h.ID, date, h.Name, h.Type, h.Active, formatTime(h.CreatedAt))
	if err != nil {
		return generic.Holiday{}, fmt.Errorf("failed to save holiday: %w", err)
	}

	saved, err := s.selectHolidays(ctx, holidayColumns+" WHERE date = ? AND name = ?", date, h.Name)
	if err != nil {
		return generic.Holiday{}, err
	}
	if len(saved) != 1 {
		return generic.Holiday{}, fmt.Errorf("failed to read back holiday %s %q", date, h.Name)
	}
	return saved[0], nil
}

const holidayColumns = "SELECT id, date, name, type, is_active, created_at FROM holidays"

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return requireAffected(res, generic.ErrHolidayNotFound)
}

// ListHolidays returns the holidays of a year, or of one month when month != 0.
func (s *Store) ListHolidays(ctx context.Context, year, month int) ([]generic.Holiday, error) {
	from := generic.NewTimePoint(year, time.January, 1)
	to := generic.NewTimePoint(year, time.December, 31)
	if month != 0 {
		period := generic.MonthPeriod(year, time.Month(month))
		from, to = period.Start, period.End
	}

	return s.queryHolidays(ctx,
		holidayColumns+" WHERE date >= ? AND date <= ? ORDER BY date ASC, name ASC",
		from.String(), to.String())
}

// ActiveHolidays returns active holidays with from <= date <= to.
func (s *Store) ActiveHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	return s.queryHolidays(ctx,
		holidayColumns+" WHERE is_active = TRUE AND date >= ? AND date <= ? ORDER BY date ASC, name ASC",
		from.String(), to.String())
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectHolidays(ctx, query, args...)
}

// selectHolidays runs a holiday query. Callers hold s.mu.
func (s *Store) selectHolidays(ctx context.Context, query string, args ...any) ([]generic.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var dateStr, createdAt string
		if err := rows.Scan(&h.ID, &dateStr, &h.Name, &h.Type, &h.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		date, err := generic.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", dateStr, err)
		}
		h.Date = date
		h.CreatedAt = parseTime(createdAt)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// MONTHLY BALANCES (generic.BalanceStore)
// =============================================================================

const balanceColumns = `
	SELECT id, user_id, worker_id, month, year, monthly_hours, assigned_hours,
	       used_hours, remaining_hours, excess_hours, status, percentage,
	       holiday_info_json, planning_json, created_at
	FROM monthly_balances
`

// UpsertMonthlyBalance writes the row keyed by (user, worker, month, year)
// and returns the stored version.
func (s *Store) UpsertMonthlyBalance(ctx context.Context, b generic.MonthlyBalance) (generic.MonthlyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	holidayJSON, err := json.Marshal(b.HolidayInfo)
	if err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("failed to encode holiday info: %w", err)
	}

	query := `
		INSERT INTO monthly_balances
		(id, user_id, worker_id, month, year, monthly_hours, assigned_hours, used_hours,
		 remaining_hours, excess_hours, status, percentage, holiday_info_json, planning_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, worker_id, month, year) DO UPDATE SET
			monthly_hours = excluded.monthly_hours,
			assigned_hours = excluded.assigned_hours,
			used_hours = excluded.used_hours,
			remaining_hours = excluded.remaining_hours,
			excess_hours = excluded.excess_hours,
			status = excluded.status,
			percentage = excluded.percentage,
			holiday_info_json = excluded.holiday_info_json,
			planning_json = excluded.planning_json
	`

	_, err = s.db.ExecContext(ctx, query,
		b.ID, b.UserID, b.WorkerID, b.Month, b.Year,
		b.MonthlyHours.Value.String(),
		b.AssignedHours.Value.String(),
		b.UsedHours.Value.String(),
		b.RemainingHours.Value.String(),
		b.ExcessHours.Value.String(),
		b.Status, b.Percentage, string(holidayJSON), nullRaw(b.Planning),
		formatTime(b.CreatedAt),
	)
	if err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("failed to upsert monthly balance: %w", err)
	}

	saved, err := scanBalance(s.db.QueryRowContext(ctx,
		balanceColumns+" WHERE user_id = ? AND worker_id = ? AND month = ? AND year = ?",
		b.UserID, b.WorkerID, b.Month, b.Year))
	if err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("failed to read back monthly balance: %w", err)
	}
	return saved, nil
}

// GetMonthlyBalance returns nil, nil when no row exists for the key.
func (s *Store) GetMonthlyBalance(ctx context.Context, key generic.BalanceKey) (*generic.MonthlyBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := scanBalance(s.db.QueryRowContext(ctx,
		balanceColumns+" WHERE user_id = ? AND worker_id = ? AND month = ? AND year = ?",
		key.UserID, key.WorkerID, key.Month, key.Year))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly balance: %w", err)
	}
	return &b, nil
}

// ListMonthlyBalances returns the rows matching the filter.
func (s *Store) ListMonthlyBalances(ctx context.Context, filter generic.BalanceFilter) ([]generic.MonthlyBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.WorkerID != "" {
		where = append(where, "worker_id = ?")
		args = append(args, filter.WorkerID)
	}
	if filter.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}
	if filter.Month != 0 {
		where = append(where, "month = ?")
		args = append(args, filter.Month)
	}

	query := balanceColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY year DESC, month DESC, user_id, worker_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly balances: %w", err)
	}
	defer rows.Close()

	var balances []generic.MonthlyBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func scanBalance(row scanner) (generic.MonthlyBalance, error) {
	var b generic.MonthlyBalance
	var monthly, assigned, used, remaining, excess, holidayJSON, createdAt string
	var planning sql.NullString
	if err := row.Scan(&b.ID, &b.UserID, &b.WorkerID, &b.Month, &b.Year,
		&monthly, &assigned, &used, &remaining, &excess,
		&b.Status, &b.Percentage, &holidayJSON, &planning, &createdAt); err != nil {
		return generic.MonthlyBalance{}, err
	}

	b.MonthlyHours = parseHours(monthly)
	b.AssignedHours = parseHours(assigned)
	b.UsedHours = parseHours(used)
	b.RemainingHours = parseHours(remaining)
	b.ExcessHours = parseHours(excess)
	if err := json.Unmarshal([]byte(holidayJSON), &b.HolidayInfo); err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("invalid holiday info: %w", err)
	}
	if planning.Valid {
		b.Planning = json.RawMessage(planning.String)
	}
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset deletes every row. Used when loading demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"monthly_balances", "assignments", "holidays", "users", "workers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullRaw(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func parseHours(value string) generic.Amount {
	return generic.Amount{Value: generic.MustParseDecimal(value), Unit: generic.UnitHours}
}

// formatTime stores t, or now when t is zero.
func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
