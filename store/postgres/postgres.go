// Package postgres implements the storage interfaces on PostgreSQL using a
// pgx connection pool. It mirrors store/sqlite table for table; schedules
// and holiday info are kept in jsonb columns and hour figures in numeric.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/carebalance/factory"
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// Store implements all storage interfaces on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Options tune the connection pool. Zero values keep pgx defaults.
type Options struct {
	MaxConns int32
	MinConns int32
}

// New connects, pings and migrates.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		auth_user_id TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		monthly_hours NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL REFERENCES workers(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'active',
		schedule_json JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_worker_status ON assignments(worker_id, status);
	CREATE INDEX IF NOT EXISTS idx_assignments_user_status ON assignments(user_id, status);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date DATE NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'nacional',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE(date, name)
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_active_date ON holidays(is_active, date);

	CREATE TABLE IF NOT EXISTS monthly_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		monthly_hours NUMERIC NOT NULL,
		assigned_hours NUMERIC NOT NULL,
		used_hours NUMERIC NOT NULL,
		remaining_hours NUMERIC NOT NULL,
		excess_hours NUMERIC NOT NULL,
		status TEXT NOT NULL,
		percentage DOUBLE PRECISION NOT NULL,
		holiday_info JSONB NOT NULL,
		planning JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE(user_id, worker_id, month, year)
	);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// WORKERS & USERS
// =============================================================================

func (s *Store) SaveWorker(ctx context.Context, w generic.Worker) error {
	query := `
		INSERT INTO workers (id, name, email, auth_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			auth_user_id = EXCLUDED.auth_user_id
	`
	_, err := s.pool.Exec(ctx, query,
		string(w.ID), w.Name, w.Email, nullable(w.AuthUserID), timeOrNow(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, id generic.WorkerID) (*generic.Worker, error) {
	return s.getWorker(ctx, "SELECT id, name, COALESCE(email, ''), COALESCE(auth_user_id, ''), created_at FROM workers WHERE id = $1", string(id))
}

func (s *Store) GetWorkerByAuthUser(ctx context.Context, authUserID string) (*generic.Worker, error) {
	return s.getWorker(ctx, "SELECT id, name, COALESCE(email, ''), COALESCE(auth_user_id, ''), created_at FROM workers WHERE auth_user_id = $1", authUserID)
}

func (s *Store) getWorker(ctx context.Context, query string, arg string) (*generic.Worker, error) {
	w, err := scanWorker(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return &w, nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]generic.Worker, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, COALESCE(email, ''), COALESCE(auth_user_id, ''), created_at FROM workers ORDER BY name, id")
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

func (s *Store) SaveUser(ctx context.Context, u generic.User) error {
	query := `
		INSERT INTO users (id, name, email, monthly_hours, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			monthly_hours = EXCLUDED.monthly_hours
	`
	_, err := s.pool.Exec(ctx, query,
		string(u.ID), u.Name, u.Email, u.MonthlyHours.Value.String(), timeOrNow(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id generic.UserID) (*generic.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT id, name, COALESCE(email, ''), monthly_hours::text, created_at FROM users WHERE id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]generic.User, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, COALESCE(email, ''), monthly_hours::text, created_at FROM users ORDER BY name, id")
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

func scanWorker(row pgx.Row) (generic.Worker, error) {
	var w generic.Worker
	var id string
	if err := row.Scan(&id, &w.Name, &w.Email, &w.AuthUserID, &w.CreatedAt); err != nil {
		return generic.Worker{}, err
	}
	w.ID = generic.WorkerID(id)
	return w, nil
}

func scanUser(row pgx.Row) (generic.User, error) {
	var u generic.User
	var id, monthly string
	if err := row.Scan(&id, &u.Name, &u.Email, &monthly, &u.CreatedAt); err != nil {
		return generic.User{}, err
	}
	u.ID = generic.UserID(id)
	u.MonthlyHours = hours(monthly)
	return u, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

const assignmentColumns = `
	SELECT a.id, a.worker_id, a.user_id, COALESCE(w.name, ''), COALESCE(u.name, ''),
	       a.status, a.schedule_json, a.created_at, a.updated_at
	FROM assignments a
	LEFT JOIN workers w ON w.id = a.worker_id
	LEFT JOIN users u ON u.id = a.user_id
`

func (s *Store) SaveAssignment(ctx context.Context, a schedule.Assignment) error {
	scheduleJSON, err := factory.FormatSchedule(a.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	status := a.Status
	if status == "" {
		status = schedule.StatusActive
	}

	query := `
		INSERT INTO assignments (id, worker_id, user_id, status, schedule_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			worker_id = EXCLUDED.worker_id,
			user_id = EXCLUDED.user_id,
			status = EXCLUDED.status,
			schedule_json = EXCLUDED.schedule_json,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.pool.Exec(ctx, query,
		string(a.ID), string(a.WorkerID), string(a.UserID), string(status), string(scheduleJSON),
		timeOrNow(a.CreatedAt), timeOrNow(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, id generic.AssignmentID) (*schedule.Assignment, error) {
	a, err := scanAssignment(s.pool.QueryRow(ctx, assignmentColumns+" WHERE a.id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (s *Store) UpdateAssignmentStatus(ctx context.Context, id generic.AssignmentID, status schedule.AssignmentStatus) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE assignments SET status = $1, updated_at = now() WHERE id = $2", string(status), string(id))
	if err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}
	return requireAffected(tag, generic.ErrAssignmentNotFound)
}

func (s *Store) UpdateAssignmentSchedule(ctx context.Context, id generic.AssignmentID, weekly schedule.Weekly) error {
	scheduleJSON, err := factory.FormatSchedule(weekly)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE assignments SET schedule_json = $1::jsonb, updated_at = now() WHERE id = $2", string(scheduleJSON), string(id))
	if err != nil {
		return fmt.Errorf("failed to update assignment schedule: %w", err)
	}
	return requireAffected(tag, generic.ErrAssignmentNotFound)
}

func (s *Store) AssignmentsByWorker(ctx context.Context, workerID generic.WorkerID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx, assignmentColumns+" WHERE a.worker_id = $1 ORDER BY a.created_at, a.id", string(workerID))
}

func (s *Store) AssignmentsByUser(ctx context.Context, userID generic.UserID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx, assignmentColumns+" WHERE a.user_id = $1 ORDER BY a.created_at, a.id", string(userID))
}

func (s *Store) ActiveAssignmentsByWorker(ctx context.Context, workerID generic.WorkerID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx,
		assignmentColumns+" WHERE a.worker_id = $1 AND a.status = $2 ORDER BY a.created_at, a.id",
		string(workerID), string(schedule.StatusActive))
}

func (s *Store) ActiveAssignmentsByUser(ctx context.Context, userID generic.UserID) ([]schedule.Assignment, error) {
	return s.queryAssignments(ctx,
		assignmentColumns+" WHERE a.user_id = $1 AND a.status = $2 ORDER BY a.created_at, a.id",
		string(userID), string(schedule.StatusActive))
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]schedule.Assignment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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

func scanAssignment(row pgx.Row) (schedule.Assignment, error) {
	var a schedule.Assignment
	var id, workerID, userID, status string
	var scheduleJSON []byte
	if err := row.Scan(&id, &workerID, &userID, &a.WorkerName, &a.UserName,
		&status, &scheduleJSON, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return schedule.Assignment{}, err
	}
	a.ID = generic.AssignmentID(id)
	a.WorkerID = generic.WorkerID(workerID)
	a.UserID = generic.UserID(userID)
	a.Status = schedule.AssignmentStatus(status)

	weekly, err := factory.ParseSchedule(scheduleJSON)
	if err != nil {
		weekly = schedule.Weekly{}
	}
	a.Schedule = weekly
	return a, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday upserts on (date, name) and returns the stored row, whose ID
// is the first one saved for that date and name.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	query := `
		INSERT INTO holidays (id, date, name, type, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (date, name) DO UPDATE SET
			type = EXCLUDED.type,
			is_active = EXCLUDED.is_active
		RETURNING ` + holidayFields
	saved, err := scanHoliday(s.pool.QueryRow(ctx, query,
		h.ID, h.Date.Time, h.Name, string(h.Type), h.Active, timeOrNow(h.CreatedAt)))
	if err != nil {
		return generic.Holiday{}, fmt.Errorf("failed to save holiday: %w", err)
	}
	return saved, nil
}

const holidayFields = "id, date, name, type, is_active, created_at"

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return requireAffected(tag, generic.ErrHolidayNotFound)
}

func (s *Store) ListHolidays(ctx context.Context, year, month int) ([]generic.Holiday, error) {
	from := generic.NewTimePoint(year, time.January, 1)
	to := generic.NewTimePoint(year, time.December, 31)
	if month != 0 {
		period := generic.MonthPeriod(year, time.Month(month))
		from, to = period.Start, period.End
	}
	return s.queryHolidays(ctx,
		"SELECT "+holidayFields+" FROM holidays WHERE date BETWEEN $1 AND $2 ORDER BY date, name",
		from.Time, to.Time)
}

func (s *Store) ActiveHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	return s.queryHolidays(ctx,
		"SELECT "+holidayFields+" FROM holidays WHERE is_active AND date BETWEEN $1 AND $2 ORDER BY date, name",
		from.Time, to.Time)
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]generic.Holiday, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func scanHoliday(row pgx.Row) (generic.Holiday, error) {
	var h generic.Holiday
	var date time.Time
	var typ string
	if err := row.Scan(&h.ID, &date, &h.Name, &typ, &h.Active, &h.CreatedAt); err != nil {
		return generic.Holiday{}, err
	}
	h.Date = generic.DateOf(date)
	h.Type = generic.HolidayType(typ)
	return h, nil
}

// =============================================================================
// MONTHLY BALANCES
// =============================================================================

const balanceFields = `
	id, user_id, worker_id, month, year, monthly_hours::text, assigned_hours::text,
	used_hours::text, remaining_hours::text, excess_hours::text, status, percentage,
	holiday_info, planning, created_at
`

const balanceColumns = "SELECT " + balanceFields + " FROM monthly_balances"

func (s *Store) UpsertMonthlyBalance(ctx context.Context, b generic.MonthlyBalance) (generic.MonthlyBalance, error) {
	holidayJSON, err := json.Marshal(b.HolidayInfo)
	if err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("failed to encode holiday info: %w", err)
	}
	var planning any
	if len(b.Planning) > 0 {
		planning = string(b.Planning)
	}

	saved, err := scanBalance(s.pool.QueryRow(ctx, balanceUpsert+" RETURNING "+balanceFields,
		b.ID, string(b.UserID), string(b.WorkerID), b.Month, b.Year,
		b.MonthlyHours.Value.String(),
		b.AssignedHours.Value.String(),
		b.UsedHours.Value.String(),
		b.RemainingHours.Value.String(),
		b.ExcessHours.Value.String(),
		string(b.Status), b.Percentage, string(holidayJSON), planning, timeOrNow(b.CreatedAt),
	))
	if err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("failed to upsert monthly balance: %w", err)
	}
	return saved, nil
}

const balanceUpsert = `
	INSERT INTO monthly_balances
	(id, user_id, worker_id, month, year, monthly_hours, assigned_hours, used_hours,
	 remaining_hours, excess_hours, status, percentage, holiday_info, planning, created_at)
	VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric,
	        $11, $12, $13::jsonb, $14::jsonb, $15)
	ON CONFLICT (user_id, worker_id, month, year) DO UPDATE SET
		monthly_hours = EXCLUDED.monthly_hours,
		assigned_hours = EXCLUDED.assigned_hours,
		used_hours = EXCLUDED.used_hours,
		remaining_hours = EXCLUDED.remaining_hours,
		excess_hours = EXCLUDED.excess_hours,
		status = EXCLUDED.status,
		percentage = EXCLUDED.percentage,
		holiday_info = EXCLUDED.holiday_info,
		planning = EXCLUDED.planning
`

func (s *Store) GetMonthlyBalance(ctx context.Context, key generic.BalanceKey) (*generic.MonthlyBalance, error) {
	b, err := scanBalance(s.pool.QueryRow(ctx,
		balanceColumns+" WHERE user_id = $1 AND worker_id = $2 AND month = $3 AND year = $4",
		string(key.UserID), string(key.WorkerID), key.Month, key.Year))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly balance: %w", err)
	}
	return &b, nil
}

func (s *Store) ListMonthlyBalances(ctx context.Context, filter generic.BalanceFilter) ([]generic.MonthlyBalance, error) {
	var where []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", string(filter.UserID))
	}
	if filter.WorkerID != "" {
		add("worker_id = $%d", string(filter.WorkerID))
	}
	if filter.Year != 0 {
		add("year = $%d", filter.Year)
	}
	if filter.Month != 0 {
		add("month = $%d", filter.Month)
	}

	query := balanceColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY year DESC, month DESC, user_id, worker_id"

	rows, err := s.pool.Query(ctx, query, args...)
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

func scanBalance(row pgx.Row) (generic.MonthlyBalance, error) {
	var b generic.MonthlyBalance
	var userID, workerID, status string
	var monthly, assigned, used, remaining, excess string
	var holidayJSON, planning []byte
	if err := row.Scan(&b.ID, &userID, &workerID, &b.Month, &b.Year,
		&monthly, &assigned, &used, &remaining, &excess,
		&status, &b.Percentage, &holidayJSON, &planning, &b.CreatedAt); err != nil {
		return generic.MonthlyBalance{}, err
	}
	b.UserID = generic.UserID(userID)
	b.WorkerID = generic.WorkerID(workerID)
	b.Status = generic.BalanceStatus(status)
	b.MonthlyHours = hours(monthly)
	b.AssignedHours = hours(assigned)
	b.UsedHours = hours(used)
	b.RemainingHours = hours(remaining)
	b.ExcessHours = hours(excess)
	if err := json.Unmarshal(holidayJSON, &b.HolidayInfo); err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("invalid holiday info: %w", err)
	}
	if len(planning) > 0 {
		b.Planning = json.RawMessage(planning)
	}
	return b, nil
}

// =============================================================================
// ADMIN
// =============================================================================

func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE monthly_balances, assignments, holidays, users, workers")
	if err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func hours(value string) generic.Amount {
	return generic.Amount{Value: generic.MustParseDecimal(value), Unit: generic.UnitHours}
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func requireAffected(tag pgconn.CommandTag, notFound error) error {
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
