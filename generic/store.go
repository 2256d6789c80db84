/*
store.go - Persistence interfaces for holidays, parties and balances

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  PartyStore:   Workers and users
  HolidayStore: Registered holidays (admin CRUD + range reads)
  BalanceStore: Monthly balance rows, upserted by (user, worker, month, year)

  Assignment persistence lives in schedule.AssignmentStore because the
  assignment type carries a weekly schedule.

IDEMPOTENCY:
  UpsertMonthlyBalance overwrites an existing row with the same key and
  keeps its ID and CreatedAt, so repeating a generation with the same
  inputs yields an identical row.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Default SQLite store
  - store/postgres/postgres.go: PostgreSQL via pgxpool
  - store/memory/memory.go: In-memory for testing
  - store/cache/holidays.go: Caching decorator for holiday reads

SEE ALSO:
  - balance/service.go: Consumes these through balance.Store
*/
package generic

import "context"

// =============================================================================
// PARTIES
// =============================================================================

type PartyStore interface {
	SaveWorker(ctx context.Context, w Worker) error
	GetWorker(ctx context.Context, id WorkerID) (*Worker, error)
	// GetWorkerByAuthUser returns the worker owned by the given token subject.
	GetWorkerByAuthUser(ctx context.Context, authUserID string) (*Worker, error)
	ListWorkers(ctx context.Context) ([]Worker, error)

	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id UserID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayStore interface {
	SaveHoliday(ctx context.Context, h Holiday) (Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
	// ListHolidays returns every holiday (active or not) of a year, optionally
	// restricted to one month when month != 0.
	ListHolidays(ctx context.Context, year, month int) ([]Holiday, error)
	// ActiveHolidays returns active holidays with from <= date <= to.
	ActiveHolidays(ctx context.Context, from, to TimePoint) ([]Holiday, error)
}

// =============================================================================
// BALANCES
// =============================================================================

type BalanceStore interface {
	UpsertMonthlyBalance(ctx context.Context, b MonthlyBalance) (MonthlyBalance, error)
	GetMonthlyBalance(ctx context.Context, key BalanceKey) (*MonthlyBalance, error)
	ListMonthlyBalances(ctx context.Context, filter BalanceFilter) ([]MonthlyBalance, error)
}
