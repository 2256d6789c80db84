// Package storetest holds the behaviour every store.Store implementation
// must share. Each implementation's tests call Run with a constructor.
package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
	"github.com/warp/carebalance/store"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("Parties", func(t *testing.T) { testParties(t, newStore(t)) })
	t.Run("Assignments", func(t *testing.T) { testAssignments(t, newStore(t)) })
	t.Run("AssignmentUpdates", func(t *testing.T) { testAssignmentUpdates(t, newStore(t)) })
	t.Run("Holidays", func(t *testing.T) { testHolidays(t, newStore(t)) })
	t.Run("HolidayResaveKeepsID", func(t *testing.T) { testHolidayResaveKeepsID(t, newStore(t)) })
	t.Run("BalanceUpsert", func(t *testing.T) { testBalanceUpsert(t, newStore(t)) })
	t.Run("BalanceFilters", func(t *testing.T) { testBalanceFilters(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

var mondayMornings = schedule.Weekly{}.With(schedule.Monday, schedule.Day(schedule.Slot("09:00", "13:00")))

func seedParties(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveWorker(ctx, generic.Worker{ID: "w-ana", Name: "Ana López", Email: "ana@example.com", AuthUserID: "auth-ana"}))
	require.NoError(t, s.SaveWorker(ctx, generic.Worker{ID: "w-luis", Name: "Luis Pérez"}))
	require.NoError(t, s.SaveUser(ctx, generic.User{ID: "u-carmen", Name: "Carmen Ruiz", MonthlyHours: generic.NewAmount(37.5, generic.UnitHours)}))
	require.NoError(t, s.SaveUser(ctx, generic.User{ID: "u-jose", Name: "José Martín", MonthlyHours: generic.NewAmount(16, generic.UnitHours)}))
}

func saveHoliday(t *testing.T, s store.Store, h generic.Holiday) generic.Holiday {
	t.Helper()
	saved, err := s.SaveHoliday(context.Background(), h)
	require.NoError(t, err)
	return saved
}

// =============================================================================
// PARTIES
// =============================================================================

func testParties(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedParties(t, s)

	// Lookups
	w, err := s.GetWorker(ctx, "w-ana")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "Ana López", w.Name)
	assert.Equal(t, "auth-ana", w.AuthUserID)
	assert.False(t, w.CreatedAt.IsZero())

	byAuth, err := s.GetWorkerByAuthUser(ctx, "auth-ana")
	require.NoError(t, err)
	require.NotNil(t, byAuth)
	assert.Equal(t, generic.WorkerID("w-ana"), byAuth.ID)

	// Misses are nil, nil
	missing, err := s.GetWorker(ctx, "w-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
	noAuth, err := s.GetWorkerByAuthUser(ctx, "auth-404")
	require.NoError(t, err)
	assert.Nil(t, noAuth)
	noUser, err := s.GetUser(ctx, "u-404")
	require.NoError(t, err)
	assert.Nil(t, noUser)

	u, err := s.GetUser(ctx, "u-carmen")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.MonthlyHours.Value.Equal(generic.NewAmount(37.5, generic.UnitHours).Value))

	// Saving again updates
	require.NoError(t, s.SaveUser(ctx, generic.User{ID: "u-carmen", Name: "Carmen Ruiz", MonthlyHours: generic.NewAmount(40, generic.UnitHours)}))
	u, err = s.GetUser(ctx, "u-carmen")
	require.NoError(t, err)
	assert.Equal(t, 40.0, u.MonthlyHours.Rounded())

	// Lists are ordered by name
	workers, err := s.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "Ana López", workers[0].Name)
	assert.Equal(t, "Luis Pérez", workers[1].Name)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, generic.UserID("u-carmen"), users[0].ID)
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func testAssignments(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedParties(t, s)

	split := schedule.Shift(schedule.Workdays(), schedule.Slot("08:00", "09:00"), schedule.Slot("19:00", "19:30"))
	require.NoError(t, s.SaveAssignment(ctx, schedule.Assignment{ID: "a-1", WorkerID: "w-ana", UserID: "u-carmen", Status: schedule.StatusActive, Schedule: mondayMornings}))
	require.NoError(t, s.SaveAssignment(ctx, schedule.Assignment{ID: "a-2", WorkerID: "w-ana", UserID: "u-jose", Status: schedule.StatusSuspended, Schedule: split}))
	require.NoError(t, s.SaveAssignment(ctx, schedule.Assignment{ID: "a-3", WorkerID: "w-luis", UserID: "u-carmen", Status: schedule.StatusActive, Schedule: split}))

	// Get joins names and keeps the schedule
	a, err := s.GetAssignment(ctx, "a-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Ana López", a.WorkerName)
	assert.Equal(t, "Carmen Ruiz", a.UserName)
	assert.Equal(t, schedule.StatusActive, a.Status)
	assert.Equal(t, 240, a.Schedule.WeeklyMinutes())

	missing, err := s.GetAssignment(ctx, "a-404")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// All vs active only
	all, err := s.AssignmentsByWorker(ctx, "w-ana")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ActiveAssignmentsByWorker(ctx, "w-ana")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, generic.AssignmentID("a-1"), active[0].ID)

	byUser, err := s.ActiveAssignmentsByUser(ctx, "u-carmen")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, 5*90, byUser[1].Schedule.WeeklyMinutes())

	none, err := s.ActiveAssignmentsByUser(ctx, "u-jose")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testAssignmentUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedParties(t, s)
	require.NoError(t, s.SaveAssignment(ctx, schedule.Assignment{ID: "a-1", WorkerID: "w-ana", UserID: "u-carmen", Status: schedule.StatusActive, Schedule: mondayMornings}))

	// Status
	require.NoError(t, s.UpdateAssignmentStatus(ctx, "a-1", schedule.StatusCompleted))
	active, err := s.ActiveAssignmentsByWorker(ctx, "w-ana")
	require.NoError(t, err)
	assert.Empty(t, active)

	// Schedule
	weekly := mondayMornings.With(schedule.Holiday, schedule.Day(schedule.Slot("10:00", "12:00")))
	require.NoError(t, s.UpdateAssignmentSchedule(ctx, "a-1", weekly))
	a, err := s.GetAssignment(ctx, "a-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, schedule.StatusCompleted, a.Status)
	assert.Equal(t, 120, a.Schedule[schedule.Holiday].Minutes())

	// Unknown ids
	assert.ErrorIs(t, s.UpdateAssignmentStatus(ctx, "a-404", schedule.StatusActive), generic.ErrAssignmentNotFound)
	assert.ErrorIs(t, s.UpdateAssignmentSchedule(ctx, "a-404", weekly), generic.ErrAssignmentNotFound)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func testHolidays(t *testing.T, s store.Store) {
	ctx := context.Background()
	day := func(m time.Month, d int) generic.TimePoint { return generic.NewTimePoint(2027, m, d) }

	saveHoliday(t, s, generic.Holiday{ID: "h-1", Date: day(time.January, 6), Name: "Reyes", Type: generic.HolidayNacional, Active: true})
	saveHoliday(t, s, generic.Holiday{ID: "h-2", Date: day(time.February, 15), Name: "Fiesta local", Type: generic.HolidayLocal, Active: true})
	saveHoliday(t, s, generic.Holiday{ID: "h-3", Date: day(time.February, 28), Name: "Día de Andalucía", Type: generic.HolidayRegional, Active: false})

	// Same date and name updates the existing row
	dup := saveHoliday(t, s, generic.Holiday{ID: "h-dup", Date: day(time.February, 15), Name: "Fiesta local", Type: generic.HolidayRegional, Active: true})
	assert.Equal(t, "h-2", dup.ID)
	assert.Equal(t, generic.HolidayRegional, dup.Type)

	year, err := s.ListHolidays(ctx, 2027, 0)
	require.NoError(t, err)
	assert.Len(t, year, 3)

	february, err := s.ListHolidays(ctx, 2027, 2)
	require.NoError(t, err)
	require.Len(t, february, 2)
	assert.Equal(t, "h-2", february[0].ID)
	assert.Equal(t, generic.HolidayRegional, february[0].Type)
	assert.False(t, february[1].Active)

	// Only active holidays inside the range
	period := generic.MonthPeriod(2027, time.February)
	active, err := s.ActiveHolidays(ctx, period.Start, period.End)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "2027-02-15", active[0].Date.String())

	// Delete
	require.NoError(t, s.DeleteHoliday(ctx, "h-1"))
	assert.ErrorIs(t, s.DeleteHoliday(ctx, "h-1"), generic.ErrHolidayNotFound)
	january, err := s.ListHolidays(ctx, 2027, 1)
	require.NoError(t, err)
	assert.Empty(t, january)
}

func testHolidayResaveKeepsID(t *testing.T, s store.Store) {
	ctx := context.Background()
	date := generic.NewTimePoint(2027, time.March, 19)

	// GIVEN: A holiday saved once
	first := saveHoliday(t, s, generic.Holiday{ID: "h-first", Date: date, Name: "San José", Type: generic.HolidayLocal, Active: true})
	assert.Equal(t, "h-first", first.ID)
	assert.Equal(t, "2027-03-19", first.Date.String())
	assert.False(t, first.CreatedAt.IsZero())

	// WHEN: The same date and name is saved under a new ID
	second := saveHoliday(t, s, generic.Holiday{ID: "h-second", Date: date, Name: "San José", Type: generic.HolidayRegional, Active: false})

	// THEN: The stored row keeps the first ID and takes the new fields
	assert.Equal(t, "h-first", second.ID)
	assert.Equal(t, generic.HolidayRegional, second.Type)
	assert.False(t, second.Active)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	// AND: The returned ID deletes the row, the discarded one does not exist
	assert.ErrorIs(t, s.DeleteHoliday(ctx, "h-second"), generic.ErrHolidayNotFound)
	require.NoError(t, s.DeleteHoliday(ctx, second.ID))
	march, err := s.ListHolidays(ctx, 2027, 3)
	require.NoError(t, err)
	assert.Empty(t, march)
}

// =============================================================================
// BALANCES
// =============================================================================

func balanceRow(id string, user generic.UserID, worker generic.WorkerID, month int, used float64) generic.MonthlyBalance {
	monthly := generic.NewAmount(20, generic.UnitHours)
	usedHours := generic.NewAmount(used, generic.UnitHours)
	figures := generic.CalculateBalance(monthly, usedHours)
	return generic.MonthlyBalance{
		ID:             id,
		UserID:         user,
		WorkerID:       worker,
		Month:          month,
		Year:           2027,
		MonthlyHours:   monthly,
		AssignedHours:  usedHours,
		UsedHours:      usedHours,
		RemainingHours: figures.RemainingHours,
		ExcessHours:    figures.ExcessHours,
		Status:         figures.Status,
		Percentage:     figures.PercentageFloat(),
		HolidayInfo:    generic.HolidayInfo{WorkingDays: 19, WorkingHours: used, TotalHolidays: 9},
		Planning:       json.RawMessage(`{"source":"test"}`),
	}
}

func testBalanceUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedParties(t, s)

	// First write creates the row
	first, err := s.UpsertMonthlyBalance(ctx, balanceRow("b-1", "u-carmen", "w-ana", 2, 16))
	require.NoError(t, err)
	assert.Equal(t, "b-1", first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, generic.StatusDeficit, first.Status)
	assert.Equal(t, 80.0, first.Percentage)

	// Second write for the same key overwrites figures, keeps id
	second, err := s.UpsertMonthlyBalance(ctx, balanceRow("b-2", "u-carmen", "w-ana", 2, 20))
	require.NoError(t, err)
	assert.Equal(t, "b-1", second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, generic.StatusPerfect, second.Status)
	assert.Equal(t, 20.0, second.UsedHours.Rounded())

	got, err := s.GetMonthlyBalance(ctx, generic.BalanceKey{UserID: "u-carmen", WorkerID: "w-ana", Month: 2, Year: 2027})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b-1", got.ID)
	assert.True(t, got.RemainingHours.IsZero())
	assert.Equal(t, 19, got.HolidayInfo.WorkingDays)
	assert.JSONEq(t, `{"source":"test"}`, string(got.Planning))

	missing, err := s.GetMonthlyBalance(ctx, generic.BalanceKey{UserID: "u-carmen", WorkerID: "w-ana", Month: 3, Year: 2027})
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := s.ListMonthlyBalances(ctx, generic.BalanceFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func testBalanceFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedParties(t, s)

	for _, b := range []generic.MonthlyBalance{
		balanceRow("b-1", "u-carmen", "w-ana", 1, 12),
		balanceRow("b-2", "u-carmen", "w-ana", 2, 16),
		balanceRow("b-3", "u-jose", "w-ana", 2, 8),
		balanceRow("b-4", "u-carmen", "w-luis", 2, 4),
	} {
		_, err := s.UpsertMonthlyBalance(ctx, b)
		require.NoError(t, err)
	}

	all, err := s.ListMonthlyBalances(ctx, generic.BalanceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	// newest month first
	assert.Equal(t, 2, all[0].Month)
	assert.Equal(t, 1, all[3].Month)

	carmen, err := s.ListMonthlyBalances(ctx, generic.BalanceFilter{UserID: "u-carmen"})
	require.NoError(t, err)
	assert.Len(t, carmen, 3)

	pair, err := s.ListMonthlyBalances(ctx, generic.BalanceFilter{UserID: "u-carmen", WorkerID: "w-ana", Month: 2, Year: 2027})
	require.NoError(t, err)
	require.Len(t, pair, 1)
	assert.Equal(t, "b-2", pair[0].ID)

	none, err := s.ListMonthlyBalances(ctx, generic.BalanceFilter{Year: 2026})
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// RESET
// =============================================================================

func testReset(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedParties(t, s)
	require.NoError(t, s.SaveAssignment(ctx, schedule.Assignment{ID: "a-1", WorkerID: "w-ana", UserID: "u-carmen", Status: schedule.StatusActive, Schedule: mondayMornings}))
	saveHoliday(t, s, generic.Holiday{ID: "h-1", Date: generic.NewTimePoint(2027, time.February, 15), Name: "Fiesta local", Type: generic.HolidayLocal, Active: true})
	_, err := s.UpsertMonthlyBalance(ctx, balanceRow("b-1", "u-carmen", "w-ana", 2, 16))
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	workers, err := s.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Empty(t, workers)
	assignments, err := s.AssignmentsByUser(ctx, "u-carmen")
	require.NoError(t, err)
	assert.Empty(t, assignments)
	holidays, err := s.ListHolidays(ctx, 2027, 0)
	require.NoError(t, err)
	assert.Empty(t, holidays)
	rows, err := s.ListMonthlyBalances(ctx, generic.BalanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
