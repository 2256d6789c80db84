package balance_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carebalance/balance"
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
	"github.com/warp/carebalance/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*balance.Service, *memory.Memory) {
	t.Helper()
	store := memory.New()
	return balance.NewService(store, schedule.DefaultFestiveKeyPolicy, quietLogger()), store
}

func seedUser(t *testing.T, store *memory.Memory, id generic.UserID, name string, monthly float64) {
	t.Helper()
	require.NoError(t, store.SaveUser(context.Background(), generic.User{
		ID:           id,
		Name:         name,
		MonthlyHours: generic.NewAmount(monthly, generic.UnitHours),
	}))
}

func seedWorker(t *testing.T, store *memory.Memory, id generic.WorkerID, name string) {
	t.Helper()
	require.NoError(t, store.SaveWorker(context.Background(), generic.Worker{ID: id, Name: name, AuthUserID: "auth-" + string(id)}))
}

func seedAssignment(t *testing.T, store *memory.Memory, a schedule.Assignment) {
	t.Helper()
	require.NoError(t, store.SaveAssignment(context.Background(), a))
}

// failingStore fails GetUser for one user.
type failingStore struct {
	*memory.Memory
	failUser generic.UserID
}

func (f failingStore) GetUser(ctx context.Context, id generic.UserID) (*generic.User, error) {
	if id == f.failUser {
		return nil, errors.New("connection reset")
	}
	return f.Memory.GetUser(ctx, id)
}

// =============================================================================
// USER REPORTS
// =============================================================================

func TestUserReport_Deficit(t *testing.T) {
	// GIVEN: 20 contracted hours and Monday mornings (16h)
	svc, store := newTestService(t)
	seedWorker(t, store, "w-1", "Ana")
	seedUser(t, store, "u-1", "Carmen", 20)
	seedAssignment(t, store, assignment("a-1", "w-1", "u-1", mondayMornings))

	// WHEN: Reporting on the last day of the month
	report, err := svc.UserReport(context.Background(), balance.UserReportInput{
		UserID: "u-1", Year: 2027, Month: 2, Today: endOfFeb,
	})

	// THEN: 4h remaining, deficit at 80%
	require.NoError(t, err)
	assert.Equal(t, 20.0, report.MonthlyHours)
	assert.Equal(t, 16.0, report.AssignedHours)
	assert.Equal(t, 16.0, report.UsedHours)
	assert.Equal(t, 4.0, report.RemainingHours)
	assert.Equal(t, 0.0, report.ExcessHours)
	assert.Equal(t, generic.StatusDeficit, report.Status)
	assert.Equal(t, 80.0, report.Percentage)
	assert.Equal(t, "Carmen", report.EntityName)
	require.Len(t, report.Assignments, 1)
	assert.Equal(t, "Ana", report.Assignments[0].WorkerName)
	assert.Equal(t, 4.0, report.Assignments[0].WeeklyHours)
}

func TestUserReport_Perfect(t *testing.T) {
	svc, store := newTestService(t)
	seedWorker(t, store, "w-1", "Ana")
	seedUser(t, store, "u-1", "Carmen", 16)
	seedAssignment(t, store, assignment("a-1", "w-1", "u-1", mondayMornings))

	report, err := svc.UserReport(context.Background(), balance.UserReportInput{
		UserID: "u-1", Year: 2027, Month: 2, Today: endOfFeb,
	})

	require.NoError(t, err)
	assert.Equal(t, generic.StatusPerfect, report.Status)
	assert.Equal(t, 0.0, report.RemainingHours)
	assert.Equal(t, 100.0, report.Percentage)
}

func TestUserReport_NoHoursAtAll(t *testing.T) {
	// GIVEN: A user with no contracted hours and no assignments
	svc, store := newTestService(t)
	seedUser(t, store, "u-1", "Carmen", 0)

	report, err := svc.UserReport(context.Background(), balance.UserReportInput{
		UserID: "u-1", Year: 2027, Month: 2, Today: endOfFeb,
	})

	// THEN: Perfect with 0%
	require.NoError(t, err)
	assert.Equal(t, generic.StatusPerfect, report.Status)
	assert.Equal(t, 0.0, report.Percentage)
	assert.NotNil(t, report.Assignments)
	assert.Empty(t, report.Assignments)
}

func TestUserReport_HolidayMonday(t *testing.T) {
	svc, store := newTestService(t)
	seedWorker(t, store, "w-1", "Ana")
	seedUser(t, store, "u-1", "Carmen", 16)
	seedAssignment(t, store, assignment("a-1", "w-1", "u-1", mondayMornings))
	_, err := store.SaveHoliday(context.Background(), generic.Holiday{
		ID: "h-1", Date: feb(15), Name: "Fiesta local", Type: generic.HolidayLocal, Active: true,
	})
	require.NoError(t, err)

	report, err := svc.UserReport(context.Background(), balance.UserReportInput{
		UserID: "u-1", Year: 2027, Month: 2, Today: endOfFeb, IncludeDays: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 12.0, report.UsedHours)
	assert.Equal(t, 9, report.HolidayInfo.TotalHolidays)
	require.Len(t, report.Days, 28)
	assert.True(t, report.Days[14].IsHoliday)
	assert.Equal(t, 0.0, report.Days[14].Hours)
	assert.Equal(t, 4.0, report.Days[7].Hours)
}

func TestUserReport_ScopedToPair(t *testing.T) {
	// GIVEN: One user served by two workers
	svc, store := newTestService(t)
	seedWorker(t, store, "w-1", "Ana")
	seedWorker(t, store, "w-2", "Luis")
	seedUser(t, store, "u-1", "Carmen", 30)
	seedAssignment(t, store, assignment("a-1", "w-1", "u-1", mondayMornings))
	seedAssignment(t, store, assignment("a-2", "w-2", "u-1", schedule.Shift(schedule.Workdays(), schedule.Slot("18:00", "19:00"))))

	ctx := context.Background()

	// WHEN: Reporting across workers and for each pair
	all, err := svc.UserReport(ctx, balance.UserReportInput{UserID: "u-1", Year: 2027, Month: 2, Today: endOfFeb})
	require.NoError(t, err)
	pair, err := svc.UserReport(ctx, balance.UserReportInput{UserID: "u-1", WorkerID: "w-1", Year: 2027, Month: 2, Today: endOfFeb})
	require.NoError(t, err)

	// THEN: The pair report only counts w-1
	assert.Equal(t, 36.0, all.UsedHours)
	assert.Equal(t, generic.StatusExcess, all.Status)
	assert.Len(t, all.Assignments, 2)

	assert.Equal(t, 16.0, pair.UsedHours)
	assert.Equal(t, generic.WorkerID("w-1"), pair.WorkerID)
	assert.Len(t, pair.Assignments, 1)
}

func TestUserReport_MonthlyOverride(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "u-1", "Carmen", 40)
	seedAssignment(t, store, assignment("a-1", "w-1", "u-1", mondayMornings))

	override := generic.NewAmount(16, generic.UnitHours)
	report, err := svc.UserReport(context.Background(), balance.UserReportInput{
		UserID: "u-1", Year: 2027, Month: 2, Today: endOfFeb, MonthlyHours: &override,
	})

	require.NoError(t, err)
	assert.Equal(t, 16.0, report.MonthlyHours)
	assert.Equal(t, generic.StatusPerfect, report.Status)
}

func TestUserReport_Errors(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "u-1", "Carmen", 16)
	ctx := context.Background()

	_, err := svc.UserReport(ctx, balance.UserReportInput{UserID: "u-404", Year: 2027, Month: 2, Today: endOfFeb})
	assert.ErrorIs(t, err, generic.ErrUserNotFound)

	_, err = svc.UserReport(ctx, balance.UserReportInput{UserID: "u-1", Year: 2027, Month: 13, Today: endOfFeb})
	assert.ErrorIs(t, err, generic.ErrInvalidMonth)
}

// =============================================================================
// WORKER REPORTS
// =============================================================================

func seedCaseload(t *testing.T, store *memory.Memory) {
	t.Helper()
	seedWorker(t, store, "w-1", "Ana")
	seedUser(t, store, "u-carmen", "Carmen", 16)
	seedUser(t, store, "u-jose", "José", 30)
	seedUser(t, store, "u-pilar", "Pilar", 10)
	seedAssignment(t, store, assignment("a-carmen", "w-1", "u-carmen", mondayMornings))
	seedAssignment(t, store, assignment("a-jose", "w-1", "u-jose", mondayMornings))
	seedAssignment(t, store, assignment("a-pilar", "w-1", "u-pilar", schedule.Shift(schedule.Workdays(), schedule.Slot("08:00", "09:00"))))
}

func TestWorkerReport_Caseload(t *testing.T) {
	// GIVEN: One worker with a perfect, a deficit and an excess user
	svc, store := newTestService(t)
	seedCaseload(t, store)

	// WHEN: Reporting the worker's month
	report, err := svc.WorkerReport(context.Background(), "w-1", 2027, 2, endOfFeb)
	require.NoError(t, err)

	// THEN: Each user has its own status, in assignment order
	require.Len(t, report.Users, 3)
	assert.Equal(t, generic.UserID("u-carmen"), report.Users[0].EntityID)
	assert.Equal(t, generic.StatusPerfect, report.Users[0].Status)
	assert.Equal(t, generic.StatusDeficit, report.Users[1].Status)
	assert.Equal(t, 53.3, report.Users[1].Percentage)
	assert.Equal(t, generic.StatusExcess, report.Users[2].Status)
	assert.Equal(t, 10.0, report.Users[2].ExcessHours)

	// AND: Totals fold the unrounded figures
	assert.Equal(t, 56.0, report.Totals.MonthlyHours)
	assert.Equal(t, 52.0, report.Totals.UsedHours)
	assert.Equal(t, 52.0, report.Totals.AssignedHours)
	assert.Equal(t, 4.0, report.Totals.RemainingHours)
	assert.Equal(t, 92.9, report.Totals.Percentage)
	assert.Equal(t, generic.StatusDeficit, report.OverallStatus)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, "Ana", report.EntityName)
}

func TestWorkerReport_OnlyCountsThisWorker(t *testing.T) {
	// GIVEN: Carmen is also served by another worker
	svc, store := newTestService(t)
	seedCaseload(t, store)
	seedWorker(t, store, "w-2", "Luis")
	seedAssignment(t, store, assignment("a-luis", "w-2", "u-carmen", schedule.Shift(schedule.Workdays(), schedule.Slot("18:00", "19:00"))))

	report, err := svc.WorkerReport(context.Background(), "w-1", 2027, 2, endOfFeb)
	require.NoError(t, err)

	// THEN: Luis's hours do not leak into Ana's report
	assert.Equal(t, 16.0, report.Users[0].UsedHours)
	assert.Equal(t, generic.StatusPerfect, report.Users[0].Status)
}

func TestWorkerReport_SkipsUsersThatFail(t *testing.T) {
	// GIVEN: Reading José fails
	store := memory.New()
	svc := balance.NewService(failingStore{Memory: store, failUser: "u-jose"}, schedule.DefaultFestiveKeyPolicy, quietLogger())
	seedCaseload(t, store)

	// WHEN: Reporting the worker
	report, err := svc.WorkerReport(context.Background(), "w-1", 2027, 2, endOfFeb)

	// THEN: The report succeeds without José, who is listed as skipped
	require.NoError(t, err)
	require.Len(t, report.Users, 2)
	assert.Equal(t, generic.UserID("u-carmen"), report.Users[0].EntityID)
	assert.Equal(t, generic.UserID("u-pilar"), report.Users[1].EntityID)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, generic.UserID("u-jose"), report.Skipped[0].UserID)
	assert.Contains(t, report.Skipped[0].Reason, "connection reset")
	assert.Equal(t, 26.0, report.Totals.MonthlyHours)
}

func TestWorkerReport_SequentialMatchesParallel(t *testing.T) {
	svc, store := newTestService(t)
	seedCaseload(t, store)

	parallel, err := svc.WorkerReport(context.Background(), "w-1", 2027, 2, feb(12))
	require.NoError(t, err)

	svc.MaxParallel = 1
	sequential, err := svc.WorkerReport(context.Background(), "w-1", 2027, 2, feb(12))
	require.NoError(t, err)

	assert.Equal(t, parallel, sequential)
}

func TestWorkerReport_NoUsers(t *testing.T) {
	svc, store := newTestService(t)
	seedWorker(t, store, "w-1", "Ana")

	report, err := svc.WorkerReport(context.Background(), "w-1", 2027, 2, endOfFeb)

	require.NoError(t, err)
	assert.NotNil(t, report.Users)
	assert.Empty(t, report.Users)
	assert.Equal(t, generic.StatusPerfect, report.OverallStatus)
}

func TestWorkerReport_UnknownWorker(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.WorkerReport(context.Background(), "w-404", 2027, 2, endOfFeb)

	assert.ErrorIs(t, err, generic.ErrWorkerNotFound)
}

func TestWorkerReport_CancelledContext(t *testing.T) {
	svc, store := newTestService(t)
	seedCaseload(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.WorkerReport(ctx, "w-1", 2027, 2, endOfFeb)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerateBalance_IsIdempotent(t *testing.T) {
	// GIVEN: A worker/user pair
	svc, store := newTestService(t)
	seedWorker(t, store, "w-1", "Ana")
	seedUser(t, store, "u-1", "Carmen", 40)
	seedAssignment(t, store, assignment("a-1", "w-1", "u-1", mondayMornings))
	ctx := context.Background()

	in := balance.GenerateInput{
		UserID:       "u-1",
		WorkerID:     "w-1",
		Year:         2027,
		Month:        2,
		MonthlyHours: generic.NewAmount(20, generic.UnitHours),
		Planning:     json.RawMessage(`{"weeks":4}`),
		Today:        endOfFeb,
	}

	// WHEN: Generating twice with the same inputs
	first, err := svc.GenerateBalance(ctx, in)
	require.NoError(t, err)
	second, err := svc.GenerateBalance(ctx, in)
	require.NoError(t, err)

	// THEN: One row, same id, same figures
	rows, err := store.ListMonthlyBalances(ctx, generic.BalanceFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, first.ID, rows[0].ID)

	// AND: The figures use the monthly hours that were sent
	assert.Equal(t, 20.0, first.MonthlyHours.Rounded())
	assert.Equal(t, 16.0, first.UsedHours.Rounded())
	assert.Equal(t, 4.0, first.RemainingHours.Rounded())
	assert.Equal(t, generic.StatusDeficit, first.Status)
	assert.Equal(t, 80.0, first.Percentage)
	assert.JSONEq(t, `{"weeks":4}`, string(first.Planning))
}

func TestGenerateBalance_OverwritesFigures(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "u-1", "Carmen", 40)
	seedAssignment(t, store, assignment("a-1", "w-1", "u-1", mondayMornings))
	ctx := context.Background()

	in := balance.GenerateInput{
		UserID: "u-1", WorkerID: "w-1", Year: 2027, Month: 2,
		MonthlyHours: generic.NewAmount(20, generic.UnitHours),
		Planning:     json.RawMessage(`{}`),
		Today:        feb(10),
	}
	first, err := svc.GenerateBalance(ctx, in)
	require.NoError(t, err)

	in.Today = endOfFeb
	second, err := svc.GenerateBalance(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8.0, first.UsedHours.Rounded())
	assert.Equal(t, 16.0, second.UsedHours.Rounded())
}

func TestGenerateBalance_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GenerateBalance(context.Background(), balance.GenerateInput{
		UserID: "u-404", WorkerID: "w-1", Year: 2027, Month: 2,
		MonthlyHours: generic.NewAmount(20, generic.UnitHours),
		Today:        generic.DateOf(time.Now()),
	})

	assert.ErrorIs(t, err, generic.ErrUserNotFound)
}
