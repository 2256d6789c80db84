package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// DefaultMaxParallel bounds concurrent per-user reads in a worker report.
const DefaultMaxParallel = 4

// =============================================================================
// STORE - What the service reads and writes
// =============================================================================

// Store is the subset of persistence the reconciliation service needs.
// Get methods return (nil, nil) when the record does not exist.
type Store interface {
	GetWorker(ctx context.Context, id generic.WorkerID) (*generic.Worker, error)
	GetUser(ctx context.Context, id generic.UserID) (*generic.User, error)
	ActiveAssignmentsByWorker(ctx context.Context, workerID generic.WorkerID) ([]schedule.Assignment, error)
	ActiveAssignmentsByUser(ctx context.Context, userID generic.UserID) ([]schedule.Assignment, error)
	ActiveHolidays(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error)
	UpsertMonthlyBalance(ctx context.Context, b generic.MonthlyBalance) (generic.MonthlyBalance, error)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store       Store
	Aggregator  Aggregator
	Logger      *slog.Logger
	MaxParallel int
}

func NewService(store Store, policy schedule.FestiveKeyPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Store:       store,
		Aggregator:  NewAggregator(policy),
		Logger:      logger,
		MaxParallel: DefaultMaxParallel,
	}
}

// UserReportInput selects a user report.
type UserReportInput struct {
	UserID   generic.UserID
	WorkerID generic.WorkerID // optional: restrict to one pair
	Year     int
	Month    int
	Today    generic.TimePoint
	// MonthlyHours overrides the user's contracted hours when set.
	MonthlyHours *generic.Amount
	IncludeDays  bool
}

// UserReport computes the balance of one user, across all workers or for a
// single pair.
func (s *Service) UserReport(ctx context.Context, in UserReportInput) (UserReport, error) {
	period, err := generic.ParseMonthPeriod(in.Year, in.Month)
	if err != nil {
		return UserReport{}, err
	}

	holidays, err := s.holidaySet(ctx, period)
	if err != nil {
		return UserReport{}, err
	}

	return s.userReport(ctx, in, period, holidays)
}

func (s *Service) userReport(ctx context.Context, in UserReportInput, period generic.Period, holidays generic.HolidaySet) (UserReport, error) {
	user, err := s.Store.GetUser(ctx, in.UserID)
	if err != nil {
		return UserReport{}, fmt.Errorf("failed to load user %s: %w", in.UserID, err)
	}
	if user == nil {
		return UserReport{}, fmt.Errorf("%w: %s", generic.ErrUserNotFound, in.UserID)
	}

	assignments, err := s.Store.ActiveAssignmentsByUser(ctx, in.UserID)
	if err != nil {
		return UserReport{}, fmt.Errorf("failed to load assignments of user %s: %w", in.UserID, err)
	}
	assignments = pairAssignments(assignments, in.WorkerID)

	monthly := user.MonthlyHours
	if in.MonthlyHours != nil {
		monthly = *in.MonthlyHours
	}

	agg := s.Aggregator.Aggregate(assignments, period, holidays, in.Today)
	return BuildUserReport(*user, monthly, agg, ReportOptions{WorkerID: in.WorkerID, IncludeDays: in.IncludeDays}), nil
}

// WorkerReport computes the balance of every user the worker is actively
// assigned to. Users are computed independently; a user whose data cannot
// be read is logged and listed in Skipped instead of failing the report.
func (s *Service) WorkerReport(ctx context.Context, workerID generic.WorkerID, year, month int, today generic.TimePoint) (WorkerReport, error) {
	period, err := generic.ParseMonthPeriod(year, month)
	if err != nil {
		return WorkerReport{}, err
	}

	worker, err := s.Store.GetWorker(ctx, workerID)
	if err != nil {
		return WorkerReport{}, fmt.Errorf("failed to load worker %s: %w", workerID, err)
	}
	if worker == nil {
		return WorkerReport{}, fmt.Errorf("%w: %s", generic.ErrWorkerNotFound, workerID)
	}

	assignments, err := s.Store.ActiveAssignmentsByWorker(ctx, workerID)
	if err != nil {
		return WorkerReport{}, fmt.Errorf("failed to load assignments of worker %s: %w", workerID, err)
	}

	holidays, err := s.holidaySet(ctx, period)
	if err != nil {
		return WorkerReport{}, err
	}

	userIDs := uniqueUsers(assignments)
	reports := make([]UserReport, len(userIDs))
	failures := make([]error, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel())
	for i, userID := range userIDs {
		i, userID := i, userID
		g.Go(func() error {
			report, err := s.userReport(gctx, UserReportInput{
				UserID:   userID,
				WorkerID: workerID,
				Year:     year,
				Month:    month,
				Today:    today,
			}, period, holidays)
			if err != nil {
				failures[i] = err
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	// goroutines never return errors; failures are collected per user
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return WorkerReport{}, err
	}

	users := make([]UserReport, 0, len(userIDs))
	var skipped []SkippedUser
	for i, userID := range userIDs {
		if failures[i] != nil {
			s.Logger.WarnContext(ctx, "skipping user in worker balance",
				slog.String("worker_id", string(workerID)),
				slog.String("user_id", string(userID)),
				slog.String("error", failures[i].Error()))
			skipped = append(skipped, SkippedUser{UserID: userID, Reason: failures[i].Error()})
			continue
		}
		users = append(users, reports[i])
	}

	return BuildWorkerReport(*worker, period, users, skipped), nil
}

// GenerateInput drives GenerateBalance.
type GenerateInput struct {
	UserID       generic.UserID
	WorkerID     generic.WorkerID
	Year         int
	Month        int
	MonthlyHours generic.Amount
	Planning     json.RawMessage
	Today        generic.TimePoint
}

// GenerateBalance recomputes the pair's balance and upserts it. Running it
// twice with the same inputs leaves a single identical row.
func (s *Service) GenerateBalance(ctx context.Context, in GenerateInput) (generic.MonthlyBalance, error) {
	monthly := in.MonthlyHours
	report, err := s.UserReport(ctx, UserReportInput{
		UserID:       in.UserID,
		WorkerID:     in.WorkerID,
		Year:         in.Year,
		Month:        in.Month,
		Today:        in.Today,
		MonthlyHours: &monthly,
	})
	if err != nil {
		return generic.MonthlyBalance{}, err
	}

	row := report.ToMonthlyBalance(in.Planning)
	row.ID = uuid.NewString()

	saved, err := s.Store.UpsertMonthlyBalance(ctx, row)
	if err != nil {
		return generic.MonthlyBalance{}, fmt.Errorf("failed to save monthly balance: %w", err)
	}

	s.Logger.InfoContext(ctx, "monthly balance generated",
		slog.String("balance_id", saved.ID),
		slog.String("user_id", string(in.UserID)),
		slog.String("worker_id", string(in.WorkerID)),
		slog.Int("month", in.Month),
		slog.Int("year", in.Year),
		slog.String("status", string(saved.Status)))
	return saved, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) holidaySet(ctx context.Context, period generic.Period) (generic.HolidaySet, error) {
	holidays, err := s.Store.ActiveHolidays(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	return generic.NewHolidaySet(holidays, period.Year(), period.Month()), nil
}

func (s *Service) maxParallel() int {
	if s.MaxParallel <= 0 {
		return DefaultMaxParallel
	}
	return s.MaxParallel
}

// uniqueUsers lists the users of the assignments in first-seen order.
func uniqueUsers(assignments []schedule.Assignment) []generic.UserID {
	seen := make(map[generic.UserID]bool)
	var out []generic.UserID
	for _, a := range assignments {
		if seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		out = append(out, a.UserID)
	}
	return out
}
