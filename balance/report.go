package balance

import (
	"encoding/json"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// =============================================================================
// REPORT SHAPES
// =============================================================================

// AssignmentHours is one assignment's contribution within a user report.
type AssignmentHours struct {
	AssignmentID  generic.AssignmentID `json:"assignmentId"`
	WorkerID      generic.WorkerID     `json:"workerId"`
	WorkerName    string               `json:"workerName,omitempty"`
	UserID        generic.UserID       `json:"userId"`
	UserName      string               `json:"userName,omitempty"`
	WeeklyHours   float64              `json:"weeklyHours"`
	AssignedHours float64              `json:"assignedHours"`
	UsedHours     float64              `json:"usedHours"`
}

// DayDetail is one row of the per-day breakdown.
type DayDetail struct {
	Date      string  `json:"date"`
	DayOfWeek int     `json:"dayOfWeek"`
	IsWeekend bool    `json:"isWeekend"`
	IsHoliday bool    `json:"isHoliday"`
	IsFestive bool    `json:"isFestive"`
	Hours     float64 `json:"hours"`
	Used      bool    `json:"used"`
}

// UserReport is the balance of one user for a month, either across all of
// the user's workers or for a single worker/user pair (WorkerID set).
type UserReport struct {
	EntityID       generic.UserID        `json:"entityId"`
	EntityName     string                `json:"entityName"`
	WorkerID       generic.WorkerID      `json:"workerId,omitempty"`
	Month          int                   `json:"month"`
	Year           int                   `json:"year"`
	MonthlyHours   float64               `json:"monthlyHours"`
	AssignedHours  float64               `json:"assignedHours"`
	UsedHours      float64               `json:"usedHours"`
	RemainingHours float64               `json:"remainingHours"`
	ExcessHours    float64               `json:"excessHours"`
	Status         generic.BalanceStatus `json:"status"`
	Percentage     float64               `json:"percentage"`
	HolidayInfo    generic.HolidayInfo   `json:"holidayInfo"`
	Assignments    []AssignmentHours     `json:"assignments"`
	Days           []DayDetail           `json:"days,omitempty"`

	// unrounded figures, for folding into worker totals
	monthly  generic.Amount
	assigned generic.Amount
	used     generic.Amount
}

// Raw returns the unrounded monthly, assigned and used hours.
func (r UserReport) Raw() (monthly, assigned, used generic.Amount) {
	return r.monthly, r.assigned, r.used
}

// SkippedUser records a user left out of a worker report.
type SkippedUser struct {
	UserID generic.UserID `json:"userId"`
	Reason string         `json:"reason"`
}

type Totals struct {
	MonthlyHours   float64 `json:"monthlyHours"`
	AssignedHours  float64 `json:"assignedHours"`
	UsedHours      float64 `json:"usedHours"`
	RemainingHours float64 `json:"remainingHours"`
	ExcessHours    float64 `json:"excessHours"`
	Percentage     float64 `json:"percentage"`
}

// WorkerReport is the balance of every user a worker serves.
type WorkerReport struct {
	EntityID      generic.WorkerID      `json:"entityId"`
	EntityName    string                `json:"entityName"`
	Month         int                   `json:"month"`
	Year          int                   `json:"year"`
	Users         []UserReport          `json:"users"`
	Totals        Totals                `json:"totals"`
	OverallStatus generic.BalanceStatus `json:"overallStatus"`
	Skipped       []SkippedUser         `json:"skipped"`
}

// =============================================================================
// BUILDERS
// =============================================================================

// ReportOptions tweak BuildUserReport.
type ReportOptions struct {
	// WorkerID scopes the report to one worker/user pair.
	WorkerID generic.WorkerID
	// IncludeDays adds the per-day breakdown.
	IncludeDays bool
}

// BuildUserReport combines a user's contracted hours with an aggregation
// computed over that user's assignments.
func BuildUserReport(user generic.User, monthly generic.Amount, agg Aggregation, opts ReportOptions) UserReport {
	figures := generic.CalculateBalance(monthly, agg.Total.Used())
	assigned := agg.Total.Assigned()

	report := UserReport{
		EntityID:       user.ID,
		EntityName:     user.Name,
		WorkerID:       opts.WorkerID,
		Month:          int(agg.Period.Month()),
		Year:           agg.Period.Year(),
		MonthlyHours:   monthly.Rounded(),
		AssignedHours:  assigned.Rounded(),
		UsedHours:      figures.UsedHours.Rounded(),
		RemainingHours: figures.RemainingHours.Rounded(),
		ExcessHours:    figures.ExcessHours.Rounded(),
		Status:         figures.Status,
		Percentage:     figures.PercentageFloat(),
		HolidayInfo:    agg.Holidays.Info(),
		Assignments:    make([]AssignmentHours, 0, len(agg.ByAssignment)),
		monthly:        monthly,
		assigned:       assigned,
		used:           figures.UsedHours,
	}

	for _, at := range agg.ByAssignment {
		report.Assignments = append(report.Assignments, assignmentHours(at))
	}

	if opts.IncludeDays {
		report.Days = make([]DayDetail, 0, len(agg.Days))
		for _, d := range agg.Days {
			report.Days = append(report.Days, DayDetail{
				Date:      d.Class.Date.String(),
				DayOfWeek: int(d.Class.DayOfWeek),
				IsWeekend: d.Class.IsWeekend,
				IsHoliday: d.Class.IsHoliday,
				IsFestive: d.Class.IsFestive,
				Hours:     generic.HoursFromMinutes(d.Minutes).Rounded(),
				Used:      d.Used,
			})
		}
	}
	return report
}

func assignmentHours(at AssignmentTotal) AssignmentHours {
	a := at.Assignment
	return AssignmentHours{
		AssignmentID:  a.ID,
		WorkerID:      a.WorkerID,
		WorkerName:    a.WorkerName,
		UserID:        a.UserID,
		UserName:      a.UserName,
		WeeklyHours:   generic.HoursFromMinutes(a.Schedule.WeeklyMinutes()).Rounded(),
		AssignedHours: at.Hours.Assigned().Rounded(),
		UsedHours:     at.Hours.Used().Rounded(),
	}
}

// BuildWorkerReport folds per-user reports into worker totals. The overall
// status and the totals are computed on unrounded sums.
func BuildWorkerReport(worker generic.Worker, period generic.Period, users []UserReport, skipped []SkippedUser) WorkerReport {
	monthly, assigned, used := generic.ZeroHours(), generic.ZeroHours(), generic.ZeroHours()
	for _, u := range users {
		m, a, us := u.Raw()
		monthly = monthly.Add(m)
		assigned = assigned.Add(a)
		used = used.Add(us)
	}

	overall := generic.CalculateBalance(monthly, used)

	if users == nil {
		users = []UserReport{}
	}
	if skipped == nil {
		skipped = []SkippedUser{}
	}

	return WorkerReport{
		EntityID:   worker.ID,
		EntityName: worker.Name,
		Month:      int(period.Month()),
		Year:       period.Year(),
		Users:      users,
		Totals: Totals{
			MonthlyHours:   monthly.Rounded(),
			AssignedHours:  assigned.Rounded(),
			UsedHours:      used.Rounded(),
			RemainingHours: overall.RemainingHours.Rounded(),
			ExcessHours:    overall.ExcessHours.Rounded(),
			Percentage:     overall.PercentageFloat(),
		},
		OverallStatus: overall.Status,
		Skipped:       skipped,
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// ToMonthlyBalance converts a pair-scoped report into the row that is
// upserted. planning is stored verbatim.
func (r UserReport) ToMonthlyBalance(planning json.RawMessage) generic.MonthlyBalance {
	figures := generic.CalculateBalance(r.monthly, r.used)
	return generic.MonthlyBalance{
		UserID:         r.EntityID,
		WorkerID:       r.WorkerID,
		Month:          r.Month,
		Year:           r.Year,
		MonthlyHours:   r.monthly,
		AssignedHours:  r.assigned,
		UsedHours:      r.used,
		RemainingHours: figures.RemainingHours,
		ExcessHours:    figures.ExcessHours,
		Status:         figures.Status,
		Percentage:     figures.PercentageFloat(),
		HolidayInfo:    r.HolidayInfo,
		Planning:       planning,
	}
}

// pairAssignments keeps the assignments between one worker and one user.
func pairAssignments(assignments []schedule.Assignment, workerID generic.WorkerID) []schedule.Assignment {
	if workerID == "" {
		return assignments
	}
	out := make([]schedule.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out
}
