/*
Package balance reconciles scheduled care hours against contracted hours.

PURPOSE:
  For one calendar month this package walks every day, decides which slots
  of each assignment's weekly schedule apply, and sums them into assigned
  and used hours at every granularity the reports need.

PIPELINE:
  generic.Classify      -> is the day a weekend, a holiday, festive?
  schedule.Resolver     -> which DaySchedule of the assignment applies?
  Aggregator.Aggregate  -> sum minutes per day / assignment / user / worker
  generic.CalculateBalance -> remaining, excess, status, percentage
  BuildUserReport / BuildWorkerReport -> the shapes returned and persisted

ASSIGNED VS USED:
  Assigned hours count every day of the month.
  Used hours count only days on or before "today" (inclusive).
  "Today" is always passed in; nothing here reads the clock.

PRECISION:
  Durations are summed as integer minutes and converted to hours once, so
  totals are exact. Rounding to one decimal happens when building reports.

SEE ALSO:
  - report.go: Report assembly
  - service.go: Store reads, parallel worker reports, upserts
*/
package balance

import (
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// =============================================================================
// HOURS - Minute counters for one scope
// =============================================================================

type Hours struct {
	AssignedMinutes int
	UsedMinutes     int
}

func (h Hours) Assigned() generic.Amount { return generic.HoursFromMinutes(h.AssignedMinutes) }
func (h Hours) Used() generic.Amount     { return generic.HoursFromMinutes(h.UsedMinutes) }

func (h Hours) add(minutes int, used bool) Hours {
	h.AssignedMinutes += minutes
	if used {
		h.UsedMinutes += minutes
	}
	return h
}

// =============================================================================
// AGGREGATION - Result of one pass over a month
// =============================================================================

// AssignmentTotal is one assignment's share of the month.
type AssignmentTotal struct {
	Assignment schedule.Assignment
	Hours      Hours
}

// DayTotal is one calendar day across every assignment in scope.
type DayTotal struct {
	Class   generic.DayClass
	Minutes int
	Used    bool
}

// HolidayTally splits the month into festive and non-festive days.
type HolidayTally struct {
	WorkingDays    int
	WorkingMinutes int
	FestiveDays    int
	FestiveMinutes int
}

// Info converts the tally for reports.
func (t HolidayTally) Info() generic.HolidayInfo {
	return generic.HolidayInfo{
		WorkingDays:   t.WorkingDays,
		WorkingHours:  generic.HoursFromMinutes(t.WorkingMinutes).Rounded(),
		TotalHolidays: t.FestiveDays,
		HolidayHours:  generic.HoursFromMinutes(t.FestiveMinutes).Rounded(),
	}
}

type Aggregation struct {
	Period generic.Period
	Today  generic.TimePoint

	Total        Hours
	ByAssignment []AssignmentTotal // input order, active assignments only
	ByUser       map[generic.UserID]Hours
	ByWorker     map[generic.WorkerID]Hours
	Days         []DayTotal
	Holidays     HolidayTally
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	Resolver schedule.Resolver
}

func NewAggregator(policy schedule.FestiveKeyPolicy) Aggregator {
	return Aggregator{Resolver: schedule.NewResolver(policy)}
}

// Aggregate sums the scheduled minutes of the active assignments over the
// period. Assignments that are not active contribute nothing and are left
// out of ByAssignment.
func (a Aggregator) Aggregate(
	assignments []schedule.Assignment,
	period generic.Period,
	holidays generic.HolidaySet,
	today generic.TimePoint,
) Aggregation {
	agg := Aggregation{
		Period:   period,
		Today:    today,
		ByUser:   make(map[generic.UserID]Hours),
		ByWorker: make(map[generic.WorkerID]Hours),
	}

	active := make([]AssignmentTotal, 0, len(assignments))
	for _, asg := range assignments {
		if asg.IsActive() {
			active = append(active, AssignmentTotal{Assignment: asg})
		}
	}

	for _, date := range period.Days() {
		class := generic.Classify(date.Year(), date.Month(), date.Day(), holidays)
		used := date.BeforeOrEqual(today)

		dayMinutes := 0
		for i := range active {
			asg := active[i].Assignment
			ds, ok := a.Resolver.Resolve(asg.Schedule, class)
			if !ok {
				continue
			}
			minutes := ds.Minutes()
			if minutes == 0 {
				continue
			}
			dayMinutes += minutes
			active[i].Hours = active[i].Hours.add(minutes, used)
			agg.ByUser[asg.UserID] = agg.ByUser[asg.UserID].add(minutes, used)
			agg.ByWorker[asg.WorkerID] = agg.ByWorker[asg.WorkerID].add(minutes, used)
		}

		agg.Total = agg.Total.add(dayMinutes, used)
		agg.Days = append(agg.Days, DayTotal{Class: class, Minutes: dayMinutes, Used: used})

		if class.IsFestive {
			agg.Holidays.FestiveDays++
			agg.Holidays.FestiveMinutes += dayMinutes
		} else {
			agg.Holidays.WorkingDays++
			agg.Holidays.WorkingMinutes += dayMinutes
		}
	}

	agg.ByAssignment = active
	return agg
}
