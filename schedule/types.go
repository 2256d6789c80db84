// Package schedule models the recurring weekly schedule of an assignment
// and resolves which time slots apply on a given calendar day.
package schedule

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/warp/carebalance/generic"
)

// =============================================================================
// DAY KEYS
// =============================================================================

// DayKey indexes a Weekly schedule.
type DayKey string

const (
	Monday    DayKey = "monday"
	Tuesday   DayKey = "tuesday"
	Wednesday DayKey = "wednesday"
	Thursday  DayKey = "thursday"
	Friday    DayKey = "friday"
	Saturday  DayKey = "saturday"
	Sunday    DayKey = "sunday"

	// Holiday overrides the weekday entry on festive days.
	Holiday DayKey = "holiday"
)

var weekdayKeys = [...]DayKey{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// DayKeyFor maps Sunday=0..Saturday=6 to its key.
func DayKeyFor(wd time.Weekday) DayKey {
	return weekdayKeys[int(wd)%7]
}

// AllDayKeys lists the keys in week order followed by the holiday key.
func AllDayKeys() []DayKey {
	return []DayKey{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday, Holiday}
}

func (k DayKey) Valid() bool {
	for _, known := range AllDayKeys() {
		if k == known {
			return true
		}
	}
	return false
}

// =============================================================================
// TIME SLOTS
// =============================================================================

// TimeSlot is a block of care time within one day, as HH:MM strings.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Minutes returns max(0, end - start). A slot with an unparseable bound
// counts as zero.
func (s TimeSlot) Minutes() int {
	start, ok := ParseClock(s.Start)
	if !ok {
		return 0
	}
	end, ok := ParseClock(s.End)
	if !ok {
		return 0
	}
	if end <= start {
		return 0
	}
	return end - start
}

func (s TimeSlot) Valid() bool {
	_, okStart := ParseClock(s.Start)
	_, okEnd := ParseClock(s.End)
	return okStart && okEnd
}

// ParseClock parses "HH:MM" (or "HH:MM:SS", as returned by SQL time
// columns) into minutes since midnight. Seconds are ignored.
func ParseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	if h == 24 && m != 0 {
		return 0, false
	}
	return h*60 + m, true
}

// =============================================================================
// DAY SCHEDULE
// =============================================================================

type DaySchedule struct {
	Enabled   bool       `json:"enabled"`
	TimeSlots []TimeSlot `json:"timeSlots"`
}

// Minutes sums every slot independently. Overlapping slots are not merged.
func (d DaySchedule) Minutes() int {
	if !d.Enabled {
		return 0
	}
	total := 0
	for _, slot := range d.TimeSlots {
		total += slot.Minutes()
	}
	return total
}

// Works reports whether the day contributes any slot at all.
func (d DaySchedule) Works() bool {
	return d.Enabled && len(d.TimeSlots) > 0
}

// Weekly maps day keys to their schedule. Missing keys mean "no hours".
type Weekly map[DayKey]DaySchedule

// WeeklyMinutes is the total of the seven weekday entries, ignoring the
// holiday override.
func (w Weekly) WeeklyMinutes() int {
	total := 0
	for _, wd := range weekdayKeys {
		total += w[wd].Minutes()
	}
	return total
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

type AssignmentStatus string

const (
	StatusActive    AssignmentStatus = "active"
	StatusInactive  AssignmentStatus = "inactive"
	StatusSuspended AssignmentStatus = "suspended"
	StatusCompleted AssignmentStatus = "completed"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusCompleted:
		return true
	}
	return false
}

// Assignment links one worker to one user with a weekly schedule.
// WorkerName and UserName are joined in by the store for reports.
type Assignment struct {
	ID         generic.AssignmentID
	WorkerID   generic.WorkerID
	UserID     generic.UserID
	WorkerName string
	UserName   string
	Status     AssignmentStatus
	Schedule   Weekly
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive reports whether the assignment contributes hours.
func (a Assignment) IsActive() bool {
	return a.Status == StatusActive
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

type AssignmentStore interface {
	SaveAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, id generic.AssignmentID) (*Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, id generic.AssignmentID, status AssignmentStatus) error
	UpdateAssignmentSchedule(ctx context.Context, id generic.AssignmentID, weekly Weekly) error

	// AssignmentsByWorker / AssignmentsByUser return every assignment of
	// the party; the Active variants keep only status = active.
	AssignmentsByWorker(ctx context.Context, workerID generic.WorkerID) ([]Assignment, error)
	AssignmentsByUser(ctx context.Context, userID generic.UserID) ([]Assignment, error)
	ActiveAssignmentsByWorker(ctx context.Context, workerID generic.WorkerID) ([]Assignment, error)
	ActiveAssignmentsByUser(ctx context.Context, userID generic.UserID) ([]Assignment, error)
}
