package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - A calendar day
// =============================================================================

type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (tp TimePoint) String() string {
	return tp.Time.Format("2006-01-02")
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayType string

const (
	HolidayLocal    HolidayType = "local"
	HolidayRegional HolidayType = "regional"
	HolidayNacional HolidayType = "nacional"
)

func (t HolidayType) Valid() bool {
	switch t {
	case HolidayLocal, HolidayRegional, HolidayNacional:
		return true
	}
	return false
}

// Holiday is a registered non-working day. Inactive holidays are kept for
// the admin screens but never reclassify a day.
type Holiday struct {
	ID        string
	Date      TimePoint
	Name      string
	Type      HolidayType
	Active    bool
	CreatedAt time.Time
}

// HolidaySet holds the days of one month that are registered holidays.
type HolidaySet map[int]struct{}

// NewHolidaySet keeps the active holidays that fall inside the given month.
func NewHolidaySet(holidays []Holiday, year int, month time.Month) HolidaySet {
	period := MonthPeriod(year, month)
	set := make(HolidaySet)
	for _, h := range holidays {
		if !h.Active || !period.Contains(h.Date) {
			continue
		}
		set[h.Date.Day()] = struct{}{}
	}
	return set
}

func (s HolidaySet) Contains(day int) bool {
	_, ok := s[day]
	return ok
}

func (s HolidaySet) Len() int { return len(s) }

// =============================================================================
// DAY CLASSIFICATION
// =============================================================================

// DayClass is the classification of one calendar day.
// DayOfWeek follows time.Weekday: Sunday=0 .. Saturday=6.
type DayClass struct {
	Date      TimePoint
	DayOfWeek time.Weekday
	IsWeekend bool
	IsHoliday bool
	IsFestive bool
}

// Classify reports whether a day is a weekend, a registered holiday, and
// therefore festive. A day is festive iff it is a holiday or a weekend day.
func Classify(year int, month time.Month, day int, holidays HolidaySet) DayClass {
	date := NewTimePoint(year, month, day)
	weekend := date.IsWeekend()
	holiday := holidays.Contains(day)
	return DayClass{
		Date:      date,
		DayOfWeek: date.Weekday(),
		IsWeekend: weekend,
		IsHoliday: holiday,
		IsFestive: holiday || weekend,
	}
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysInMonth(year int, month time.Month) int { return EndOfMonth(year, month).Day() }

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return TimePoint{Time: t}
}
