package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The unit of balance calculation
// =============================================================================

// Period defines the time boundary for balance calculation.
// Balances in this system are always computed for one calendar month.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// MonthPeriod returns [first day, last day] of the month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// ParseMonthPeriod validates a (year, month) pair coming from a request.
func ParseMonthPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d", ErrInvalidMonth, month)
	}
	if year < 1970 || year > 9999 {
		return Period{}, fmt.Errorf("%w: year %d", ErrInvalidMonth, year)
	}
	return MonthPeriod(year, time.Month(month)), nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

func (p Period) Year() int         { return p.Start.Year() }
func (p Period) Month() time.Month { return p.Start.Month() }

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
