package schedule

import (
	"fmt"
	"strings"

	"github.com/warp/carebalance/generic"
)

// =============================================================================
// FESTIVE KEY POLICY
// =============================================================================

// FestiveKeyPolicy decides when the holiday entry of a weekly schedule
// replaces the weekday entry.
type FestiveKeyPolicy int

const (
	// HolidayKeyOnGenuineHolidayOnly uses the holiday entry only on
	// registered holidays; plain weekends use their own weekday entry.
	HolidayKeyOnGenuineHolidayOnly FestiveKeyPolicy = iota

	// HolidayKeyOnAnyFestiveDay uses the holiday entry on every festive
	// day, weekends included.
	HolidayKeyOnAnyFestiveDay
)

const DefaultFestiveKeyPolicy = HolidayKeyOnGenuineHolidayOnly

func (p FestiveKeyPolicy) String() string {
	switch p {
	case HolidayKeyOnGenuineHolidayOnly:
		return "genuine_holiday_only"
	case HolidayKeyOnAnyFestiveDay:
		return "any_festive_day"
	}
	return fmt.Sprintf("FestiveKeyPolicy(%d)", int(p))
}

// ParseFestiveKeyPolicy accepts the config spelling. Empty means default.
func ParseFestiveKeyPolicy(s string) (FestiveKeyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "genuine_holiday_only":
		return HolidayKeyOnGenuineHolidayOnly, nil
	case "any_festive_day":
		return HolidayKeyOnAnyFestiveDay, nil
	}
	return 0, fmt.Errorf("unknown festive key policy %q", s)
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver picks the day schedule that applies on a classified day.
type Resolver struct {
	Policy FestiveKeyPolicy
}

func NewResolver(policy FestiveKeyPolicy) Resolver {
	return Resolver{Policy: policy}
}

// KeyFor returns the schedule key consulted for the day.
func (r Resolver) KeyFor(day generic.DayClass) DayKey {
	switch r.Policy {
	case HolidayKeyOnAnyFestiveDay:
		if day.IsFestive {
			return Holiday
		}
	default:
		if day.IsHoliday {
			return Holiday
		}
	}
	return DayKeyFor(day.DayOfWeek)
}

// Resolve returns the applicable schedule, or false when the day yields
// no hours (missing entry, disabled, or no slots).
func (r Resolver) Resolve(weekly Weekly, day generic.DayClass) (DaySchedule, bool) {
	ds, ok := weekly[r.KeyFor(day)]
	if !ok || !ds.Works() {
		return DaySchedule{}, false
	}
	return ds, true
}
