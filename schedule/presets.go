package schedule

// =============================================================================
// COMMON WEEKLY PATTERNS
// =============================================================================

// Shift builds a schedule where every listed day has the same slots.
func Shift(days []DayKey, slots ...TimeSlot) Weekly {
	w := Weekly{}
	for _, d := range days {
		w[d] = DaySchedule{Enabled: true, TimeSlots: append([]TimeSlot(nil), slots...)}
	}
	return w
}

// Workdays are Monday to Friday.
func Workdays() []DayKey {
	return []DayKey{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// Weekend is Saturday and Sunday.
func Weekend() []DayKey {
	return []DayKey{Saturday, Sunday}
}

// Slot is shorthand for TimeSlot{start, end}.
func Slot(start, end string) TimeSlot {
	return TimeSlot{Start: start, End: end}
}

// With returns a copy of w with key replaced.
func (w Weekly) With(key DayKey, ds DaySchedule) Weekly {
	out := make(Weekly, len(w)+1)
	for k, v := range w {
		out[k] = v
	}
	out[key] = ds
	return out
}

// Day is an enabled day with the given slots.
func Day(slots ...TimeSlot) DaySchedule {
	return DaySchedule{Enabled: true, TimeSlots: append([]TimeSlot(nil), slots...)}
}
