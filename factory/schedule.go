/*
Package factory converts stored schedule JSON into schedule.Weekly values.

PURPOSE:
  Assignment schedules are stored as JSON documents written by several
  generations of the admin UI. Time slots appear in two shapes:

    legacy tuple:  ["09:00", "13:00"]
    object:        {"start": "09:00", "end": "13:00"}

  ParseSchedule resolves both into canonical schedule.TimeSlot records once,
  at ingestion. Nothing downstream branches on the slot shape.

JSON SCHEMA:
  {
    "monday":  {"enabled": true, "timeSlots": [["09:00","13:00"]]},
    "tuesday": {"enabled": true, "timeSlots": [{"start":"16:00","end":"18:30"}]},
    "holiday": {"enabled": false, "timeSlots": []}
  }

LENIENCY:
  - Slots missing a bound, with unparseable times, or of any other shape
    are dropped.
  - Days whose value is not a day object are dropped.
  - Unknown day keys are ignored.
  Only a document that is not a JSON object is an error.

USAGE:
  weekly, err := factory.ParseSchedule(raw)
  raw, err = factory.FormatSchedule(weekly)

SEE ALSO:
  - schedule/types.go: Weekly, DaySchedule, TimeSlot
  - store/sqlite/sqlite.go: Stores FormatSchedule output in schedule_json
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/warp/carebalance/schedule"
)

// =============================================================================
// SLOT ENCODINGS
// =============================================================================

// SlotKind tags which encoding a slot was read from.
type SlotKind int

const (
	SlotMalformed SlotKind = iota
	SlotTuple
	SlotObject
)

func (k SlotKind) String() string {
	switch k {
	case SlotTuple:
		return "tuple"
	case SlotObject:
		return "object"
	}
	return "malformed"
}

// SlotJSON decodes either slot encoding. It never fails; an unusable slot
// is tagged SlotMalformed.
type SlotJSON struct {
	Kind SlotKind
	Slot schedule.TimeSlot
}

func (s *SlotJSON) UnmarshalJSON(data []byte) error {
	s.Kind, s.Slot = SlotMalformed, schedule.TimeSlot{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var tuple []string
		if err := json.Unmarshal(trimmed, &tuple); err != nil || len(tuple) != 2 {
			return nil
		}
		s.accept(SlotTuple, tuple[0], tuple[1])
	case '{':
		var obj struct {
			Start *string `json:"start"`
			End   *string `json:"end"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil || obj.Start == nil || obj.End == nil {
			return nil
		}
		s.accept(SlotObject, *obj.Start, *obj.End)
	}
	return nil
}

func (s *SlotJSON) accept(kind SlotKind, start, end string) {
	slot := schedule.TimeSlot{Start: start, End: end}
	if !slot.Valid() {
		return
	}
	s.Kind, s.Slot = kind, slot
}

// =============================================================================
// DAY / WEEK ENCODINGS
// =============================================================================

type dayJSON struct {
	Enabled   bool       `json:"enabled"`
	TimeSlots []SlotJSON `json:"timeSlots"`
}

// DayScheduleJSON is the canonical output encoding of one day.
type DayScheduleJSON struct {
	Enabled   bool                `json:"enabled"`
	TimeSlots []schedule.TimeSlot `json:"timeSlots"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSchedule decodes a stored schedule document. Empty input and JSON
// null yield an empty schedule.
func ParseSchedule(raw []byte) (schedule.Weekly, error) {
	weekly := schedule.Weekly{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return weekly, nil
	}

	var days map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &days); err != nil {
		return nil, fmt.Errorf("failed to parse schedule JSON: %w", err)
	}

	for name, rawDay := range days {
		key := schedule.DayKey(name)
		if !key.Valid() {
			continue
		}
		var dj dayJSON
		if err := json.Unmarshal(rawDay, &dj); err != nil {
			continue
		}
		weekly[key] = toDaySchedule(dj)
	}
	return weekly, nil
}

// ParseScheduleString is ParseSchedule for string literals.
func ParseScheduleString(s string) (schedule.Weekly, error) {
	return ParseSchedule([]byte(s))
}

func toDaySchedule(dj dayJSON) schedule.DaySchedule {
	ds := schedule.DaySchedule{Enabled: dj.Enabled}
	for _, sj := range dj.TimeSlots {
		if sj.Kind == SlotMalformed {
			continue
		}
		ds.TimeSlots = append(ds.TimeSlots, sj.Slot)
	}
	return ds
}

// =============================================================================
// FORMATTING
// =============================================================================

// ToJSON converts a schedule to its canonical (object slot) encoding.
func ToJSON(weekly schedule.Weekly) map[schedule.DayKey]DayScheduleJSON {
	out := make(map[schedule.DayKey]DayScheduleJSON, len(weekly))
	for key, ds := range weekly {
		slots := ds.TimeSlots
		if slots == nil {
			slots = []schedule.TimeSlot{}
		}
		out[key] = DayScheduleJSON{Enabled: ds.Enabled, TimeSlots: slots}
	}
	return out
}

// FormatSchedule marshals the canonical encoding.
func FormatSchedule(weekly schedule.Weekly) ([]byte, error) {
	return json.Marshal(ToJSON(weekly))
}
