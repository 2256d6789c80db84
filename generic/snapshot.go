package generic

import (
	"encoding/json"
	"time"
)

// =============================================================================
// MONTHLY BALANCE - Persisted balance for one (user, worker, month)
// =============================================================================

// MonthlyBalance is the row written to monthly_balances.
// It is upserted on (UserID, WorkerID, Month, Year): a second write for the
// same key overwrites the figures and keeps ID and CreatedAt.
type MonthlyBalance struct {
	ID             string
	UserID         UserID
	WorkerID       WorkerID
	Month          int
	Year           int
	MonthlyHours   Amount
	AssignedHours  Amount
	UsedHours      Amount
	RemainingHours Amount
	ExcessHours    Amount
	Status         BalanceStatus
	Percentage     float64
	HolidayInfo    HolidayInfo
	Planning       json.RawMessage
	CreatedAt      time.Time
}

// Key returns the upsert key.
func (b MonthlyBalance) Key() BalanceKey {
	return BalanceKey{UserID: b.UserID, WorkerID: b.WorkerID, Month: b.Month, Year: b.Year}
}

type BalanceKey struct {
	UserID   UserID
	WorkerID WorkerID
	Month    int
	Year     int
}

// HolidayInfo summarises how festive days shaped a month.
//   - WorkingDays / WorkingHours: non-festive days and the hours on them
//   - TotalHolidays / HolidayHours: festive days (holidays and weekends) and the hours on them
type HolidayInfo struct {
	WorkingDays   int     `json:"workingDays"`
	WorkingHours  float64 `json:"workingHours"`
	TotalHolidays int     `json:"totalHolidays"`
	HolidayHours  float64 `json:"holidayHours"`
}

// BalanceFilter narrows a listing of persisted balances. Zero values match all.
type BalanceFilter struct {
	UserID   UserID
	WorkerID WorkerID
	Month    int
	Year     int
}

func (f BalanceFilter) Matches(b MonthlyBalance) bool {
	if f.UserID != "" && f.UserID != b.UserID {
		return false
	}
	if f.WorkerID != "" && f.WorkerID != b.WorkerID {
		return false
	}
	if f.Month != 0 && f.Month != b.Month {
		return false
	}
	if f.Year != 0 && f.Year != b.Year {
		return false
	}
	return true
}
