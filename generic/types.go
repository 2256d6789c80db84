/*
Package generic provides the core types of the care-hours balance engine.

PURPOSE:
  This package contains the domain-agnostic building blocks shared by every
  other package: hour amounts, calendar points, month periods, holidays and
  the balance calculator. Nothing in here knows about weekly schedules or
  HTTP; those live in the schedule, balance and api packages.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (always hours for this system)
  - Worker / User: The two parties of an assignment
  - Worker/User/Assignment IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Type Safety: Strong typing for IDs prevents mixing worker/user IDs
  3. Purity: Calculations take explicit inputs, including "today"

USAGE:
  monthly := generic.NewAmount(20, generic.UnitHours)
  used := generic.HoursFromMinutes(16 * 60)
  figures := generic.CalculateBalance(monthly, used)

SEE ALSO:
  - time.go: TimePoint, holidays and day classification
  - period.go: Month periods
  - balance.go: Balance status calculation
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const UnitHours Unit = "hours"

var minutesPerHour = decimal.NewFromInt(60)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

// HoursFromMinutes converts a whole number of minutes into an hour amount.
// Slot durations are summed as minutes and converted once, so the result
// carries no accumulated rounding error.
func HoursFromMinutes(minutes int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(minutes)).Div(minutesPerHour), Unit: UnitHours}
}

func ZeroHours() Amount { return Amount{Value: decimal.Zero, Unit: UnitHours} }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Rounded returns the value rounded to one decimal place, half away from
// zero. Use only at presentation; never feed it back into a sum.
func (a Amount) Rounded() float64 {
	return a.Value.Round(1).InexactFloat64()
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkerID string
type UserID string
type AssignmentID string

// =============================================================================
// PARTIES
// =============================================================================

// Worker is a care worker. AuthUserID is the subject of the worker's own
// login token and is how the API matches a caller to a worker record.
type Worker struct {
	ID         WorkerID
	Name       string
	Email      string
	AuthUserID string
	CreatedAt  time.Time
}

// User is a care client. MonthlyHours is the contracted total for any
// calendar month.
type User struct {
	ID           UserID
	Name         string
	Email        string
	MonthlyHours Amount
	CreatedAt    time.Time
}
