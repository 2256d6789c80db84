/*
balance.go - Contracted vs used hours for one month

PURPOSE:
  Turns a contracted monthly total and the hours actually used so far into
  the figures shown to workers and admins: remaining, excess, a status and
  a percentage.

KEY CONCEPTS:
  Monthly hours:  What the user's contract says for the month
  Used hours:     Scheduled hours on days up to and including "today"
  Status:         perfect | deficit | excess, with a 0.1h tolerance band

FORMULAS:
  remaining  = max(0, monthly - used)
  excess     = max(0, used - monthly)
  status     = perfect  if |monthly - used| < 0.1
               deficit  if used < monthly
               excess   otherwise
  percentage = used / monthly * 100, rounded to one decimal (0 if monthly = 0)

EXAMPLE:
  monthly = 20h, used = 16h
  remaining = 4h, excess = 0h, status = deficit, percentage = 80.0

SEE ALSO:
  - balance/aggregator.go: Produces used/assigned hours
  - balance/report.go: Assembles figures into reports
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// BALANCE STATUS
// =============================================================================

type BalanceStatus string

const (
	StatusPerfect BalanceStatus = "perfect"
	StatusDeficit BalanceStatus = "deficit"
	StatusExcess  BalanceStatus = "excess"
)

// PerfectTolerance is the band, in hours, inside which a balance is perfect.
var PerfectTolerance = decimal.NewFromFloat(0.1)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// BALANCE FIGURES - Derived, never stored on their own
// =============================================================================

type BalanceFigures struct {
	MonthlyHours   Amount
	UsedHours      Amount
	RemainingHours Amount
	ExcessHours    Amount
	Status         BalanceStatus
	Percentage     decimal.Decimal // already rounded to one decimal
}

// CalculateBalance compares contracted hours with used hours.
// Both inputs are expected in hours and non-negative.
func CalculateBalance(monthly, used Amount) BalanceFigures {
	zero := ZeroHours()
	diff := monthly.Sub(used)

	figures := BalanceFigures{
		MonthlyHours:   monthly,
		UsedHours:      used,
		RemainingHours: diff.Max(zero),
		ExcessHours:    used.Sub(monthly).Max(zero),
		Status:         StatusFor(monthly, used),
		Percentage:     decimal.Zero,
	}

	if monthly.IsPositive() {
		figures.Percentage = used.Value.Div(monthly.Value).Mul(hundred).Round(1)
	}
	return figures
}

// StatusFor classifies the gap between monthly and used hours.
func StatusFor(monthly, used Amount) BalanceStatus {
	diff := monthly.Value.Sub(used.Value)
	switch {
	case diff.Abs().LessThan(PerfectTolerance):
		return StatusPerfect
	case used.Value.LessThan(monthly.Value):
		return StatusDeficit
	default:
		return StatusExcess
	}
}

// PercentageFloat returns the rounded percentage for JSON output.
func (f BalanceFigures) PercentageFloat() float64 {
	return f.Percentage.InexactFloat64()
}
