/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types carry
  decimals and typed IDs; DTOs carry plain strings and floats rounded to
  one decimal for display.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Parties:      WorkerDTO, UserDTO, CreateWorkerRequest, CreateUserRequest
  Assignments:  AssignmentDTO, CreateAssignmentRequest, UpdateStatusRequest
  Holidays:     HolidayDTO, CreateHolidayRequest, SeedHolidaysRequest
  Balances:     BalanceDTO, GenerateBalanceRequest
  Scenarios:    ScenarioDTO, LoadScenarioRequest

Balance reports (balance.UserReport, balance.WorkerReport) are serialized
as they are; their camelCase JSON is the report contract.

VALIDATION:
  Done in handlers. Request types use pointers where "absent" and "zero"
  must be told apart.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/schedule.go: schedule encodings
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/carebalance/factory"
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// =============================================================================
// PARTIES
// =============================================================================

type WorkerDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	AuthUserID string `json:"auth_user_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type CreateWorkerRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	AuthUserID string `json:"auth_user_id,omitempty"`
}

type UserDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	MonthlyHours float64 `json:"monthly_assigned_hours"`
	CreatedAt    string  `json:"created_at"`
}

type CreateUserRequest struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	MonthlyHours *float64 `json:"monthly_assigned_hours"`
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

type AssignmentDTO struct {
	ID          string                                       `json:"id"`
	WorkerID    string                                       `json:"worker_id"`
	WorkerName  string                                       `json:"worker_name,omitempty"`
	UserID      string                                       `json:"user_id"`
	UserName    string                                       `json:"user_name,omitempty"`
	Status      string                                       `json:"status"`
	Schedule    map[schedule.DayKey]factory.DayScheduleJSON `json:"schedule"`
	WeeklyHours float64                                      `json:"weekly_hours"`
	CreatedAt   string                                       `json:"created_at"`
	UpdatedAt   string                                       `json:"updated_at"`
}

// CreateAssignmentRequest accepts the schedule in either slot encoding.
type CreateAssignmentRequest struct {
	ID       string          `json:"id,omitempty"`
	WorkerID string          `json:"worker_id"`
	UserID   string          `json:"user_id"`
	Status   string          `json:"status,omitempty"`
	Schedule json.RawMessage `json:"schedule"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

type CreateHolidayRequest struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type SeedHolidaysRequest struct {
	Year int `json:"year"`
}

// =============================================================================
// BALANCES
// =============================================================================

// GenerateBalanceRequest is the body of POST /api/balances/generate.
// AssignedHours is the contracted total applied for this calculation.
type GenerateBalanceRequest struct {
	Planning      json.RawMessage `json:"planning"`
	AssignedHours *float64        `json:"assigned_hours"`
	UserID        string          `json:"user_id"`
	WorkerID      string          `json:"worker_id"`
	Month         *int            `json:"month"`
	Year          *int            `json:"year"`
}

// BalanceDTO is a persisted monthly balance.
type BalanceDTO struct {
	ID             string              `json:"id"`
	UserID         string              `json:"user_id"`
	WorkerID       string              `json:"worker_id"`
	Month          int                 `json:"month"`
	Year           int                 `json:"year"`
	AssignedHours  float64             `json:"assigned_hours"`
	MonthlyHours   float64             `json:"monthly_hours"`
	ComputedHours  float64             `json:"computed_hours"`
	UsedHours      float64             `json:"used_hours"`
	RemainingHours float64             `json:"remaining_hours"`
	ExcessHours    float64             `json:"excess_hours"`
	Status         string              `json:"status"`
	Percentage     float64             `json:"percentage"`
	HolidayInfo    generic.HolidayInfo `json:"holiday_info"`
	Planning       json.RawMessage     `json:"planning,omitempty"`
	CreatedAt      string              `json:"created_at"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AsOf        string `json:"as_of,omitempty"` // suggested asOf for the balance calls
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toWorkerDTO(w generic.Worker) WorkerDTO {
	return WorkerDTO{
		ID:         string(w.ID),
		Name:       w.Name,
		Email:      w.Email,
		AuthUserID: w.AuthUserID,
		CreatedAt:  formatTimestamp(w.CreatedAt),
	}
}

func toUserDTO(u generic.User) UserDTO {
	return UserDTO{
		ID:           string(u.ID),
		Name:         u.Name,
		Email:        u.Email,
		MonthlyHours: u.MonthlyHours.Rounded(),
		CreatedAt:    formatTimestamp(u.CreatedAt),
	}
}

func toAssignmentDTO(a schedule.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:          string(a.ID),
		WorkerID:    string(a.WorkerID),
		WorkerName:  a.WorkerName,
		UserID:      string(a.UserID),
		UserName:    a.UserName,
		Status:      string(a.Status),
		Schedule:    factory.ToJSON(a.Schedule),
		WeeklyHours: generic.HoursFromMinutes(a.Schedule.WeeklyMinutes()).Rounded(),
		CreatedAt:   formatTimestamp(a.CreatedAt),
		UpdatedAt:   formatTimestamp(a.UpdatedAt),
	}
}

func toAssignmentDTOs(as []schedule.Assignment) []AssignmentDTO {
	dtos := make([]AssignmentDTO, len(as))
	for i, a := range as {
		dtos[i] = toAssignmentDTO(a)
	}
	return dtos
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:       h.ID,
		Date:     h.Date.String(),
		Name:     h.Name,
		Type:     string(h.Type),
		IsActive: h.Active,
	}
}

// toBalanceDTO exposes the row. assigned_hours echoes the contracted hours
// sent by the caller; computed_hours is what the schedules produce.
func toBalanceDTO(b generic.MonthlyBalance) BalanceDTO {
	return BalanceDTO{
		ID:             b.ID,
		UserID:         string(b.UserID),
		WorkerID:       string(b.WorkerID),
		Month:          b.Month,
		Year:           b.Year,
		AssignedHours:  b.MonthlyHours.Rounded(),
		MonthlyHours:   b.MonthlyHours.Rounded(),
		ComputedHours:  b.AssignedHours.Rounded(),
		UsedHours:      b.UsedHours.Rounded(),
		RemainingHours: b.RemainingHours.Rounded(),
		ExcessHours:    b.ExcessHours.Rounded(),
		Status:         string(b.Status),
		Percentage:     b.Percentage,
		HolidayInfo:    b.HolidayInfo,
		Planning:       b.Planning,
		CreatedAt:      formatTimestamp(b.CreatedAt),
	}
}

func toBalanceDTOs(bs []generic.MonthlyBalance) []BalanceDTO {
	dtos := make([]BalanceDTO, len(bs))
	for i, b := range bs {
		dtos[i] = toBalanceDTO(b)
	}
	return dtos
}
