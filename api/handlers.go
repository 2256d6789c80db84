/*
handlers.go - HTTP API handlers for the hour-balance service

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to balance.Service.

ENDPOINTS:
  Balances:
    POST   /api/balances/generate      Recompute and persist one pair (admin)
    GET    /api/balances               List persisted balances (admin)
    GET    /api/balances/{u}/{w}       One persisted balance (admin)
    GET    /api/worker-balance         Live report of every user of a worker
    GET    /api/users/{id}/balance     Live report of one user

  Parties, assignments and holidays: see admin.go
  Scenarios: see scenarios.go

TODAY:
  Used hours count days on or before "today". Handlers take it from the
  asOf query parameter (YYYY-MM-DD) or from Now in the configured location.

ERROR HANDLING:
  Errors are returned as ErrorResponse with:
  - 400: missing or invalid input (details lists the fields)
  - 401: missing or invalid token
  - 403: caller is not the requested worker, or not an admin
  - 404: worker, user, assignment, holiday or balance not found
  - 500: store failure, message passed through

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Authentication and rate limiting
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/carebalance/balance"
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    store.Store
	Balances *balance.Service
	Logger   *slog.Logger

	// Now and Location define "today" when no asOf is given.
	Now      func() time.Time
	Location *time.Location

	// Track currently loaded scenario
	scenarioMu      sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler over the store. The caller may replace Now
// and Location.
func NewHandler(s store.Store, balances *balance.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:    s,
		Balances: balances,
		Logger:   logger,
		Now:      time.Now,
		Location: time.UTC,
	}
}

// today resolves the cut-off date of used hours for this request.
func (h *Handler) today(r *http.Request) (generic.TimePoint, error) {
	if asOf := r.URL.Query().Get("asOf"); asOf != "" {
		tp, err := generic.ParseDate(asOf)
		if err != nil {
			return generic.TimePoint{}, generic.NewValidationError("asOf")
		}
		return tp, nil
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	now := h.Now
	if now == nil {
		now = time.Now
	}
	return generic.DateOf(now().In(loc)), nil
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GenerateBalance recomputes the balance of one (user, worker, month) and
// upserts it.
// POST /api/balances/generate
func (h *Handler) GenerateBalance(w http.ResponseWriter, r *http.Request) {
	var req GenerateBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var missing []string
	if len(req.Planning) == 0 || string(req.Planning) == "null" {
		missing = append(missing, "planning")
	}
	if req.AssignedHours == nil || *req.AssignedHours < 0 {
		missing = append(missing, "assigned_hours")
	}
	if req.UserID == "" {
		missing = append(missing, "user_id")
	}
	if req.WorkerID == "" {
		missing = append(missing, "worker_id")
	}
	if req.Month == nil {
		missing = append(missing, "month")
	}
	if req.Year == nil {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		writeDomainError(w, generic.NewValidationError(missing...))
		return
	}

	today, err := h.today(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	saved, err := h.Balances.GenerateBalance(r.Context(), balance.GenerateInput{
		UserID:       generic.UserID(req.UserID),
		WorkerID:     generic.WorkerID(req.WorkerID),
		Year:         *req.Year,
		Month:        *req.Month,
		MonthlyHours: generic.NewAmount(*req.AssignedHours, generic.UnitHours),
		Planning:     req.Planning,
		Today:        today,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"balance": toBalanceDTO(saved)})
}

// GetWorkerBalance reports every user the worker is assigned to.
// RequireAuth runs before this handler, so a request without a valid token
// gets 401 even when workerId, month or year are also missing.
// GET /api/worker-balance?workerId=&month=&year=[&asOf=]
func (h *Handler) GetWorkerBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	workerID := q.Get("workerId")
	year, month, err := monthParams(r, workerID == "", "workerId")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !h.authorizeWorker(w, r, generic.WorkerID(workerID)) {
		return
	}

	today, err := h.today(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	report, err := h.Balances.WorkerReport(r.Context(), generic.WorkerID(workerID), year, month, today)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetUserBalance reports one user. Workers only see the pair they belong
// to; admins may omit workerId to see every worker of the user.
// GET /api/users/{id}/balance?month=&year=[&workerId=][&asOf=][&detail=days]
func (h *Handler) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := chi.URLParam(r, "id")
	year, month, err := monthParams(r, false, "")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	workerID := generic.WorkerID(q.Get("workerId"))
	if id, _ := IdentityFrom(r.Context()); !id.IsAdmin() {
		own, ok := h.callerWorker(w, r)
		if !ok {
			return
		}
		if workerID == "" {
			workerID = own
		}
		if workerID != own {
			writeError(w, http.StatusForbidden, "Forbidden", nil)
			return
		}
	}

	today, err := h.today(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	report, err := h.Balances.UserReport(r.Context(), balance.UserReportInput{
		UserID:      generic.UserID(userID),
		WorkerID:    workerID,
		Year:        year,
		Month:       month,
		Today:       today,
		IncludeDays: q.Get("detail") == "days",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListBalances returns persisted balances.
// GET /api/balances?user_id=&worker_id=&year=&month=
func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := generic.BalanceFilter{
		UserID:   generic.UserID(q.Get("user_id")),
		WorkerID: generic.WorkerID(q.Get("worker_id")),
	}

	var invalid []string
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			invalid = append(invalid, "year")
		}
		filter.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			invalid = append(invalid, "month")
		}
		filter.Month = month
	}
	if len(invalid) > 0 {
		writeDomainError(w, generic.NewValidationError(invalid...))
		return
	}

	balances, err := h.Store.ListMonthlyBalances(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": toBalanceDTOs(balances)})
}

// GetBalance returns the persisted balance of one (user, worker, month).
// GET /api/balances/{userId}/{workerId}?month=&year=
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r, false, "")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if month < 1 || month > 12 {
		writeDomainError(w, generic.NewValidationError("month"))
		return
	}

	b, err := h.Store.GetMonthlyBalance(r.Context(), generic.BalanceKey{
		UserID:   generic.UserID(chi.URLParam(r, "userId")),
		WorkerID: generic.WorkerID(chi.URLParam(r, "workerId")),
		Month:    month,
		Year:     year,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if b == nil {
		writeDomainError(w, generic.ErrBalanceNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": toBalanceDTO(*b)})
}

// =============================================================================
// AUTHORIZATION HELPERS
// =============================================================================

// authorizeWorker lets admins through and requires everybody else to be the
// requested worker. Writes the error response and returns false otherwise.
func (h *Handler) authorizeWorker(w http.ResponseWriter, r *http.Request, workerID generic.WorkerID) bool {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return false
	}
	if id.IsAdmin() {
		return true
	}
	own, ok := h.callerWorker(w, r)
	if !ok {
		return false
	}
	if own != workerID {
		writeError(w, http.StatusForbidden, "Forbidden", nil)
		return false
	}
	return true
}

// callerWorker resolves the worker record of the authenticated caller.
func (h *Handler) callerWorker(w http.ResponseWriter, r *http.Request) (generic.WorkerID, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return "", false
	}
	worker, err := h.Store.GetWorkerByAuthUser(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, err)
		return "", false
	}
	if worker == nil {
		writeError(w, http.StatusForbidden, "Forbidden", nil)
		return "", false
	}
	return worker.ID, true
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// monthParams reads the month and year query parameters. extraMissing
// adds extraName to the missing list so one 400 names every absent field.
func monthParams(r *http.Request, extraMissing bool, extraName string) (year, month int, err error) {
	q := r.URL.Query()
	var missing []string
	if extraMissing {
		missing = append(missing, extraName)
	}

	monthStr, yearStr := q.Get("month"), q.Get("year")
	if monthStr == "" {
		missing = append(missing, "month")
	} else if month, err = strconv.Atoi(monthStr); err != nil {
		missing = append(missing, "month")
	}
	if yearStr == "" {
		missing = append(missing, "year")
	} else if year, err = strconv.Atoi(yearStr); err != nil {
		missing = append(missing, "year")
	}

	if len(missing) > 0 {
		return 0, 0, generic.NewValidationError(missing...)
	}
	return year, month, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and store errors to a status code.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *generic.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   verr.Error(),
			Code:    "validation_error",
			Details: verr.Fields,
		})
	case generic.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
	case generic.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "internal_error"})
	}
}
