package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/carebalance/factory"
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns all workers.
// GET /api/workers
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]WorkerDTO, len(workers))
	for i, wk := range workers {
		dtos[i] = toWorkerDTO(wk)
	}
	writeJSON(w, http.StatusOK, map[string]any{"workers": dtos})
}

// CreateWorker creates or replaces a worker.
// POST /api/workers
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeDomainError(w, generic.NewValidationError("name"))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	worker := generic.Worker{
		ID:         generic.WorkerID(req.ID),
		Name:       req.Name,
		Email:      req.Email,
		AuthUserID: req.AuthUserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.SaveWorker(r.Context(), worker); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkerDTO(worker))
}

// GetWorker returns one worker.
// GET /api/workers/{id}
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	id := generic.WorkerID(chi.URLParam(r, "id"))
	worker, err := h.Store.GetWorker(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if worker == nil {
		writeError(w, http.StatusNotFound, "Worker not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*worker))
}

// GetWorkerAssignments returns every assignment of a worker, any status.
// GET /api/workers/{id}/assignments
func (h *Handler) GetWorkerAssignments(w http.ResponseWriter, r *http.Request) {
	id := generic.WorkerID(chi.URLParam(r, "id"))
	if !h.authorizeWorker(w, r, id) {
		return
	}
	assignments, err := h.Store.AssignmentsByWorker(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": toAssignmentDTOs(assignments)})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": dtos})
}

// CreateUser creates or replaces a user.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.MonthlyHours == nil || *req.MonthlyHours < 0 {
		missing = append(missing, "monthly_assigned_hours")
	}
	if len(missing) > 0 {
		writeDomainError(w, generic.NewValidationError(missing...))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	user := generic.User{
		ID:           generic.UserID(req.ID),
		Name:         req.Name,
		Email:        req.Email,
		MonthlyHours: generic.NewAmount(*req.MonthlyHours, generic.UnitHours),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// GetUser returns one user.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := generic.UserID(chi.URLParam(r, "id"))
	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// GetUserAssignments returns every assignment of a user, any status.
// GET /api/users/{id}/assignments
func (h *Handler) GetUserAssignments(w http.ResponseWriter, r *http.Request) {
	id := generic.UserID(chi.URLParam(r, "id"))
	assignments, err := h.Store.AssignmentsByUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": toAssignmentDTOs(assignments)})
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// CreateAssignment links a worker to a user. The schedule accepts slots as
// ["09:00","13:00"] tuples or {"start","end"} objects.
// POST /api/assignments
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var missing []string
	if req.WorkerID == "" {
		missing = append(missing, "worker_id")
	}
	if req.UserID == "" {
		missing = append(missing, "user_id")
	}
	status := schedule.AssignmentStatus(req.Status)
	if status == "" {
		status = schedule.StatusActive
	}
	if !status.Valid() {
		missing = append(missing, "status")
	}
	weekly, err := factory.ParseSchedule(req.Schedule)
	if err != nil {
		missing = append(missing, "schedule")
	}
	if len(missing) > 0 {
		writeDomainError(w, generic.NewValidationError(missing...))
		return
	}

	worker, err := h.Store.GetWorker(ctx, generic.WorkerID(req.WorkerID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if worker == nil {
		writeError(w, http.StatusNotFound, "Worker not found", nil)
		return
	}
	user, err := h.Store.GetUser(ctx, generic.UserID(req.UserID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment := schedule.Assignment{
		ID:         generic.AssignmentID(req.ID),
		WorkerID:   worker.ID,
		UserID:     user.ID,
		WorkerName: worker.Name,
		UserName:   user.Name,
		Status:     status,
		Schedule:   weekly,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Store.SaveAssignment(ctx, assignment); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(assignment))
}

// GetAssignment returns one assignment.
// GET /api/assignments/{id}
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id := generic.AssignmentID(chi.URLParam(r, "id"))
	assignment, err := h.Store.GetAssignment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if assignment == nil {
		writeError(w, http.StatusNotFound, "Assignment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*assignment))
}

// UpdateAssignmentStatus activates, suspends or completes an assignment.
// PATCH /api/assignments/{id}/status
func (h *Handler) UpdateAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	id := generic.AssignmentID(chi.URLParam(r, "id"))

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status := schedule.AssignmentStatus(req.Status)
	if !status.Valid() {
		writeDomainError(w, generic.NewValidationError("status"))
		return
	}

	if err := h.Store.UpdateAssignmentStatus(r.Context(), id, status); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "assignment_status": status})
}

// ReplaceAssignmentSchedule replaces the weekly schedule. The body is the
// schedule document itself.
// PUT /api/assignments/{id}/schedule
func (h *Handler) ReplaceAssignmentSchedule(w http.ResponseWriter, r *http.Request) {
	id := generic.AssignmentID(chi.URLParam(r, "id"))

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	weekly, err := factory.ParseSchedule(raw)
	if err != nil {
		writeDomainError(w, generic.NewValidationError("schedule"))
		return
	}

	if err := h.Store.UpdateAssignmentSchedule(r.Context(), id, weekly); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "updated",
		"schedule":     factory.ToJSON(weekly),
		"weekly_hours": generic.HoursFromMinutes(weekly.WeeklyMinutes()).Rounded(),
	})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the holidays of a year, or of one month of it.
// GET /api/holidays?year=&month=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeDomainError(w, generic.NewValidationError("year"))
		return
	}
	month := 0
	if v := q.Get("month"); v != "" {
		month, err = strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			writeDomainError(w, generic.NewValidationError("month"))
			return
		}
	}

	holidays, err := h.Store.ListHolidays(r.Context(), year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday registers a holiday. A second holiday with the same date
// and name updates the first, and the response carries the first ID.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var invalid []string
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		invalid = append(invalid, "date")
	}
	if req.Name == "" {
		invalid = append(invalid, "name")
	}
	kind := generic.HolidayType(req.Type)
	if kind == "" {
		kind = generic.HolidayNacional
	}
	if !kind.Valid() {
		invalid = append(invalid, "type")
	}
	if len(invalid) > 0 {
		writeDomainError(w, generic.NewValidationError(invalid...))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	holiday := generic.Holiday{
		ID:        uuid.NewString(),
		Date:      date,
		Name:      req.Name,
		Type:      kind,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}

	saved, err := h.Store.SaveHoliday(r.Context(), holiday)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(saved))
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// nationalHolidays are the fixed-date national holidays of Spain. Movable
// feasts (Good Friday) and regional days are added by hand.
var nationalHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "Año Nuevo"},
	{time.January, 6, "Epifanía del Señor"},
	{time.May, 1, "Fiesta del Trabajo"},
	{time.August, 15, "Asunción de la Virgen"},
	{time.October, 12, "Fiesta Nacional de España"},
	{time.November, 1, "Todos los Santos"},
	{time.December, 6, "Día de la Constitución"},
	{time.December, 8, "Inmaculada Concepción"},
	{time.December, 25, "Navidad"},
}

// AddDefaultHolidays seeds the fixed national holidays of a year. Seeding
// twice is harmless.
// POST /api/holidays/defaults
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SeedHolidaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year < 1970 || req.Year > 9999 {
		writeDomainError(w, generic.NewValidationError("year"))
		return
	}

	added := 0
	for _, d := range nationalHolidays {
		holiday := generic.Holiday{
			ID:        uuid.NewString(),
			Date:      generic.NewTimePoint(req.Year, d.month, d.day),
			Name:      d.name,
			Type:      generic.HolidayNacional,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := h.Store.SaveHoliday(ctx, holiday); err != nil {
			writeDomainError(w, err)
			return
		}
		added++
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "created",
		"year":   req.Year,
		"count":  added,
	})
}
