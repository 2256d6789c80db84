/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with workers,
	users, assignments and holidays reproducing the reference balance cases.
	All scenarios use February 2027 (four Mondays: 1, 8, 15, 22).

AVAILABLE SCENARIOS:

	deficit-month:    20 contracted hours, Mondays 09:00-13:00 (16h) -> deficit
	perfect-month:    16 contracted hours, same schedule            -> perfect
	holiday-monday:   Monday the 15th is a holiday; one assignment has a
	                  holiday entry and one has not
	mid-month:        Mon/Wed/Fri mornings, as of the 10th
	caseload:         one worker with three users (perfect, deficit, excess)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create workers and users
 3. Create assignments with their weekly schedules
 4. Register holidays

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "deficit-month"}

	then GET /api/worker-balance?workerId=w-ana&month=2&year=2027&asOf=<as_of>

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: balance handlers
  - schedule/presets.go: schedule builders
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// Every scenario worker logs in as auth-<name>.
const (
	scenarioWorker   = generic.WorkerID("w-ana")
	scenarioAuthUser = "auth-ana"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "deficit-month",
		Name:        "Deficit Month",
		Description: "20 contracted hours, 16 scheduled (Mondays 09:00-13:00): deficit at 80%",
		AsOf:        "2027-02-28",
	},
	{
		ID:          "perfect-month",
		Name:        "Perfect Month",
		Description: "16 contracted hours, 16 scheduled: perfect at 100%",
		AsOf:        "2027-02-28",
	},
	{
		ID:          "holiday-monday",
		Name:        "Holiday Monday",
		Description: "Monday 15th is a local holiday; only the assignment with a holiday entry works it",
		AsOf:        "2027-02-28",
	},
	{
		ID:          "mid-month",
		Name:        "Mid-Month",
		Description: "Mon/Wed/Fri mornings viewed on the 10th: used hours stop at the 10th",
		AsOf:        "2027-02-10",
	},
	{
		ID:          "caseload",
		Name:        "Worker Caseload",
		Description: "One worker, three users: perfect, deficit and excess in the same month",
		AsOf:        "2027-02-28",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.loadedScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

func (h *Handler) loadedScenario() string {
	h.scenarioMu.RLock()
	defer h.scenarioMu.RUnlock()
	return h.currentScenario
}

func (h *Handler) setLoadedScenario(id string) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()
	h.currentScenario = id
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	loader, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setLoadedScenario("")

	if err := loader(ctx, h); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.setLoadedScenario(req.ScenarioID)
	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

var scenarioLoaders = map[string]func(context.Context, *Handler) error{
	"deficit-month":  func(ctx context.Context, h *Handler) error { return h.loadMondayScenario(ctx, 20) },
	"perfect-month":  func(ctx context.Context, h *Handler) error { return h.loadMondayScenario(ctx, 16) },
	"holiday-monday": func(ctx context.Context, h *Handler) error { return h.loadHolidayMondayScenario(ctx) },
	"mid-month":      func(ctx context.Context, h *Handler) error { return h.loadMidMonthScenario(ctx) },
	"caseload":       func(ctx context.Context, h *Handler) error { return h.loadCaseloadScenario(ctx) },
}

var mondayMornings = schedule.Weekly{}.With(schedule.Monday, schedule.Day(schedule.Slot("09:00", "13:00")))

func (h *Handler) loadMondayScenario(ctx context.Context, monthlyHours float64) error {
	if err := h.seedWorker(ctx); err != nil {
		return err
	}
	if err := h.seedUser(ctx, "u-carmen", "Carmen Ruiz", monthlyHours); err != nil {
		return err
	}
	return h.seedAssignment(ctx, "a-carmen", "u-carmen", mondayMornings)
}

func (h *Handler) loadHolidayMondayScenario(ctx context.Context) error {
	if err := h.seedWorker(ctx); err != nil {
		return err
	}
	if err := h.seedUser(ctx, "u-carmen", "Carmen Ruiz", 16); err != nil {
		return err
	}
	if err := h.seedUser(ctx, "u-jose", "José Martín", 16); err != nil {
		return err
	}
	if err := h.seedAssignment(ctx, "a-carmen", "u-carmen", mondayMornings); err != nil {
		return err
	}
	withHoliday := mondayMornings.With(schedule.Holiday, schedule.Day(schedule.Slot("10:00", "12:00")))
	if err := h.seedAssignment(ctx, "a-jose", "u-jose", withHoliday); err != nil {
		return err
	}

	_, err := h.Store.SaveHoliday(ctx, generic.Holiday{
		ID:     "h-2027-02-15",
		Date:   generic.NewTimePoint(2027, time.February, 15),
		Name:   "Fiesta local",
		Type:   generic.HolidayLocal,
		Active: true,
	})
	return err
}

func (h *Handler) loadMidMonthScenario(ctx context.Context) error {
	if err := h.seedWorker(ctx); err != nil {
		return err
	}
	if err := h.seedUser(ctx, "u-pilar", "Pilar Gómez", 40); err != nil {
		return err
	}
	weekly := schedule.Weekly{}.
		With(schedule.Monday, schedule.Day(schedule.Slot("09:00", "11:00"))).
		With(schedule.Wednesday, schedule.Day(schedule.Slot("09:00", "11:00"))).
		With(schedule.Friday, schedule.Day(schedule.Slot("09:00", "11:00")))
	return h.seedAssignment(ctx, "a-pilar", "u-pilar", weekly)
}

func (h *Handler) loadCaseloadScenario(ctx context.Context) error {
	if err := h.seedWorker(ctx); err != nil {
		return err
	}
	users := []struct {
		id, name string
		monthly  float64
		weekly   schedule.Weekly
	}{
		{"u-carmen", "Carmen Ruiz", 16, mondayMornings},
		{"u-jose", "José Martín", 30, mondayMornings},
		{"u-pilar", "Pilar Gómez", 10, schedule.Shift(schedule.Workdays(), schedule.Slot("08:00", "09:00"))},
	}
	for _, u := range users {
		if err := h.seedUser(ctx, generic.UserID(u.id), u.name, u.monthly); err != nil {
			return err
		}
		if err := h.seedAssignment(ctx, generic.AssignmentID("a-"+u.id[2:]), generic.UserID(u.id), u.weekly); err != nil {
			return err
		}
	}

	// inactive assignments never count
	if err := h.Store.SaveWorker(ctx, generic.Worker{ID: "w-luis", Name: "Luis Pérez", AuthUserID: "auth-luis"}); err != nil {
		return err
	}
	return h.Store.SaveAssignment(ctx, schedule.Assignment{
		ID:       "a-luis-carmen",
		WorkerID: "w-luis",
		UserID:   "u-carmen",
		Status:   schedule.StatusSuspended,
		Schedule: schedule.Shift(schedule.Workdays(), schedule.Slot("15:00", "19:00")),
	})
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedWorker(ctx context.Context) error {
	return h.Store.SaveWorker(ctx, generic.Worker{
		ID:         scenarioWorker,
		Name:       "Ana López",
		Email:      "ana@example.com",
		AuthUserID: scenarioAuthUser,
	})
}

func (h *Handler) seedUser(ctx context.Context, id generic.UserID, name string, monthlyHours float64) error {
	return h.Store.SaveUser(ctx, generic.User{
		ID:           id,
		Name:         name,
		MonthlyHours: generic.NewAmount(monthlyHours, generic.UnitHours),
	})
}

func (h *Handler) seedAssignment(ctx context.Context, id generic.AssignmentID, userID generic.UserID, weekly schedule.Weekly) error {
	return h.Store.SaveAssignment(ctx, schedule.Assignment{
		ID:       id,
		WorkerID: scenarioWorker,
		UserID:   userID,
		Status:   schedule.StatusActive,
		Schedule: weekly,
	})
}
