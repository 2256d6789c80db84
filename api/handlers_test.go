package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carebalance/api"
	"github.com/warp/carebalance/balance"
	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
	"github.com/warp/carebalance/store"
	"github.com/warp/carebalance/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router *chi.Mux
	auth   *jwtauth.JWTAuth
	store  store.Store
}

// setup builds the full router over an in-memory SQLite store with "now"
// fixed at the end of February 2027.
func setup(t *testing.T) *testServer {
	return setupWith(t, nil)
}

// setupWith is setup with the store wrapped by wrap before the handler and
// the service see it.
func setupWith(t *testing.T, wrap func(store.Store) store.Store) *testServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var st store.Store = db
	if wrap != nil {
		st = wrap(st)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := balance.NewService(st, schedule.DefaultFestiveKeyPolicy, logger)
	h := api.NewHandler(st, svc, logger)
	h.Now = func() time.Time { return time.Date(2027, time.February, 28, 18, 0, 0, 0, time.UTC) }

	auth := api.NewJWTAuth("test-secret")
	router := api.NewRouter(h, api.RouterConfig{Logger: logger, JWTAuth: auth})
	return &testServer{router: router, auth: auth, store: st}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	claims := map[string]interface{}{api.ClaimUserID: userID}
	if role != "" {
		claims[api.ClaimRole] = role
	}
	_, tok, err := s.auth.Encode(claims)
	require.NoError(t, err)
	return tok
}

func (s *testServer) admin(t *testing.T) string  { return s.token(t, "auth-admin", api.RoleAdmin) }
func (s *testServer) worker(t *testing.T) string { return s.token(t, "auth-ana", "") }

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) loadScenario(t *testing.T, id string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", s.admin(t), api.LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details"`
}

func generateBody(userID, workerID string, hours float64) map[string]any {
	return map[string]any{
		"planning":       map[string]any{"source": "planner", "version": 3},
		"assigned_hours": hours,
		"user_id":        userID,
		"worker_id":      workerID,
		"month":          2,
		"year":           2027,
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestHealth_NoTokenNeeded(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresToken(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// signed with another secret
	_, forged, err := api.NewJWTAuth("other-secret").Encode(map[string]interface{}{api.ClaimUserID: "auth-ana"})
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_TokenWithoutUserID(t *testing.T) {
	s := setup(t)
	_, tok, err := s.auth.Encode(map[string]interface{}{api.ClaimRole: api.RoleAdmin})
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/balances", tok, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutes_RejectWorkers(t *testing.T) {
	s := setup(t)
	s.loadScenario(t, "perfect-month")

	rec := s.do(t, http.MethodPost, "/api/balances/generate", s.worker(t), generateBody("u-carmen", "w-ana", 16))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", s.worker(t), api.LoadScenarioRequest{ScenarioID: "caseload"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// WORKER BALANCE
// =============================================================================

func TestWorkerBalance_MissingParams(t *testing.T) {
	// GIVEN: A worker token
	s := setup(t)

	// WHEN: Calling without query parameters
	rec := s.do(t, http.MethodGet, "/api/worker-balance", s.worker(t), nil)

	// THEN: 400 naming every missing field
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "validation_error", body.Code)
	assert.Equal(t, []string{"workerId", "month", "year"}, body.Details)
}

func TestWorkerBalance_NoTokenBeforeMissingParams(t *testing.T) {
	s := setup(t)

	// no token and no parameters: authentication is checked first
	rec := s.do(t, http.MethodGet, "/api/worker-balance", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkerBalance_InvalidMonth(t *testing.T) {
	s := setup(t)
	s.loadScenario(t, "deficit-month")

	rec := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=13&year=2027", s.worker(t), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkerBalance_OwnWorker(t *testing.T) {
	// GIVEN: 20 contracted hours and Monday mornings in February 2027
	s := setup(t)
	s.loadScenario(t, "deficit-month")

	// WHEN: The worker asks for their own balance
	rec := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027", s.worker(t), nil)

	// THEN: 16 of 20 hours used, deficit at 80%
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[balance.WorkerReport](t, rec)
	assert.Equal(t, generic.WorkerID("w-ana"), report.EntityID)
	require.Len(t, report.Users, 1)
	user := report.Users[0]
	assert.Equal(t, 20.0, user.MonthlyHours)
	assert.Equal(t, 16.0, user.UsedHours)
	assert.Equal(t, 4.0, user.RemainingHours)
	assert.Equal(t, generic.StatusDeficit, user.Status)
	assert.Equal(t, 80.0, user.Percentage)
	assert.Equal(t, generic.StatusDeficit, report.OverallStatus)
	assert.Equal(t, 16.0, report.Totals.UsedHours)
}

func TestWorkerBalance_OtherWorkerForbidden(t *testing.T) {
	s := setup(t)
	s.loadScenario(t, "caseload")

	rec := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-luis&month=2&year=2027", s.worker(t), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWorkerBalance_UnknownCallerForbidden(t *testing.T) {
	s := setup(t)
	s.loadScenario(t, "caseload")

	rec := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027", s.token(t, "auth-stranger", ""), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWorkerBalance_AdminSeesAnyWorker(t *testing.T) {
	// GIVEN: The caseload scenario: w-luis has only a suspended assignment
	s := setup(t)
	s.loadScenario(t, "caseload")

	// WHEN: An admin asks for both workers
	ana := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027", s.admin(t), nil)
	luis := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-luis&month=2&year=2027", s.admin(t), nil)

	// THEN: Ana serves three users; Luis serves nobody
	require.Equal(t, http.StatusOK, ana.Code, ana.Body.String())
	assert.Len(t, decode[balance.WorkerReport](t, ana).Users, 3)

	require.Equal(t, http.StatusOK, luis.Code, luis.Body.String())
	assert.Empty(t, decode[balance.WorkerReport](t, luis).Users)
}

func TestWorkerBalance_UnknownWorker(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-404&month=2&year=2027", s.admin(t), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkerBalance_AsOf(t *testing.T) {
	// GIVEN: Mon/Wed/Fri 09:00-11:00 and 40 contracted hours
	s := setup(t)
	s.loadScenario(t, "mid-month")

	// WHEN: Viewed on the 10th
	rec := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027&asOf=2027-02-10", s.worker(t), nil)

	// THEN: Used hours stop at the 10th; assigned covers the month
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[balance.WorkerReport](t, rec)
	require.Len(t, report.Users, 1)
	assert.Equal(t, 10.0, report.Users[0].UsedHours)
	assert.Equal(t, 24.0, report.Users[0].AssignedHours)
	assert.Equal(t, 25.0, report.Users[0].Percentage)

	// AND: A malformed asOf is rejected
	bad := s.do(t, http.MethodGet, "/api/worker-balance?workerId=w-ana&month=2&year=2027&asOf=10/02/2027", s.worker(t), nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

// =============================================================================
// USER BALANCE
// =============================================================================

func TestUserBalance_HolidayMonday(t *testing.T) {
	// GIVEN: Monday the 15th is a holiday; only José has a holiday entry
	s := setup(t)
	s.loadScenario(t, "holiday-monday")

	// WHEN: The worker asks for each user
	carmen := s.do(t, http.MethodGet, "/api/users/u-carmen/balance?month=2&year=2027", s.worker(t), nil)
	jose := s.do(t, http.MethodGet, "/api/users/u-jose/balance?month=2&year=2027&detail=days", s.worker(t), nil)

	// THEN: Carmen loses the holiday Monday; José works 2h on it
	require.Equal(t, http.StatusOK, carmen.Code, carmen.Body.String())
	c := decode[balance.UserReport](t, carmen)
	assert.Equal(t, 12.0, c.UsedHours)
	assert.Equal(t, 9, c.HolidayInfo.TotalHolidays)
	assert.Empty(t, c.Days)

	require.Equal(t, http.StatusOK, jose.Code, jose.Body.String())
	j := decode[balance.UserReport](t, jose)
	assert.Equal(t, 14.0, j.UsedHours)
	assert.Equal(t, generic.StatusDeficit, j.Status)
	require.Len(t, j.Days, 28)
	assert.True(t, j.Days[14].IsHoliday)
	assert.Equal(t, 2.0, j.Days[14].Hours)
}

func TestUserBalance_WorkerScopedToOwnPair(t *testing.T) {
	s := setup(t)
	s.loadScenario(t, "caseload")

	rec := s.do(t, http.MethodGet, "/api/users/u-carmen/balance?month=2&year=2027&workerId=w-luis", s.worker(t), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserBalance_UnknownUser(t *testing.T) {
	s := setup(t)
	s.loadScenario(t, "caseload")

	rec := s.do(t, http.MethodGet, "/api/users/u-404/balance?month=2&year=2027", s.worker(t), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// GENERATE BALANCE
// =============================================================================

func TestGenerateBalance_MissingFields(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodPost, "/api/balances/generate", s.admin(t), map[string]any{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, []string{"planning", "assigned_hours", "user_id", "worker_id", "month", "year"}, body.Details)
}

func TestGenerateBalance_InvalidBody(t *testing.T) {
	s := setup(t)
	req := httptest.NewRequest(http.MethodPost, "/api/balances/generate", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+s.admin(t))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateBalance_UpsertsOneRow(t *testing.T) {
	// GIVEN: Monday mornings, 16h used in February
	s := setup(t)
	s.loadScenario(t, "perfect-month")

	// WHEN: Generating twice with the same inputs
	first := s.do(t, http.MethodPost, "/api/balances/generate", s.admin(t), generateBody("u-carmen", "w-ana", 16))
	second := s.do(t, http.MethodPost, "/api/balances/generate", s.admin(t), generateBody("u-carmen", "w-ana", 16))

	// THEN: Both succeed with a perfect balance
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	a := decode[map[string]api.BalanceDTO](t, first)["balance"]
	b := decode[map[string]api.BalanceDTO](t, second)["balance"]
	assert.Equal(t, "perfect", a.Status)
	assert.Equal(t, 100.0, a.Percentage)
	assert.Equal(t, 16.0, a.AssignedHours)
	assert.Equal(t, 16.0, a.UsedHours)
	assert.JSONEq(t, `{"source": "planner", "version": 3}`, string(a.Planning))

	// AND: The second write kept the first row
	assert.Equal(t, a.ID, b.ID)
	list := s.do(t, http.MethodGet, "/api/balances?user_id=u-carmen", s.admin(t), nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, decode[map[string][]api.BalanceDTO](t, list)["balances"], 1)
}

func TestGenerateBalance_AssignedHoursOverrideContract(t *testing.T) {
	// GIVEN: Carmen's contract says 16h
	s := setup(t)
	s.loadScenario(t, "perfect-month")

	// WHEN: Generating with 20 assigned hours
	rec := s.do(t, http.MethodPost, "/api/balances/generate", s.admin(t), generateBody("u-carmen", "w-ana", 20))

	// THEN: The 20h figure drives the status
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]api.BalanceDTO](t, rec)["balance"]
	assert.Equal(t, 20.0, got.MonthlyHours)
	assert.Equal(t, 16.0, got.ComputedHours)
	assert.Equal(t, 4.0, got.RemainingHours)
	assert.Equal(t, "deficit", got.Status)
	assert.Equal(t, 80.0, got.Percentage)
}

func TestGenerateBalance_UnknownUser(t *testing.T) {
	s := setup(t)
	s.loadScenario(t, "perfect-month")

	rec := s.do(t, http.MethodPost, "/api/balances/generate", s.admin(t), generateBody("u-404", "w-ana", 16))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// failingBalances fails every balance write the way a broken disk would.
type failingBalances struct {
	store.Store
}

func (failingBalances) UpsertMonthlyBalance(context.Context, generic.MonthlyBalance) (generic.MonthlyBalance, error) {
	return generic.MonthlyBalance{}, errors.New("disk I/O error")
}

func TestGenerateBalance_StoreFailure(t *testing.T) {
	// GIVEN: A store whose balance writes fail
	s := setupWith(t, func(next store.Store) store.Store { return failingBalances{Store: next} })
	s.loadScenario(t, "perfect-month")

	// WHEN: Generating a balance
	rec := s.do(t, http.MethodPost, "/api/balances/generate", s.admin(t), generateBody("u-carmen", "w-ana", 16))

	// THEN: 500 with the store's message passed through
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	assert.Equal(t, "internal_error", body.Code)
	assert.Contains(t, body.Error, "disk I/O error")

	// AND: Nothing was persisted
	list := s.do(t, http.MethodGet, "/api/balances", s.admin(t), nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Empty(t, decode[map[string][]api.BalanceDTO](t, list)["balances"])
}

func TestGetBalance_OnePair(t *testing.T) {
	// GIVEN: A generated February balance for Carmen and Ana
	s := setup(t)
	s.loadScenario(t, "perfect-month")
	gen := s.do(t, http.MethodPost, "/api/balances/generate", s.admin(t), generateBody("u-carmen", "w-ana", 16))
	require.Equal(t, http.StatusOK, gen.Code, gen.Body.String())
	generated := decode[map[string]api.BalanceDTO](t, gen)["balance"]

	// WHEN: Reading it back by key
	rec := s.do(t, http.MethodGet, "/api/balances/u-carmen/w-ana?month=2&year=2027", s.admin(t), nil)

	// THEN: The stored row is returned
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]api.BalanceDTO](t, rec)["balance"]
	assert.Equal(t, generated.ID, got.ID)
	assert.Equal(t, "perfect", got.Status)
	assert.Equal(t, 16.0, got.UsedHours)

	// AND: A month never generated is 404
	rec = s.do(t, http.MethodGet, "/api/balances/u-carmen/w-ana?month=3&year=2027", s.admin(t), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Code)

	// AND: Missing or out of range parameters are 400
	rec = s.do(t, http.MethodGet, "/api/balances/u-carmen/w-ana", s.admin(t), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"month", "year"}, decode[errorBody](t, rec).Details)
	rec = s.do(t, http.MethodGet, "/api/balances/u-carmen/w-ana?month=13&year=2027", s.admin(t), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// AND: Workers cannot use it
	rec = s.do(t, http.MethodGet, "/api/balances/u-carmen/w-ana?month=2&year=2027", s.worker(t), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListBalances_InvalidFilter(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodGet, "/api/balances?month=zero", s.admin(t), nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"month"}, decode[errorBody](t, rec).Details)
}

// =============================================================================
// ADMIN AND SCENARIOS
// =============================================================================

func TestHolidays_SeedDefaults(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodPost, "/api/holidays/defaults", s.admin(t), api.SeedHolidaysRequest{Year: 2027})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// seeding again updates in place
	rec = s.do(t, http.MethodPost, "/api/holidays/defaults", s.admin(t), api.SeedHolidaysRequest{Year: 2027})
	require.Equal(t, http.StatusCreated, rec.Code)

	list := s.do(t, http.MethodGet, "/api/holidays?year=2027", s.worker(t), nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, decode[map[string][]api.HolidayDTO](t, list)["holidays"], 9)

	bad := s.do(t, http.MethodPost, "/api/holidays/defaults", s.admin(t), api.SeedHolidaysRequest{Year: 12})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHolidays_RecreateThenDelete(t *testing.T) {
	// GIVEN: A holiday created once
	s := setup(t)
	req := api.CreateHolidayRequest{Date: "2027-03-19", Name: "San José", Type: "local"}
	first := s.do(t, http.MethodPost, "/api/holidays", s.admin(t), req)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	created := decode[api.HolidayDTO](t, first)

	// WHEN: Creating it again with another type
	req.Type = "regional"
	second := s.do(t, http.MethodPost, "/api/holidays", s.admin(t), req)

	// THEN: The response carries the stored ID and the new type
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	again := decode[api.HolidayDTO](t, second)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "regional", again.Type)

	// AND: Deleting by the returned ID succeeds and leaves nothing behind
	rec := s.do(t, http.MethodDelete, "/api/holidays/"+again.ID, s.admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := s.do(t, http.MethodGet, "/api/holidays?year=2027&month=3", s.worker(t), nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Empty(t, decode[map[string][]api.HolidayDTO](t, list)["holidays"])
}

func TestAssignments_CreateWithTupleSchedule(t *testing.T) {
	// GIVEN: A worker and a user
	s := setup(t)
	rec := s.do(t, http.MethodPost, "/api/workers", s.admin(t), api.CreateWorkerRequest{ID: "w-eva", Name: "Eva Sanz"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hours := 10.0
	rec = s.do(t, http.MethodPost, "/api/users", s.admin(t), api.CreateUserRequest{ID: "u-rosa", Name: "Rosa Gil", MonthlyHours: &hours})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Creating an assignment with a legacy tuple schedule
	rec = s.do(t, http.MethodPost, "/api/assignments", s.admin(t), map[string]any{
		"id":        "a-rosa",
		"worker_id": "w-eva",
		"user_id":   "u-rosa",
		"schedule":  json.RawMessage(`{"tuesday": {"enabled": true, "timeSlots": [["16:00", "18:30"]]}}`),
	})

	// THEN: It is active with 2.5 weekly hours
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[api.AssignmentDTO](t, rec)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, 2.5, got.WeeklyHours)

	// AND: Unknown parties are 404
	rec = s.do(t, http.MethodPost, "/api/assignments", s.admin(t), map[string]any{
		"worker_id": "w-404",
		"user_id":   "u-rosa",
		"schedule":  json.RawMessage(`{}`),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarios_LoadAndCurrent(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", s.admin(t), api.LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.loadScenario(t, "mid-month")
	rec = s.do(t, http.MethodGet, "/api/scenarios/current", s.worker(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[api.ScenarioDTO](t, rec)
	assert.Equal(t, "mid-month", current.ID)
	assert.Equal(t, "2027-02-10", current.AsOf)

	list := s.do(t, http.MethodGet, "/api/scenarios", s.worker(t), nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, decode[[]api.ScenarioDTO](t, list), 5)
}

func TestScenarios_ConcurrentLoadAndRead(t *testing.T) {
	// GIVEN: A server with no scenario loaded
	s := setup(t)
	admin, worker := s.admin(t), s.worker(t)
	ids := []string{"deficit-month", "perfect-month"}

	// WHEN: Loading scenarios while other requests read the current one
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			s.do(t, http.MethodPost, "/api/scenarios/load", admin, api.LoadScenarioRequest{ScenarioID: id})
		}(ids[i%2])
		go func() {
			defer wg.Done()
			s.do(t, http.MethodGet, "/api/scenarios/current", worker, nil)
		}()
	}
	wg.Wait()

	// THEN: The current scenario is one of those loaded
	rec := s.do(t, http.MethodGet, "/api/scenarios/current", worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[*api.ScenarioDTO](t, rec)
	if current != nil {
		assert.Contains(t, ids, current.ID)
	}
}
