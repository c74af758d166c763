package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/deskflow/booking-approval/internal/api/handler"
	"github.com/deskflow/booking-approval/internal/infrastructure/db/memory"
)

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	store := memory.NewStore()
	return NewRouter(Deps{
		Users:        store.Users(),
		Bookings:     store.Bookings(),
		HealthChecks: []handler.DependencyCheck{{Name: "store", Ping: store.Ping}},
		JWTSecret:    "test-secret",
		TokenTTL:     time.Hour,
		BcryptCost:   bcrypt.MinCost,
		CORSOrigins:  []string{"*"},
		Logger:       zerolog.Nop(),
	})
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func register(t *testing.T, e *echo.Echo, username, role string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"pw-%s","role":%q}`, username, username, role)
	rec := do(t, e, http.MethodPost, "/api/register", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %s", username, rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decode(t, rec, &resp)
	return resp["id"]
}

func login(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"pw-%s"}`, username, username)
	rec := do(t, e, http.MethodPost, "/api/login", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d %s", username, rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decode(t, rec, &resp)
	return resp["token"]
}

type actors struct {
	employeeID               string
	employee, manager, admin string
}

func setupActors(t *testing.T, e *echo.Echo) actors {
	t.Helper()
	id := register(t, e, "erin", "employee")
	register(t, e, "mona", "team_manager")
	register(t, e, "ada", "admin")
	return actors{
		employeeID: id,
		employee:   login(t, e, "erin"),
		manager:    login(t, e, "mona"),
		admin:      login(t, e, "ada"),
	}
}

func createBooking(t *testing.T, e *echo.Echo, token, date string) map[string]any {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/booking-requests", token, fmt.Sprintf(`{"booking_date":%q}`, date))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	decode(t, rec, &resp)
	return resp
}

func TestRouter_ApproveFlow(t *testing.T) {
	e := newTestRouter(t)
	a := setupActors(t, e)

	created := createBooking(t, e, a.employee, "2025-03-14")
	if created["status"] != "pending_manager" || created["employee_id"] != a.employeeID || created["booking_date"] != "2025-03-14" {
		t.Fatalf("unexpected create payload: %+v", created)
	}
	id := created["id"].(string)

	rec := do(t, e, http.MethodPut, "/api/booking-requests/"+id+"/manager-action", a.manager, `{"action":"approve"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager approve: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var afterManager map[string]any
	decode(t, rec, &afterManager)
	if afterManager["status"] != "pending_admin" || afterManager["manager_action_at"] == nil || afterManager["admin_action_at"] != nil {
		t.Fatalf("unexpected manager payload: %+v", afterManager)
	}

	rec = do(t, e, http.MethodPut, "/api/booking-requests/"+id+"/admin-action", a.admin, `{"action":"approve"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin approve: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var afterAdmin map[string]any
	decode(t, rec, &afterAdmin)
	if afterAdmin["status"] != "approved" || afterAdmin["admin_action_at"] == nil {
		t.Fatalf("unexpected admin payload: %+v", afterAdmin)
	}

	rec = do(t, e, http.MethodGet, "/api/booking-requests", a.employee, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list []map[string]any
	decode(t, rec, &list)
	if len(list) != 1 || list[0]["status"] != "approved" || list[0]["employee_name"] != "erin" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = do(t, e, http.MethodGet, "/api/booking-requests/"+id, a.manager, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
}

func TestRouter_RejectedByManagerIsTerminal(t *testing.T) {
	e := newTestRouter(t)
	a := setupActors(t, e)
	id := createBooking(t, e, a.employee, "2025-04-01")["id"].(string)

	rec := do(t, e, http.MethodPut, "/api/booking-requests/"+id+"/manager-action", a.manager, `{"action":"reject"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager reject: expected 200, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodPut, "/api/booking-requests/"+id+"/admin-action", a.admin, `{"action":"approve"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("admin on rejected: expected 400, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/api/booking-requests/"+id, a.admin, "")
	var got map[string]any
	decode(t, rec, &got)
	if got["status"] != "rejected_by_manager" || got["admin_action_at"] != nil {
		t.Fatalf("terminal request changed: %+v", got)
	}
}

func TestRouter_RoleGates(t *testing.T) {
	e := newTestRouter(t)
	a := setupActors(t, e)
	id := createBooking(t, e, a.employee, "2025-05-05")["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		code   int
	}{
		{"employee on manager-action", http.MethodPut, "/api/booking-requests/" + id + "/manager-action", a.employee, `{"action":"approve"}`, http.StatusForbidden},
		{"admin on manager-action", http.MethodPut, "/api/booking-requests/" + id + "/manager-action", a.admin, `{"action":"approve"}`, http.StatusForbidden},
		{"manager on admin-action", http.MethodPut, "/api/booking-requests/" + id + "/admin-action", a.manager, `{"action":"approve"}`, http.StatusForbidden},
		{"manager creates", http.MethodPost, "/api/booking-requests", a.manager, `{"booking_date":"2025-05-05"}`, http.StatusForbidden},
		{"admin creates", http.MethodPost, "/api/booking-requests", a.admin, `{"booking_date":"2025-05-05"}`, http.StatusForbidden},
		{"no token", http.MethodGet, "/api/booking-requests", "", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/booking-requests", "garbage", "", http.StatusUnauthorized},
		{"unknown id", http.MethodPut, "/api/booking-requests/missing/manager-action", a.manager, `{"action":"approve"}`, http.StatusNotFound},
		{"unknown action", http.MethodPut, "/api/booking-requests/" + id + "/manager-action", a.manager, `{"action":"maybe"}`, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/booking-requests", a.employee, `{"booking_date":"tomorrow"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_DoubleManagerDecision(t *testing.T) {
	e := newTestRouter(t)
	a := setupActors(t, e)
	id := createBooking(t, e, a.employee, "2025-06-01")["id"].(string)
	path := "/api/booking-requests/" + id + "/manager-action"

	if rec := do(t, e, http.MethodPut, path, a.manager, `{"action":"approve"}`); rec.Code != http.StatusOK {
		t.Fatalf("first decision: expected 200, got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodPut, path, a.manager, `{"action":"reject"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("second decision: expected 400, got %d", rec.Code)
	}
}

func TestRouter_ConcurrentManagerDecisions(t *testing.T) {
	e := newTestRouter(t)
	a := setupActors(t, e)
	id := createBooking(t, e, a.employee, "2025-06-02")["id"].(string)
	path := "/api/booking-requests/" + id + "/manager-action"

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			action := "approve"
			if i%2 == 1 {
				action = "reject"
			}
			codes[i] = do(t, e, http.MethodPut, path, a.manager, fmt.Sprintf(`{"action":%q}`, action)).Code
		}()
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusBadRequest:
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one decision to apply, got %d", ok)
	}
}

func TestRouter_LoginFailuresLookTheSame(t *testing.T) {
	e := newTestRouter(t)
	register(t, e, "erin", "employee")

	wrong := do(t, e, http.MethodPost, "/api/login", "", `{"username":"erin","password":"nope"}`)
	unknown := do(t, e, http.MethodPost, "/api/login", "", `{"username":"ghost","password":"nope"}`)

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}
}

func TestRouter_RegisterErrors(t *testing.T) {
	e := newTestRouter(t)
	register(t, e, "erin", "employee")

	tests := map[string]string{
		"duplicate":     `{"username":"erin","password":"other","role":"admin"}`,
		"unknown role":  `{"username":"zed","password":"pw","role":"superuser"}`,
		"missing":       `{"username":"zed"}`,
		"long password": `{"username":"zed","password":"` + strings.Repeat("p", 80) + `","role":"employee"}`,
		// 25 characters but 75 bytes: passes the character limit, not bcrypt's byte limit.
		"multibyte password": `{"username":"zed","password":"` + strings.Repeat("€", 25) + `","role":"employee"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, "/api/register", "", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e := newTestRouter(t)

	if rec := do(t, e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}

	register(t, e, "erin", "employee")
	rec := do(t, e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `booking_auth_attempts_total{operation="register",result="success"} 1`) {
		t.Fatalf("auth counter missing from /metrics output")
	}
}

func TestRouter_HTTPMetricsUseRenderedStatus(t *testing.T) {
	e := newTestRouter(t)
	a := setupActors(t, e)
	id := createBooking(t, e, a.employee, "2025-07-01")["id"].(string)

	// Rejected by the service layer with domain errors, not by echo.
	do(t, e, http.MethodPut, "/api/booking-requests/"+id+"/manager-action", a.manager, `{"action":"maybe"}`)
	do(t, e, http.MethodPut, "/api/booking-requests/missing/manager-action", a.manager, `{"action":"approve"}`)

	body := do(t, e, http.MethodGet, "/metrics", "", "").Body.String()
	for _, code := range []string{"400", "404"} {
		if !strings.Contains(body, `booking_http_requests_total{code="`+code+`"`) {
			t.Errorf("no request counted with code %s", code)
		}
	}
	if strings.Contains(body, `booking_http_requests_total{code="500"`) {
		t.Errorf("domain errors were counted as 500")
	}
}

func TestRouter_IndependentInstances(t *testing.T) {
	// Each router owns its registry; building two must not panic.
	_ = newTestRouter(t)
	_ = newTestRouter(t)
}
