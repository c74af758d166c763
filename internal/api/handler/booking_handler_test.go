package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/deskflow/booking-approval/internal/api/middleware"
	"github.com/deskflow/booking-approval/internal/core/domain"
	"github.com/deskflow/booking-approval/internal/core/ports"
)

type stubBookingService struct {
	createFn  func(ctx context.Context, in ports.CreateBookingInput) (*ports.CreateBookingResult, error)
	getFn     func(ctx context.Context, id string) (*domain.BookingRequest, error)
	managerFn func(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error)
	adminFn   func(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error)
	listFn    func(ctx context.Context) ([]domain.BookingView, error)
}

func (s *stubBookingService) Create(ctx context.Context, in ports.CreateBookingInput) (*ports.CreateBookingResult, error) {
	return s.createFn(ctx, in)
}

func (s *stubBookingService) Get(ctx context.Context, id string) (*domain.BookingRequest, error) {
	return s.getFn(ctx, id)
}

func (s *stubBookingService) ManagerDecide(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error) {
	return s.managerFn(ctx, in)
}

func (s *stubBookingService) AdminDecide(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error) {
	return s.adminFn(ctx, in)
}

func (s *stubBookingService) ListAll(ctx context.Context) ([]domain.BookingView, error) {
	return s.listFn(ctx)
}

var (
	employee = domain.Principal{UserID: "emp-1", Username: "erin", Role: domain.RoleEmployee}
	manager  = domain.Principal{UserID: "mgr-1", Username: "mona", Role: domain.RoleTeamManager}
	admin    = domain.Principal{UserID: "adm-1", Username: "ada", Role: domain.RoleAdmin}
)

func withPrincipal(c echo.Context, p domain.Principal) echo.Context {
	c.Set(middleware.PrincipalKey, p)
	return c
}

func sampleBooking(status domain.BookingStatus) *domain.BookingRequest {
	return &domain.BookingRequest{
		ID:          "b-1",
		EmployeeID:  employee.UserID,
		BookingDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:      status,
		CreatedAt:   time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestBookingHandler_Create_Success(t *testing.T) {
	e := newTestEcho()
	m := newTestMetrics()
	stub := &stubBookingService{
		createFn: func(ctx context.Context, in ports.CreateBookingInput) (*ports.CreateBookingResult, error) {
			if in.Actor != employee {
				t.Fatalf("unexpected actor: %+v", in.Actor)
			}
			if got := in.BookingDate.Format(domain.DateLayout); got != "2025-03-14" {
				t.Fatalf("unexpected date: %s", got)
			}
			if in.IdempotencyKey != "" {
				t.Fatalf("unexpected idempotency key: %q", in.IdempotencyKey)
			}
			return &ports.CreateBookingResult{Booking: sampleBooking(domain.StatusPendingManager)}, nil
		},
	}
	handler := NewBookingHandler(stub, m)

	rec := httptest.NewRecorder()
	c := withPrincipal(e.NewContext(jsonRequest(http.MethodPost, "/api/booking-requests", `{"booking_date":"2025-03-14"}`), rec), employee)

	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get(HeaderIdempotencyReplayed) != "" {
		t.Fatalf("replay header should not be set")
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "b-1" || resp["employee_id"] != "emp-1" || resp["booking_date"] != "2025-03-14" || resp["status"] != "pending_manager" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp["manager_action_at"] != nil || resp["admin_action_at"] != nil {
		t.Fatalf("action timestamps should be null: %+v", resp)
	}
	if resp["created_at"] != "2025-03-01T09:30:00Z" {
		t.Fatalf("unexpected created_at: %v", resp["created_at"])
	}
	if got := testutil.ToFloat64(m.BookingsCreatedTotal.WithLabelValues("false")); got != 1 {
		t.Fatalf("expected created counter 1, got %v", got)
	}
}

func TestBookingHandler_Create_Replay(t *testing.T) {
	e := newTestEcho()
	m := newTestMetrics()
	stub := &stubBookingService{
		createFn: func(ctx context.Context, in ports.CreateBookingInput) (*ports.CreateBookingResult, error) {
			if in.IdempotencyKey != "retry-1" {
				t.Fatalf("expected idempotency key, got %q", in.IdempotencyKey)
			}
			return &ports.CreateBookingResult{Booking: sampleBooking(domain.StatusPendingManager), Replayed: true}, nil
		},
	}
	handler := NewBookingHandler(stub, m)

	req := jsonRequest(http.MethodPost, "/api/booking-requests", `{"booking_date":"2025-03-14"}`)
	req.Header.Set("Idempotency-Key", "retry-1")
	rec := httptest.NewRecorder()
	c := withPrincipal(e.NewContext(req, rec), employee)

	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get(HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("expected replay header")
	}
	if got := testutil.ToFloat64(m.BookingsCreatedTotal.WithLabelValues("true")); got != 1 {
		t.Fatalf("expected replayed counter 1, got %v", got)
	}
}

func TestBookingHandler_Create_InvalidDate(t *testing.T) {
	stub := &stubBookingService{
		createFn: func(ctx context.Context, in ports.CreateBookingInput) (*ports.CreateBookingResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewBookingHandler(stub, newTestMetrics())

	for _, body := range []string{`{}`, `{"booking_date":"14/03/2025"}`, `{"booking_date":"2025-02-30"}`, `{`} {
		e := newTestEcho()
		c := withPrincipal(e.NewContext(jsonRequest(http.MethodPost, "/api/booking-requests", body), httptest.NewRecorder()), employee)
		assertHTTPError(t, handler.Create(c), http.StatusBadRequest)
	}
}

func TestBookingHandler_Create_Forbidden(t *testing.T) {
	e := newTestEcho()
	stub := &stubBookingService{
		createFn: func(ctx context.Context, in ports.CreateBookingInput) (*ports.CreateBookingResult, error) {
			return nil, domain.ErrForbidden
		},
	}
	handler := NewBookingHandler(stub, newTestMetrics())

	c := withPrincipal(e.NewContext(jsonRequest(http.MethodPost, "/api/booking-requests", `{"booking_date":"2025-03-14"}`), httptest.NewRecorder()), manager)

	if err := handler.Create(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestBookingHandler_Create_MissingPrincipal(t *testing.T) {
	e := newTestEcho()
	handler := NewBookingHandler(&stubBookingService{}, newTestMetrics())

	c := e.NewContext(jsonRequest(http.MethodPost, "/api/booking-requests", `{"booking_date":"2025-03-14"}`), httptest.NewRecorder())

	assertHTTPError(t, handler.Create(c), http.StatusUnauthorized)
}

func TestBookingHandler_ManagerAction(t *testing.T) {
	e := newTestEcho()
	m := newTestMetrics()
	stub := &stubBookingService{
		managerFn: func(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error) {
			if in.Actor != manager || in.BookingID != "b-1" || in.Action != "approve" {
				t.Fatalf("unexpected input: %+v", in)
			}
			b := sampleBooking(domain.StatusPendingAdmin)
			at := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
			b.ManagerActionAt = &at
			return b, nil
		},
	}
	handler := NewBookingHandler(stub, m)

	rec := httptest.NewRecorder()
	c := withPrincipal(e.NewContext(jsonRequest(http.MethodPut, "/", `{"action":"approve"}`), rec), manager)
	c.SetParamNames("id")
	c.SetParamValues("b-1")

	if err := handler.ManagerAction(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["status"] != "pending_admin" || resp["manager_action_at"] != "2025-03-02T10:00:00Z" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if got := testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("manager", "approve")); got != 1 {
		t.Fatalf("expected decision counter 1, got %v", got)
	}
}

func TestBookingHandler_AdminAction_ErrorsPassThrough(t *testing.T) {
	cases := map[error]string{
		domain.ErrInvalidTransition: "invalid_transition",
		domain.ErrBookingNotFound:   "not_found",
		domain.ErrInvalidAction:     "invalid_action",
		domain.ErrForbidden:         "forbidden",
		errors.New("db down"):       "internal",
	}
	for want, reason := range cases {
		e := newTestEcho()
		m := newTestMetrics()
		stub := &stubBookingService{
			adminFn: func(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error) {
				return nil, want
			},
		}
		handler := NewBookingHandler(stub, m)

		c := withPrincipal(e.NewContext(jsonRequest(http.MethodPut, "/", `{"action":"reject"}`), httptest.NewRecorder()), admin)
		c.SetParamNames("id")
		c.SetParamValues("b-1")

		if err := handler.AdminAction(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
		if got := testutil.ToFloat64(m.DecisionErrorsTotal.WithLabelValues("admin", reason)); got != 1 {
			t.Fatalf("%v: expected %q counter 1, got %v", want, reason, got)
		}
	}
}

func TestBookingHandler_Decision_MissingAction(t *testing.T) {
	e := newTestEcho()
	stub := &stubBookingService{
		managerFn: func(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewBookingHandler(stub, newTestMetrics())

	c := withPrincipal(e.NewContext(jsonRequest(http.MethodPut, "/", `{}`), httptest.NewRecorder()), manager)
	c.SetParamNames("id")
	c.SetParamValues("b-1")

	assertHTTPError(t, handler.ManagerAction(c), http.StatusBadRequest)
}

func TestBookingHandler_List(t *testing.T) {
	e := newTestEcho()
	stub := &stubBookingService{
		listFn: func(ctx context.Context) ([]domain.BookingView, error) {
			return []domain.BookingView{
				{BookingRequest: *sampleBooking(domain.StatusApproved), EmployeeName: "erin"},
			}, nil
		},
	}
	handler := NewBookingHandler(stub, newTestMetrics())

	rec := httptest.NewRecorder()
	c := withPrincipal(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/booking-requests", nil), rec), admin)

	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 || resp[0]["employee_name"] != "erin" || resp[0]["status"] != "approved" || resp[0]["id"] != "b-1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestBookingHandler_List_EmptyIsArray(t *testing.T) {
	e := newTestEcho()
	stub := &stubBookingService{
		listFn: func(ctx context.Context) ([]domain.BookingView, error) { return nil, nil },
	}
	handler := NewBookingHandler(stub, newTestMetrics())

	rec := httptest.NewRecorder()
	c := withPrincipal(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/booking-requests", nil), rec), employee)

	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func TestBookingHandler_Get_NotFound(t *testing.T) {
	e := newTestEcho()
	stub := &stubBookingService{
		getFn: func(ctx context.Context, id string) (*domain.BookingRequest, error) {
			if id != "missing" {
				t.Fatalf("unexpected id: %s", id)
			}
			return nil, domain.ErrBookingNotFound
		},
	}
	handler := NewBookingHandler(stub, newTestMetrics())

	c := withPrincipal(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()), employee)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := handler.Get(c); !errors.Is(err, domain.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}
