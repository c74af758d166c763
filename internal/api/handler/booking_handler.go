package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deskflow/booking-approval/internal/api/metrics"
	"github.com/deskflow/booking-approval/internal/core/domain"
	"github.com/deskflow/booking-approval/internal/core/ports"
)

// HeaderIdempotencyReplayed is set on a create response that returned an
// earlier request instead of opening a new one.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// BookingHandler handles HTTP requests for the approval workflow.
type BookingHandler struct {
	service ports.BookingService
	metrics *metrics.Metrics
}

func NewBookingHandler(service ports.BookingService, m *metrics.Metrics) *BookingHandler {
	return &BookingHandler{service: service, metrics: m}
}

// Create handles POST /booking-requests.
//
// @Summary      Request a booking
// @Tags         booking-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                false  "Retry key; a repeated key returns the original request"
// @Param        body             body      createBookingRequest  true   "Booking date"
// @Success      201              {object}  bookingResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      500              {object}  errorResponse
// @Router       /booking-requests [post]
func (h *BookingHandler) Create(c echo.Context) error {
	actor, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse(domain.DateLayout, req.BookingDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "booking_date must be a date formatted as 2006-01-02")
	}

	res, err := h.service.Create(c.Request().Context(), ports.CreateBookingInput{
		Actor:          actor,
		BookingDate:    date,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}

	if res.Replayed {
		c.Response().Header().Set(HeaderIdempotencyReplayed, "true")
		h.metrics.BookingsCreatedTotal.WithLabelValues("true").Inc()
	} else {
		h.metrics.BookingsCreatedTotal.WithLabelValues("false").Inc()
	}
	return c.JSON(http.StatusCreated, toBookingResponse(res.Booking))
}

// List handles GET /booking-requests.
//
// @Summary      List all booking requests, newest first
// @Tags         booking-requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   bookingViewResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /booking-requests [get]
func (h *BookingHandler) List(c echo.Context) error {
	views, err := h.service.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingViewResponses(views))
}

// Get handles GET /booking-requests/:id.
//
// @Summary      Get a booking request
// @Tags         booking-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking request id"
// @Success      200  {object}  bookingResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /booking-requests/{id} [get]
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// ManagerAction handles PUT /booking-requests/:id/manager-action.
//
// @Summary      Team manager decision
// @Tags         booking-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Booking request id"
// @Param        body  body      decisionRequest  true  "approve or reject"
// @Success      200   {object}  bookingResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /booking-requests/{id}/manager-action [put]
func (h *BookingHandler) ManagerAction(c echo.Context) error {
	return h.decide(c, domain.ManagerStage, h.service.ManagerDecide)
}

// AdminAction handles PUT /booking-requests/:id/admin-action.
//
// @Summary      Administrator decision
// @Tags         booking-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Booking request id"
// @Param        body  body      decisionRequest  true  "approve or reject"
// @Success      200   {object}  bookingResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /booking-requests/{id}/admin-action [put]
func (h *BookingHandler) AdminAction(c echo.Context) error {
	return h.decide(c, domain.AdminStage, h.service.AdminDecide)
}

type decideFunc func(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error)

func (h *BookingHandler) decide(c echo.Context, stage domain.Stage, fn decideFunc) error {
	actor, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := fn(c.Request().Context(), ports.DecideInput{
		Actor:     actor,
		BookingID: c.Param("id"),
		Action:    req.Action,
	})
	if err != nil {
		h.metrics.DecisionErrorsTotal.WithLabelValues(stage.Name, decisionFailure(err)).Inc()
		return err
	}

	h.metrics.DecisionsTotal.WithLabelValues(stage.Name, req.Action).Inc()
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

func decisionFailure(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrBookingNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}
