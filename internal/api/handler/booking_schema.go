package handler

import (
	"time"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

type createBookingRequest struct {
	BookingDate string `json:"booking_date" validate:"required,datetime=2006-01-02"`
}

type decisionRequest struct {
	Action string `json:"action" validate:"required"`
}

type bookingResponse struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employee_id"`
	BookingDate     string     `json:"booking_date"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ManagerActionAt *time.Time `json:"manager_action_at"`
	AdminActionAt   *time.Time `json:"admin_action_at"`
}

type bookingViewResponse struct {
	bookingResponse
	EmployeeName string `json:"employee_name"`
}

// errorResponse documents the {"error": "..."} envelope for swag.
type errorResponse struct {
	Error string `json:"error"`
}

func toBookingResponse(b *domain.BookingRequest) bookingResponse {
	return bookingResponse{
		ID:              b.ID,
		EmployeeID:      b.EmployeeID,
		BookingDate:     b.BookingDate.Format(domain.DateLayout),
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt.UTC(),
		ManagerActionAt: utcPtr(b.ManagerActionAt),
		AdminActionAt:   utcPtr(b.AdminActionAt),
	}
}

func toBookingViewResponses(views []domain.BookingView) []bookingViewResponse {
	out := make([]bookingViewResponse, 0, len(views))
	for i := range views {
		out = append(out, bookingViewResponse{
			bookingResponse: toBookingResponse(&views[i].BookingRequest),
			EmployeeName:    views[i].EmployeeName,
		})
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
