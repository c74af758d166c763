package ports

import (
	"context"
	"time"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

// CreateBookingInput carries the data needed to open a booking request.
type CreateBookingInput struct {
	Actor          domain.Principal
	BookingDate    time.Time
	IdempotencyKey string
}

// CreateBookingResult is returned by Create.
type CreateBookingResult struct {
	Booking *domain.BookingRequest
	// Replayed is true when the Idempotency-Key matched an earlier request.
	Replayed bool
}

// DecideInput carries a reviewer's decision on a booking request.
type DecideInput struct {
	Actor     domain.Principal
	BookingID string
	Action    string
}

// BookingService defines the approval workflow use cases.
type BookingService interface {
	Create(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error)
	Get(ctx context.Context, id string) (*domain.BookingRequest, error)
	ManagerDecide(ctx context.Context, in DecideInput) (*domain.BookingRequest, error)
	AdminDecide(ctx context.Context, in DecideInput) (*domain.BookingRequest, error)
	ListAll(ctx context.Context) ([]domain.BookingView, error)
}
