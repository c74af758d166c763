package ports

import (
	"context"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

// BookingRepository defines persistence operations for booking requests.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.BookingRequest) error
	FindByID(ctx context.Context, id string) (*domain.BookingRequest, error)
	// Transition applies t only if the stored status still equals t.Stage.From,
	// in a single statement. A miss returns domain.ErrInvalidTransition.
	Transition(ctx context.Context, t domain.Transition) (*domain.BookingRequest, error)
	// ListWithEmployee returns every request joined with its employee's
	// username, newest first.
	ListWithEmployee(ctx context.Context) ([]domain.BookingView, error)
}

// IdempotencyStore claims client retry keys so one key yields at most one
// booking request.
type IdempotencyStore interface {
	// Reserve atomically claims key for employeeID. When the key is already
	// claimed, reserved is false and bookingID is the booking it produced, or
	// empty while the claiming request is still running.
	Reserve(ctx context.Context, employeeID, key string) (reserved bool, bookingID string, err error)
	// Remember records the booking a reserved key produced.
	Remember(ctx context.Context, employeeID, key, bookingID string) error
	// Release drops a reservation whose create failed.
	Release(ctx context.Context, employeeID, key string) error
}
