package ports

import (
	"context"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

// UserRepository defines the credential store contract.
type UserRepository interface {
	// Create persists a new account and fills in its ID. Implementations must
	// rely on a uniqueness constraint and return domain.ErrDuplicateUsername.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByUsername returns domain.ErrUserNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}
