package ports

import (
	"context"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, role string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// Authenticator verifies a raw session token.
type Authenticator interface {
	Authenticate(token string) (domain.Principal, error)
}
