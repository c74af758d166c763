package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deskflow/booking-approval/internal/api/middleware"
	"github.com/deskflow/booking-approval/internal/core/domain"
)

// ctxPrincipal extracts the identity injected by the Auth middleware. A
// missing principal means the route was mounted without Auth; reject with 401
// rather than acting on a zero identity.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.Principal(c)
	if !ok || p.UserID == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
