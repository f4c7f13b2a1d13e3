package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/urospodkriznik/myapp-devops/internal/models"
)

// RequireRole gates a route on exact role equality. There is no
// hierarchy: ADMIN does not satisfy a USER-only gate.
func RequireRole(required models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			if user.Role != required {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}
