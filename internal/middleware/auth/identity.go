package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urospodkriznik/myapp-devops/internal/models"
	"github.com/urospodkriznik/myapp-devops/internal/tokens"
)

const userContextKey = "current_user"

// RequireUser resolves the bearer access token to a persisted user and
// stores it on the request context. Missing or invalid tokens are 401;
// a token whose subject no longer exists is 403.
func RequireUser(db *gorm.DB, svc *tokens.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := resolve(c, db, svc)
			if err != nil {
				return err
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func resolve(c echo.Context, db *gorm.DB, svc *tokens.Service) (*models.User, error) {
	raw := bearerToken(c)
	if raw == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	userID, ok := svc.Decode(raw)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var user models.User
	if err := db.WithContext(c.Request().Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusForbidden, "user not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return &user, nil
}

func bearerToken(c echo.Context) string {
	const prefix = "Bearer "
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

// CurrentUser returns the user stored by RequireUser, or nil outside an
// authenticated route.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
