package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urospodkriznik/myapp-devops/internal/events"
	"github.com/urospodkriznik/myapp-devops/internal/hash"
	"github.com/urospodkriznik/myapp-devops/internal/logging"
	authmw "github.com/urospodkriznik/myapp-devops/internal/middleware/auth"
	"github.com/urospodkriznik/myapp-devops/internal/models"
	"github.com/urospodkriznik/myapp-devops/internal/tokens"
)

const RefreshCookieName = "refresh_token"

// The refresh cookie is scoped to /refresh so the long-lived token is
// never sent on ordinary API calls.
const refreshCookiePath = "/refresh"

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *tokens.Service
	Producer *events.Producer
}

func refreshCookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) publish(c echo.Context, topic, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	role := models.RoleUser
	if req.Role != "" {
		role = models.Role(req.Role)
		if !role.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
		}
	}

	var existing models.User
	err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		l.Warn("register rejected", "status", 400, "reason", "email already registered")
		return echo.NewHTTPError(http.StatusBadRequest, "email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot hash password")
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	h.publish(c, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})
	l.Info("user registered", "user_id", user.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login failed", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login failed", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	accessToken, err := h.Tokens.IssueAccessToken(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}
	refreshToken, err := h.Tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	c.SetCookie(refreshCookie(refreshToken, time.Now().Add(tokens.RefreshTTL)))
	l.Info("login successful", "user_id", user.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": accessToken,
		"token_type":   "bearer",
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	userID, ok := h.Tokens.Decode(cookie.Value)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	accessToken, err := h.Tokens.IssueAccessToken(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": accessToken,
	})
}

// LogOut clears the refresh cookie. Already issued tokens stay
// cryptographically valid until natural expiry; there is no server-side
// revocation.
func (h *AuthHandler) LogOut(c echo.Context) error {
	c.SetCookie(expiredRefreshCookie())
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user := authmw.CurrentUser(c)
	return c.JSON(http.StatusOK, echo.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}
