package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urospodkriznik/myapp-devops/internal/events"
	"github.com/urospodkriznik/myapp-devops/internal/logging"
	"github.com/urospodkriznik/myapp-devops/internal/models"
)

type UserHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *UserHandler) List(c echo.Context) error {
	var users []models.User
	if err := h.DB.WithContext(c.Request().Context()).Order("id ASC").Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := h.DB.WithContext(ctx).Delete(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(pubCtx, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_deleted",
		"user_id": user.ID,
	}); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
