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
	"github.com/urospodkriznik/myapp-devops/internal/search"
	"github.com/urospodkriznik/myapp-devops/internal/util"
)

type ItemHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	Index    *search.Index
}

type itemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ItemHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicItemEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *ItemHandler) index(c echo.Context, item models.Item) {
	if h.Index == nil {
		return
	}
	if err := h.Index.IndexItem(c.Request().Context(), item); err != nil {
		logging.FromContext(c.Request().Context()).Error("index item failed", "item_id", item.ID, "error", err)
	}
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var item models.Item
	if err := h.DB.WithContext(c.Request().Context()).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) GetItems(c echo.Context) error {
	ctx := c.Request().Context()

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Item{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var items []models.Item
	if err := h.DB.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	item := models.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	h.index(c, item)
	h.publish(c, fmt.Sprint(item.ID), map[string]any{
		"type":    "item_created",
		"item_id": item.ID,
		"name":    item.Name,
	})

	return c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) PatchItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var item models.Item
	if err := h.DB.WithContext(c.Request().Context()).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	item.Name = req.Name
	item.Description = req.Description
	item.Price = req.Price
	if err := h.DB.WithContext(c.Request().Context()).Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	h.index(c, item)
	h.publish(c, fmt.Sprint(item.ID), map[string]any{
		"type":    "item_updated",
		"item_id": item.ID,
		"name":    item.Name,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var item models.Item
	if err := h.DB.WithContext(c.Request().Context()).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := h.DB.WithContext(c.Request().Context()).Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if h.Index != nil {
		if err := h.Index.DeleteItem(c.Request().Context(), item.ID); err != nil {
			logging.FromContext(c.Request().Context()).Error("deindex item failed", "item_id", item.ID, "error", err)
		}
	}
	h.publish(c, fmt.Sprint(item.ID), map[string]any{
		"type":    "item_deleted",
		"item_id": item.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
