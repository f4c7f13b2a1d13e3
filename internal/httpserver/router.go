package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urospodkriznik/myapp-devops/internal/handlers"
	"github.com/urospodkriznik/myapp-devops/internal/metrics"
	authmw "github.com/urospodkriznik/myapp-devops/internal/middleware/auth"
	"github.com/urospodkriznik/myapp-devops/internal/models"
	"github.com/urospodkriznik/myapp-devops/internal/tokens"
)

type Deps struct {
	DB            *gorm.DB
	Tokens        *tokens.Service
	Metrics       *metrics.Registry
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	ItemHandler   *handlers.ItemHandler
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/healthz", healthz(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler)
	}

	requireUser := authmw.RequireUser(d.DB, d.Tokens)

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.GET("/refresh", d.AuthHandler.Refresh)

	private := e.Group("", requireUser)
	private.POST("/logout", d.AuthHandler.LogOut)
	private.GET("/me", d.AuthHandler.Me)

	admin := e.Group("/users", requireUser, authmw.RequireRole(models.RoleAdmin))
	admin.GET("", d.UserHandler.List)
	admin.DELETE("/:id", d.UserHandler.Delete)

	// Item reads are public; mutations only need a logged-in user.
	items := e.Group("/items")
	items.GET("", d.ItemHandler.GetItems)
	items.GET("/search", d.SearchHandler.Search)
	items.GET("/:id", d.ItemHandler.GetItem)

	itemsPrivate := items.Group("", requireUser)
	itemsPrivate.POST("", d.ItemHandler.CreateItem)
	itemsPrivate.PATCH("/:id", d.ItemHandler.PatchItem)
	itemsPrivate.DELETE("/:id", d.ItemHandler.DeleteItem)
}

func healthz(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "db unavailable")
		}
		if err := sqlDB.PingContext(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "db unavailable")
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
