// ABOUTME: This file wires the admin HTTP surface onto an echo router
// ABOUTME: Routes dispatch to the catalog, order, bulk, CSV and token services
package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cafe24-admin/service"
)

// Dependencies carries the constructed services the handlers dispatch onto.
type Dependencies struct {
	Catalog *service.CatalogService
	Orders  *service.OrderService
	Bulk    *service.BulkPriceService
	CSV     *service.CSVService
	Tokens  *service.TokenManager
	Logger  *slog.Logger
}

// NewRouter builds the admin API router.
func NewRouter(deps *Dependencies) *echo.Echo {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	e.GET("/v1/health", handleHealth(deps))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	registerProductRoutes(v1, deps)
	registerOrderRoutes(v1, deps)
	registerBulkRoutes(v1, deps)
	registerCSVRoutes(v1, deps)
	registerTokenRoutes(v1, deps)

	return e
}

func handleHealth(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := deps.Tokens.Status()
		return c.JSON(http.StatusOK, map[string]any{
			"status":           "healthy",
			"service":          "cafe24-admin",
			"has_access_token": status.HasAccessToken,
			"auto_refresh":     status.IsAutoRefreshing,
			"needs_refresh":    status.NeedsRefresh,
			"refresh_expired":  status.RefreshExpired,
		})
	}
}
