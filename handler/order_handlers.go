// ABOUTME: This file implements order and customer listing HTTP handlers
// ABOUTME: Order listings require an inclusive start/end date range
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"cafe24-admin/models"
)

func registerOrderRoutes(v1 *echo.Group, deps *Dependencies) {
	v1.GET("/orders", handleListOrders(deps))
	v1.GET("/customers", handleListCustomers(deps))
}

func parsePage(c echo.Context, defaultLimit int) (models.Page, error) {
	page := models.Page{Limit: defaultLimit}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, models.NewValidationError("invalid limit %q", raw)
		}
		page.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, models.NewValidationError("invalid offset %q", raw)
		}
		page.Offset = n
	}
	return page, nil
}

func handleListOrders(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, err := parsePage(c, 100)
		if err != nil {
			return handleError(c, err, "list_orders")
		}

		dateRange := models.DateRange{
			Start: c.QueryParam("start_date"),
			End:   c.QueryParam("end_date"),
		}

		orders, err := deps.Orders.ListOrders(c.Request().Context(), dateRange, page)
		if err != nil {
			return handleError(c, err, "list_orders")
		}
		return c.JSON(http.StatusOK, map[string]any{"orders": orders})
	}
}

func handleListCustomers(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, err := parsePage(c, 100)
		if err != nil {
			return handleError(c, err, "list_customers")
		}

		customers, err := deps.Orders.ListCustomers(c.Request().Context(), page)
		if err != nil {
			return handleError(c, err, "list_customers")
		}
		return c.JSON(http.StatusOK, map[string]any{"customers": customers})
	}
}
