// ABOUTME: This file implements the bulk price apply HTTP handler
// ABOUTME: Partial failures return 207 with per-row outcomes in input order
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cafe24-admin/models"
)

func registerBulkRoutes(v1 *echo.Group, deps *Dependencies) {
	v1.POST("/bulk/prices", handleBulkPrices(deps))
}

type bulkPricesRequest struct {
	Items []models.BulkPriceItem `json:"items"`
}

func handleBulkPrices(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req bulkPricesRequest
		if err := c.Bind(&req); err != nil {
			return handleError(c, models.NewValidationError("invalid request body"), "bulk_prices")
		}

		result, err := deps.Bulk.ApplyPrices(c.Request().Context(), req.Items)
		if err != nil {
			return handleError(c, err, "bulk_prices")
		}

		status := http.StatusOK
		if result.FailedCount > 0 {
			status = http.StatusMultiStatus
		}
		return c.JSON(status, result)
	}
}
