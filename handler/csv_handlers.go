// ABOUTME: This file implements CSV template export and import HTTP handlers
// ABOUTME: Exports download as UTF-8 BOM CSV; imports accept uploaded template files
package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"cafe24-admin/models"
)

func registerCSVRoutes(v1 *echo.Group, deps *Dependencies) {
	v1.GET("/products/export.csv", handleExportProducts(deps))
	v1.POST("/products/import", handleImportProducts(deps))
}

func handleExportProducts(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := models.ProductFilter{
			Display: c.QueryParam("display"),
			Selling: c.QueryParam("selling"),
		}

		data, err := deps.CSV.ExportProducts(c.Request().Context(), filter)
		if err != nil {
			return handleError(c, err, "export_products")
		}

		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
	}
}

func handleImportProducts(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := readUpload(c)
		if err != nil {
			return handleError(c, err, "import_products")
		}

		summary, err := deps.CSV.ImportProducts(c.Request().Context(), data)
		if err != nil {
			return handleError(c, err, "import_products")
		}

		status := http.StatusOK
		if summary.Failed > 0 {
			status = http.StatusMultiStatus
		}
		return c.JSON(status, summary)
	}
}

// readUpload accepts either a multipart "file" field or a raw CSV body.
func readUpload(c echo.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, models.NewValidationError("unreadable upload: %v", err)
		}
		defer src.Close()
		return io.ReadAll(src)
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, models.NewValidationError("unreadable request body: %v", err)
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("empty CSV upload")
	}
	return data, nil
}
