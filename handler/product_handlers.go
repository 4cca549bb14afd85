// ABOUTME: This file implements the product catalog HTTP handlers
// ABOUTME: Listing accepts filter, sort, search and pagination query parameters
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"cafe24-admin/models"
)

func registerProductRoutes(v1 *echo.Group, deps *Dependencies) {
	products := v1.Group("/products")
	products.GET("", handleListProducts(deps))
	products.GET("/:id", handleGetProduct(deps))
	products.PUT("/:id", handleUpdateProduct(deps))
	products.GET("/:id/variants", handleListVariants(deps))
	products.GET("/:id/inventory", handleGetInventory(deps))
}

func handleListProducts(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := models.Page{Limit: 100}
		if raw := c.QueryParam("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return handleError(c, models.NewValidationError("invalid limit %q", raw), "list_products")
			}
			page.Limit = n
		}
		if raw := c.QueryParam("offset"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return handleError(c, models.NewValidationError("invalid offset %q", raw), "list_products")
			}
			page.Offset = n
		}

		filter := models.ProductFilter{
			ProductCode:  c.QueryParam("product_code"),
			Display:      c.QueryParam("display"),
			Selling:      c.QueryParam("selling"),
			CreatedStart: c.QueryParam("created_start"),
			CreatedEnd:   c.QueryParam("created_end"),
			Search:       c.QueryParam("search"),
		}

		result, err := deps.Catalog.ListProducts(c.Request().Context(), filter,
			models.SortKey(c.QueryParam("sort")), models.SortOrder(c.QueryParam("order")), page)
		if err != nil {
			return handleError(c, err, "list_products")
		}
		return c.JSON(http.StatusOK, result)
	}
}

func handleGetProduct(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		productNo, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return handleError(c, models.NewValidationError("invalid product id %q", c.Param("id")), "get_product")
		}

		product, err := deps.Catalog.GetProduct(c.Request().Context(), productNo)
		if err != nil {
			return handleError(c, err, "get_product")
		}
		return c.JSON(http.StatusOK, map[string]any{"product": product})
	}
}

func handleUpdateProduct(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		productNo, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return handleError(c, models.NewValidationError("invalid product id %q", c.Param("id")), "update_product")
		}

		var patch models.ProductPatch
		if err := c.Bind(&patch); err != nil {
			return handleError(c, models.NewValidationError("invalid request body"), "update_product")
		}

		body, err := deps.Catalog.UpdateProduct(c.Request().Context(), productNo, patch)
		if err != nil {
			return handleError(c, err, "update_product")
		}
		return c.JSONBlob(http.StatusOK, body)
	}
}

func handleListVariants(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		productNo, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return handleError(c, models.NewValidationError("invalid product id %q", c.Param("id")), "list_variants")
		}

		variants, err := deps.Catalog.ListVariants(c.Request().Context(), productNo)
		if err != nil {
			return handleError(c, err, "list_variants")
		}
		return c.JSON(http.StatusOK, map[string]any{"variants": variants})
	}
}

func handleGetInventory(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		productNo, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return handleError(c, models.NewValidationError("invalid product id %q", c.Param("id")), "get_inventory")
		}

		inventory, err := deps.Catalog.GetInventory(c.Request().Context(), productNo)
		if err != nil {
			return handleError(c, err, "get_inventory")
		}
		return c.JSON(http.StatusOK, map[string]any{"inventory": inventory})
	}
}
