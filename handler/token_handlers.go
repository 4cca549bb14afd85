// ABOUTME: This file implements token lifecycle HTTP handlers for operators
// ABOUTME: Status responses summarise expiry state without exposing token material
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func registerTokenRoutes(v1 *echo.Group, deps *Dependencies) {
	tokens := v1.Group("/token")
	tokens.GET("/status", handleTokenStatus(deps))
	tokens.POST("/refresh", handleTokenRefresh(deps))
}

func handleTokenStatus(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, deps.Tokens.Status())
	}
}

func handleTokenRefresh(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := deps.Tokens.Refresh(c.Request().Context()); err != nil {
			return handleError(c, err, "token_refresh")
		}
		return c.JSON(http.StatusOK, deps.Tokens.Status())
	}
}
