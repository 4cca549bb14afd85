// ABOUTME: This file maps service errors onto HTTP responses for the admin API
// ABOUTME: Error bodies carry the taxonomy tag and a safe message, never token material
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"cafe24-admin/models"
)

// errorResponse is the JSON body returned for any failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Operation string `json:"operation,omitempty"`
}

// handleError translates a service error into an HTTP response.
func handleError(c echo.Context, err error, operation string) error {
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error:     string(models.ErrKindTransport),
			Message:   "internal error",
			Operation: operation,
		})
	}

	return c.JSON(statusForKind(apiErr.Kind), errorResponse{
		Error:     string(apiErr.Kind),
		Message:   apiErr.Message,
		Operation: operation,
	})
}

// statusForKind maps the error taxonomy onto HTTP status codes.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrKindValidation:
		return http.StatusBadRequest
	case models.ErrKindNotAuthenticated, models.ErrKindRefreshTokenExpired,
		models.ErrKindClientCredentialsRejected, models.ErrKindAuthRejected:
		return http.StatusUnauthorized
	case models.ErrKindRateLimited:
		return http.StatusTooManyRequests
	case models.ErrKindUpstream4xx:
		return http.StatusBadGateway
	case models.ErrKindUpstream5xx, models.ErrKindTransport, models.ErrKindDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
